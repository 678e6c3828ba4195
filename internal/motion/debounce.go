package motion

// Phase is the settle state of the scene.
type Phase int

const (
	Settled Phase = iota
	Moving
)

func (p Phase) String() string {
	switch p {
	case Moving:
		return "MOVING"
	case Settled:
		return "SETTLED"
	default:
		return "UNKNOWN"
	}
}

// Debouncer turns per-tick motion flags into settle events. A settle needs two
// consecutive still ticks after motion; it fires once and stays quiet until motion resumes.
// The zero value starts SETTLED, so nothing fires before the first motion.
type Debouncer struct {
	phase   Phase
	pending bool
}

// Observe feeds one tick and reports whether a capture should fire.
func (d *Debouncer) Observe(moving bool) bool {
	if moving {
		d.pending = false
		d.phase = Moving
		return false
	}
	if !d.pending {
		d.pending = true
		return false
	}
	if d.phase == Moving {
		d.phase = Settled
		d.pending = false
		return true
	}
	return false
}

func (d *Debouncer) Phase() Phase { return d.phase }

func (d *Debouncer) Pending() bool { return d.pending }
