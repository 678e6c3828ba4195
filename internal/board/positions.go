package board

import "fmt"

// EmptyPositions returns a mapping with every point present and no checkers.
func EmptyPositions() CheckerPositions {
	out := make(CheckerPositions, Points)
	for i := 1; i <= Points; i++ {
		out[i] = []Player{}
	}
	return out
}

// StartPosition returns the standard opening layout, 15 checkers per player.
func StartPosition() CheckerPositions {
	out := EmptyPositions()
	out[1] = stack(PlayerOne, 2)
	out[12] = stack(PlayerOne, 5)
	out[17] = stack(PlayerOne, 3)
	out[19] = stack(PlayerOne, 5)

	out[24] = stack(PlayerTwo, 2)
	out[13] = stack(PlayerTwo, 5)
	out[8] = stack(PlayerTwo, 3)
	out[6] = stack(PlayerTwo, 5)
	return out
}

func stack(p Player, n int) []Player {
	s := make([]Player, n)
	for i := range s {
		s[i] = p
	}
	return s
}

func (cp CheckerPositions) Clone() CheckerPositions {
	if cp == nil {
		return nil
	}
	out := make(CheckerPositions, len(cp))
	for k, v := range cp {
		out[k] = append([]Player{}, v...)
	}
	return out
}

func (cp CheckerPositions) Validate() error {
	for i := 1; i <= Points; i++ {
		stack, ok := cp[i]
		if !ok {
			return fmt.Errorf("%w: %d", ErrMissingPoint, i)
		}
		for j, p := range stack {
			if !p.Valid() {
				return fmt.Errorf("%w: %q at point %d index %d", ErrUnknownPlayer, p, i, j)
			}
		}
	}
	return nil
}

// Count returns the number of checkers owned by p on points 1..24.
func (cp CheckerPositions) Count(p Player) int {
	n := 0
	for i := 1; i <= Points; i++ {
		for _, c := range cp[i] {
			if c == p {
				n++
			}
		}
	}
	return n
}

func (cp CheckerPositions) Total() int {
	n := 0
	for i := 1; i <= Points; i++ {
		n += len(cp[i])
	}
	return n
}
