package board

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartPositionLayout(t *testing.T) {
	scene, err := Layout(StartPosition(), NewSize(DefaultWidth), DefaultPalette())
	require.NoError(t, err)

	perPoint, perPlayer := scene.CountByPoint()
	assert.Equal(t, 15, perPlayer[PlayerOne])
	assert.Equal(t, 15, perPlayer[PlayerTwo])

	listed := map[int]int{1: 2, 12: 5, 17: 3, 19: 5, 24: 2, 13: 5, 8: 3, 6: 5}
	for i := 1; i <= Points; i++ {
		assert.Equal(t, listed[i], perPoint[i], "point %d", i)
	}
	assert.Len(t, scene.Wedges, Points)
}

func TestLayoutStacksTowardMidline(t *testing.T) {
	s := NewSize(DefaultWidth)
	scene, err := Layout(StartPosition(), s, DefaultPalette())
	require.NoError(t, err)
	r := s.CheckerRadius()
	for _, c := range scene.Checkers {
		want := s.Height - r - float64(c.Index)*2*r
		if IsTopHalf(c.Point) {
			want = r + float64(c.Index)*2*r
		}
		assert.InDelta(t, want, c.Center.Y, 1e-9, "point %d index %d", c.Point, c.Index)
	}
}

func TestLayoutWedgeColorsAlternate(t *testing.T) {
	pal := DefaultPalette()
	scene, err := Layout(EmptyPositions(), NewSize(DefaultWidth), pal)
	require.NoError(t, err)
	for _, w := range scene.Wedges {
		if w.Point%2 == 0 {
			assert.Equal(t, pal.LightPoint, w.Fill)
		} else {
			assert.Equal(t, pal.DarkPoint, w.Fill)
		}
	}
	assert.Empty(t, scene.Checkers)
}

func TestLayoutRejectsMalformedModel(t *testing.T) {
	cp := StartPosition()
	delete(cp, 7)
	_, err := Layout(cp, NewSize(DefaultWidth), DefaultPalette())
	assert.True(t, errors.Is(err, ErrMissingPoint))

	cp = StartPosition()
	cp[3] = []Player{"player_3"}
	_, err = Layout(cp, NewSize(DefaultWidth), DefaultPalette())
	assert.True(t, errors.Is(err, ErrUnknownPlayer))

	_, err = Layout(StartPosition(), Size{}, DefaultPalette())
	assert.True(t, errors.Is(err, ErrDegenerateSize))
}

func TestCommitMovesOneChecker(t *testing.T) {
	start := StartPosition()
	out, err := Commit(start, 6, 4, 13)
	require.NoError(t, err)

	assert.Len(t, out[6], 4)
	assert.Len(t, out[13], 6)
	assert.Equal(t, PlayerTwo, out[13][5])
	assert.Equal(t, start.Total(), out.Total())

	// caller's mapping is untouched
	assert.Len(t, start[6], 5)
	assert.Len(t, start[13], 5)
}

func TestCommitRemoved(t *testing.T) {
	start := StartPosition()
	out, err := Commit(start, 1, 0, Removed)
	require.NoError(t, err)
	assert.Equal(t, start.Total()-1, out.Total())
	assert.Len(t, out[1], 1)
}

func TestCommitSplicesAtIndex(t *testing.T) {
	cp := EmptyPositions()
	cp[5] = []Player{PlayerOne, PlayerTwo, PlayerOne}
	out, err := Commit(cp, 5, 1, 9)
	require.NoError(t, err)
	assert.Equal(t, []Player{PlayerOne, PlayerOne}, out[5])
	assert.Equal(t, []Player{PlayerTwo}, out[9])
	assert.Equal(t, []Player{PlayerOne, PlayerTwo, PlayerOne}, cp[5])
}

func TestCommitErrors(t *testing.T) {
	cp := StartPosition()
	_, err := Commit(cp, 2, 0, 3)
	assert.True(t, errors.Is(err, ErrNoChecker))
	_, err = Commit(cp, 0, 0, 3)
	assert.True(t, errors.Is(err, ErrNoChecker))
	_, err = Commit(cp, 1, 0, 25)
	assert.Error(t, err)
}

func TestDragFromSixToThirteen(t *testing.T) {
	s := NewSize(DefaultWidth)
	start := StartPosition()
	drop := Snap(Vec{X: s.BarWidth() * 0.4, Y: s.CheckerRadius() * 1.2}, s)
	dest := ResolveDrop(drop, s)
	require.Equal(t, 13, dest)

	out, err := Commit(start, 6, 4, dest)
	require.NoError(t, err)
	assert.Equal(t, 6, len(out[13]))
	assert.Equal(t, 4, len(out[6]))
}

func TestGameDataJSONKeys(t *testing.T) {
	raw := []byte(`{"checkerPositions":{"1":["player_1"],"2":[]},"dices":[{"value":3,"randomized":false}],"currentPlayer":"player_2"}`)
	var g GameData
	require.NoError(t, json.Unmarshal(raw, &g))
	assert.Equal(t, []Player{PlayerOne}, g.CheckerPositions[1])
	assert.Equal(t, 3, g.Dice[0].Value)
	assert.Equal(t, "player_2", g.CurrentPlayer)
}

func TestParsePalette(t *testing.T) {
	p, err := ParsePalette(Palette{PlayerOne: "#FFF", Bar: "#123456"})
	require.NoError(t, err)
	assert.Equal(t, "#ffffff", p.PlayerOne)
	assert.Equal(t, "#123456", p.Bar)
	assert.Equal(t, DefaultPalette().Stroke, p.Stroke)

	_, err = ParsePalette(Palette{Stroke: "black"})
	assert.Error(t, err)
}
