package board

import (
	"errors"
	"fmt"
)

// Player tags a checker with its owner.
type Player string

const (
	PlayerOne Player = "player_1"
	PlayerTwo Player = "player_2"
)

func (p Player) Valid() bool {
	return p == PlayerOne || p == PlayerTwo
}

const (
	// Points is the number of playable points on the board.
	Points = 24
	// Removed is the drop result for a checker taken out of play. It is never a key of CheckerPositions.
	Removed = -1
)

var (
	ErrMissingPoint   = errors.New("checker positions: missing point")
	ErrUnknownPlayer  = errors.New("checker positions: unknown player tag")
	ErrNoChecker      = errors.New("no checker at origin")
	ErrDegenerateSize = errors.New("board size is degenerate")
)

// CheckerPositions maps point index (1..24) to its stack, ordered from the board edge outward.
type CheckerPositions map[int][]Player

// Die is a single die value as reported by the recognizer.
type Die struct {
	Value      int     `json:"value"`
	Randomized bool    `json:"randomized"`
	Confidence float64 `json:"confidence,omitempty"`
}

// GameData is the board snapshot exchanged with the state container and the live session.
type GameData struct {
	CheckerPositions CheckerPositions `json:"checkerPositions"`
	Dice             []Die            `json:"dices"`
	CurrentPlayer    string           `json:"currentPlayer,omitempty"`
}

// Clone returns a deep copy of the snapshot.
func (g GameData) Clone() GameData {
	out := GameData{
		CheckerPositions: g.CheckerPositions.Clone(),
		CurrentPlayer:    g.CurrentPlayer,
	}
	if g.Dice != nil {
		out.Dice = append([]Die(nil), g.Dice...)
	}
	return out
}

// Validate checks the board model contract: every point present, only known player tags.
func (g GameData) Validate() error {
	if err := g.CheckerPositions.Validate(); err != nil {
		return err
	}
	for i, d := range g.Dice {
		if d.Value < 1 || d.Value > 6 {
			return fmt.Errorf("die %d: value %d out of range", i, d.Value)
		}
	}
	return nil
}
