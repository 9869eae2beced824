// Package phase implements the linear progression of a charette through its phases.
package phase

import (
	"fmt"
	"strings"

	"github.com/eldtechnologies/charette/internal/models"
)

// Direction is a phase transition command.
type Direction string

const (
	Next     Direction = "next"
	Previous Direction = "previous"
)

// ParseDirection validates a direction received from a caller.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(strings.ToLower(strings.TrimSpace(s))); d {
	case Next, Previous:
		return d, nil
	case "prev":
		return Previous, nil
	default:
		return "", fmt.Errorf("%w: %q", models.ErrInvalidDirection, s)
	}
}

// Count is the number of phases.
func Count() int {
	return len(models.Phases)
}

// Initial is the phase a new charette starts in.
const Initial = 0

// Terminal is the index of the last phase.
func Terminal() int {
	return len(models.Phases) - 1
}

// Valid reports whether i is a phase index.
func Valid(i int) bool {
	return i >= 0 && i < len(models.Phases)
}

// Name returns the name of phase i, or "" if i is out of range.
func Name(i int) string {
	if !Valid(i) {
		return ""
	}
	return models.Phases[i]
}

// Apply returns the phase reached from current by d. Transitions are clamped
// at both ends: next from the terminal phase and previous from the initial
// phase leave the index unchanged. An out-of-range current is clamped first.
func Apply(current int, d Direction) int {
	current = clamp(current)
	switch d {
	case Next:
		return clamp(current + 1)
	case Previous:
		return clamp(current - 1)
	}
	return current
}

func clamp(i int) int {
	if i < Initial {
		return Initial
	}
	if i > Terminal() {
		return Terminal()
	}
	return i
}
