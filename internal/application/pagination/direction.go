package pagination

import (
	"errors"
	"fmt"
)

// ErrInvalidDirection is returned for an unrecognised navigation direction.
var ErrInvalidDirection = errors.New("invalid navigation direction")

// Direction is a navigation control.
type Direction string

// Navigation directions.
const (
	First    Direction = "first"
	Previous Direction = "previous"
	Next     Direction = "next"
	Last     Direction = "last"
)

// ParseDirection parses a direction name.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(s); d {
	case First, Previous, Next, Last:
		return d, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDirection, s)
	}
}

// TargetPage returns the page reached by moving in dir from current, clamped to
// [0, total-1]. Pages are zero-based; total is at least 1.
func TargetPage(dir Direction, current, total int) int {
	last := max(total-1, 0)
	current = min(max(current, 0), last)

	switch dir {
	case First:
		return 0
	case Last:
		return last
	case Next:
		return min(current+1, last)
	case Previous:
		return max(current-1, 0)
	default:
		return current
	}
}
