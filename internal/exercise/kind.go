// Package exercise evaluates finger postures against the supported hand
// exercises. The set of exercises is closed: every Kind maps to exactly one
// Rule implementation in NewRule.
package exercise

import (
	"errors"
	"fmt"
)

// Kind identifies an exercise variant.
type Kind string

const (
	// KindFist asks for a closed fist.
	KindFist Kind = "fist"
	// KindFistIndex asks for a fist with the index finger raised.
	KindFistIndex Kind = "fist-index"
	// KindFistPalm alternates held fists and open palms for several cycles.
	KindFistPalm Kind = "fist-palm"
)

// ErrUnknownExercise is returned for ids outside the supported set, or for
// exercises disabled in the catalog.
var ErrUnknownExercise = errors.New("unknown exercise")

var kinds = []Kind{KindFist, KindFistIndex, KindFistPalm}

// Kinds returns every supported Kind in display order.
func Kinds() []Kind {
	return append([]Kind(nil), kinds...)
}

// ParseKind maps an exercise id to its Kind.
func ParseKind(id string) (Kind, error) {
	for _, k := range kinds {
		if string(k) == id {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownExercise, id)
}

// Stateful reports whether the Kind's rule keeps state between frames.
func (k Kind) Stateful() bool {
	return k == KindFistPalm
}

// DisplayName is the built-in human readable name.
func (k Kind) DisplayName() string {
	switch k {
	case KindFist:
		return "Fist"
	case KindFistIndex:
		return "Fist with index finger"
	case KindFistPalm:
		return "Fist and palm"
	}
	return string(k)
}

// Description is the built-in instruction shown to the user.
func (k Kind) Description() string {
	switch k {
	case KindFist:
		return "Clench all fingers into a fist"
	case KindFistIndex:
		return "Make a fist but keep the index finger raised"
	case KindFistPalm:
		return "Alternate a held fist and a held open palm to improve circulation"
	}
	return ""
}
