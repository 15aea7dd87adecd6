// Package skin maps traffic point kinds to the shapes that draw them.
// Swapping the skin re-themes the animation without touching the engine.
package skin

import (
	"errors"
	"fmt"
	"sort"

	"github.com/SmitUplenchwar2687/meshflow/internal/canvas"
)

var (
	// ErrUnknownKind is returned by ForKind for a kind the skin has no shape
	// for. It always indicates a programming error.
	ErrUnknownKind = errors.New("skin: unknown point kind")
	// ErrUnknownSkin is returned by ByName.
	ErrUnknownSkin = errors.New("skin: unknown skin")
)

// Kind is the category of a traffic point, fixed when the point spawns.
type Kind int

const (
	KindSuccess Kind = iota
	KindError
	// KindTCP marks points on edges carrying a non-request protocol.
	KindTCP
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindError:
		return "error"
	case KindTCP:
		return "tcp"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Skin selects the PointRenderer for a point kind.
type Skin interface {
	Name() string
	ForKind(k Kind) (PointRenderer, error)
}

// Theme is a Skin with one shape per kind.
type Theme struct {
	name    string
	Success PointRenderer
	Error   PointRenderer
	TCP     PointRenderer
}

func (t *Theme) Name() string {
	return t.name
}

func (t *Theme) ForKind(k Kind) (PointRenderer, error) {
	var r PointRenderer
	switch k {
	case KindSuccess:
		r = t.Success
	case KindError:
		r = t.Error
	case KindTCP:
		r = t.TCP
	default:
		return nil, fmt.Errorf("%w: %s in skin %q", ErrUnknownKind, k, t.name)
	}
	if r == nil {
		return nil, fmt.Errorf("%w: skin %q has no shape for %s", ErrUnknownKind, t.name, k)
	}
	return r, nil
}

var (
	white    = canvas.MustColor("#ffffff")
	black    = canvas.MustColor("#030303")
	red      = canvas.MustColor("#cc0000")
	lightRed = canvas.MustColor("#ff6d6d")
	ice      = canvas.MustColor("#def3ff")
	frost    = canvas.MustColor("#7dc3e8")
)

// Normal is the default theme: white dots for success, red dots for errors,
// concentric diamonds for TCP.
func Normal() *Theme {
	return &Theme{
		name:    "normal",
		Success: Circle{Radius: 1.5, Fill: white, Stroke: black, LineWidth: 0.5},
		Error:   Circle{Radius: 2, Fill: lightRed, Stroke: red, LineWidth: 1},
		TCP: ConcentricDiamond{
			Outer: Diamond{Radius: 2.5, Fill: white, Stroke: black, LineWidth: 1},
			Inner: Diamond{Radius: 1, Fill: black, Stroke: black, LineWidth: 0},
		},
	}
}

// Holiday swaps success dots for snowflakes.
func Holiday() *Theme {
	return &Theme{
		name:    "holiday",
		Success: Snowflake{Radius: 4, Spikes: 6, Stroke: ice, LineWidth: 1},
		Error:   Snowflake{Radius: 4, Spikes: 6, Stroke: red, LineWidth: 1.5},
		TCP: ConcentricDiamond{
			Outer: Diamond{Radius: 3, Fill: ice, Stroke: frost, LineWidth: 1},
			Inner: Diamond{Radius: 1, Fill: frost, Stroke: frost, LineWidth: 0},
		},
	}
}

var themes = map[string]func() *Theme{
	"normal":  Normal,
	"holiday": Holiday,
}

// ByName returns a fresh instance of a named theme.
func ByName(name string) (Skin, error) {
	ctor, ok := themes[name]
	if !ok {
		return nil, fmt.Errorf("%w %q, must be one of: %v", ErrUnknownSkin, name, Names())
	}
	return ctor(), nil
}

// Names lists the registered theme names, sorted.
func Names() []string {
	names := make([]string, 0, len(themes))
	for name := range themes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
