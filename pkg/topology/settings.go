package topology

import (
	"fmt"
	"math"
	"strings"
)

// Slack controls how far a cable sags. Legal values are 0.0 to 2.0 in steps of 0.2.
type Slack float64

const (
	// DefaultSlack is the slack of a freshly built node.
	DefaultSlack Slack = 1.0

	slackStep  = 0.2
	slackSteps = 10
	slackEps   = 1e-6
)

// SlackSteps returns every legal slack value in ascending order.
func SlackSteps() []Slack {
	steps := make([]Slack, slackSteps+1)
	for i := range steps {
		steps[i] = Slack(float64(i) / 5)
	}
	return steps
}

// ParseSlack snaps v onto the slack grid. Values further than a rounding
// error from a grid point are rejected.
func ParseSlack(v float64) (Slack, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidSlack, v)
	}
	step := math.Round(v / slackStep)
	if step < 0 || step > slackSteps || math.Abs(step*slackStep-v) > slackEps {
		return 0, fmt.Errorf("%w: %v (want 0.0..2.0 in steps of 0.2)", ErrInvalidSlack, v)
	}
	return Slack(step / 5), nil
}

// Next returns the following slack step, wrapping from 2.0 back to 0.0.
func (s Slack) Next() Slack {
	step := int(math.Round(float64(s)/slackStep)) + 1
	if step > slackSteps {
		step = 0
	}
	return Slack(float64(step) / 5)
}

// String renders the slack the way the selection menu shows it, e.g. "120%".
func (s Slack) String() string {
	return fmt.Sprintf("%.0f%%", float64(s)*100)
}

// CableColor selects one of the fixed cable colours.
type CableColor int

const (
	Copper CableColor = iota
	Tin
	Gold
	Rubber
)

// RGBA is an 8-bit colour.
type RGBA struct {
	R, G, B, A uint8
}

var cableColors = [...]struct {
	name string
	rgba RGBA
}{
	Copper: {"Copper", RGBA{150, 85, 11, 255}},
	Tin:    {"Tin", RGBA{140, 160, 160, 255}},
	Gold:   {"Gold", RGBA{232, 221, 63, 255}},
	Rubber: {"Rubber", RGBA{35, 33, 43, 255}},
}

// CableColors returns all selectable colours.
func CableColors() []CableColor {
	return []CableColor{Copper, Tin, Gold, Rubber}
}

// Valid reports whether c is one of the defined colours.
func (c CableColor) Valid() bool {
	return c >= Copper && c <= Rubber
}

// RGBA returns the display colour. Unknown selectors render as copper.
func (c CableColor) RGBA() RGBA {
	if !c.Valid() {
		return cableColors[Copper].rgba
	}
	return cableColors[c].rgba
}

// Next cycles to the following colour.
func (c CableColor) Next() CableColor {
	if !c.Valid() || c == Rubber {
		return Copper
	}
	return c + 1
}

func (c CableColor) String() string {
	if !c.Valid() {
		return fmt.Sprintf("CableColor(%d)", int(c))
	}
	return cableColors[c].name
}

// ParseCableColor accepts a colour name (case-insensitive).
func ParseCableColor(s string) (CableColor, error) {
	for _, c := range CableColors() {
		if strings.EqualFold(c.String(), s) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidColor, s)
}

// Rotation is a cardinal facing. North is 0 and values go clockwise.
type Rotation int

const (
	North Rotation = iota
	East
	South
	West
)

// Valid reports whether r is one of the four cardinal rotations.
func (r Rotation) Valid() bool {
	return r >= North && r <= West
}

// Rotated returns r turned clockwise by quarter turns.
func (r Rotation) Rotated(quarters int) Rotation {
	return Rotation(((int(r)+quarters)%4 + 4) % 4)
}

func (r Rotation) String() string {
	switch r {
	case North:
		return "north"
	case East:
		return "east"
	case South:
		return "south"
	case West:
		return "west"
	default:
		return fmt.Sprintf("Rotation(%d)", int(r))
	}
}
