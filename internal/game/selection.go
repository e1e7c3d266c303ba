package game

import (
	"fmt"
	"strconv"
)

type BetType string

const (
	BetTypeColor  BetType = "color"
	BetTypeNumber BetType = "number"
	BetTypeSize   BetType = "size"
)

// Selection is what a wager is placed on. The set of implementations is
// closed: ColorSelection, NumberSelection and SizeSelection.
type Selection interface {
	Type() BetType
	Value() string
	validate() error
}

type ColorSelection struct{ Color Color }

func (s ColorSelection) Type() BetType { return BetTypeColor }
func (s ColorSelection) Value() string { return string(s.Color) }

func (s ColorSelection) validate() error {
	switch s.Color {
	case ColorGreen, ColorRed, ColorViolet:
		return nil
	}
	return fmt.Errorf("invalid color %q: must be one of green, red, violet", s.Color)
}

type NumberSelection struct{ Number int }

func (s NumberSelection) Type() BetType { return BetTypeNumber }
func (s NumberSelection) Value() string { return strconv.Itoa(s.Number) }

func (s NumberSelection) validate() error {
	if s.Number < 0 || s.Number > 9 {
		return fmt.Errorf("invalid number %d: must be between 0 and 9", s.Number)
	}
	return nil
}

type SizeSelection struct{ Size Size }

func (s SizeSelection) Type() BetType { return BetTypeSize }
func (s SizeSelection) Value() string { return string(s.Size) }

func (s SizeSelection) validate() error {
	switch s.Size {
	case SizeBig, SizeSmall:
		return nil
	}
	return fmt.Errorf("invalid size %q: must be big or small", s.Size)
}

// ParseSelection builds a validated Selection from its wire form.
func ParseSelection(betType, value string) (Selection, error) {
	var sel Selection

	switch BetType(betType) {
	case BetTypeColor:
		sel = ColorSelection{Color: Color(value)}
	case BetTypeNumber:
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", value)
		}
		sel = NumberSelection{Number: n}
	case BetTypeSize:
		sel = SizeSelection{Size: Size(value)}
	default:
		return nil, fmt.Errorf("unknown bet type %q", betType)
	}

	if err := sel.validate(); err != nil {
		return nil, err
	}
	return sel, nil
}
