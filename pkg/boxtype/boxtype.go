// Package boxtype defines the closed set of region kinds a page can be
// segmented into, their stable names, family membership, and display colors.
package boxtype

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"
)

// Type is one of the region kinds of the box taxonomy.
type Type int

const (
	Unknown Type = iota
	FlowingText
	HeadingText
	PulloutText
	CaptionText
	VerticalText
	FlowingImage
	HeadingImage
	PulloutImage
	Equation
	InlineEquation
	Table
	HorzLine
	VertLine
	Noise
	Count
)

// names are the stable serialization names; they never change once persisted.
var names = map[Type]string{
	Unknown:        "UNKNOWN",
	FlowingText:    "FLOWING_TEXT",
	HeadingText:    "HEADING_TEXT",
	PulloutText:    "PULLOUT_TEXT",
	CaptionText:    "CAPTION_TEXT",
	VerticalText:   "VERTICAL_TEXT",
	FlowingImage:   "FLOWING_IMAGE",
	HeadingImage:   "HEADING_IMAGE",
	PulloutImage:   "PULLOUT_IMAGE",
	Equation:       "EQUATION",
	InlineEquation: "INLINE_EQUATION",
	Table:          "TABLE",
	HorzLine:       "HORZ_LINE",
	VertLine:       "VERT_LINE",
	Noise:          "NOISE",
	Count:          "COUNT",
}

var byName = func() map[string]Type {
	m := make(map[string]Type, len(names))
	for t, n := range names {
		m[n] = t
	}
	return m
}()

// String returns the stable name of the type.
func (t Type) String() string {
	if n, ok := names[t]; ok {
		return n
	}
	return names[Unknown]
}

// Parse resolves a stable name back to its type.
func Parse(name string) (Type, error) {
	if t, ok := byName[name]; ok {
		return t, nil
	}
	return Unknown, fmt.Errorf("unknown box type %q", name)
}

// All returns every type in declaration order.
func All() []Type {
	return []Type{
		Unknown, FlowingText, HeadingText, PulloutText, CaptionText,
		VerticalText, FlowingImage, HeadingImage, PulloutImage, Equation,
		InlineEquation, Table, HorzLine, VertLine, Noise, Count,
	}
}

// Family groups types that share recognition and export behavior.
type Family int

const (
	FamilyOther Family = iota
	FamilyText
	FamilyImage
	FamilyLine
	FamilyMath
)

// Family returns the family the type belongs to. Every type belongs to
// exactly one family.
func (t Type) Family() Family {
	switch t {
	case FlowingText, HeadingText, PulloutText, CaptionText, VerticalText:
		return FamilyText
	case FlowingImage, HeadingImage, PulloutImage:
		return FamilyImage
	case HorzLine, VertLine:
		return FamilyLine
	case Equation, InlineEquation:
		return FamilyMath
	default:
		return FamilyOther
	}
}

// IsText reports whether the type is in the TEXT family.
func (t Type) IsText() bool { return t.Family() == FamilyText }

// IsImage reports whether the type is in the IMAGE family.
func (t Type) IsImage() bool { return t.Family() == FamilyImage }

// IsLine reports whether the type is in the LINE family.
func (t Type) IsLine() bool { return t.Family() == FamilyLine }

// IsMath reports whether the type is in the MATH family.
func (t Type) IsMath() bool { return t.Family() == FamilyMath }

// CarriesOCRResults reports whether boxes of this type may hold a recognition
// result tree. IMAGE and LINE boxes never do.
func (t Type) CarriesOCRResults() bool {
	return !t.IsImage() && !t.IsLine()
}

// colors maps each type to its display color (hex, sRGB).
var colors = map[Type]string{
	Unknown:        "#808080",
	FlowingText:    "#2e7d32",
	HeadingText:    "#1565c0",
	PulloutText:    "#6a1b9a",
	CaptionText:    "#00838f",
	VerticalText:   "#558b2f",
	FlowingImage:   "#ef6c00",
	HeadingImage:   "#f9a825",
	PulloutImage:   "#ff8f00",
	Equation:       "#c62828",
	InlineEquation: "#ad1457",
	Table:          "#4e342e",
	HorzLine:       "#37474f",
	VertLine:       "#546e7a",
	Noise:          "#9e9e9e",
	Count:          "#616161",
}

// Color returns the display color of the type.
func (t Type) Color() colorful.Color {
	hex, ok := colors[t]
	if !ok {
		hex = colors[Unknown]
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return colorful.Color{R: 0.5, G: 0.5, B: 0.5}
	}
	return c
}

// ColorHex returns the display color as a "#rrggbb" string for exporters.
func (t Type) ColorHex() string {
	return t.Color().Hex()
}
