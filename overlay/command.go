package overlay

import (
	"fmt"

	"github.com/odmlbook/inkvision/ink"
)

// Kind is the type of a drawing command.
type Kind int

const (
	// KindClear removes everything previously drawn on the overlay.
	KindClear Kind = iota
	KindStrokeRect
	KindText
	KindStrokePath
)

var kindNames = [...]string{"clear", "stroke_rect", "text", "stroke_path"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

func (k Kind) MarshalText() ([]byte, error) {
	if k < 0 || int(k) >= len(kindNames) {
		return nil, fmt.Errorf("unknown command kind %d", int(k))
	}
	return []byte(kindNames[k]), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	for i, n := range kindNames {
		if n == string(b) {
			*k = Kind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown command kind %q", string(b))
}

// Command describes one overlay drawing operation independently of any
// drawing API. Surfaces apply commands in order, later ones on top.
type Command struct {
	Kind Kind `json:"kind"`
	// Rect is set for KindStrokeRect.
	Rect DisplayBox `json:"rect"`
	// Text and its baseline anchor X, Y are set for KindText.
	Text string  `json:"text,omitempty"`
	X    float64 `json:"x,omitempty"`
	Y    float64 `json:"y,omitempty"`
	// Path is set for KindStrokePath.
	Path  *ink.Path `json:"path,omitempty"`
	Style Style     `json:"style"`
}

// ClearCommand returns the command that wipes the overlay.
func ClearCommand() Command {
	return Command{Kind: KindClear}
}

// Surface applies drawing commands. Implementations that back a real UI
// must be called on the UI goroutine.
type Surface interface {
	Apply(cmds []Command) error
}
