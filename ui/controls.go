package ui

import (
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/fountain/sim"
)

const (
	buttonWidth  = 110
	buttonHeight = 26
	buttonGap    = 6
)

// ModeSelector renders one button per backend in a column.
type ModeSelector struct {
	x, y    int32
	visible bool
}

// NewModeSelector creates a selector anchored at (x, y).
func NewModeSelector(x, y int32) *ModeSelector {
	return &ModeSelector{x: x, y: y, visible: true}
}

// SetPosition updates the anchor, typically after a window resize.
func (m *ModeSelector) SetPosition(x, y int32) {
	m.x = x
	m.y = y
}

// Toggle switches selector visibility.
func (m *ModeSelector) Toggle() bool {
	m.visible = !m.visible
	return m.visible
}

// IsVisible returns whether the selector is shown.
func (m *ModeSelector) IsVisible() bool {
	return m.visible
}

// Bounds returns the button rectangle for each mode, in key order.
func (m *ModeSelector) Bounds() []rl.Rectangle {
	modes := sim.Modes()
	out := make([]rl.Rectangle, len(modes))
	for i := range modes {
		out[i] = rl.Rectangle{
			X:      float32(m.x),
			Y:      float32(m.y + int32(i)*(buttonHeight+buttonGap)),
			Width:  buttonWidth,
			Height: buttonHeight,
		}
	}
	return out
}

// ButtonLabel returns the text of a mode's button.
func ButtonLabel(mode, active sim.Mode, deviceAvailable bool) string {
	label := fmt.Sprintf("%d %s", int(mode)+1, mode)
	switch {
	case mode == active:
		label = "> " + label
	case mode == sim.ModeDevice && !deviceAvailable:
		label += " (n/a)"
	}
	return label
}

// Draw renders the buttons and returns the mode that was clicked, if any.
func (m *ModeSelector) Draw(active sim.Mode, deviceAvailable bool) (sim.Mode, bool) {
	if !m.visible {
		return active, false
	}

	picked, clicked := active, false
	for i, bounds := range m.Bounds() {
		mode := sim.Mode(i)
		if gui.Button(bounds, ButtonLabel(mode, active, deviceAvailable)) {
			picked, clicked = mode, true
		}
	}
	return picked, clicked
}
