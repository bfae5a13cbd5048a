package ui

import (
	"fmt"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/fountain/telemetry"
)

// HUDData holds all the data needed to render the main HUD.
type HUDData struct {
	Title           string
	Mode            string
	Particles       int
	Workers         int
	SubSteps        int
	FPS             int32
	StepTime        time.Duration // Average simulate phase
	Paused          bool
	DeviceAvailable bool
	Message         string // Last error or notice, empty for none
}

// Lines returns the HUD text, one entry per row.
func (d HUDData) Lines() []string {
	device := "unavailable"
	if d.DeviceAvailable {
		device = "available"
	}
	lines := []string{
		d.Title,
		fmt.Sprintf("Mode: %s | Particles: %d | Workers: %d", d.Mode, d.Particles, d.Workers),
		fmt.Sprintf("FPS: %d | Step: %s x%d | Device: %s", d.FPS, d.StepTime.Round(time.Microsecond), d.SubSteps, device),
	}
	if d.Paused {
		lines = append(lines, "PAUSED")
	}
	if d.Message != "" {
		lines = append(lines, d.Message)
	}
	return lines
}

// HUD renders the main heads-up display.
type HUD struct {
	renderer *Renderer
}

// NewHUD creates a new HUD renderer.
func NewHUD() *HUD {
	return &HUD{
		renderer: NewRenderer(),
	}
}

// Draw renders the HUD.
func (h *HUD) Draw(data HUDData) {
	y := int32(10)
	for i, line := range data.Lines() {
		switch {
		case i == 0:
			rl.DrawText(line, 10, y, 20, rl.White)
			y += 25
		case line == data.Message:
			rl.DrawText(line, 10, y, 16, h.renderer.Theme.WarnColor)
			y += 20
		case line == "PAUSED":
			rl.DrawText(line, 10, y, 16, rl.Yellow)
			y += 20
		default:
			rl.DrawText(line, 10, y, 16, rl.LightGray)
			y += 20
		}
	}
}

// ControlsLegend lists the key bindings shown at the bottom of the screen.
const ControlsLegend = "[1-6] mode  [Space] pause  [Left/Right] orbit  [P] points  [M] buttons  [Tab] perf  [F6] benchmark"

// DrawControls renders the control legend at the bottom of the screen.
func (h *HUD) DrawControls(screenHeight int32, controls string) {
	rl.DrawText(controls, 10, screenHeight-25, 14, rl.Gray)
}

// perfSections describes the frame phase panel. Data is telemetry.PerfStats.
var perfSections = []SectionDescriptor{
	{
		ID:    "frame",
		Title: "Frame",
		Fields: []FieldDescriptor{
			{ID: "avg", Label: "avg", Widget: WidgetText, TextGetter: func(d any) string {
				return d.(telemetry.PerfStats).AvgFrameDuration.Round(time.Microsecond).String()
			}},
			{ID: "max", Label: "max", Widget: WidgetText, TextGetter: func(d any) string {
				return d.(telemetry.PerfStats).MaxFrameDuration.Round(time.Microsecond).String()
			}},
			{ID: "fps", Label: "fps", Widget: WidgetText, Format: "%.1f", Getter: func(d any) float32 {
				return float32(d.(telemetry.PerfStats).FramesPerSecond)
			}},
		},
	},
	{
		ID:    "phases",
		Title: "Phases",
		Fields: []FieldDescriptor{
			phaseBar(telemetry.PhaseSimulate),
			phaseBar(telemetry.PhaseTransfer),
			phaseBar(telemetry.PhaseDraw),
			phaseBar(telemetry.PhaseUI),
		},
	},
}

func phaseBar(phase string) FieldDescriptor {
	return FieldDescriptor{
		ID:     phase,
		Label:  phase,
		Widget: WidgetBar,
		Getter: func(d any) float32 {
			return float32(d.(telemetry.PerfStats).PhasePct[phase] / 100)
		},
	}
}

// PerfPanel renders the frame phase breakdown.
type PerfPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32
}

// NewPerfPanel creates a new performance panel.
func NewPerfPanel(x, y, width int32) *PerfPanel {
	return &PerfPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
	}
}

// SetPosition updates the panel position.
func (p *PerfPanel) SetPosition(x, y int32) {
	p.x = x
	p.y = y
}

// Draw renders the performance panel.
func (p *PerfPanel) Draw(stats telemetry.PerfStats) {
	r := p.renderer
	padding := r.Theme.Padding

	height := padding * 2
	for _, sd := range perfSections {
		height += r.SectionHeight(sd, stats)
	}
	r.DrawPanel(p.x, p.y, p.width, height)

	y := p.y + padding
	for _, sd := range perfSections {
		y = r.DrawSection(p.x+padding, y, sd, stats, p.width-padding*2)
	}
}
