package pdfgrid

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Script is a recorded sequence of host interactions. Scripts let an
// annotation be replayed against a document without an interactive UI.
//
//	steps:
//	  - goto: {page: 1, scale: 1.5}
//	  - mode: create-table
//	  - drag: {from: {x: 40, y: 90}, to: {x: 520, y: 300}}
//	  - mode: add-column
//	  - down: {x: 200, y: 120}
type Script struct {
	Steps []Step `yaml:"steps"`
}

// Step is one interaction. Set fields are applied in declaration order.
type Step struct {
	Goto   *PageRef      `yaml:"goto,omitempty"`
	Zoom   string        `yaml:"zoom,omitempty"` // "in" or "out"
	Layout *SurfaceRect  `yaml:"layout,omitempty"`
	Select int           `yaml:"select,omitempty"` // 1-based region on the current page
	Mode   Mode          `yaml:"mode,omitempty"`
	Down   *PointerEvent `yaml:"down,omitempty"`
	Move   *PointerEvent `yaml:"move,omitempty"`
	Up     *PointerEvent `yaml:"up,omitempty"`
	Click  *PointerEvent `yaml:"click,omitempty"`
	Drag   *DragStep     `yaml:"drag,omitempty"`
}

// PageRef selects a page and optionally a scale. A zero scale keeps the
// current zoom.
type PageRef struct {
	Page  int     `yaml:"page"`
	Scale float64 `yaml:"scale,omitempty"`
}

// DragStep is shorthand for down at From, move and up at To, then the click
// the host delivers after the button is released.
type DragStep struct {
	From PointerEvent `yaml:"from"`
	To   PointerEvent `yaml:"to"`
}

// ParseScript decodes a YAML script.
func ParseScript(data []byte) (Script, error) {
	var script Script
	if err := yaml.Unmarshal(data, &script); err != nil {
		return Script{}, errors.Wrap(err, "failed to parse script")
	}
	return script, nil
}

// LoadScript reads and decodes a YAML script file.
func LoadScript(path string) (Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Script{}, errors.Wrap(err, "failed to read script")
	}
	return ParseScript(data)
}

// Replayer drives a Session from a Script, loading pages through a provider.
type Replayer struct {
	session  *Session
	provider PageProvider
	viewport *Viewport
}

// NewReplayer creates a replayer whose zoom starts at zoom.Default.
func NewReplayer(session *Session, provider PageProvider, zoom ZoomConfig) *Replayer {
	return &Replayer{
		session:  session,
		provider: provider,
		viewport: NewViewport(zoom),
	}
}

// Run applies every step of script in order and stops at the first step
// that cannot be applied.
func (r *Replayer) Run(ctx context.Context, script Script) error {
	for i, step := range script.Steps {
		if err := r.apply(ctx, step); err != nil {
			return errors.Wrapf(err, "step %d", i+1)
		}
	}
	return nil
}

func (r *Replayer) apply(ctx context.Context, step Step) error {
	if step.Goto != nil {
		if step.Goto.Scale > 0 {
			r.viewport.SetScale(step.Goto.Scale)
		}
		if err := r.session.Navigate(ctx, r.provider, step.Goto.Page, r.viewport.Scale); err != nil {
			return err
		}
	}

	switch step.Zoom {
	case "":
	case "in", "out":
		if r.session.Page() == 0 {
			return errors.New("zoom before any page was opened")
		}
		if step.Zoom == "in" {
			r.viewport.ZoomIn()
		} else {
			r.viewport.ZoomOut()
		}
		if err := r.session.Navigate(ctx, r.provider, r.session.Page(), r.viewport.Scale); err != nil {
			return err
		}
	default:
		return errors.Errorf("unknown zoom direction %q", step.Zoom)
	}

	if step.Layout != nil {
		r.session.Layout(*step.Layout)
	}

	if step.Select != 0 {
		regions := r.session.RegionsForPage(r.session.Page())
		if step.Select < 1 || step.Select > len(regions) {
			return errors.Errorf("no region %d on page %d", step.Select, r.session.Page())
		}
		r.session.Select(regions[step.Select-1].ID)
	}

	if step.Mode != "" {
		if !step.Mode.Valid() {
			return errors.Errorf("unknown mode %q", step.Mode)
		}
		r.session.SetMode(step.Mode)
	}

	if step.Down != nil {
		r.session.PointerDown(*step.Down)
	}
	if step.Move != nil {
		r.session.PointerMove(*step.Move)
	}
	if step.Up != nil {
		r.session.PointerUp(*step.Up)
	}
	if step.Click != nil {
		r.session.Click(*step.Click)
	}

	if step.Drag != nil {
		r.session.PointerDown(step.Drag.From)
		r.session.PointerMove(step.Drag.To)
		r.session.PointerUp(step.Drag.To)
		r.session.Click(step.Drag.To)
	}

	return nil
}
