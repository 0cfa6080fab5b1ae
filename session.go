package pdfgrid

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// PageContent is what a renderer produces for one page at one scale.
type PageContent struct {
	Page   int
	Scale  float64
	Size   Size        // Native surface size at Scale
	Origin TokenOrigin // Corner the token positions are measured from
	Tokens []TextToken // Token geometry at Scale
}

// PageProvider renders pages on behalf of a Session. Calls may be slow; the
// session ignores pointer input until the content for its page is installed.
type PageProvider interface {
	PageContent(ctx context.Context, page int, scale float64) (*PageContent, error)
}

// EventKind identifies what changed in a Session.
type EventKind int

const (
	EventModeChanged EventKind = iota
	EventPageLoading
	EventPageLoaded
	EventPreviewChanged
	EventRegionCreated
	EventSplitAdded
	EventSelectionChanged
)

// Event is delivered to subscribers after the session state has changed.
type Event struct {
	Kind     EventKind
	Mode     Mode
	Page     int
	RegionID string
}

type drag struct {
	anchor  Point
	current Point
}

type listener struct {
	id int
	fn func(Event)
}

// Session is the interaction controller for one annotated document. It owns
// the mode, the selection and the regions, and interprets pointer events
// according to the current mode. Pointer coordinates are converted to
// document units, so regions keep their place when the zoom changes.
//
// Session is not safe for concurrent use; drive it from the host's event loop.
type Session struct {
	config Config
	store  *Store
	logger zerolog.Logger

	mode  Mode
	page  int
	scale float64

	loaded bool
	native Size
	tokens []TextToken
	layout *SurfaceRect

	drag         *drag
	swallowClick bool

	listeners    []listener
	nextListener int
}

// NewSession creates a session in view mode with no page loaded.
func NewSession(config Config) *Session {
	return &Session{
		config: config,
		store:  NewStore(config),
		logger: config.Logger,
		mode:   ModeView,
		scale:  1,
	}
}

// Subscribe registers fn to be called synchronously after every change.
// The returned function removes the subscription.
func (s *Session) Subscribe(fn func(Event)) func() {
	s.nextListener++
	id := s.nextListener
	s.listeners = append(s.listeners, listener{id: id, fn: fn})

	return func() {
		for i, l := range s.listeners {
			if l.id == id {
				s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

func (s *Session) emit(kind EventKind, regionID string) {
	ev := Event{Kind: kind, Mode: s.mode, Page: s.page, RegionID: regionID}
	for _, l := range append([]listener(nil), s.listeners...) {
		l.fn(ev)
	}
}

// BeginPage switches the session to page at scale and marks its tokens as
// not yet available. Any drag in progress is discarded. Moving to another
// page clears the selection.
func (s *Session) BeginPage(page int, scale float64) bool {
	if page < 1 || scale <= 0 {
		return false
	}

	s.cancelDrag()
	if page != s.page {
		s.clearSelection()
	}

	s.page = page
	s.scale = scale
	s.loaded = false
	s.tokens = nil
	s.native = Size{}

	s.emit(EventPageLoading, "")
	return true
}

// PageLoaded installs rendered content for the pending page. Content for any
// other page or scale is stale and is dropped, as is any content delivered
// before BeginPage.
func (s *Session) PageLoaded(content PageContent) bool {
	if s.page < 1 || content.Page != s.page || content.Scale != s.scale {
		s.logger.Debug().
			Int("page", content.Page).
			Float64("scale", content.Scale).
			Msg("stale page content dropped")
		return false
	}

	s.native = content.Size
	s.tokens = NormalizeTokens(content.Tokens, content.Origin, content.Size.Height, content.Scale)
	s.loaded = true

	s.logger.Debug().
		Int("page", s.page).
		Float64("scale", s.scale).
		Int("tokens", len(s.tokens)).
		Msg("page loaded")

	s.emit(EventPageLoaded, "")
	return true
}

// Navigate loads page at scale from provider and installs it.
func (s *Session) Navigate(ctx context.Context, provider PageProvider, page int, scale float64) error {
	if !s.BeginPage(page, scale) {
		return errors.Errorf("invalid page %d at scale %v", page, scale)
	}

	content, err := provider.PageContent(ctx, page, scale)
	if err != nil {
		return errors.Wrapf(err, "failed to load page %d", page)
	}

	if content == nil {
		return errors.Errorf("no content for page %d", page)
	}
	if !s.PageLoaded(*content) {
		return errors.Errorf("provider returned page %d at scale %v, want page %d at scale %v",
			content.Page, content.Scale, page, scale)
	}
	return nil
}

// Layout tells the session where the page surface is displayed. Until it is
// called the surface is assumed to be shown at its native size at the origin.
func (s *Session) Layout(rect SurfaceRect) {
	s.layout = &rect
}

// SetMode requests a mode change. Requesting the active mode returns to view.
// Row and column modes need a selected region; without one the request is
// ignored. Leaving create-table discards any drag in progress.
func (s *Session) SetMode(requested Mode) bool {
	if !requested.Valid() {
		return false
	}
	if requested == s.mode {
		requested = ModeView
	}
	if s.config.ViewOnly && requested != ModeView {
		return false
	}
	if requested == ModeAddRow || requested == ModeAddColumn {
		if _, ok := s.store.Selected(); !ok {
			s.logger.Debug().Str("mode", string(requested)).Msg("mode needs a selected region")
			return false
		}
	}

	s.setMode(requested)
	return true
}

func (s *Session) setMode(m Mode) {
	if m == s.mode {
		return
	}
	if s.mode == ModeCreateTable {
		s.cancelDrag()
	}
	s.mode = m
	s.emit(EventModeChanged, "")
}

// PointerDown starts a drag in create-table mode, or places a split in the
// row and column modes.
func (s *Session) PointerDown(ev PointerEvent) {
	s.swallowClick = false

	p, ok := s.locate(ev)
	if !ok {
		return
	}

	switch s.mode {
	case ModeCreateTable:
		s.drag = &drag{anchor: p, current: p}
		s.emit(EventPreviewChanged, "")
	case ModeAddRow:
		region, ok := s.selectedOnPage()
		if !ok || p.Y <= region.Bounds.Y || p.Y >= region.Bounds.Bottom() {
			return
		}
		s.store.AddRowSplit(region.ID, p.Y)
		s.emit(EventSplitAdded, region.ID)
		s.setMode(ModeView)
	case ModeAddColumn:
		region, ok := s.selectedOnPage()
		if !ok || p.X <= region.Bounds.X || p.X >= region.Bounds.Right() {
			return
		}
		s.store.AddColumnSplit(region.ID, p.X)
		s.emit(EventSplitAdded, region.ID)
		s.setMode(ModeView)
	}
}

// PointerMove updates the preview rectangle while dragging.
func (s *Session) PointerMove(ev PointerEvent) {
	if s.drag == nil {
		return
	}
	p, ok := s.locate(ev)
	if !ok {
		return
	}
	s.drag.current = p
	s.emit(EventPreviewChanged, "")
}

// PointerUp finishes a drag. Rectangles larger than the minimum size become
// regions; smaller ones are discarded. Either way the session returns to view.
func (s *Session) PointerUp(ev PointerEvent) {
	if s.drag == nil {
		return
	}

	end := s.drag.current
	if p, ok := s.locate(ev); ok {
		end = p
	}
	rect := BoundsFromPoints(s.drag.anchor, end)
	s.drag = nil
	s.swallowClick = true
	s.emit(EventPreviewChanged, "")

	if id, ok := s.store.CreateRegion(s.page, rect, s.tokens); ok {
		s.emit(EventRegionCreated, id)
		s.emit(EventSelectionChanged, id)
	}
	s.setMode(ModeView)
}

// Click selects the region under the pointer in view mode, or clears the
// selection when the pointer is over empty space. The click that completes
// a drag gesture is ignored.
func (s *Session) Click(ev PointerEvent) {
	if s.swallowClick {
		s.swallowClick = false
		return
	}
	if s.mode != ModeView {
		return
	}
	p, ok := s.locate(ev)
	if !ok {
		return
	}

	before, _ := s.store.Selected()
	after, _ := s.store.SelectAt(s.page, p)
	if before != after {
		s.emit(EventSelectionChanged, after)
	}
}

// locate converts a pointer event to document units on the current page.
func (s *Session) locate(ev PointerEvent) (Point, bool) {
	if s.config.ViewOnly {
		return Point{}, false
	}
	if !s.loaded {
		s.logger.Debug().Int("page", s.page).Msg("pointer ignored, page not loaded")
		return Point{}, false
	}

	surface := SurfaceRect{Width: s.native.Width, Height: s.native.Height}
	if s.layout != nil {
		surface = *s.layout
	}

	p, ok := ToPageSpace(ev, surface, s.native)
	if !ok {
		return Point{}, false
	}
	return Point{X: p.X / s.scale, Y: p.Y / s.scale}, true
}

func (s *Session) selectedOnPage() (TableRegion, bool) {
	id, ok := s.store.Selected()
	if !ok {
		return TableRegion{}, false
	}
	region, ok := s.store.Region(id)
	if !ok || region.Page != s.page {
		return TableRegion{}, false
	}
	return region, true
}

func (s *Session) cancelDrag() {
	if s.drag == nil {
		return
	}
	s.drag = nil
	s.emit(EventPreviewChanged, "")
}

func (s *Session) clearSelection() {
	if _, ok := s.store.Selected(); !ok {
		return
	}
	s.store.Deselect()
	s.emit(EventSelectionChanged, "")
}

// Select makes id the selected region, as when the host picks a region from
// a list. Regions on other pages and unknown ids are ignored.
func (s *Session) Select(id string) bool {
	region, ok := s.store.Region(id)
	if !ok || region.Page != s.page {
		return false
	}
	before, _ := s.store.Selected()
	s.store.Select(id)
	if before != id {
		s.emit(EventSelectionChanged, id)
	}
	return true
}

// Mode returns the active mode.
func (s *Session) Mode() Mode { return s.mode }

// Page returns the current page number (1-based, 0 before any page).
func (s *Session) Page() int { return s.page }

// Scale returns the render scale of the current page.
func (s *Session) Scale() float64 { return s.scale }

// Loaded reports whether the current page's tokens are available.
func (s *Session) Loaded() bool { return s.loaded }

// Selected returns the selected region id, if any.
func (s *Session) Selected() (string, bool) { return s.store.Selected() }

// Region returns a copy of the region with the given id.
func (s *Session) Region(id string) (TableRegion, bool) { return s.store.Region(id) }

// Regions returns copies of every region in creation order.
func (s *Session) Regions() []TableRegion { return s.store.Regions() }

// RegionsForPage returns copies of the regions on page in creation order.
func (s *Session) RegionsForPage(page int) []TableRegion { return s.store.RegionsForPage(page) }

// State is a serialisable snapshot of a session.
type State struct {
	Mode     Mode          `json:"mode"`
	Selected string        `json:"selected,omitempty"`
	Page     int           `json:"page"`
	Scale    float64       `json:"scale"`
	Loaded   bool          `json:"loaded"`
	Regions  []TableRegion `json:"regions"`
}

// State returns a snapshot of the session.
func (s *Session) State() State {
	selected, _ := s.store.Selected()
	return State{
		Mode:     s.mode,
		Selected: selected,
		Page:     s.page,
		Scale:    s.scale,
		Loaded:   s.loaded,
		Regions:  s.store.Regions(),
	}
}
