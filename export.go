package pdfgrid

// ExtractAll returns the grid of every region in creation order. It reflects
// the session's current regions and splits each time it is called.
func (s *Session) ExtractAll() []Grid {
	regions := s.store.Regions()
	grids := make([]Grid, 0, len(regions))
	for _, r := range regions {
		grids = append(grids, ExtractGrid(r))
	}
	return grids
}

// Overlay is everything an overlay renderer needs to draw the current page.
// Geometry is in document units; multiply by Scale for surface pixels.
type Overlay struct {
	Page     int
	Scale    float64
	Mode     Mode
	Selected string
	Regions  []TableRegion

	// Preview is the rectangle being dragged, if any.
	Preview *Bounds

	// PageTokens holds the page's tokens while a drag is in progress so the
	// host can highlight what a region would capture.
	PageTokens []TextToken
}

// Overlay returns a read-only view of the current page for drawing.
func (s *Session) Overlay() Overlay {
	selected, _ := s.store.Selected()
	o := Overlay{
		Page:     s.page,
		Scale:    s.scale,
		Mode:     s.mode,
		Selected: selected,
		Regions:  s.store.RegionsForPage(s.page),
	}

	if s.drag != nil {
		preview := BoundsFromPoints(s.drag.anchor, s.drag.current)
		o.Preview = &preview
		o.PageTokens = append([]TextToken(nil), s.tokens...)
	}

	return o
}
