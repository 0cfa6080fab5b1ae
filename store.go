package pdfgrid

import (
	"slices"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/tidwall/rtree"
)

// Store owns the table regions of one document, in creation order, and the
// single selected region.
//
// Store is not safe for concurrent use.
type Store struct {
	regions  []*TableRegion
	byID     map[string]*TableRegion
	pages    map[int]*rtree.RTreeG[*TableRegion]
	selected string
	minSize  float64
	nextSeq  int
	newID    func() string
	logger   zerolog.Logger
}

// NewStore creates an empty store using the minimum region size and logger from config.
func NewStore(config Config) *Store {
	return &Store{
		byID:    make(map[string]*TableRegion),
		pages:   make(map[int]*rtree.RTreeG[*TableRegion]),
		minSize: config.MinRegionSize,
		newID:   uuid.NewString,
		logger:  config.Logger,
	}
}

// CreateRegion stores a new region on page and selects it. Only tokens whose
// whole box lies inside bounds are captured. Regions not larger than the
// minimum size on both axes are rejected.
func (s *Store) CreateRegion(page int, bounds Bounds, tokens []TextToken) (string, bool) {
	if bounds.Width <= s.minSize || bounds.Height <= s.minSize {
		s.logger.Debug().
			Int("page", page).
			Float64("width", bounds.Width).
			Float64("height", bounds.Height).
			Msg("region below minimum size discarded")
		return "", false
	}

	captured := make([]TextToken, 0)
	for _, t := range tokens {
		if bounds.ContainsToken(t) {
			captured = append(captured, t)
		}
	}

	s.nextSeq++
	region := &TableRegion{
		ID:           s.newID(),
		Page:         page,
		Bounds:       bounds,
		RowSplits:    []float64{},
		ColumnSplits: []float64{},
		Tokens:       captured,
		seq:          s.nextSeq,
	}

	s.regions = append(s.regions, region)
	s.byID[region.ID] = region
	s.index(page).Insert(
		[2]float64{bounds.X, bounds.Y},
		[2]float64{bounds.Right(), bounds.Bottom()},
		region,
	)
	s.selected = region.ID

	s.logger.Debug().
		Str("region", region.ID).
		Int("page", page).
		Int("tokens", len(captured)).
		Msg("region created")

	return region.ID, true
}

// AddRowSplit adds a horizontal divider at y. It reports false when the
// region is unknown or y is not strictly inside the region's vertical extent.
func (s *Store) AddRowSplit(id string, y float64) bool {
	region, ok := s.byID[id]
	if !ok || y <= region.Bounds.Y || y >= region.Bounds.Bottom() {
		s.logger.Debug().Str("region", id).Float64("y", y).Msg("row split ignored")
		return false
	}
	region.RowSplits = insertSplit(region.RowSplits, y)
	return true
}

// AddColumnSplit adds a vertical divider at x. It reports false when the
// region is unknown or x is not strictly inside the region's horizontal extent.
func (s *Store) AddColumnSplit(id string, x float64) bool {
	region, ok := s.byID[id]
	if !ok || x <= region.Bounds.X || x >= region.Bounds.Right() {
		s.logger.Debug().Str("region", id).Float64("x", x).Msg("column split ignored")
		return false
	}
	region.ColumnSplits = insertSplit(region.ColumnSplits, x)
	return true
}

// insertSplit keeps splits sorted ascending and free of duplicates.
func insertSplit(splits []float64, offset float64) []float64 {
	i, found := slices.BinarySearch(splits, offset)
	if found {
		return splits
	}
	return slices.Insert(splits, i, offset)
}

// SelectAt selects the region on page containing p. When regions overlap the
// most recently created one wins. If nothing contains p the selection is
// cleared.
func (s *Store) SelectAt(page int, p Point) (string, bool) {
	var hit *TableRegion
	if tree, ok := s.pages[page]; ok {
		tree.Search([2]float64{p.X, p.Y}, [2]float64{p.X, p.Y},
			func(_, _ [2]float64, r *TableRegion) bool {
				if !r.Bounds.Contains(p) {
					return true
				}
				if hit == nil || r.seq > hit.seq {
					hit = r
				}
				return true
			},
		)
	}

	if hit == nil {
		s.selected = ""
		return "", false
	}
	s.selected = hit.ID
	return hit.ID, true
}

// Select makes id the selected region. Unknown ids are ignored.
func (s *Store) Select(id string) bool {
	if _, ok := s.byID[id]; !ok {
		return false
	}
	s.selected = id
	return true
}

// Deselect clears the selection.
func (s *Store) Deselect() {
	s.selected = ""
}

// Selected returns the selected region id, if any.
func (s *Store) Selected() (string, bool) {
	return s.selected, s.selected != ""
}

// Region returns a copy of the region with the given id.
func (s *Store) Region(id string) (TableRegion, bool) {
	region, ok := s.byID[id]
	if !ok {
		return TableRegion{}, false
	}
	return region.clone(), true
}

// Regions returns copies of every region in creation order.
func (s *Store) Regions() []TableRegion {
	out := make([]TableRegion, 0, len(s.regions))
	for _, r := range s.regions {
		out = append(out, r.clone())
	}
	return out
}

// RegionsForPage returns copies of the regions on page in creation order.
func (s *Store) RegionsForPage(page int) []TableRegion {
	out := make([]TableRegion, 0)
	for _, r := range s.regions {
		if r.Page == page {
			out = append(out, r.clone())
		}
	}
	return out
}

// Len returns the number of regions across all pages.
func (s *Store) Len() int {
	return len(s.regions)
}

func (s *Store) index(page int) *rtree.RTreeG[*TableRegion] {
	tree, ok := s.pages[page]
	if !ok {
		tree = &rtree.RTreeG[*TableRegion]{}
		s.pages[page] = tree
	}
	return tree
}
