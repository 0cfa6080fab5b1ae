package pdfgrid

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider serves one page layout for every page number. Tokens are given
// in document units and scaled the way a renderer would report them.
type fakeProvider struct {
	size   Size
	origin TokenOrigin
	tokens []TextToken
	err    error
	calls  int
}

func (p *fakeProvider) PageContent(_ context.Context, page int, scale float64) (*PageContent, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}

	size := Size{Width: p.size.Width * scale, Height: p.size.Height * scale}
	tokens := make([]TextToken, len(p.tokens))
	for i, t := range p.tokens {
		t.X *= scale
		t.Y *= scale
		t.Width *= scale
		t.Height *= scale
		if p.origin == OriginBottomLeft {
			t.Y = size.Height - (t.Y + t.Height)
		}
		tokens[i] = t
	}

	return &PageContent{Page: page, Scale: scale, Size: size, Origin: p.origin, Tokens: tokens}, nil
}

func newProvider(tokens ...TextToken) *fakeProvider {
	return &fakeProvider{size: Size{Width: 600, Height: 800}, tokens: tokens}
}

func newLoadedSession(t *testing.T, provider PageProvider) *Session {
	t.Helper()
	s := NewSession(DefaultConfig())
	require.NoError(t, s.Navigate(context.Background(), provider, 1, 1))
	require.True(t, s.Loaded())
	return s
}

func at(x, y float64) PointerEvent {
	return PointerEvent{ClientX: x, ClientY: y}
}

// dragTo performs a full press, move, release and click gesture.
func dragTo(s *Session, x0, y0, x1, y1 float64) {
	s.PointerDown(at(x0, y0))
	s.PointerMove(at(x1, y1))
	s.PointerUp(at(x1, y1))
	s.Click(at(x1, y1))
}

func TestSession_AnnotateAndExtract(t *testing.T) {
	provider := newProvider(tok("A", 10, 10), tok("B", 60, 10), tok("C", 10, 60), tok("far", 300, 300))
	s := newLoadedSession(t, provider)

	require.True(t, s.SetMode(ModeCreateTable))
	dragTo(s, 0, 0, 100, 100)

	assert.Equal(t, ModeView, s.Mode())
	regions := s.Regions()
	require.Len(t, regions, 1)
	assert.Equal(t, Bounds{X: 0, Y: 0, Width: 100, Height: 100}, regions[0].Bounds)
	assert.Len(t, regions[0].Tokens, 3)

	selected, ok := s.Selected()
	require.True(t, ok)
	assert.Equal(t, regions[0].ID, selected)

	require.True(t, s.SetMode(ModeAddColumn))
	s.PointerDown(at(50, 20))
	assert.Equal(t, ModeView, s.Mode())

	require.True(t, s.SetMode(ModeAddRow))
	s.PointerDown(at(20, 50))
	assert.Equal(t, ModeView, s.Mode())

	grids := s.ExtractAll()
	require.Len(t, grids, 1)
	assert.Equal(t, [][]string{{"A", "B"}, {"C", ""}}, grids[0].Cells)
	assert.Equal(t, regions[0].ID, grids[0].RegionID)
}

func TestSession_Events(t *testing.T) {
	s := newLoadedSession(t, newProvider())

	var kinds []EventKind
	cancel := s.Subscribe(func(ev Event) {
		kinds = append(kinds, ev.Kind)
	})

	s.SetMode(ModeCreateTable)
	dragTo(s, 10, 10, 200, 200)

	assert.Equal(t, []EventKind{
		EventModeChanged,
		EventPreviewChanged,
		EventPreviewChanged,
		EventPreviewChanged,
		EventRegionCreated,
		EventSelectionChanged,
		EventModeChanged,
	}, kinds)

	cancel()
	s.SetMode(ModeCreateTable)
	assert.Len(t, kinds, 7)
}

func TestSession_SetMode(t *testing.T) {
	s := newLoadedSession(t, newProvider())

	t.Run("requesting the active mode returns to view", func(t *testing.T) {
		require.True(t, s.SetMode(ModeCreateTable))
		assert.Equal(t, ModeCreateTable, s.Mode())
		require.True(t, s.SetMode(ModeCreateTable))
		assert.Equal(t, ModeView, s.Mode())
	})

	t.Run("row and column modes need a selection", func(t *testing.T) {
		assert.False(t, s.SetMode(ModeAddRow))
		assert.False(t, s.SetMode(ModeAddColumn))
		assert.Equal(t, ModeView, s.Mode())
	})

	t.Run("unknown modes are rejected", func(t *testing.T) {
		assert.False(t, s.SetMode(Mode("erase")))
		assert.Equal(t, ModeView, s.Mode())
	})
}

func TestSession_SmallDragDiscarded(t *testing.T) {
	s := newLoadedSession(t, newProvider())

	s.SetMode(ModeCreateTable)
	dragTo(s, 100, 100, 110, 300)

	assert.Empty(t, s.Regions())
	assert.Equal(t, ModeView, s.Mode())
	_, ok := s.Selected()
	assert.False(t, ok)
}

func TestSession_PointerIgnoredBeforeLoad(t *testing.T) {
	s := NewSession(DefaultConfig())
	require.True(t, s.BeginPage(1, 1))
	require.True(t, s.SetMode(ModeCreateTable))

	dragTo(s, 0, 0, 200, 200)

	assert.Empty(t, s.Regions())
	assert.Nil(t, s.Overlay().Preview)
	assert.Equal(t, ModeCreateTable, s.Mode())
}

func TestSession_ModeSwitchCancelsDrag(t *testing.T) {
	s := newLoadedSession(t, newProvider())

	s.SetMode(ModeCreateTable)
	s.PointerDown(at(10, 10))
	s.PointerMove(at(200, 200))
	require.NotNil(t, s.Overlay().Preview)

	s.SetMode(ModeCreateTable)
	assert.Equal(t, ModeView, s.Mode())
	assert.Nil(t, s.Overlay().Preview)

	s.PointerUp(at(200, 200))
	assert.Empty(t, s.Regions())
}

func TestSession_SplitOutsideRegionKeepsMode(t *testing.T) {
	s := newLoadedSession(t, newProvider())
	s.SetMode(ModeCreateTable)
	dragTo(s, 100, 100, 300, 300)
	id, ok := s.Selected()
	require.True(t, ok)

	require.True(t, s.SetMode(ModeAddRow))
	s.PointerDown(at(50, 50))
	s.PointerDown(at(150, 100))
	assert.Equal(t, ModeAddRow, s.Mode())

	s.PointerDown(at(150, 200))
	assert.Equal(t, ModeView, s.Mode())

	region, _ := s.Region(id)
	assert.Equal(t, []float64{200}, region.RowSplits)
	assert.Empty(t, region.ColumnSplits)
}

func TestSession_ClickSelection(t *testing.T) {
	s := newLoadedSession(t, newProvider())

	s.SetMode(ModeCreateTable)
	dragTo(s, 0, 0, 100, 100)
	first, _ := s.Selected()

	s.SetMode(ModeCreateTable)
	dragTo(s, 200, 0, 300, 100)
	second, _ := s.Selected()
	require.NotEqual(t, first, second)

	var changes []string
	s.Subscribe(func(ev Event) {
		if ev.Kind == EventSelectionChanged {
			changes = append(changes, ev.RegionID)
		}
	})

	s.Click(at(50, 50))
	got, ok := s.Selected()
	require.True(t, ok)
	assert.Equal(t, first, got)

	s.Click(at(50, 50))
	s.Click(at(150, 50))
	_, ok = s.Selected()
	assert.False(t, ok)

	assert.Equal(t, []string{first, ""}, changes)
}

func TestSession_ClickIgnoredOutsideViewMode(t *testing.T) {
	s := newLoadedSession(t, newProvider())
	s.SetMode(ModeCreateTable)
	dragTo(s, 0, 0, 100, 100)
	id, _ := s.Selected()

	require.True(t, s.SetMode(ModeAddRow))
	s.Click(at(400, 400))

	got, ok := s.Selected()
	require.True(t, ok)
	assert.Equal(t, id, got)
}

func TestSession_ClickAfterDragIsSwallowed(t *testing.T) {
	s := newLoadedSession(t, newProvider())
	s.SetMode(ModeCreateTable)
	dragTo(s, 0, 0, 100, 100)
	id, _ := s.Selected()

	// A discarded drag over empty space must not clear the selection
	s.SetMode(ModeCreateTable)
	dragTo(s, 400, 400, 405, 405)

	got, ok := s.Selected()
	require.True(t, ok)
	assert.Equal(t, id, got)

	// The next ordinary click is handled again
	s.Click(at(405, 405))
	_, ok = s.Selected()
	assert.False(t, ok)
}

func TestSession_ViewOnly(t *testing.T) {
	config := DefaultConfig()
	config.ViewOnly = true
	s := NewSession(config)
	require.NoError(t, s.Navigate(context.Background(), newProvider(), 1, 1))

	assert.False(t, s.SetMode(ModeCreateTable))
	assert.False(t, s.SetMode(ModeAddRow))
	assert.Equal(t, ModeView, s.Mode())

	dragTo(s, 0, 0, 200, 200)
	s.Click(at(50, 50))
	assert.Empty(t, s.Regions())
}

func TestSession_StalePageContentDropped(t *testing.T) {
	s := NewSession(DefaultConfig())
	require.True(t, s.BeginPage(2, 1.5))

	assert.False(t, s.PageLoaded(PageContent{Page: 1, Scale: 1.5, Size: Size{Width: 900, Height: 1200}}))
	assert.False(t, s.PageLoaded(PageContent{Page: 2, Scale: 1, Size: Size{Width: 600, Height: 800}}))
	assert.False(t, s.Loaded())

	assert.True(t, s.PageLoaded(PageContent{Page: 2, Scale: 1.5, Size: Size{Width: 900, Height: 1200}}))
	assert.True(t, s.Loaded())
}

func TestSession_ContentBeforeBeginPageDropped(t *testing.T) {
	s := NewSession(DefaultConfig())

	assert.False(t, s.PageLoaded(PageContent{
		Page:   0,
		Scale:  1,
		Size:   Size{Width: 600, Height: 800},
		Tokens: []TextToken{tok("A", 10, 10)},
	}))
	assert.False(t, s.Loaded())
	assert.Equal(t, 0, s.Page())

	require.True(t, s.SetMode(ModeCreateTable))
	dragTo(s, 0, 0, 100, 100)
	assert.Empty(t, s.Regions())
}

// providerFunc adapts a function to PageProvider.
type providerFunc func(ctx context.Context, page int, scale float64) (*PageContent, error)

func (f providerFunc) PageContent(ctx context.Context, page int, scale float64) (*PageContent, error) {
	return f(ctx, page, scale)
}

func TestSession_NavigateRejectsBadContent(t *testing.T) {
	tests := []struct {
		name     string
		provider providerFunc
		errMsg   string
	}{
		{
			name: "no content",
			provider: func(context.Context, int, float64) (*PageContent, error) {
				return nil, nil
			},
			errMsg: "no content for page 2",
		},
		{
			name: "content for another page",
			provider: func(_ context.Context, _ int, scale float64) (*PageContent, error) {
				return &PageContent{Page: 5, Scale: scale, Size: Size{Width: 600, Height: 800}}, nil
			},
			errMsg: "provider returned page 5",
		},
		{
			name: "content at another scale",
			provider: func(_ context.Context, page int, _ float64) (*PageContent, error) {
				return &PageContent{Page: page, Scale: 3, Size: Size{Width: 1800, Height: 2400}}, nil
			},
			errMsg: "provider returned page 2 at scale 3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession(DefaultConfig())
			err := s.Navigate(context.Background(), tt.provider, 2, 1)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
			assert.False(t, s.Loaded())
		})
	}
}

func TestSession_NavigateCancelsDrag(t *testing.T) {
	tests := []struct {
		name  string
		page  int
		scale float64
	}{
		{"another page", 2, 1},
		{"same page at another zoom", 1, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := newProvider(tok("A", 10, 10))
			s := newLoadedSession(t, provider)

			require.True(t, s.SetMode(ModeCreateTable))
			s.PointerDown(at(0, 0))
			s.PointerMove(at(150, 150))
			require.NotNil(t, s.Overlay().Preview)

			require.NoError(t, s.Navigate(context.Background(), provider, tt.page, tt.scale))
			assert.Nil(t, s.Overlay().Preview)

			s.PointerUp(at(300, 300))
			assert.Empty(t, s.Regions())
			assert.Equal(t, ModeCreateTable, s.Mode())
		})
	}
}

func TestSession_Select(t *testing.T) {
	provider := newProvider()
	s := newLoadedSession(t, provider)
	s.SetMode(ModeCreateTable)
	dragTo(s, 0, 0, 100, 100)
	first, _ := s.Selected()
	s.SetMode(ModeCreateTable)
	dragTo(s, 200, 0, 300, 100)

	var changes []string
	s.Subscribe(func(ev Event) {
		if ev.Kind == EventSelectionChanged {
			changes = append(changes, ev.RegionID)
		}
	})

	require.True(t, s.Select(first))
	require.True(t, s.Select(first))
	got, _ := s.Selected()
	assert.Equal(t, first, got)
	assert.Equal(t, []string{first}, changes)

	assert.False(t, s.Select("missing"))

	// Regions on other pages cannot be selected from here
	require.NoError(t, s.Navigate(context.Background(), provider, 2, 1))
	assert.False(t, s.Select(first))
	_, ok := s.Selected()
	assert.False(t, ok)
}

func TestSession_BeginPageValidation(t *testing.T) {
	s := NewSession(DefaultConfig())
	assert.False(t, s.BeginPage(0, 1))
	assert.False(t, s.BeginPage(1, 0))
	assert.Equal(t, 0, s.Page())
}

func TestSession_Navigate(t *testing.T) {
	t.Run("provider failure", func(t *testing.T) {
		provider := newProvider()
		provider.err = errors.New("boom")

		s := NewSession(DefaultConfig())
		err := s.Navigate(context.Background(), provider, 3, 1)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load page 3")
		assert.False(t, s.Loaded())
		assert.Equal(t, 3, s.Page())
	})

	t.Run("invalid page", func(t *testing.T) {
		provider := newProvider()
		s := NewSession(DefaultConfig())
		require.Error(t, s.Navigate(context.Background(), provider, 0, 1))
		assert.Zero(t, provider.calls)
	})
}

func TestSession_PageChangeClearsSelection(t *testing.T) {
	provider := newProvider()
	s := newLoadedSession(t, provider)
	s.SetMode(ModeCreateTable)
	dragTo(s, 0, 0, 100, 100)
	id, ok := s.Selected()
	require.True(t, ok)

	// Reloading the same page at another zoom keeps it
	require.NoError(t, s.Navigate(context.Background(), provider, 1, 2))
	got, ok := s.Selected()
	require.True(t, ok)
	assert.Equal(t, id, got)

	require.NoError(t, s.Navigate(context.Background(), provider, 2, 2))
	_, ok = s.Selected()
	assert.False(t, ok)
	assert.Len(t, s.RegionsForPage(1), 1)
	assert.Empty(t, s.RegionsForPage(2))
	assert.Empty(t, s.Overlay().Regions)
}

func TestSession_ZoomStableGeometry(t *testing.T) {
	provider := newProvider(tok("cell", 20, 20))
	provider.origin = OriginBottomLeft

	s := NewSession(DefaultConfig())
	require.NoError(t, s.Navigate(context.Background(), provider, 1, 2))

	// Surface pixels at 2x are twice the document units
	s.SetMode(ModeCreateTable)
	dragTo(s, 20, 20, 220, 220)

	regions := s.Regions()
	require.Len(t, regions, 1)
	assert.Equal(t, Bounds{X: 10, Y: 10, Width: 100, Height: 100}, regions[0].Bounds)
	require.Len(t, regions[0].Tokens, 1)
	assert.InDelta(t, 20.0, regions[0].Tokens[0].Y, 1e-9)
	assert.InDelta(t, 5.0, regions[0].Tokens[0].Width, 1e-9)

	// The same region is hit at 1x
	require.NoError(t, s.Navigate(context.Background(), provider, 1, 1))
	s.Click(at(0, 0))
	_, ok := s.Selected()
	require.False(t, ok)
	s.Click(at(50, 50))
	id, ok := s.Selected()
	require.True(t, ok)
	assert.Equal(t, regions[0].ID, id)
}

func TestSession_LayoutTransform(t *testing.T) {
	s := newLoadedSession(t, newProvider())

	// Page shown at half size, offset inside the host window
	s.Layout(SurfaceRect{Left: 100, Top: 50, Width: 300, Height: 400})
	s.SetMode(ModeCreateTable)
	dragTo(s, 110, 60, 160, 110)

	regions := s.Regions()
	require.Len(t, regions, 1)
	assert.Equal(t, Bounds{X: 20, Y: 20, Width: 100, Height: 100}, regions[0].Bounds)
}

func TestSession_Overlay(t *testing.T) {
	provider := newProvider(tok("A", 10, 10), tok("B", 400, 400))
	s := newLoadedSession(t, provider)

	o := s.Overlay()
	assert.Nil(t, o.Preview)
	assert.Nil(t, o.PageTokens)
	assert.Equal(t, 1, o.Page)
	assert.Equal(t, ModeView, o.Mode)

	s.SetMode(ModeCreateTable)
	s.PointerDown(at(100, 100))
	s.PointerMove(at(40, 60))

	o = s.Overlay()
	require.NotNil(t, o.Preview)
	assert.Equal(t, Bounds{X: 40, Y: 60, Width: 60, Height: 40}, *o.Preview)
	assert.Len(t, o.PageTokens, 2)
	assert.Equal(t, ModeCreateTable, o.Mode)

	s.PointerUp(at(40, 60))
	o = s.Overlay()
	assert.Nil(t, o.Preview)
	assert.Nil(t, o.PageTokens)
	require.Len(t, o.Regions, 1)
	assert.Equal(t, o.Regions[0].ID, o.Selected)
}

func TestSession_State(t *testing.T) {
	s := newLoadedSession(t, newProvider(tok("A", 10, 10)))
	s.SetMode(ModeCreateTable)
	dragTo(s, 0, 0, 100, 100)

	state := s.State()
	assert.Equal(t, ModeView, state.Mode)
	assert.Equal(t, 1, state.Page)
	assert.True(t, state.Loaded)
	require.Len(t, state.Regions, 1)
	assert.Equal(t, state.Regions[0].ID, state.Selected)

	data, err := json.Marshal(state)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"mode":"view"`)
	assert.Contains(t, string(data), `"row_splits":[]`)
}

func TestSession_ExtractAllReflectsLaterSplits(t *testing.T) {
	s := newLoadedSession(t, newProvider(tok("A", 10, 10), tok("B", 60, 10)))
	s.SetMode(ModeCreateTable)
	dragTo(s, 0, 0, 100, 100)

	before := s.ExtractAll()
	require.Len(t, before, 1)
	assert.Equal(t, [][]string{{"A B"}}, before[0].Cells)

	s.SetMode(ModeAddColumn)
	s.PointerDown(at(50, 50))

	after := s.ExtractAll()
	assert.Equal(t, [][]string{{"A", "B"}}, after[0].Cells)
	assert.Equal(t, [][]string{{"A B"}}, before[0].Cells)
}
