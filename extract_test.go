package pdfgrid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chars lays out text left to right on one line starting at x, 6 units per rune.
func chars(text string, x, y float64) []EnrichedChar {
	out := make([]EnrichedChar, 0, len(text))
	for _, r := range text {
		out = append(out, EnrichedChar{
			Text:     r,
			Box:      Rect{X0: x, Y0: y, X1: x + 5, Y1: y + 10},
			FontSize: 10,
			FontName: "Helvetica",
		})
		x += 6
	}
	return out
}

func TestGroupCharsIntoTokens(t *testing.T) {
	t.Run("splits on whitespace", func(t *testing.T) {
		tokens := groupCharsIntoTokens(chars("Invoice #123", 100, 50))
		require.Len(t, tokens, 2)

		assert.Equal(t, "Invoice", tokens[0].Text)
		assert.InDelta(t, 100.0, tokens[0].X, 1e-9)
		assert.InDelta(t, 50.0, tokens[0].Y, 1e-9)
		assert.InDelta(t, 41.0, tokens[0].Width, 1e-9)
		assert.InDelta(t, 10.0, tokens[0].Height, 1e-9)
		assert.Equal(t, "Helvetica", tokens[0].FontName)
		assert.InDelta(t, 10.0, tokens[0].FontSize, 1e-9)

		assert.Equal(t, "#123", tokens[1].Text)
		assert.InDelta(t, 148.0, tokens[1].X, 1e-9)
	})

	t.Run("splits on line change without whitespace", func(t *testing.T) {
		in := append(chars("Total", 100, 50), chars("42", 100, 70)...)
		tokens := groupCharsIntoTokens(in)
		require.Len(t, tokens, 2)
		assert.Equal(t, "Total", tokens[0].Text)
		assert.Equal(t, "42", tokens[1].Text)
		assert.InDelta(t, 70.0, tokens[1].Y, 1e-9)
	})

	t.Run("expands ligatures", func(t *testing.T) {
		in := chars("xo", 0, 0)
		in[0].Text = 0xFB01
		tokens := groupCharsIntoTokens(in)
		require.Len(t, tokens, 1)
		assert.Equal(t, "fio", tokens[0].Text)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, groupCharsIntoTokens(nil))
		assert.Empty(t, groupCharsIntoTokens(chars("   ", 0, 0)))
	})
}
