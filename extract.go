package pdfgrid

import (
	"math"
	"strings"

	"github.com/klippa-app/go-pdfium"
	"github.com/klippa-app/go-pdfium/references"
	"github.com/klippa-app/go-pdfium/requests"
	"github.com/pkg/errors"
)

// extractPageTokens extracts the text tokens of a loaded page in document
// units with a top-left origin, in the order pdfium reports the characters.
func extractPageTokens(instance pdfium.Pdfium, page references.FPDF_PAGE, pageHeight float64) ([]TextToken, error) {
	textPage, err := instance.FPDFText_LoadPage(&requests.FPDFText_LoadPage{
		Page: requests.Page{
			ByReference: &page,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to load text page")
	}
	defer instance.FPDFText_ClosePage(&requests.FPDFText_ClosePage{
		TextPage: textPage.TextPage,
	})

	charCount, err := instance.FPDFText_CountChars(&requests.FPDFText_CountChars{
		TextPage: textPage.TextPage,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to count characters")
	}

	if charCount.Count == 0 {
		return []TextToken{}, nil
	}

	chars, err := extractEnrichedChars(instance, textPage.TextPage, charCount.Count, pageHeight)
	if err != nil {
		return nil, errors.Wrap(err, "failed to extract characters")
	}

	return groupCharsIntoTokens(chars), nil
}

// extractEnrichedChars reads every character of the text page with its box
// flipped to a top-left origin. Control characters pdfium reports as zero are
// skipped.
func extractEnrichedChars(instance pdfium.Pdfium, textPage references.FPDF_TEXTPAGE, count int, pageHeight float64) ([]EnrichedChar, error) {
	out := make([]EnrichedChar, 0, count)

	for i := range count {
		glyph, err := instance.FPDFText_GetUnicode(&requests.FPDFText_GetUnicode{
			TextPage: textPage,
			Index:    i,
		})
		if err != nil || glyph.Unicode == 0 {
			continue
		}

		box, err := instance.FPDFText_GetCharBox(&requests.FPDFText_GetCharBox{
			TextPage: textPage,
			Index:    i,
		})
		if err != nil {
			continue
		}

		size, name := charFont(instance, textPage, i)
		out = append(out, EnrichedChar{
			Text: rune(glyph.Unicode),
			Box: Rect{
				X0: box.Left,
				Y0: pageHeight - box.Top,
				X1: box.Right,
				Y1: pageHeight - box.Bottom,
			},
			FontSize: size,
			FontName: name,
		})
	}

	return out, nil
}

// charFont returns the size and name of the font used for character i.
// Lookups that fail fall back to 12pt and an empty name.
func charFont(instance pdfium.Pdfium, textPage references.FPDF_TEXTPAGE, i int) (float64, string) {
	size := 12.0
	if res, err := instance.FPDFText_GetFontSize(&requests.FPDFText_GetFontSize{
		TextPage: textPage,
		Index:    i,
	}); err == nil {
		size = res.FontSize
	}

	var name string
	if res, err := instance.FPDFText_GetFontInfo(&requests.FPDFText_GetFontInfo{
		TextPage: textPage,
		Index:    i,
	}); err == nil {
		name = res.FontName
	}

	return size, name
}

func isWhitespace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

// startsNewLine reports whether curr sits on a different visual line than prev.
func startsNewLine(prev, curr EnrichedChar) bool {
	if curr.Box.X0 < prev.Box.X0-prev.Box.Width() {
		return true
	}
	overlap := math.Min(prev.Box.Y1, curr.Box.Y1) - math.Max(prev.Box.Y0, curr.Box.Y0)
	minHeight := math.Min(prev.Box.Height(), curr.Box.Height())
	return minHeight > 0 && overlap < minHeight*0.3
}

// groupCharsIntoTokens splits the character stream into tokens on whitespace
// and line changes. Token order follows the character order.
func groupCharsIntoTokens(chars []EnrichedChar) []TextToken {
	var tokens []TextToken
	var current []EnrichedChar

	flush := func() {
		if len(current) > 0 {
			tokens = append(tokens, aggregateToken(current))
			current = nil
		}
	}

	for _, char := range chars {
		if isWhitespace(char.Text) {
			flush()
			continue
		}
		if len(current) > 0 && startsNewLine(current[len(current)-1], char) {
			flush()
		}
		current = append(current, char)
	}
	flush()

	return tokens
}

// aggregateToken builds a token from a run of characters.
func aggregateToken(chars []EnrichedChar) TextToken {
	box := chars[0].Box
	var text strings.Builder
	var totalFontSize float64
	fontCounts := make(map[string]int)

	for _, char := range chars {
		box.X0 = math.Min(box.X0, char.Box.X0)
		box.Y0 = math.Min(box.Y0, char.Box.Y0)
		box.X1 = math.Max(box.X1, char.Box.X1)
		box.Y1 = math.Max(box.Y1, char.Box.Y1)

		if expansion, isLigature := ligatureMap[char.Text]; isLigature {
			text.WriteString(expansion)
		} else {
			text.WriteRune(char.Text)
		}
		totalFontSize += char.FontSize
		fontCounts[char.FontName]++
	}

	var font string
	var best int
	for name, n := range fontCounts {
		if n > best || (n == best && name < font) {
			font, best = name, n
		}
	}

	return TextToken{
		Text:     text.String(),
		X:        box.X0,
		Y:        box.Y0,
		Width:    box.Width(),
		Height:   box.Height(),
		FontName: font,
		FontSize: totalFontSize / float64(len(chars)),
	}
}

// ligatureMap expands the Latin presentation-form ligatures.
var ligatureMap = map[rune]string{
	0xFB00: "ff",
	0xFB01: "fi",
	0xFB02: "fl",
	0xFB03: "ffi",
	0xFB04: "ffl",
	0xFB05: "ft",
	0xFB06: "st",
}
