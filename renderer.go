package pdfgrid

import (
	"context"
	"image"
	"image/draw"
	"math"

	"github.com/klippa-app/go-pdfium"
	"github.com/klippa-app/go-pdfium/references"
	"github.com/klippa-app/go-pdfium/requests"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Renderer opens PDF documents with pdfium.
type Renderer struct {
	instance pdfium.Pdfium
	logger   zerolog.Logger
}

// NewRenderer creates a renderer that logs through config.Logger.
func NewRenderer(instance pdfium.Pdfium, config Config) *Renderer {
	return &Renderer{
		instance: instance,
		logger:   config.Logger,
	}
}

// Document is an open PDF. It implements PageProvider. Page numbers are 1-based.
type Document struct {
	instance  pdfium.Pdfium
	ref       references.FPDF_DOCUMENT
	pageCount int
	logger    zerolog.Logger
}

// OpenFile opens a PDF file.
func (r *Renderer) OpenFile(filePath string) (*Document, error) {
	return r.open(&requests.OpenDocument{
		FilePath: &filePath,
	})
}

// OpenBytes opens a PDF held in memory.
func (r *Renderer) OpenBytes(pdfBytes []byte) (*Document, error) {
	return r.open(&requests.OpenDocument{
		File: &pdfBytes,
	})
}

func (r *Renderer) open(req *requests.OpenDocument) (*Document, error) {
	doc, err := r.instance.OpenDocument(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open PDF document")
	}

	pageCount, err := r.instance.FPDF_GetPageCount(&requests.FPDF_GetPageCount{
		Document: doc.Document,
	})
	if err != nil {
		r.instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{
			Document: doc.Document,
		})
		return nil, errors.Wrap(err, "failed to get page count")
	}

	r.logger.Debug().Int("pages", pageCount.PageCount).Msg("document opened")

	return &Document{
		instance:  r.instance,
		ref:       doc.Document,
		pageCount: pageCount.PageCount,
		logger:    r.logger,
	}, nil
}

// Close releases the document.
func (d *Document) Close() error {
	_, err := d.instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{
		Document: d.ref,
	})
	return errors.Wrap(err, "failed to close PDF document")
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int {
	return d.pageCount
}

// withPage loads page (1-based) for the duration of fn.
func (d *Document) withPage(page int, fn func(references.FPDF_PAGE) error) error {
	if page < 1 || page > d.pageCount {
		return errors.Errorf("page %d out of range [1, %d]", page, d.pageCount)
	}

	pageResp, err := d.instance.FPDF_LoadPage(&requests.FPDF_LoadPage{
		Document: d.ref,
		Index:    page - 1,
	})
	if err != nil {
		return errors.Wrap(err, "failed to load page")
	}
	defer d.instance.FPDF_ClosePage(&requests.FPDF_ClosePage{
		Page: pageResp.Page,
	})

	return fn(pageResp.Page)
}

func (d *Document) pageSize(page references.FPDF_PAGE) (Size, error) {
	pageWidth, err := d.instance.FPDF_GetPageWidthF(&requests.FPDF_GetPageWidthF{
		Page: requests.Page{
			ByReference: &page,
		},
	})
	if err != nil {
		return Size{}, errors.Wrap(err, "failed to get page width")
	}

	pageHeight, err := d.instance.FPDF_GetPageHeightF(&requests.FPDF_GetPageHeightF{
		Page: requests.Page{
			ByReference: &page,
		},
	})
	if err != nil {
		return Size{}, errors.Wrap(err, "failed to get page height")
	}

	return Size{Width: float64(pageWidth.PageWidth), Height: float64(pageHeight.PageHeight)}, nil
}

// PageSize returns the native surface size of page at scale.
func (d *Document) PageSize(page int, scale float64) (Size, error) {
	var size Size
	err := d.withPage(page, func(ref references.FPDF_PAGE) error {
		var err error
		size, err = d.pageSize(ref)
		return err
	})
	if err != nil {
		return Size{}, errors.Wrapf(err, "failed to size page %d", page)
	}
	return Size{Width: size.Width * scale, Height: size.Height * scale}, nil
}

// PageContent renders the token list and surface size of page at scale.
// Tokens are top-left based, already flipped from PDF's bottom-left origin.
func (d *Document) PageContent(ctx context.Context, page int, scale float64) (*PageContent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if scale <= 0 {
		return nil, errors.Errorf("invalid scale %v", scale)
	}

	var content *PageContent
	err := d.withPage(page, func(ref references.FPDF_PAGE) error {
		size, err := d.pageSize(ref)
		if err != nil {
			return err
		}

		tokens, err := extractPageTokens(d.instance, ref, size.Height)
		if err != nil {
			return err
		}

		for i := range tokens {
			tokens[i].X *= scale
			tokens[i].Y *= scale
			tokens[i].Width *= scale
			tokens[i].Height *= scale
		}

		content = &PageContent{
			Page:   page,
			Scale:  scale,
			Size:   Size{Width: size.Width * scale, Height: size.Height * scale},
			Origin: OriginTopLeft,
			Tokens: tokens,
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to extract page %d", page)
	}

	d.logger.Debug().
		Int("page", page).
		Float64("scale", scale).
		Int("tokens", len(content.Tokens)).
		Msg("page content extracted")

	return content, nil
}

// RenderImage rasterises page at scale. The image is sized to the page's
// native surface size at that scale.
func (d *Document) RenderImage(page int, scale float64) (*image.RGBA, error) {
	if scale <= 0 {
		return nil, errors.Errorf("invalid scale %v", scale)
	}

	var img *image.RGBA
	err := d.withPage(page, func(ref references.FPDF_PAGE) error {
		size, err := d.pageSize(ref)
		if err != nil {
			return err
		}

		render, err := d.instance.RenderPageInPixels(&requests.RenderPageInPixels{
			Page: requests.Page{
				ByReference: &ref,
			},
			Width:  int(math.Round(size.Width * scale)),
			Height: int(math.Round(size.Height * scale)),
		})
		if err != nil {
			return errors.Wrap(err, "failed to render page")
		}
		defer render.Cleanup()

		// The pixel buffer is released by Cleanup, keep our own copy.
		src := render.Result.Image
		img = image.NewRGBA(src.Bounds())
		draw.Draw(img, img.Bounds(), src, src.Bounds().Min, draw.Src)
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to render page %d", page)
	}

	return img, nil
}
