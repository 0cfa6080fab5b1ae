package pdfgrid

import "math"

// PointerEvent is a pointer position in the host's client coordinates.
type PointerEvent struct {
	ClientX float64 `json:"x" yaml:"x"`
	ClientY float64 `json:"y" yaml:"y"`
}

// SurfaceRect is where the rendered page is displayed, in client coordinates.
type SurfaceRect struct {
	Left   float64 `json:"left" yaml:"left"`
	Top    float64 `json:"top" yaml:"top"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// ToPageSpace maps a pointer event onto the rendered surface's native pixel
// grid. The ratio between native and displayed size is derived on every call,
// so the result stays correct whatever zoom the surface was rendered at.
// It returns false when the surface is not displayed.
func ToPageSpace(ev PointerEvent, surface SurfaceRect, native Size) (Point, bool) {
	if surface.Width <= 0 || surface.Height <= 0 {
		return Point{}, false
	}
	return Point{
		X: (ev.ClientX - surface.Left) * (native.Width / surface.Width),
		Y: (ev.ClientY - surface.Top) * (native.Height / surface.Height),
	}, true
}

// TokenOrigin declares which corner of the page a provider measures token
// positions from.
type TokenOrigin int

const (
	// OriginTopLeft means Y grows downward, matching the rendered surface.
	OriginTopLeft TokenOrigin = iota
	// OriginBottomLeft is the native PDF orientation: Y grows upward.
	OriginBottomLeft
)

// NormalizeTokens converts tokens produced at the given render scale into
// document units with a top-left origin. pageHeight is the page height at
// that same scale. The input slice is not modified.
func NormalizeTokens(tokens []TextToken, origin TokenOrigin, pageHeight, scale float64) []TextToken {
	if scale <= 0 {
		scale = 1
	}

	out := make([]TextToken, len(tokens))
	for i, t := range tokens {
		if origin == OriginBottomLeft {
			t.Y = pageHeight - (t.Y + t.Height)
		}
		t.X /= scale
		t.Y /= scale
		t.Width /= scale
		t.Height /= scale
		out[i] = t
	}
	return out
}

// Viewport tracks the zoom level requested by the host.
type Viewport struct {
	Scale float64
	zoom  ZoomConfig
}

// NewViewport returns a viewport at the configured default zoom.
func NewViewport(zoom ZoomConfig) *Viewport {
	return &Viewport{Scale: zoom.clamp(zoom.Default), zoom: zoom}
}

// SetScale sets the scale, clamped to the configured range.
func (v *Viewport) SetScale(scale float64) float64 {
	v.Scale = v.zoom.clamp(scale)
	return v.Scale
}

// ZoomIn increases the scale by one step, up to the configured maximum.
func (v *Viewport) ZoomIn() float64 {
	v.Scale = v.zoom.clamp(v.Scale + v.zoom.Step)
	return v.Scale
}

// ZoomOut decreases the scale by one step, down to the configured minimum.
func (v *Viewport) ZoomOut() float64 {
	v.Scale = v.zoom.clamp(v.Scale - v.zoom.Step)
	return v.Scale
}

// EffectiveScale caps the requested scale so the page never renders wider
// than its container.
func (v *Viewport) EffectiveScale(containerWidth, pageWidth float64) float64 {
	if containerWidth <= 0 || pageWidth <= 0 {
		return v.Scale
	}
	return math.Min(containerWidth/pageWidth, v.Scale)
}
