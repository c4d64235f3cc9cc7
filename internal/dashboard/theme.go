package dashboard

import (
	"github.com/rileyhilliard/gpuwatch/internal/snapshot"
	"github.com/rileyhilliard/gpuwatch/internal/surface"
)

// Theme holds the styles panels paint with.
type Theme struct {
	// Load colors indexed by snapshot.LoadClass.
	Load   [3]surface.Color
	Accent surface.Color
	Frame  surface.Style
	Title  surface.Style
	Muted  surface.Style
	// Cursor marks the selected process row.
	Cursor surface.Style
}

// NewTheme returns the dark or light palette.
func NewTheme(light bool) Theme {
	t := Theme{
		Load:   [3]surface.Color{surface.Green, surface.Yellow, surface.Red},
		Accent: surface.Magenta,
		Frame:  surface.Plain,
		Title:  surface.Plain.With(surface.Bold),
		Muted:  surface.Plain.With(surface.Dim),
		Cursor: surface.Plain.With(surface.Reverse | surface.Bold),
	}
	if light {
		t.Load[snapshot.Moderate] = surface.Blue
		t.Accent = surface.Blue
		t.Muted = surface.Plain.Foreground(surface.Gray)
	}
	return t
}

// LoadStyle colors text by load class.
func (t Theme) LoadStyle(c snapshot.LoadClass) surface.Style {
	if c < snapshot.Light || c > snapshot.Heavy {
		c = snapshot.Moderate
	}
	return surface.Plain.Foreground(t.Load[c])
}
