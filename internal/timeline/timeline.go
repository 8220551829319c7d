// Package timeline renders the acquisition dates of a synthesis against its
// window as a PNG, for checking input spacing at a glance.
package timeline

import (
	"errors"
	"fmt"
	"image/color"
	"path/filepath"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/wasp/internal/config"
	"github.com/banshee-data/wasp/internal/metadata"
)

var (
	productColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	boundColor   = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	centerColor  = color.RGBA{R: 44, G: 160, B: 44, A: 255}
)

// Points returns one point per input: X is the acquisition date in days
// relative to the synthesis date, Y the processing order starting at 1.
func Points(cfg *config.RunConfiguration) plotter.XYs {
	pts := make(plotter.XYs, len(cfg.Inputs))
	for i, p := range cfg.Inputs {
		pts[i] = plotter.XY{X: days(p.AcquisitionDate.Sub(cfg.SynthesisDate)), Y: float64(i + 1)}
	}
	return pts
}

func days(d time.Duration) float64 { return d.Hours() / 24 }

// Render writes the timeline of cfg to path. The file extension selects
// the image format.
func Render(path string, cfg *config.RunConfiguration) error {
	if len(cfg.Inputs) == 0 {
		return errors.New("timeline: no inputs to plot")
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s %s synthesis %s", cfg.Platform.Name, cfg.Tile, metadata.FormatShort(cfg.SynthesisDate))
	p.X.Label.Text = "Days from synthesis date"
	p.Y.Label.Text = "Product"

	pts := Points(cfg)
	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return err
	}
	scatter.GlyphStyle.Shape = draw.CircleGlyph{}
	scatter.GlyphStyle.Color = productColor
	scatter.GlyphStyle.Radius = vg.Points(4)
	p.Add(scatter)
	p.Legend.Add("acquisition", scatter)

	top := float64(len(pts) + 1)
	lo := days(cfg.WindowMin.Sub(cfg.SynthesisDate))
	hi := days(cfg.WindowMax.Sub(cfg.SynthesisDate))
	for _, v := range []struct {
		label string
		x     float64
		c     color.Color
	}{
		{"window", lo, boundColor},
		{"", hi, boundColor},
		{"synthesis date", 0, centerColor},
	} {
		line, err := plotter.NewLine(plotter.XYs{{X: v.x, Y: 0}, {X: v.x, Y: top}})
		if err != nil {
			return err
		}
		line.Color = v.c
		line.Width = vg.Points(1)
		line.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(line)
		if v.label != "" {
			p.Legend.Add(v.label, line)
		}
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	p.Y.Min = 0
	p.Y.Max = top

	if err := p.Save(10*vg.Inch, 4*vg.Inch, filepath.Clean(path)); err != nil {
		return fmt.Errorf("failed to save timeline %s: %w", path, err)
	}
	return nil
}
