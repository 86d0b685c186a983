// Package report renders a recorded run as a trajectory chart: the adjusted
// pose trail, the pickup and drop-off disks, and the points where the task
// changed state.
package report

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"math"
	"path/filepath"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/add-markers/internal/task"
)

// Sample is one recorded trail point in the adjusted frame.
type Sample struct {
	At time.Time
	X  float64
	Y  float64
}

// Event marks a state change on the chart.
type Event struct {
	At    time.Time
	X     float64
	Y     float64
	Label string
}

// Trajectory is everything needed to draw one run.
type Trajectory struct {
	RunID    string
	Geometry task.Config
	Samples  []Sample
	Events   []Event
}

// circleSegments controls how smooth the threshold disks are drawn.
const circleSegments = 48

// circle returns the outline of the disk of radius r around c.
func circle(c task.Point, r float64) [][2]float64 {
	pts := make([][2]float64, 0, circleSegments+1)
	for i := 0; i <= circleSegments; i++ {
		a := 2 * math.Pi * float64(i) / circleSegments
		pts = append(pts, [2]float64{c.X + r*math.Cos(a), c.Y + r*math.Sin(a)})
	}
	return pts
}

// bounds returns a square extent that covers the trail and both disks with
// some padding.
func (t Trajectory) bounds() (minV, maxV float64) {
	g := t.Geometry
	minV = math.Min(g.Pickup.X, g.Dropoff.X)
	maxV = math.Max(g.Pickup.X, g.Dropoff.X)
	for _, v := range []float64{g.Pickup.Y, g.Dropoff.Y} {
		minV = math.Min(minV, v)
		maxV = math.Max(maxV, v)
	}
	for _, s := range t.Samples {
		minV = math.Min(minV, math.Min(s.X, s.Y))
		maxV = math.Max(maxV, math.Max(s.X, s.Y))
	}
	pad := g.Threshold + 1
	return math.Floor(minV - pad), math.Ceil(maxV + pad)
}

func subtitle(t Trajectory) string {
	if len(t.Samples) == 0 {
		return fmt.Sprintf("run=%s samples=0", t.RunID)
	}
	span := t.Samples[len(t.Samples)-1].At.Sub(t.Samples[0].At)
	return fmt.Sprintf("run=%s samples=%d span=%s", t.RunID, len(t.Samples), span.Round(time.Millisecond))
}

// RenderHTML writes an interactive scatter chart of the trajectory.
func RenderHTML(w io.Writer, t Trajectory) error {
	lo, hi := t.bounds()

	trail := make([]opts.ScatterData, 0, len(t.Samples))
	for _, s := range t.Samples {
		trail = append(trail, opts.ScatterData{Value: []interface{}{s.X, s.Y}})
	}
	disk := func(c task.Point) []opts.ScatterData {
		outline := circle(c, t.Geometry.Threshold)
		data := make([]opts.ScatterData, 0, len(outline))
		for _, p := range outline {
			data = append(data, opts.ScatterData{Value: []interface{}{p[0], p[1]}})
		}
		return data
	}
	events := make([]opts.ScatterData, 0, len(t.Events))
	for _, e := range t.Events {
		events = append(events, opts.ScatterData{Name: e.Label, Value: []interface{}{e.X, e.Y}})
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Pick and place trajectory", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: "Pick and place trajectory", Subtitle: subtitle(t)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: lo, Max: hi, Name: "X (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: lo, Max: hi, Name: "Y (m)", NameLocation: "middle", NameGap: 30}),
	)
	scatter.AddSeries("trail", trail, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))
	scatter.AddSeries("pickup", disk(t.Geometry.Pickup), charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 2}))
	scatter.AddSeries("drop-off", disk(t.Geometry.Dropoff), charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 2}))
	scatter.AddSeries("transitions", events,
		charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 12}),
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top", Formatter: "{b}"}),
	)

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		return fmt.Errorf("render trajectory chart: %w", err)
	}
	_, err := buf.WriteTo(w)
	return err
}

var (
	trailColor   = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	pickupColor  = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	dropoffColor = color.RGBA{R: 44, G: 160, B: 44, A: 255}
	eventColor   = color.RGBA{R: 0, G: 0, B: 0, A: 255}
)

func newPlot(t Trajectory) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Trajectory %s", t.RunID)
	p.X.Label.Text = "X (m)"
	p.Y.Label.Text = "Y (m)"
	lo, hi := t.bounds()
	p.X.Min, p.X.Max = lo, hi
	p.Y.Min, p.Y.Max = lo, hi
	p.Add(plotter.NewGrid())

	if len(t.Samples) > 0 {
		pts := make(plotter.XYs, 0, len(t.Samples))
		for _, s := range t.Samples {
			pts = append(pts, plotter.XY{X: s.X, Y: s.Y})
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("trail line: %w", err)
		}
		line.Color = trailColor
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add("trail", line)
	}

	for _, d := range []struct {
		name   string
		center task.Point
		color  color.Color
	}{
		{"pickup", t.Geometry.Pickup, pickupColor},
		{"drop-off", t.Geometry.Dropoff, dropoffColor},
	} {
		outline := circle(d.center, t.Geometry.Threshold)
		pts := make(plotter.XYs, 0, len(outline))
		for _, o := range outline {
			pts = append(pts, plotter.XY{X: o[0], Y: o[1]})
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("%s disk: %w", d.name, err)
		}
		line.Color = d.color
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(d.name, line)
	}

	if len(t.Events) > 0 {
		pts := make(plotter.XYs, 0, len(t.Events))
		for _, e := range t.Events {
			pts = append(pts, plotter.XY{X: e.X, Y: e.Y})
		}
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, fmt.Errorf("transition points: %w", err)
		}
		sc.GlyphStyle.Shape = draw.CrossGlyph{}
		sc.GlyphStyle.Color = eventColor
		sc.GlyphStyle.Radius = vg.Points(4)
		p.Add(sc)
		p.Legend.Add("transitions", sc)
	}
	return p, nil
}

// plotSize is the rendered PNG edge length.
const plotSize = 8 * vg.Inch

// WritePNG writes a static plot of the trajectory as PNG.
func WritePNG(w io.Writer, t Trajectory) error {
	p, err := newPlot(t)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(plotSize, plotSize, "png")
	if err != nil {
		return fmt.Errorf("create png writer: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}

// SavePNG writes the static plot to path. The file extension must be .png.
func SavePNG(path string, t Trajectory) error {
	if ext := filepath.Ext(path); ext != ".png" {
		return fmt.Errorf("plot file must have .png extension, got %q", ext)
	}
	p, err := newPlot(t)
	if err != nil {
		return err
	}
	if err := p.Save(plotSize, plotSize, path); err != nil {
		return fmt.Errorf("save plot %s: %w", path, err)
	}
	return nil
}
