// Package report renders transition counts as bar charts: PNG through
// gonum/plot for files and the CLI, HTML through go-echarts for the web UI.
package report

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/crossing.report/internal/zones"
)

// ErrNoData is returned when there are no routes to chart.
var ErrNoData = errors.New("report: no transition counts")

// AssetsHost is where rendered HTML pages load the echarts scripts from.
// Empty keeps the go-echarts default CDN.
var AssetsHost = ""

// Chart describes one bar chart.
type Chart struct {
	Title    string
	Subtitle string
	Counts   []zones.TransitionCount
}

// RouteLabel formats a route for axis labels.
func RouteLabel(tc zones.TransitionCount) string {
	return tc.From + " → " + tc.To
}

func (c Chart) labels() []string {
	labels := make([]string, len(c.Counts))
	for i, tc := range c.Counts {
		labels[i] = RouteLabel(tc)
	}
	return labels
}

// WritePNG draws the chart with gonum/plot and writes it as PNG.
func WritePNG(w io.Writer, c Chart) error {
	if len(c.Counts) == 0 {
		return ErrNoData
	}

	values := make(plotter.Values, len(c.Counts))
	for i, tc := range c.Counts {
		values[i] = float64(tc.Count)
	}

	p := plot.New()
	p.Title.Text = c.Title
	if c.Subtitle != "" {
		p.Title.Text += "\n" + c.Subtitle
	}
	p.Y.Label.Text = "Crossings"
	p.Y.Min = 0

	bars, err := plotter.NewBarChart(values, vg.Points(24))
	if err != nil {
		return fmt.Errorf("bar chart: %w", err)
	}
	bars.LineStyle.Width = vg.Length(0)
	bars.Color = plotter.DefaultLineStyle.Color
	p.Add(bars)
	p.NominalX(c.labels()...)

	// Widen the canvas with the number of routes so labels stay legible.
	width := vg.Length(len(c.Counts))*vg.Inch + 3*vg.Inch
	if width < 6*vg.Inch {
		width = 6 * vg.Inch
	}
	wt, err := p.WriterTo(width, 4*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("png writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}

// RenderHTML renders the chart as a standalone go-echarts page.
func RenderHTML(w io.Writer, c Chart) error {
	if len(c.Counts) == 0 {
		return ErrNoData
	}

	y := make([]opts.BarData, len(c.Counts))
	for i, tc := range c.Counts {
		y[i] = opts.BarData{Value: tc.Count}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: c.Title, Width: "100%", Height: "560px", AssetsHost: AssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: c.Title, Subtitle: c.Subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(c.labels()).
		AddSeries("crossings", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	page := components.NewPage()
	if AssetsHost != "" {
		page.SetAssetsHost(AssetsHost)
	}
	page.AddCharts(bar)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}
