// Package report renders post-run visualisations: interactive
// go-echarts pages of per-window statistics and gonum/plot PNGs of a
// window's input against its normalized output.
package report

import (
	"fmt"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/streamnorm/norm"
)

// WriteWindowStatsHTML renders the per-window statistics of one run as
// a line chart page at path. variant selects which statistic series
// accompany the mean: "layer" adds variance, "rms" adds mean-square.
func WriteWindowStatsHTML(path, variant string, stats []norm.WindowStats) error {
	xs := make([]string, len(stats))
	means := make([]opts.LineData, len(stats))
	variances := make([]opts.LineData, len(stats))
	meanSquares := make([]opts.LineData, len(stats))
	for i, ws := range stats {
		xs[i] = fmt.Sprintf("%d", ws.Index)
		means[i] = opts.LineData{Value: ws.Mean}
		variances[i] = opts.LineData{Value: ws.Variance}
		meanSquares[i] = opts.LineData{Value: ws.MeanSquare}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "streamnorm run",
			Width:     "1200px",
			Height:    "600px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Per-window statistics",
			Subtitle: fmt.Sprintf("variant=%s windows=%d", variant, len(stats)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "window"}),
	)

	line.SetXAxis(xs)
	switch variant {
	case "rms":
		line.AddSeries("mean_square", meanSquares)
	default:
		line.AddSeries("mean", means)
		line.AddSeries("variance", variances)
	}

	page := components.NewPage()
	page.AddCharts(line)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return page.Render(f)
}
