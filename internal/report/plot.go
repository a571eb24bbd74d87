package report

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// WriteWindowPlot saves a PNG at path comparing one window's raw input
// samples with the normalized output the pipeline produced for them.
// input and output must be the same length.
func WriteWindowPlot(path string, input, output []float64) error {
	if len(input) != len(output) {
		return fmt.Errorf("input has %d samples, output %d", len(input), len(output))
	}

	p := plot.New()
	p.Title.Text = "Window input vs normalized output"
	p.X.Label.Text = "sample"
	p.Y.Label.Text = "value"

	inPts := make(plotter.XYs, len(input))
	outPts := make(plotter.XYs, len(output))
	for i := range input {
		inPts[i].X = float64(i)
		inPts[i].Y = input[i]
		outPts[i].X = float64(i)
		outPts[i].Y = output[i]
	}

	inLine, err := plotter.NewLine(inPts)
	if err != nil {
		return err
	}
	inLine.Width = vg.Points(1)
	inLine.Color = color.RGBA{R: 70, G: 130, B: 180, A: 255}

	outLine, err := plotter.NewLine(outPts)
	if err != nil {
		return err
	}
	outLine.Width = vg.Points(1)
	outLine.Color = color.RGBA{R: 220, G: 90, B: 60, A: 255}

	p.Add(inLine, outLine)
	p.Legend.Add("input", inLine)
	p.Legend.Add("normalized", outLine)
	p.Legend.Top = true

	return p.Save(14*vg.Inch, 6*vg.Inch, path)
}
