// Copyright ©2022 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Plot generation related functionality.

package analysis

import (
	"fmt"
	"image/color"
	"log"
	"os"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

var (
	defaultPlotWidth  = vg.Centimeter * 24
	defaultPlotHeight = vg.Centimeter * 7
)

// A custom color palette: color1 as base color and color2 as a darker variant.
var ColorPalette = []color.RGBA{
	// red1
	{R: 230, G: 57, B: 70, A: 255},
	// red2
	{R: 143, G: 35, B: 43, A: 255},
	// green1
	{R: 84, G: 184, B: 50, A: 255},
	// green2
	{R: 50, G: 110, B: 30, A: 255},
	// blue1
	{R: 63, G: 55, B: 201, A: 255},
	// blue2
	{R: 51, G: 45, B: 163, A: 255},
	// purple1
	{R: 86, G: 11, B: 173, A: 255},
	// purple2
	{R: 62, G: 8, B: 125, A: 255},
	// cyan1
	{R: 31, G: 180, B: 206, A: 255},
	// cyan2
	{R: 11, G: 123, B: 143, A: 255},
	// orange1
	{R: 255, G: 174, B: 0, A: 255},
	// orange2
	{R: 173, G: 118, B: 0, A: 255},
}

// CreateCDFPlot creates Cumulative Distribution Function plot for given VQM values.
func CreateCDFPlot(values []float64, name string) (*plot.Plot, error) {
	p := plot.New()
	p.X.Label.Text = name
	p.Y.Label.Text = "Probability"
	p.Y.Min = 0

	// We are going to mutate values slice, so make a copy to avoid mangling
	// underlying array and creating unexpected sideffect in caller's scope.
	lValues := make([]float64, len(values))
	copy(lValues, values)
	// Make sure values are sorted
	sort.Float64s(lValues)

	// Have to transform lValues to something that implements plotter.XYer
	// interface so it can be used later on to construct plot.
	cdfValues := make(plotter.XYs, len(lValues))
	for i, v := range lValues {
		cdfValues[i].X = v
		cdfValues[i].Y = stat.CDF(v, stat.Empirical, lValues, nil)
	}

	cdfLine, err := plotter.NewLine(cdfValues)
	if err != nil {
		return p, fmt.Errorf("CreateCDFPlot() creating new Line: %w", err)
	}
	cdfLine.Color = ColorPalette[2]

	p.Add(cdfLine, plotter.NewGrid())
	p.Add(createQuantileLines(p, lValues, 0.01, 0.05, 0.5, 0.95)...)

	return p, nil
}

// CreateHistogramPlot creates histogram plot for given VQM values.
func CreateHistogramPlot(values []float64, name string) (*plot.Plot, error) {
	p := plot.New()
	p.X.Label.Text = name
	p.Y.Label.Text = "N"

	// We are going to mutate values slice, so make a copy to avoid mangling
	// underlying array and creating unexpected sideffect in caller's scope.
	lValues := make([]float64, len(values))
	copy(lValues, values)

	// A number of bins to use for histogram.
	var bins int = 100

	// Make sure values are sorted.
	sort.Float64s(lValues)

	pHist, err := plotter.NewHist(plotter.Values(lValues), bins)
	if err != nil {
		return p, fmt.Errorf("CreateHistogramPlot() creating new histogram: %w", err)
	}
	pHist.Color = color.Transparent
	pHist.FillColor = ColorPalette[7]

	p.Add(pHist)
	p.Add(plotter.NewGrid())

	return p, nil
}

// CreateVqmPlot creates a plot for given VQM values.
//
// Since values are specified as a 1D slice - it is assumed that index into
// slice is a frame number.
func CreateVqmPlot(values []float64, name string) (*plot.Plot, error) {
	p := plot.New()
	p.X.Label.Text = "Frame #"
	p.Y.Label.Text = name

	vqmXY := make(plotter.XYs, len(values))

	for i, v := range values {
		vqmXY[i].X = float64(i)
		vqmXY[i].Y = v
	}
	vqmLine, err := plotter.NewLine(vqmXY)
	if err != nil {
		return p, fmt.Errorf("CreateVqmPlot() creating new Line: %w", err)
	}

	vqmLine.Color = ColorPalette[0]

	p.Add(vqmLine)
	p.Add(plotter.NewGrid())

	return p, nil
}

// MultiPlotVqm will create VQM metric multi plot and save it to a file.
//
// Resulting plot will include the provided VQM metric plot, it's histogram plot
// and CDF plot all in one canvas.
func MultiPlotVqm(values []float64, metric, title, outFile string) (err error) {
	// Create a 2D slice to hold subplots. This is the sad state of gonum's API
	// at this point unfortunately.
	const rows, cols = 3, 1
	plots := make([][]*plot.Plot, rows)
	for i := range plots {
		plots[i] = make([]*plot.Plot, cols)
	}

	plots[0][0], err = CreateVqmPlot(values, metric)
	if err != nil {
		return err
	}

	plots[1][0], err = CreateHistogramPlot(values, metric)
	if err != nil {
		return err
	}

	plots[2][0], err = CreateCDFPlot(values, metric)
	if err != nil {
		return err
	}

	// Tweak titles and labels to have better layout and make plots less busy.
	plots[0][0].Title.Text = title + "\n\nPer frame " + metric
	plots[1][0].Title.Text = metric + " Histogram"
	plots[1][0].X.Label.Text = ""
	plots[2][0].Title.Text = "Cumulative Distribution Function (CDF)"

	img := vgimg.New(defaultPlotWidth, defaultPlotHeight*rows)
	dc := draw.New(img)

	t := draw.Tiles{
		Rows: rows,
		Cols: cols,
		PadY: vg.Points(10),
	}

	canvases := plot.Align(plots, t, dc)
	for j := 0; j < rows; j++ {
		for i := 0; i < cols; i++ {
			if plots[j][i] != nil {
				plots[j][i].Draw(canvases[j][i])
			}
		}
	}

	w, err := os.Create(outFile)
	if err != nil {
		return fmt.Errorf("MultiPlotVqm() creating plot file: %w", err)
	}
	defer w.Close()
	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(w); err != nil {
		return fmt.Errorf("MultiPlotVqm() failed writing png file: %w", err)
	}

	return nil
}

// verticalLine is helper to create a vertical line.
func verticalLine(x, ymin, ymax float64) *plotter.Line {
	line, err := plotter.NewLine(plotter.XYs{
		{X: x, Y: ymin},
		{X: x, Y: ymax},
	})
	// Unlikely to have error here - so just panic in that case.
	if err != nil {
		log.Panic(err)
	}
	return line
}

// createQuantileLines is helper to create vertical Quantile lines.
func createQuantileLines(p *plot.Plot, values []float64, quantiles ...float64) []plot.Plotter {
	var plotters []plot.Plotter
	colorCount := len(ColorPalette)
	for i, q := range quantiles {
		qVal := stat.Quantile(q, stat.Empirical, values, nil)
		qLine := verticalLine(qVal, p.Y.Min, p.Y.Max)
		qLine.LineStyle.Width = vg.Points(1)
		qLine.LineStyle.Dashes = []vg.Length{vg.Points(5), vg.Points(5)}
		// Safe index with step=2 into ColorPalette with wrap-around to avoid
		// panic in case of bounds check fails.
		qLine.Color = ColorPalette[i*5%colorCount]

		labels, _ := plotter.NewLabels(plotter.XYLabels{
			XYs: plotter.XYs{
				{X: qVal, Y: q},
			},
			Labels: []string{
				fmt.Sprintf("q(%.2f)=%.3f", q, qVal),
			},
		})
		labels.Offset.X = 5
		labels.Offset.Y = -5

		plotters = append(plotters, qLine, labels)
	}
	// Also add mean/average line.
	meanVal := stat.Mean(values, nil)
	meanLine := verticalLine(meanVal, p.Y.Min, p.Y.Max)
	meanLine.Color = ColorPalette[len(ColorPalette)-1]
	qValMean := stat.CDF(meanVal, stat.Empirical, values, nil)
	meanLabel, _ := plotter.NewLabels(plotter.XYLabels{
		XYs: plotter.XYs{
			{X: meanVal, Y: qValMean},
		},
		Labels: []string{
			fmt.Sprintf("mean=%.3f", meanVal),
		},
	})
	meanLabel.Offset.X = 5
	meanLabel.Offset.Y = -5
	plotters = append(plotters, meanLine, meanLabel)

	return plotters
}
