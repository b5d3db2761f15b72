package analytics

import (
	"encoding/base64"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/vicanso/go-charts/v2"
	"golang.org/x/exp/rand"

	"portfoliolab/internal/utils"
)

const frontierSamples = 1000

// Visualization keys the frontend embeds verbatim.
const (
	vizPieChart          = "pie_chart"
	vizEfficientFrontier = "efficient_frontier"
	vizDownsideHistogram = "downside_histogram"
	vizDrawdownChart     = "drawdown_chart"
	vizCVaRHistogram     = "cvar_histogram"
)

// buildVisualizations renders the strategy's chart images as base64 PNG data
// URIs. A failed render drops that one image, never the strategy.
func buildVisualizations(o *Optimizer, method string, weights []float64, dates []string, opts OptimizeOptions, src rand.Source, logger utils.Logger) map[string]string {
	viz := make(map[string]string)

	add := func(key string, png []byte, err error) {
		if err != nil {
			logger.Warn("Skipping %s chart for %s: %v", key, method, err)
			return
		}
		viz[key] = "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
	}

	switch method {
	case "sharpe", "min_variance", "max_return", "target_return", "utility":
		png, err := renderEfficientFrontier(o, method, weights, opts, src)
		add(vizEfficientFrontier, png, err)
	}

	png, err := renderAllocationPie(o.symbols, weights, method)
	add(vizPieChart, png, err)

	switch method {
	case "sortino":
		var downside []float64
		for _, r := range o.PortfolioReturns(weights) {
			if r < 0 {
				downside = append(downside, r)
			}
		}
		png, err := renderHistogram(downside, "Downside Returns Distribution")
		add(vizDownsideHistogram, png, err)
	case "max_drawdown":
		png, err := renderDrawdownChart(o, weights, dates)
		add(vizDrawdownChart, png, err)
	case "cvar":
		png, err := renderHistogram(o.PortfolioReturns(weights), "Returns with CVaR")
		add(vizCVaRHistogram, png, err)
	}

	return viz
}

func methodLabel(method string) string {
	if method == "" {
		return method
	}
	return strings.ToUpper(method[:1]) + method[1:]
}

// renderAllocationPie draws the optimal weight split with percentage legend
// labels.
func renderAllocationPie(symbols []string, weights []float64, method string) ([]byte, error) {
	values := make([]float64, len(weights))
	labels := make([]string, len(weights))
	for i, w := range weights {
		values[i] = w * 100
		labels[i] = fmt.Sprintf("%s (%.1f%%)", symbols[i], w*100)
	}

	p, err := charts.PieRender(
		values,
		charts.TitleTextOptionFunc("Optimal Allocation - "+methodLabel(method)),
		charts.LegendOptionFunc(charts.LegendOption{
			Data: labels,
			Top:  charts.PositionTop,
		}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(800),
		charts.HeightOptionFunc(600),
	)
	if err != nil {
		return nil, err
	}
	return p.Bytes()
}

// renderEfficientFrontier samples random fully-invested portfolios and plots
// their return against risk, with the optimal point called out in the title.
func renderEfficientFrontier(o *Optimizer, method string, optimal []float64, opts OptimizeOptions, src rand.Source) ([]byte, error) {
	if src == nil {
		src = rand.NewSource(uint64(time.Now().UnixNano()))
	}
	rng := rand.New(src)

	type point struct{ risk, ret float64 }
	points := make([]point, 0, frontierSamples)
	w := make([]float64, len(o.symbols))
	for i := 0; i < frontierSamples; i++ {
		var sum float64
		for j := range w {
			w[j] = rng.Float64()
			sum += w[j]
		}
		for j := range w {
			w[j] /= sum
		}
		ret, sd := o.Performance(w)
		points = append(points, point{risk: sd, ret: ret})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].risk < points[j].risk })

	values := make([]float64, len(points))
	labels := make([]string, len(points))
	for i, pt := range points {
		values[i] = pt.ret
		labels[i] = fmt.Sprintf("%.4f", pt.risk)
	}

	optRet, optRisk := o.Performance(optimal)
	subtitle := fmt.Sprintf("optimal: return %.4f, risk %.4f", optRet, optRisk)
	if method == "target_return" {
		subtitle += fmt.Sprintf(", target %.4f", opts.TargetReturn)
	}

	p, err := charts.LineRender(
		[][]float64{values},
		charts.TitleTextOptionFunc("Efficient Frontier - "+methodLabel(method)+"\n"+subtitle),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        labels,
			BoundaryGap: charts.FalseFlag(),
			SplitNumber: 10,
		}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(800),
		charts.HeightOptionFunc(600),
	)
	if err != nil {
		return nil, err
	}
	return p.Bytes()
}

// renderHistogram bins the returns and draws the counts as bars.
func renderHistogram(data []float64, title string) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("no data to bin")
	}

	min, max := data[0], data[0]
	for _, v := range data[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	const bins = 30
	width := (max - min) / bins
	if width == 0 {
		return nil, fmt.Errorf("degenerate distribution")
	}

	counts := make([]float64, bins)
	labels := make([]string, bins)
	for _, v := range data {
		idx := int((v - min) / width)
		if idx >= bins {
			idx = bins - 1
		}
		counts[idx]++
	}
	for i := range labels {
		labels[i] = fmt.Sprintf("%.3f", min+(float64(i)+0.5)*width)
	}

	p, err := charts.BarRender(
		[][]float64{counts},
		charts.TitleTextOptionFunc(title),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        labels,
			SplitNumber: 10,
		}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(800),
		charts.HeightOptionFunc(600),
	)
	if err != nil {
		return nil, err
	}
	return p.Bytes()
}

// renderDrawdownChart plots cumulative drawdown over the return dates.
func renderDrawdownChart(o *Optimizer, weights []float64, dates []string) ([]byte, error) {
	returns := o.PortfolioReturns(weights)
	if len(returns) == 0 {
		return nil, fmt.Errorf("no returns to plot")
	}

	drawdown := make([]float64, len(returns))
	cumulative := 1.0
	peak := 1.0
	for i, r := range returns {
		cumulative *= 1 + r
		if cumulative > peak {
			peak = cumulative
		}
		drawdown[i] = (cumulative - peak) / peak
	}

	labels := dates
	if len(labels) != len(drawdown) {
		labels = make([]string, len(drawdown))
		for i := range labels {
			labels[i] = fmt.Sprintf("%d", i+1)
		}
	}

	p, err := charts.LineRender(
		[][]float64{drawdown},
		charts.TitleTextOptionFunc("Portfolio Drawdown"),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        labels,
			BoundaryGap: charts.FalseFlag(),
			SplitNumber: 8,
		}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(800),
		charts.HeightOptionFunc(600),
	)
	if err != nil {
		return nil, err
	}
	return p.Bytes()
}
