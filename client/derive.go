package client

import (
	"fmt"
	"sort"

	"portfoliolab/internal/analytics"
	"portfoliolab/internal/utils"
)

// rollingLag is the index offset between the dates axis and the rolling
// volatility series. A 30-sample window means the first rolling value lines
// up with the 30th date.
const rollingLag = 29

// VisualizationKeys are the pre-rendered chart images a strategy may carry.
var VisualizationKeys = []string{
	"pie_chart", "efficient_frontier", "downside_histogram", "drawdown_chart", "cvar_histogram",
}

// StrategyLabels maps strategy keys to their display names.
var StrategyLabels = map[string]string{
	"sharpe":            "Sharpe Ratio",
	"min_variance":      "Minimum Variance",
	"max_return":        "Maximum Return",
	"sortino":           "Sortino Ratio",
	"information_ratio": "Information Ratio",
	"max_drawdown":      "Maximum Drawdown",
	"target_return":     "Target Return",
	"utility":           "Utility",
	"cvar":              "CVaR",
	"diversification":   "Diversification",
}

// PiePoint is one named slice of a pie series.
type PiePoint struct {
	Name  string
	Value float64
}

// SeriesPoint is one labelled value of a line or bar series.
type SeriesPoint struct {
	Label string
	Value float64
}

// MetricRow is one formatted row of a strategy's metrics table.
type MetricRow struct {
	Label string
	Value string
}

// StrategyPanel is the view model for one optimization strategy tab. When
// Message is non-empty the panel has no data and shows the message instead.
type StrategyPanel struct {
	Weights []PiePoint
	Metrics []MetricRow
	Images  map[string]string
	Message string
}

// Deriver turns the aggregate snapshot into chart-ready view models. Every
// derivation is defensive: a malformed field skips that one chart with a
// warning and never aborts the rest.
type Deriver struct {
	logger utils.Logger
}

// NewDeriver builds a Deriver with the given logger.
func NewDeriver(logger utils.Logger) *Deriver {
	return &Deriver{logger: logger}
}

// PieSeries zips stock names with current values for the composition pie.
// Returns nil when the two arrays are absent or of different lengths.
func (d *Deriver) PieSeries(agg *analytics.Aggregate) []PiePoint {
	if agg == nil || agg.PortfolioStockNames == nil || agg.PortfolioCurrentValue == nil ||
		len(agg.PortfolioStockNames) != len(agg.PortfolioCurrentValue) {
		d.logger.Warn("Composition pie skipped: stock names and values do not align")
		return nil
	}
	series := make([]PiePoint, len(agg.PortfolioStockNames))
	for i, name := range agg.PortfolioStockNames {
		series[i] = PiePoint{Name: name, Value: agg.PortfolioCurrentValue[i]}
	}
	return series
}

// ValueHistory zips dates with portfolio values for the history line.
func (d *Deriver) ValueHistory(agg *analytics.Aggregate) []SeriesPoint {
	if agg == nil || agg.Dates == nil || agg.Prices == nil || len(agg.Dates) != len(agg.Prices) {
		d.logger.Warn("Value history skipped: dates and prices do not align")
		return nil
	}
	series := make([]SeriesPoint, len(agg.Dates))
	for i, date := range agg.Dates {
		series[i] = SeriesPoint{Label: date, Value: agg.Prices[i]}
	}
	return series
}

// VaRBars builds the two-bar VaR comparison. Values are sign-flipped so
// losses display as negative bars.
func (d *Deriver) VaRBars(rm analytics.RiskMetrics) []SeriesPoint {
	return []SeriesPoint{
		{Label: "Historical VaR", Value: -rm.ValueAtRiskDollar},
		{Label: "Monte Carlo VaR", Value: -rm.MonteCarloVaR},
	}
}

// MonteCarloHistogram emits one bar per simulated return, in server order.
func (d *Deriver) MonteCarloHistogram(rm analytics.RiskMetrics) []SeriesPoint {
	series := make([]SeriesPoint, len(rm.MonteCarloSimulatedReturns))
	for i, value := range rm.MonteCarloSimulatedReturns {
		series[i] = SeriesPoint{Label: fmt.Sprintf("%d", i), Value: value}
	}
	return series
}

// RiskRewardBars builds the two-bar Sharpe and Sortino comparison, raw
// ratios with no scaling.
func (d *Deriver) RiskRewardBars(rm analytics.RiskMetrics) []SeriesPoint {
	return []SeriesPoint{
		{Label: "Sharpe Ratio", Value: rm.SharpeRatio},
		{Label: "Sortino Ratio", Value: rm.SortinoRatio},
	}
}

// RollingVolatility pairs rolling_std_dev[i] with dates[i+29]. Points
// without a matching date are dropped.
func (d *Deriver) RollingVolatility(agg *analytics.Aggregate) []SeriesPoint {
	if agg == nil || agg.Dates == nil || agg.RiskMetrics.RollingStdDev == nil {
		d.logger.Warn("Rolling volatility skipped: missing dates or series")
		return nil
	}
	rolling := agg.RiskMetrics.RollingStdDev
	series := make([]SeriesPoint, 0, len(rolling))
	for i, value := range rolling {
		dateIndex := i + rollingLag
		if dateIndex >= len(agg.Dates) {
			break
		}
		series = append(series, SeriesPoint{Label: agg.Dates[dateIndex], Value: value})
	}
	return series
}

// OptimizationPanel builds the tab for one strategy. An absent strategy or
// one without weights yields a panel carrying only the no-data message.
func (d *Deriver) OptimizationPanel(agg *analytics.Aggregate, method string) StrategyPanel {
	label := StrategyLabels[method]
	if label == "" {
		label = method
	}

	var result analytics.OptimizationResult
	ok := false
	if agg != nil && agg.Optimizations != nil {
		result, ok = agg.Optimizations[method]
	}
	if !ok || result.OptimalWeights == nil {
		return StrategyPanel{
			Message: fmt.Sprintf("No optimization data available for %s.", label),
		}
	}

	symbols := make([]string, 0, len(result.OptimalWeights))
	for symbol := range result.OptimalWeights {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	weights := make([]PiePoint, len(symbols))
	for i, symbol := range symbols {
		weights[i] = PiePoint{Name: symbol, Value: result.OptimalWeights[symbol] * 100}
	}

	images := make(map[string]string)
	for _, key := range VisualizationKeys {
		if data, present := result.Visualizations[key]; present {
			images[key] = data
		}
	}

	return StrategyPanel{
		Weights: weights,
		Metrics: []MetricRow{
			{Label: "Expected Return", Value: fmt.Sprintf("%.2f%%", result.ExpectedReturn*100)},
			{Label: "Risk", Value: fmt.Sprintf("%.2f%%", result.Risk*100)},
		},
		Images: images,
	}
}
