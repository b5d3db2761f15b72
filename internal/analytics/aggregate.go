package analytics

import (
	"time"

	"golang.org/x/exp/rand"

	"portfoliolab/internal/marketdata"
	"portfoliolab/internal/store"
	"portfoliolab/internal/utils"
)

const (
	lookbackDays = 365
	cashToInvest = 100000.0
	// Daily target return for the target_return strategy, roughly 12.6%
	// annualized.
	dailyTargetReturn = 0.0005
	riskAversion      = 2.0
)

// Engine computes the portfolio aggregate returned by GET /api/portfolio.
type Engine struct {
	provider *marketdata.Provider
	logger   utils.Logger
	now      func() time.Time
	src      rand.Source
}

func NewEngine(provider *marketdata.Provider, logger utils.Logger) *Engine {
	return &Engine{
		provider: provider,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock overrides time and randomness sources; used by tests.
func (e *Engine) WithClock(now func() time.Time, src rand.Source) *Engine {
	e.now = now
	e.src = src
	return e
}

// BuildAggregate recomputes the whole snapshot from the holdings. It never
// returns partial optimizations: a strategy that fails is reported with
// success=false while the rest of the aggregate stands.
func (e *Engine) BuildAggregate(holdings []store.Holding) (*Aggregate, error) {
	if len(holdings) == 0 {
		return EmptyAggregate(), nil
	}

	end := e.now()
	start := end.AddDate(0, 0, -lookbackDays)

	// Symbols in first-appearance order, matching the consolidated table.
	var symbols []string
	seen := make(map[string]bool)
	for _, h := range holdings {
		if !seen[h.Symbol] {
			seen[h.Symbol] = true
			symbols = append(symbols, h.Symbol)
		}
	}

	history, err := e.provider.History(symbols, start, end)
	if err != nil {
		return nil, err
	}

	// Per-symbol consolidation.
	cost := make(map[string]float64)
	quantity := make(map[string]float64)
	current := make(map[string]float64)
	for _, h := range holdings {
		cost[h.Symbol] += float64(h.Quantity) * h.PurchasePrice
		quantity[h.Symbol] += float64(h.Quantity)
	}
	var totalCurrent float64
	for _, symbol := range symbols {
		if last, ok := history.LastKnown(symbol); ok {
			current[symbol] = quantity[symbol] * last
		}
		totalCurrent += current[symbol]
	}

	agg := EmptyAggregate()
	for _, symbol := range symbols {
		costPerUnit := 0.0
		if quantity[symbol] != 0 {
			costPerUnit = cost[symbol] / quantity[symbol]
		}
		agg.PortfolioConsolidated = append(agg.PortfolioConsolidated, ConsolidatedRow{
			Name:    symbol,
			Figures: [4]float64{quantity[symbol], cost[symbol], costPerUnit, current[symbol]},
		})
		agg.PortfolioStockNames = append(agg.PortfolioStockNames, symbol)
		agg.PortfolioPurchasePrice = append(agg.PortfolioPurchasePrice, cost[symbol])
		agg.PortfolioCurrentValue = append(agg.PortfolioCurrentValue, current[symbol])
		agg.StockQuantity = append(agg.StockQuantity, quantity[symbol])
	}

	// Daily portfolio value: quantity held on each date times that day's
	// forward-filled close. Days before the first trade carry no value and
	// are skipped, keeping dates and prices the same length.
	for i, date := range history.Dates {
		var total float64
		for _, h := range holdings {
			if h.Date.Format("2006-01-02") > date {
				continue
			}
			if close, ok := history.At(h.Symbol, i); ok {
				total += float64(h.Quantity) * close
			}
		}
		if total > 0 {
			agg.Dates = append(agg.Dates, date)
			agg.Prices = append(agg.Prices, total)
		}
	}

	agg.RiskMetrics = NewRiskCalculator(agg.Prices, totalCurrent, e.src).Compute()

	for i, date := range history.Dates {
		row := make(map[string]float64)
		for _, symbol := range symbols {
			if close, ok := history.At(symbol, i); ok {
				row[symbol] = close
			}
		}
		if len(row) > 0 {
			agg.PriceHistory[date] = row
		}
	}

	agg.Optimizations = e.buildOptimizations(symbols, history, current, totalCurrent)
	return agg, nil
}

func (e *Engine) buildOptimizations(symbols []string, history *marketdata.History, current map[string]float64, totalCurrent float64) map[string]OptimizationResult {
	out := make(map[string]OptimizationResult, len(OptimizationMethods))

	fail := func(msg string) {
		for _, method := range OptimizationMethods {
			out[method] = OptimizationResult{Success: false, Message: msg}
		}
	}

	alignedDates, series, err := history.Aligned(symbols)
	if err != nil {
		e.logger.Warn("Optimizations skipped: %v", err)
		fail(err.Error())
		return out
	}

	currentWeights := make(map[string]float64, len(symbols))
	if totalCurrent > 0 {
		for _, symbol := range symbols {
			currentWeights[symbol] = current[symbol] / totalCurrent
		}
	}

	optimizer, err := NewOptimizer(symbols, series, currentWeights)
	if err != nil {
		e.logger.Warn("Optimizations skipped: %v", err)
		fail(err.Error())
		return out
	}

	// Return series are one shorter than the aligned price series.
	var returnDates []string
	if len(alignedDates) > 1 {
		returnDates = alignedDates[1:]
	}

	for _, method := range OptimizationMethods {
		opts := OptimizeOptions{CashToInvest: cashToInvest}
		switch method {
		case "target_return":
			opts.TargetReturn = dailyTargetReturn
		case "utility":
			opts.RiskAversion = riskAversion
		}

		result, err := optimizer.Optimize(method, opts)
		if err != nil {
			e.logger.Warn("Optimization %s failed: %v", method, err)
			out[method] = OptimizationResult{Success: false, Message: err.Error()}
			continue
		}

		weights := optimizer.WeightVector(result.OptimalWeights)
		result.Visualizations = buildVisualizations(optimizer, method, weights, returnDates, opts, e.src, e.logger)
		out[method] = *result
	}

	return out
}
