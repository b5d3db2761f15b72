package analytics

import (
	"sort"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	riskFreeRate    = 0.02
	varConfidence   = 0.95
	mcSimulations   = 1000
	rollingWindow   = 30
)

// RiskCalculator computes risk figures over a series of daily portfolio
// values. portfolioValue is the current total in dollars, used to scale
// percentage VaR.
type RiskCalculator struct {
	prices         []float64
	portfolioValue float64
	src            rand.Source
}

// NewRiskCalculator builds a calculator. src may be nil; tests pass a seeded
// source to make the Monte Carlo draws deterministic.
func NewRiskCalculator(prices []float64, portfolioValue float64, src rand.Source) *RiskCalculator {
	return &RiskCalculator{prices: prices, portfolioValue: portfolioValue, src: src}
}

// Returns converts the value series to simple daily returns.
func Returns(prices []float64) []float64 {
	if len(prices) < 2 {
		return []float64{}
	}
	returns := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] != 0 {
			returns[i-1] = (prices[i] - prices[i-1]) / prices[i-1]
		}
	}
	return returns
}

// percentile computes the linearly interpolated p-quantile, matching the
// numpy percentile the frontend charts were calibrated against.
func percentile(data []float64, p float64) float64 {
	if len(data) == 0 {
		return 0
	}
	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)
	return stat.Quantile(p, stat.LinInterp, sorted, nil)
}

func (rc *RiskCalculator) Mean() float64 {
	if len(rc.prices) == 0 {
		return 0
	}
	return stat.Mean(rc.prices, nil)
}

func (rc *RiskCalculator) Variance() float64 {
	if len(rc.prices) == 0 {
		return 0
	}
	return stat.PopVariance(rc.prices, nil)
}

func (rc *RiskCalculator) StdDev() float64 {
	if len(rc.prices) == 0 {
		return 0
	}
	return stat.PopStdDev(rc.prices, nil)
}

func (rc *RiskCalculator) Max() float64 {
	max := 0.0
	for i, v := range rc.prices {
		if i == 0 || v > max {
			max = v
		}
	}
	return max
}

func (rc *RiskCalculator) Min() float64 {
	min := 0.0
	for i, v := range rc.prices {
		if i == 0 || v < min {
			min = v
		}
	}
	return min
}

// SharpeRatio is mean excess return over its standard deviation.
func (rc *RiskCalculator) SharpeRatio() float64 {
	returns := Returns(rc.prices)
	if len(returns) == 0 {
		return 0
	}
	excess := make([]float64, len(returns))
	for i, r := range returns {
		excess[i] = r - riskFreeRate
	}
	sd := stat.PopStdDev(excess, nil)
	if sd == 0 {
		return 0
	}
	return stat.Mean(excess, nil) / sd
}

// SortinoRatio penalizes only downside deviation.
func (rc *RiskCalculator) SortinoRatio() float64 {
	returns := Returns(rc.prices)
	if len(returns) == 0 {
		return 0
	}
	var downside []float64
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	if len(downside) == 0 {
		return 0
	}
	excess := make([]float64, len(returns))
	for i, r := range returns {
		excess[i] = r - riskFreeRate
	}
	sd := stat.PopStdDev(downside, nil)
	if sd == 0 {
		return 0
	}
	return stat.Mean(excess, nil) / sd
}

// ValueAtRisk is the historical VaR of daily returns at the configured
// confidence level, as a (typically negative) fraction.
func (rc *RiskCalculator) ValueAtRisk() float64 {
	returns := Returns(rc.prices)
	if len(returns) == 0 {
		return 0
	}
	return percentile(returns, 1-varConfidence)
}

// ValueAtRiskDollar scales percentage VaR by the current portfolio value.
func (rc *RiskCalculator) ValueAtRiskDollar() float64 {
	if rc.portfolioValue == 0 {
		return 0
	}
	return rc.portfolioValue * rc.ValueAtRisk()
}

// MonteCarloVaR fits a normal distribution to the historical returns,
// simulates mcSimulations daily returns and reports the dollar VaR along
// with the simulated returns for the histogram.
func (rc *RiskCalculator) MonteCarloVaR() (float64, []float64) {
	returns := Returns(rc.prices)
	if len(returns) == 0 {
		return 0, []float64{}
	}

	normal := distuv.Normal{
		Mu:    stat.Mean(returns, nil),
		Sigma: stat.PopStdDev(returns, nil),
		Src:   rc.src,
	}

	simulated := make([]float64, mcSimulations)
	for i := range simulated {
		simulated[i] = normal.Rand()
	}

	varPct := percentile(simulated, 1-varConfidence)
	if rc.portfolioValue == 0 {
		return 0, simulated
	}
	return rc.portfolioValue * varPct, simulated
}

// RollingStdDev returns the windowed standard deviation of daily returns.
// Element i covers returns[i : i+window], so it aligns with dates[i+window-1].
func (rc *RiskCalculator) RollingStdDev() []float64 {
	returns := Returns(rc.prices)
	if len(returns) < rollingWindow {
		return []float64{}
	}
	out := make([]float64, 0, len(returns)-rollingWindow+1)
	for i := 0; i+rollingWindow <= len(returns); i++ {
		out = append(out, stat.PopStdDev(returns[i:i+rollingWindow], nil))
	}
	return out
}

// Compute assembles the full risk metrics block.
func (rc *RiskCalculator) Compute() RiskMetrics {
	mcVaR, simulated := rc.MonteCarloVaR()
	return RiskMetrics{
		Mean:                       rc.Mean(),
		Variance:                   rc.Variance(),
		StdDev:                     rc.StdDev(),
		Max:                        rc.Max(),
		Min:                        rc.Min(),
		SharpeRatio:                rc.SharpeRatio(),
		SortinoRatio:               rc.SortinoRatio(),
		ValueAtRisk:                rc.ValueAtRisk(),
		ValueAtRiskDollar:          rc.ValueAtRiskDollar(),
		MonteCarloVaR:              mcVaR,
		MonteCarloSimulatedReturns: simulated,
		RollingStdDev:              rc.RollingStdDev(),
	}
}
