package analytics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
)

const (
	dailyRiskFreeRate = 0.02 / 252
	sumPenalty        = 1000.0
)

// OptimizeOptions carries the per-strategy knobs.
type OptimizeOptions struct {
	CashToInvest float64
	TargetReturn float64
	RiskAversion float64
}

// Optimizer solves long-only, fully-invested weight allocations over a daily
// return matrix. Weights are bounded to [0,1] and normalized to sum to 1.
type Optimizer struct {
	symbols        []string
	returns        [][]float64 // T rows, one column per symbol
	meanReturns    []float64
	cov            [][]float64
	currentWeights map[string]float64
}

// NewOptimizer builds an optimizer from per-symbol aligned price series.
func NewOptimizer(symbols []string, series [][]float64, currentWeights map[string]float64) (*Optimizer, error) {
	n := len(symbols)
	if n == 0 {
		return nil, fmt.Errorf("no assets in portfolio to optimize")
	}
	if len(series) != n {
		return nil, fmt.Errorf("series count %d does not match %d symbols", len(series), n)
	}

	perSymbol := make([][]float64, n)
	for j := range series {
		perSymbol[j] = Returns(series[j])
		if len(perSymbol[j]) == 0 {
			return nil, fmt.Errorf("not enough price history for %s", symbols[j])
		}
	}

	t := len(perSymbol[0])
	for j := range perSymbol {
		if len(perSymbol[j]) != t {
			return nil, fmt.Errorf("misaligned return series for %s", symbols[j])
		}
	}

	returns := make([][]float64, t)
	for i := 0; i < t; i++ {
		row := make([]float64, n)
		for j := 0; j < n; j++ {
			row[j] = perSymbol[j][i]
		}
		returns[i] = row
	}

	meanReturns := make([]float64, n)
	for j := 0; j < n; j++ {
		meanReturns[j] = stat.Mean(perSymbol[j], nil)
	}

	cov := make([][]float64, n)
	for i := 0; i < n; i++ {
		cov[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			cov[i][j] = stat.Covariance(perSymbol[i], perSymbol[j], nil)
		}
	}

	return &Optimizer{
		symbols:        symbols,
		returns:        returns,
		meanReturns:    meanReturns,
		cov:            cov,
		currentWeights: currentWeights,
	}, nil
}

// Performance returns expected daily return and standard deviation for a
// weight vector.
func (o *Optimizer) Performance(w []float64) (float64, float64) {
	n := len(o.symbols)
	var ret, variance float64
	for i := 0; i < n; i++ {
		ret += o.meanReturns[i] * w[i]
		for j := 0; j < n; j++ {
			variance += w[i] * w[j] * o.cov[i][j]
		}
	}
	return ret, math.Sqrt(math.Max(variance, 0))
}

// PortfolioReturns projects the daily return matrix onto a weight vector.
func (o *Optimizer) PortfolioReturns(w []float64) []float64 {
	out := make([]float64, len(o.returns))
	for t, row := range o.returns {
		var v float64
		for j, r := range row {
			v += r * w[j]
		}
		out[t] = v
	}
	return out
}

// WeightVector orders a weight map by the optimizer's symbols.
func (o *Optimizer) WeightVector(weights map[string]float64) []float64 {
	w := make([]float64, len(o.symbols))
	for i, symbol := range o.symbols {
		w[i] = weights[symbol]
	}
	return w
}

func (o *Optimizer) maxDrawdown(w []float64) float64 {
	cumulative := 1.0
	peak := 1.0
	worst := 0.0
	for _, r := range o.PortfolioReturns(w) {
		cumulative *= 1 + r
		if cumulative > peak {
			peak = cumulative
		}
		drawdown := (cumulative - peak) / peak
		if drawdown < worst {
			worst = drawdown
		}
	}
	return -worst
}

// cvar is the negated mean of the tail returns below historical VaR, so
// minimizing it minimizes expected tail loss.
func (o *Optimizer) cvar(w []float64) float64 {
	returns := o.PortfolioReturns(w)
	threshold := percentile(returns, 1-varConfidence)
	var sum float64
	var count int
	for _, r := range returns {
		if r <= threshold {
			sum += r
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return -sum / float64(count)
}

func (o *Optimizer) downsideStd(w []float64) float64 {
	var downside []float64
	for _, r := range o.PortfolioReturns(w) {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	if len(downside) == 0 {
		return 1e-6
	}
	return stat.PopStdDev(downside, nil)
}

func (o *Optimizer) benchmarkReturns() []float64 {
	bench := make([]float64, len(o.returns))
	for t, row := range o.returns {
		bench[t] = stat.Mean(row, nil)
	}
	return bench
}

// objective builds the penalized objective for a strategy. All strategies
// share the sum-to-1 penalty; bounds are enforced by projection.
func (o *Optimizer) objective(method string, opts OptimizeOptions) (func([]float64) float64, error) {
	var core func(w []float64) float64

	switch method {
	case "sharpe":
		core = func(w []float64) float64 {
			ret, sd := o.Performance(w)
			return -(ret - dailyRiskFreeRate) / math.Max(sd, 1e-10)
		}
	case "min_variance":
		core = func(w []float64) float64 {
			_, sd := o.Performance(w)
			return sd * sd
		}
	case "max_return":
		core = func(w []float64) float64 {
			ret, _ := o.Performance(w)
			return -ret
		}
	case "sortino":
		core = func(w []float64) float64 {
			ret, _ := o.Performance(w)
			return -(ret - dailyRiskFreeRate) / o.downsideStd(w)
		}
	case "information_ratio":
		bench := o.benchmarkReturns()
		benchMean := stat.Mean(bench, nil)
		core = func(w []float64) float64 {
			ret, _ := o.Performance(w)
			portfolio := o.PortfolioReturns(w)
			excess := make([]float64, len(portfolio))
			for i := range portfolio {
				excess[i] = portfolio[i] - bench[i]
			}
			tracking := stat.PopStdDev(excess, nil)
			if tracking == 0 {
				return 0
			}
			return -(ret - benchMean) / tracking
		}
	case "max_drawdown":
		core = o.maxDrawdown
	case "target_return":
		core = func(w []float64) float64 {
			ret, sd := o.Performance(w)
			diff := ret - opts.TargetReturn
			return sd*sd + sumPenalty*diff*diff
		}
	case "utility":
		core = func(w []float64) float64 {
			ret, sd := o.Performance(w)
			return -(ret - 0.5*opts.RiskAversion*sd*sd)
		}
	case "cvar":
		core = o.cvar
	case "diversification":
		core = func(w []float64) float64 {
			var hhi float64
			for _, v := range w {
				hhi += v * v
			}
			return hhi
		}
	default:
		return nil, fmt.Errorf("unknown optimization method: %s", method)
	}

	return func(x []float64) float64 {
		w := projectToUnitBox(x)
		obj := core(w)
		var sum float64
		for _, v := range w {
			sum += v
		}
		return obj + sumPenalty*(sum-1)*(sum-1)
	}, nil
}

// Optimize solves one strategy and packages the wire-level result.
func (o *Optimizer) Optimize(method string, opts OptimizeOptions) (*OptimizationResult, error) {
	objective, err := o.objective(method, opts)
	if err != nil {
		return nil, err
	}

	n := len(o.symbols)
	problem := optimize.Problem{Func: objective}
	initial := make([]float64, n)
	for i := range initial {
		initial[i] = 1.0 / float64(n)
	}

	result, err := optimize.Minimize(problem, initial, &optimize.Settings{}, &optimize.NelderMead{})
	if err != nil || !converged(result.Status) {
		// Nelder-Mead occasionally stalls on flat objectives; retry from a
		// perturbed start before giving up.
		perturbed := make([]float64, n)
		for i := range perturbed {
			perturbed[i] = initial[i] * (1 + 0.1*float64(i%3))
		}
		result, err = optimize.Minimize(problem, perturbed, &optimize.Settings{}, &optimize.NelderMead{})
		if err != nil {
			return nil, fmt.Errorf("optimization failed: %w", err)
		}
		if !converged(result.Status) {
			return nil, fmt.Errorf("optimization did not converge: status=%v", result.Status)
		}
	}

	weights := normalize(projectToUnitBox(result.X))
	ret, sd := o.Performance(weights)

	optimalWeights := make(map[string]float64, n)
	suggested := make(map[string]float64, n)
	for i, symbol := range o.symbols {
		optimalWeights[symbol] = weights[i]
		suggested[symbol] = weights[i] * opts.CashToInvest
	}

	return &OptimizationResult{
		OptimalWeights:      optimalWeights,
		SuggestedInvestment: suggested,
		CurrentWeights:      o.currentWeights,
		ExpectedReturn:      ret,
		Risk:                sd,
		Success:             true,
	}, nil
}

func converged(status optimize.Status) bool {
	switch status {
	case optimize.Success, optimize.GradientThreshold, optimize.FunctionConvergence,
		optimize.FunctionThreshold, optimize.StepConvergence:
		return true
	}
	return false
}

func projectToUnitBox(x []float64) []float64 {
	proj := make([]float64, len(x))
	for i, v := range x {
		proj[i] = math.Max(0, math.Min(1, v))
	}
	return proj
}

func normalize(w []float64) []float64 {
	var sum float64
	for _, v := range w {
		sum += v
	}
	if sum <= 0 {
		out := make([]float64, len(w))
		for i := range out {
			out[i] = 1.0 / float64(len(w))
		}
		return out
	}
	out := make([]float64, len(w))
	for i, v := range w {
		out[i] = v / sum
	}
	return out
}
