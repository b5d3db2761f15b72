package analytics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoAssetSeries builds two synthetic price series: a steady climber and a
// choppy one with the same start.
func twoAssetSeries(n int) [][]float64 {
	steady := make([]float64, n)
	choppy := make([]float64, n)
	steady[0], choppy[0] = 100, 100
	for i := 1; i < n; i++ {
		steady[i] = steady[i-1] * 1.001
		swing := 0.025
		if i%2 == 0 {
			swing = -0.015
		}
		choppy[i] = choppy[i-1] * (1 + swing)
	}
	return [][]float64{steady, choppy}
}

func TestNewOptimizerValidation(t *testing.T) {
	_, err := NewOptimizer(nil, nil, nil)
	assert.Error(t, err)

	_, err = NewOptimizer([]string{"AAPL"}, [][]float64{{100}}, nil)
	assert.Error(t, err)

	_, err = NewOptimizer([]string{"AAPL", "GOOGL"}, [][]float64{{100, 101}}, nil)
	assert.Error(t, err)
}

func TestWeightVectorOrdersBySymbol(t *testing.T) {
	o, err := NewOptimizer([]string{"AAPL", "GOOGL"}, twoAssetSeries(60), nil)
	require.NoError(t, err)

	w := o.WeightVector(map[string]float64{"GOOGL": 0.3, "AAPL": 0.7})
	assert.Equal(t, []float64{0.7, 0.3}, w)
}

func TestPerformance(t *testing.T) {
	o, err := NewOptimizer([]string{"AAPL", "GOOGL"}, twoAssetSeries(60), nil)
	require.NoError(t, err)

	// All-in on the steady asset returns its own mean and (near zero) risk.
	ret, sd := o.Performance([]float64{1, 0})
	assert.InDelta(t, 0.001, ret, 1e-6)
	assert.InDelta(t, 0.0, sd, 1e-6)

	retMix, sdMix := o.Performance([]float64{0.5, 0.5})
	assert.Greater(t, sdMix, sd)
	assert.False(t, math.IsNaN(retMix))
}

func TestOptimizeWeightsAreValid(t *testing.T) {
	o, err := NewOptimizer([]string{"AAPL", "GOOGL"}, twoAssetSeries(120),
		map[string]float64{"AAPL": 0.5, "GOOGL": 0.5})
	require.NoError(t, err)

	for _, method := range OptimizationMethods {
		opts := OptimizeOptions{CashToInvest: 100000, TargetReturn: 0.0005, RiskAversion: 2.0}
		result, err := o.Optimize(method, opts)
		require.NoError(t, err, "method %s", method)
		assert.True(t, result.Success)

		var sum float64
		for symbol, w := range result.OptimalWeights {
			assert.GreaterOrEqual(t, w, 0.0, "method %s weight %s", method, symbol)
			assert.LessOrEqual(t, w, 1.0, "method %s weight %s", method, symbol)
			sum += w
		}
		assert.InDelta(t, 1.0, sum, 1e-9, "method %s weights must sum to 1", method)

		var invested float64
		for _, v := range result.SuggestedInvestment {
			invested += v
		}
		assert.InDelta(t, opts.CashToInvest, invested, 1e-3)
		assert.Equal(t, map[string]float64{"AAPL": 0.5, "GOOGL": 0.5}, result.CurrentWeights)
	}
}

func TestOptimizeMinVariancePrefersSteadyAsset(t *testing.T) {
	o, err := NewOptimizer([]string{"STEADY", "CHOPPY"}, twoAssetSeries(120), nil)
	require.NoError(t, err)

	result, err := o.Optimize("min_variance", OptimizeOptions{CashToInvest: 100000})
	require.NoError(t, err)
	assert.Greater(t, result.OptimalWeights["STEADY"], result.OptimalWeights["CHOPPY"])
}

func TestOptimizeMaxReturnPrefersChoppyAsset(t *testing.T) {
	// The choppy asset alternates +2.5%/-1.5% for a higher mean return.
	o, err := NewOptimizer([]string{"STEADY", "CHOPPY"}, twoAssetSeries(120), nil)
	require.NoError(t, err)

	result, err := o.Optimize("max_return", OptimizeOptions{CashToInvest: 100000})
	require.NoError(t, err)
	assert.Greater(t, result.OptimalWeights["CHOPPY"], result.OptimalWeights["STEADY"])
}

func TestOptimizeDiversificationIsBalanced(t *testing.T) {
	o, err := NewOptimizer([]string{"STEADY", "CHOPPY"}, twoAssetSeries(120), nil)
	require.NoError(t, err)

	result, err := o.Optimize("diversification", OptimizeOptions{CashToInvest: 100000})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, result.OptimalWeights["STEADY"], 0.05)
	assert.InDelta(t, 0.5, result.OptimalWeights["CHOPPY"], 0.05)
}

func TestOptimizeUnknownMethod(t *testing.T) {
	o, err := NewOptimizer([]string{"AAPL", "GOOGL"}, twoAssetSeries(60), nil)
	require.NoError(t, err)

	_, err = o.Optimize("kelly", OptimizeOptions{})
	assert.Error(t, err)
}

func TestMaxDrawdown(t *testing.T) {
	// A straight 10% climb then a crash to half.
	series := [][]float64{{100, 110, 55, 56}, {100, 100.1, 100.2, 100.3}}
	o, err := NewOptimizer([]string{"CRASH", "FLAT"}, series, nil)
	require.NoError(t, err)

	dd := o.maxDrawdown([]float64{1, 0})
	assert.InDelta(t, 0.5, dd, 1e-9)
}
