package analytics

import "encoding/json"

// OptimizationMethods are the strategies computed for every aggregate, in the
// order the frontend tabs show them.
var OptimizationMethods = []string{
	"sharpe", "min_variance", "max_return", "sortino", "information_ratio",
	"max_drawdown", "target_return", "utility", "cvar", "diversification",
}

// RiskMetrics carries the portfolio-level risk figures of the aggregate.
type RiskMetrics struct {
	Mean                       float64   `json:"mean"`
	Variance                   float64   `json:"variance"`
	StdDev                     float64   `json:"std_dev"`
	Max                        float64   `json:"max"`
	Min                        float64   `json:"min"`
	SharpeRatio                float64   `json:"sharpe_ratio"`
	SortinoRatio               float64   `json:"sortino_ratio"`
	ValueAtRisk                float64   `json:"value_at_risk"`
	ValueAtRiskDollar          float64   `json:"value_at_risk_dollar"`
	MonteCarloVaR              float64   `json:"monte_carlo_var"`
	MonteCarloSimulatedReturns []float64 `json:"monte_carlo_simulated_returns"`
	RollingStdDev              []float64 `json:"rolling_std_dev"`
}

// OptimizationResult is one strategy's output. OptimalWeights is nil when the
// strategy could not be computed; consumers must tolerate the absence.
type OptimizationResult struct {
	OptimalWeights      map[string]float64 `json:"optimal_weights,omitempty"`
	SuggestedInvestment map[string]float64 `json:"suggested_investment,omitempty"`
	CurrentWeights      map[string]float64 `json:"current_weights,omitempty"`
	ExpectedReturn      float64            `json:"expected_return"`
	Risk                float64            `json:"risk"`
	Visualizations      map[string]string  `json:"visualizations,omitempty"`
	Success             bool               `json:"success"`
	Message             string             `json:"message,omitempty"`
}

// ConsolidatedRow serializes as [name, [quantity, cost, costPerUnit, currentValue]]
// to match the wire shape the portfolio table consumes.
type ConsolidatedRow struct {
	Name    string
	Figures [4]float64
}

func (r ConsolidatedRow) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{r.Name, r.Figures})
}

func (r *ConsolidatedRow) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw[0], &r.Name); err != nil {
			return err
		}
	}
	if len(raw) > 1 {
		if err := json.Unmarshal(raw[1], &r.Figures); err != nil {
			return err
		}
	}
	return nil
}

// Aggregate is the server-computed snapshot returned with every
// GET /api/portfolio. It is recomputed wholesale; there are no deltas.
type Aggregate struct {
	Dates                  []string                      `json:"dates"`
	Prices                 []float64                     `json:"prices"`
	RiskMetrics            RiskMetrics                   `json:"risk_metrics"`
	PortfolioConsolidated  []ConsolidatedRow             `json:"portfolio_consolidated"`
	PortfolioPurchasePrice []float64                     `json:"portfolio_purchase_price"`
	PortfolioStockNames    []string                      `json:"portfolio_stock_names"`
	PortfolioCurrentValue  []float64                     `json:"portfolio_current_value"`
	PriceHistory           map[string]map[string]float64 `json:"price_history"`
	StockQuantity          []float64                     `json:"stock_quantity"`
	Optimizations          map[string]OptimizationResult `json:"optimizations"`
}

// EmptyAggregate is the zeroed snapshot for a portfolio with no holdings.
func EmptyAggregate() *Aggregate {
	optimizations := make(map[string]OptimizationResult, len(OptimizationMethods))
	for _, method := range OptimizationMethods {
		optimizations[method] = OptimizationResult{
			Success: false,
			Message: "No assets in portfolio to optimize",
		}
	}
	return &Aggregate{
		Dates:                  []string{},
		Prices:                 []float64{},
		RiskMetrics:            RiskMetrics{MonteCarloSimulatedReturns: []float64{}, RollingStdDev: []float64{}},
		PortfolioConsolidated:  []ConsolidatedRow{},
		PortfolioPurchasePrice: []float64{},
		PortfolioStockNames:    []string{},
		PortfolioCurrentValue:  []float64{},
		PriceHistory:           map[string]map[string]float64{},
		StockQuantity:          []float64{},
		Optimizations:          optimizations,
	}
}
