package api

import (
	"portfoliolab/internal/analytics"
	"portfoliolab/internal/store"
)

// CredentialsRequest is the register/login body.
type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AddStockRequest adds a catalog entry.
type AddStockRequest struct {
	Symbol string  `json:"symbol"`
	Name   string  `json:"name"`
	Price  float64 `json:"price"`
}

// AddHoldingRequest is the body for POST /api/portfolio/add.
type AddHoldingRequest struct {
	StockSymbol   string  `json:"stock_symbol"`
	Quantity      int     `json:"quantity"`
	PurchasePrice float64 `json:"purchase_price"`
	Date          string  `json:"date"`
}

// UpdateHoldingRequest is the body for PUT /api/portfolio/update/{id}.
type UpdateHoldingRequest struct {
	Quantity      int     `json:"quantity"`
	PurchasePrice float64 `json:"purchase_price"`
	Date          string  `json:"date"`
}

// PortfolioResponse is the GET /api/portfolio payload: the raw holdings plus
// the server-computed aggregate snapshot.
type PortfolioResponse struct {
	StocksList    []store.Holding      `json:"stocks_list"`
	PortfolioData *analytics.Aggregate `json:"portfolio_data"`
}

// AddHoldingResponse returns the created holding.
type AddHoldingResponse struct {
	NewStock store.Holding `json:"new_stock"`
}

// CompanyStatsResponse is the GET /api/company/stats/{id} payload.
type CompanyStatsResponse struct {
	Mean     float64 `json:"mean"`
	Variance float64 `json:"variance"`
	Count    int     `json:"count"`
}
