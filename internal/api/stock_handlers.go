package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"gonum.org/v1/gonum/stat"

	"portfoliolab/internal/store"
)

// GetSymbols returns every known ticker symbol as a flat list.
func (s *Server) GetSymbols(w http.ResponseWriter, r *http.Request) {
	symbols, err := s.store.ListSymbols()
	if err != nil {
		s.logger.Error("Failed to list symbols: %v", err)
		s.respondWithError(w, http.StatusInternalServerError, "Failed to fetch stocks")
		return
	}
	if symbols == nil {
		symbols = []string{}
	}
	s.respondWithJSON(w, http.StatusOK, symbols)
}

// GetStocks returns the stock catalog.
func (s *Server) GetStocks(w http.ResponseWriter, r *http.Request) {
	stocks, err := s.store.ListStocks()
	if err != nil {
		s.logger.Error("Failed to list stocks: %v", err)
		s.respondWithError(w, http.StatusInternalServerError, "Failed to fetch stocks")
		return
	}
	if stocks == nil {
		stocks = []store.Stock{}
	}
	s.respondWithJSON(w, http.StatusOK, stocks)
}

// AddStock inserts a catalog entry.
func (s *Server) AddStock(w http.ResponseWriter, r *http.Request) {
	var req AddStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if req.Symbol == "" || req.Name == "" || req.Price == 0 {
		s.respondWithError(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	if _, err := s.store.AddStock(req.Symbol, req.Name, req.Price); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			s.respondWithError(w, http.StatusConflict, "Stock already exists")
			return
		}
		s.logger.Error("Failed to add stock: %v", err)
		s.respondWithError(w, http.StatusInternalServerError, "Failed to add stock")
		return
	}

	s.respondWithJSON(w, http.StatusCreated, map[string]string{"message": "Stock added successfully"})
}

// GetCompanies returns all companies.
func (s *Server) GetCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := s.store.ListCompanies()
	if err != nil {
		s.logger.Error("Failed to list companies: %v", err)
		s.respondWithError(w, http.StatusInternalServerError, "Failed to fetch companies")
		return
	}
	if companies == nil {
		companies = []store.Company{}
	}
	s.respondWithJSON(w, http.StatusOK, companies)
}

// GetMetrics returns all metrics.
func (s *Server) GetMetrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := s.store.ListMetrics()
	if err != nil {
		s.logger.Error("Failed to list metrics: %v", err)
		s.respondWithError(w, http.StatusInternalServerError, "Failed to fetch metrics")
		return
	}
	if metrics == nil {
		metrics = []store.Metric{}
	}
	s.respondWithJSON(w, http.StatusOK, metrics)
}

// GetData returns the first rows of metric data, a debug aid.
func (s *Server) GetData(w http.ResponseWriter, r *http.Request) {
	points, err := s.store.ListData(10)
	if err != nil {
		s.logger.Error("Failed to list data: %v", err)
		s.respondWithError(w, http.StatusInternalServerError, "Failed to fetch data")
		return
	}
	if points == nil {
		points = []store.DataPoint{}
	}
	s.respondWithJSON(w, http.StatusOK, points)
}

// GetCompanyPrices returns the dated close prices for one company.
func (s *Server) GetCompanyPrices(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	companyID, err := strconv.Atoi(vars["id"])
	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid company ID")
		return
	}

	prices, err := s.store.CompanyPrices(companyID)
	if err != nil {
		s.logger.Error("Failed to fetch prices for company %d: %v", companyID, err)
		s.respondWithError(w, http.StatusInternalServerError, "Failed to fetch prices")
		return
	}
	if prices == nil {
		prices = []store.PricePoint{}
	}
	s.respondWithJSON(w, http.StatusOK, prices)
}

// GetCompanyStats returns mean, variance and count of a company's prices.
func (s *Server) GetCompanyStats(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	companyID, err := strconv.Atoi(vars["id"])
	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid company ID")
		return
	}

	points, err := s.store.CompanyPrices(companyID)
	if err != nil {
		s.logger.Error("Failed to fetch prices for company %d: %v", companyID, err)
		s.respondWithError(w, http.StatusInternalServerError, "Failed to fetch prices")
		return
	}
	if len(points) == 0 {
		s.respondWithJSON(w, http.StatusNotFound, map[string]string{"message": "No price data for this company"})
		return
	}

	prices := make([]float64, len(points))
	for i, p := range points {
		prices[i] = p.Price
	}

	s.respondWithJSON(w, http.StatusOK, CompanyStatsResponse{
		Mean:     stat.Mean(prices, nil),
		Variance: stat.PopVariance(prices, nil),
		Count:    len(prices),
	})
}
