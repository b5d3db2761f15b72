package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"portfoliolab/internal/analytics"
	"portfoliolab/internal/store"
)

// GetPortfolio returns the user's holdings plus the freshly recomputed
// aggregate snapshot. The aggregate is always rebuilt wholesale; clients
// re-fetch it after every mutation.
func (s *Server) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	holdings, err := s.store.HoldingsForUser(user.ID)
	if err != nil {
		s.logger.Error("Failed to fetch holdings for user %d: %v", user.ID, err)
		s.respondWithError(w, http.StatusInternalServerError, "Failed to fetch portfolio")
		return
	}
	if holdings == nil {
		holdings = []store.Holding{}
	}

	aggregate, err := s.engine.BuildAggregate(holdings)
	if err != nil {
		// A bad price series must not take down the whole portfolio view.
		s.logger.Error("Failed to build aggregate for user %d: %v", user.ID, err)
		aggregate = analytics.EmptyAggregate()
	}

	s.respondWithJSON(w, http.StatusOK, PortfolioResponse{
		StocksList:    holdings,
		PortfolioData: aggregate,
	})
}

// AddToPortfolio inserts a holding for the session user.
func (s *Server) AddToPortfolio(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	var req AddHoldingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if req.StockSymbol == "" || req.Quantity <= 0 {
		s.respondWithError(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	date := time.Now().UTC()
	if req.Date != "" {
		parsed, err := parseDate(req.Date)
		if err != nil {
			s.respondWithError(w, http.StatusBadRequest, "Invalid date format")
			return
		}
		date = parsed
	}

	company, err := s.store.CompanyBySymbol(req.StockSymbol)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.respondWithJSON(w, http.StatusNotFound, map[string]string{"message": "Stock not found"})
			return
		}
		s.logger.Error("Failed to resolve symbol %s: %v", req.StockSymbol, err)
		s.respondWithError(w, http.StatusInternalServerError, "Failed to add stock to portfolio")
		return
	}

	portfolioID, err := s.store.EnsurePortfolio(user.ID)
	if err != nil {
		s.logger.Error("Failed to ensure portfolio for user %d: %v", user.ID, err)
		s.respondWithError(w, http.StatusInternalServerError, "Failed to add stock to portfolio")
		return
	}

	holding, err := s.store.AddHolding(portfolioID, company.ID, req.Quantity, req.PurchasePrice, date)
	if err != nil {
		s.logger.Error("Failed to add holding: %v", err)
		s.respondWithError(w, http.StatusInternalServerError, "Failed to add stock to portfolio")
		return
	}

	s.respondWithJSON(w, http.StatusCreated, AddHoldingResponse{NewStock: holding})
}

// UpdatePortfolioStock overwrites the editable fields of a holding.
func (s *Server) UpdatePortfolioStock(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireUser(w, r); !ok {
		return
	}

	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid holding ID")
		return
	}

	var req UpdateHoldingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	date := time.Now().UTC()
	if req.Date != "" {
		parsed, err := parseDate(req.Date)
		if err != nil {
			s.respondWithError(w, http.StatusBadRequest, "Invalid date format")
			return
		}
		date = parsed
	}

	if err := s.store.UpdateHolding(id, req.Quantity, req.PurchasePrice, date); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.respondWithJSON(w, http.StatusNotFound, map[string]string{"message": "Stock not found in portfolio"})
			return
		}
		s.logger.Error("Failed to update holding %d: %v", id, err)
		s.respondWithError(w, http.StatusInternalServerError, "Failed to update stock in portfolio")
		return
	}

	s.respondWithJSON(w, http.StatusOK, map[string]string{"message": "Stock updated in portfolio"})
}

// DeleteFromPortfolio removes a holding by id.
func (s *Server) DeleteFromPortfolio(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireUser(w, r); !ok {
		return
	}

	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid holding ID")
		return
	}

	if err := s.store.DeleteHolding(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.respondWithJSON(w, http.StatusNotFound, map[string]string{"message": "Stock not found in portfolio"})
			return
		}
		s.logger.Error("Failed to delete holding %d: %v", id, err)
		s.respondWithError(w, http.StatusInternalServerError, "Failed to remove stock from portfolio")
		return
	}

	s.respondWithJSON(w, http.StatusOK, map[string]string{"message": "Stock removed from portfolio"})
}
