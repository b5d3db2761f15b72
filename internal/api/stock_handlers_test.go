package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSymbols(t *testing.T) {
	server, mock := newTestServer(t)

	mock.ExpectQuery("SELECT company FROM companies").
		WillReturnRows(sqlmock.NewRows([]string{"company"}).AddRow("AAPL").AddRow("GOOGL"))

	req := httptest.NewRequest("GET", "/stocks", nil)
	rr := httptest.NewRecorder()
	server.Router().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `["AAPL","GOOGL"]`, rr.Body.String())
}

func TestGetSymbolsEmptyIsArray(t *testing.T) {
	server, mock := newTestServer(t)

	mock.ExpectQuery("SELECT company FROM companies").
		WillReturnRows(sqlmock.NewRows([]string{"company"}))

	req := httptest.NewRequest("GET", "/stocks", nil)
	rr := httptest.NewRecorder()
	server.Router().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestAddStockConflict(t *testing.T) {
	server, mock := newTestServer(t)

	mock.ExpectQuery("INSERT INTO stocks").
		WithArgs("AAPL", "Apple Inc", 150.0).
		WillReturnError(&pq.Error{Code: "23505"})

	body := `{"symbol":"AAPL","name":"Apple Inc","price":150}`
	req := httptest.NewRequest("POST", "/api/stocks", strings.NewReader(body))
	rr := httptest.NewRecorder()
	server.Router().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestAddStockMissingFields(t *testing.T) {
	server, _ := newTestServer(t)

	req := httptest.NewRequest("POST", "/api/stocks", strings.NewReader(`{"symbol":"AAPL"}`))
	rr := httptest.NewRecorder()
	server.Router().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGetCompanyStats(t *testing.T) {
	server, mock := newTestServer(t)

	day := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM metric_data").
		WithArgs(3, 1).
		WillReturnRows(sqlmock.NewRows([]string{"date", "value"}).
			AddRow(day, 100.0).
			AddRow(day.AddDate(0, 0, 1), 110.0))

	req := httptest.NewRequest("GET", "/api/company/stats/3", nil)
	rr := httptest.NewRecorder()
	server.Router().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Mean     float64 `json:"mean"`
		Variance float64 `json:"variance"`
		Count    int     `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.InDelta(t, 105.0, resp.Mean, 1e-9)
	assert.InDelta(t, 25.0, resp.Variance, 1e-9)
	assert.Equal(t, 2, resp.Count)
}

func TestGetCompanyStatsNoData(t *testing.T) {
	server, mock := newTestServer(t)

	mock.ExpectQuery("FROM metric_data").
		WithArgs(3, 1).
		WillReturnRows(sqlmock.NewRows([]string{"date", "value"}))

	req := httptest.NewRequest("GET", "/api/company/stats/3", nil)
	rr := httptest.NewRecorder()
	server.Router().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"message":"No price data for this company"}`, rr.Body.String())
}

func TestHealthCheck(t *testing.T) {
	server, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/health", nil)
	rr := httptest.NewRecorder()
	server.Router().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok","version":"1.0.0"}`, rr.Body.String())
}

func TestCORSHeadersForAllowedOrigin(t *testing.T) {
	server, mock := newTestServer(t)

	mock.ExpectQuery("SELECT company FROM companies").
		WillReturnRows(sqlmock.NewRows([]string{"company"}))

	req := httptest.NewRequest("GET", "/stocks", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rr := httptest.NewRecorder()
	server.Router().ServeHTTP(rr, req)

	assert.Equal(t, "http://localhost:5173", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rr.Header().Get("Access-Control-Allow-Credentials"))
}
