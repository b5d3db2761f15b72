package store

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

func TestCreateUser(t *testing.T) {
	st, mock := newTestStore(t)

	mock.ExpectQuery("INSERT INTO users").
		WithArgs("alice", "hash").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash"}).
			AddRow(1, "alice", "hash"))

	user, err := st.CreateUser("alice", "hash")
	assert.NoError(t, err)
	assert.Equal(t, 1, user.ID)
	assert.Equal(t, "alice", user.Username)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserDuplicate(t *testing.T) {
	st, mock := newTestStore(t)

	mock.ExpectQuery("INSERT INTO users").
		WithArgs("alice", "hash").
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := st.CreateUser("alice", "hash")
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestUserByUsernameNotFound(t *testing.T) {
	st, mock := newTestStore(t)

	mock.ExpectQuery("SELECT id, username, password_hash FROM users").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash"}))

	_, err := st.UserByUsername("ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListSymbols(t *testing.T) {
	st, mock := newTestStore(t)

	mock.ExpectQuery("SELECT company FROM companies").
		WillReturnRows(sqlmock.NewRows([]string{"company"}).
			AddRow("AAPL").
			AddRow("GOOGL"))

	symbols, err := st.ListSymbols()
	assert.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "GOOGL"}, symbols)
}

func TestEnsureCompanyExisting(t *testing.T) {
	st, mock := newTestStore(t)

	mock.ExpectQuery("SELECT company_id, company FROM companies WHERE company").
		WithArgs("AAPL").
		WillReturnRows(sqlmock.NewRows([]string{"company_id", "company"}).AddRow(3, "AAPL"))

	company, err := st.EnsureCompany("AAPL")
	assert.NoError(t, err)
	assert.Equal(t, 3, company.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureCompanyCreates(t *testing.T) {
	st, mock := newTestStore(t)

	mock.ExpectQuery("SELECT company_id, company FROM companies WHERE company").
		WithArgs("MSFT").
		WillReturnRows(sqlmock.NewRows([]string{"company_id", "company"}))
	mock.ExpectQuery("INSERT INTO companies").
		WithArgs("MSFT").
		WillReturnRows(sqlmock.NewRows([]string{"company_id", "company"}).AddRow(4, "MSFT"))

	company, err := st.EnsureCompany("MSFT")
	assert.NoError(t, err)
	assert.Equal(t, 4, company.ID)
	assert.Equal(t, "MSFT", company.Symbol)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClosePrices(t *testing.T) {
	st, mock := newTestStore(t)

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("FROM metric_data").
		WithArgs("AAPL", CloseMetricID, start, end).
		WillReturnRows(sqlmock.NewRows([]string{"date", "value"}).
			AddRow(start, 100.0).
			AddRow(start.AddDate(0, 0, 1), 101.5))

	prices, err := st.ClosePrices("AAPL", start, end)
	assert.NoError(t, err)
	assert.Equal(t, map[string]float64{
		"2025-01-01": 100.0,
		"2025-01-02": 101.5,
	}, prices)
}

func TestEnsurePortfolioCreates(t *testing.T) {
	st, mock := newTestStore(t)

	mock.ExpectQuery("SELECT id FROM portfolios").
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery("INSERT INTO portfolios").
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))

	id, err := st.EnsurePortfolio(7)
	assert.NoError(t, err)
	assert.Equal(t, 2, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHoldingsForUser(t *testing.T) {
	st, mock := newTestStore(t)

	date := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM portfolio_stocks").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "company", "quantity", "purchase_price", "date"}).
			AddRow(1, "AAPL", 10, 150.0, date).
			AddRow(2, "GOOGL", 5, 2500.0, date))

	holdings, err := st.HoldingsForUser(1)
	assert.NoError(t, err)
	require.Len(t, holdings, 2)
	assert.Equal(t, "AAPL", holdings[0].Symbol)
	assert.Equal(t, 10, holdings[0].Quantity)
	assert.Equal(t, 2500.0, holdings[1].PurchasePrice)
}

func TestAddHolding(t *testing.T) {
	st, mock := newTestStore(t)

	date := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("INSERT INTO portfolio_stocks").
		WithArgs(1, 3, 10, 150.0, date).
		WillReturnRows(sqlmock.NewRows([]string{"id", "company", "quantity", "purchase_price", "date"}).
			AddRow(5, "AAPL", 10, 150.0, date))

	holding, err := st.AddHolding(1, 3, 10, 150.0, date)
	assert.NoError(t, err)
	assert.Equal(t, 5, holding.ID)
	assert.Equal(t, "AAPL", holding.Symbol)
}

func TestUpdateHoldingNotFound(t *testing.T) {
	st, mock := newTestStore(t)

	mock.ExpectExec("UPDATE portfolio_stocks").
		WithArgs(10, 150.0, sqlmock.AnyArg(), 99).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := st.UpdateHolding(99, 10, 150.0, time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteHolding(t *testing.T) {
	st, mock := newTestStore(t)

	mock.ExpectExec("DELETE FROM portfolio_stocks").
		WithArgs(5).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, st.DeleteHolding(5))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteHoldingNotFound(t *testing.T) {
	st, mock := newTestStore(t)

	mock.ExpectExec("DELETE FROM portfolio_stocks").
		WithArgs(99).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, st.DeleteHolding(99), ErrNotFound)
}

func TestUpsertClose(t *testing.T) {
	st, mock := newTestStore(t)

	day := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO metric_data").
		WithArgs(day, 3, CloseMetricID, 150.5).
		WillReturnResult(sqlmock.NewResult(1, 1))

	assert.NoError(t, st.UpsertClose(3, day, 150.5))
	assert.NoError(t, mock.ExpectationsWereMet())
}
