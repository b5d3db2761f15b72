package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

// CloseMetricID is the metric_id of the close-price metric seeded by the
// base-schema migration. Every price query joins against it.
const CloseMetricID = 1

// Store wraps the database connection and owns all SQL in the app.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Ping() error {
	return s.db.Ping()
}

// User represents a registered account.
type User struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
}

// Stock is a catalog entry served at /api/stocks.
type Stock struct {
	ID     int     `json:"id"`
	Symbol string  `json:"symbol"`
	Name   string  `json:"name"`
	Price  float64 `json:"price"`
}

// Company mirrors the companies table keyed by company_id.
type Company struct {
	ID     int    `json:"Company_ID"`
	Symbol string `json:"company"`
}

// Metric mirrors the metrics table.
type Metric struct {
	ID   int    `json:"Metric_ID"`
	Name string `json:"metric"`
}

// DataPoint is one dated metric value for a company.
type DataPoint struct {
	Date      time.Time `json:"Date"`
	CompanyID int       `json:"Company_ID"`
	MetricID  int       `json:"Metric_ID"`
	Value     float64   `json:"value"`
}

// PricePoint is a dated close price.
type PricePoint struct {
	Date  string  `json:"date"`
	Price float64 `json:"price"`
}

// Holding is one row of a user's portfolio.
type Holding struct {
	ID            int       `json:"id"`
	Symbol        string    `json:"symbol"`
	Quantity      int       `json:"quantity"`
	PurchasePrice float64   `json:"purchase_price"`
	Date          time.Time `json:"date"`
}

// CreateUser inserts a new user with an already-hashed password.
func (s *Store) CreateUser(username, passwordHash string) (User, error) {
	var u User
	err := s.db.QueryRow(
		`INSERT INTO users (username, password_hash) VALUES ($1, $2) RETURNING id, username, password_hash`,
		username, passwordHash,
	).Scan(&u.ID, &u.Username, &u.PasswordHash)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return User{}, ErrDuplicate
		}
		return User{}, fmt.Errorf("failed to create user: %w", err)
	}
	return u, nil
}

// UserByUsername fetches a user for credential checks.
func (s *Store) UserByUsername(username string) (User, error) {
	var u User
	err := s.db.QueryRow(
		`SELECT id, username, password_hash FROM users WHERE username = $1`,
		username,
	).Scan(&u.ID, &u.Username, &u.PasswordHash)
	if err == sql.ErrNoRows {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("failed to fetch user: %w", err)
	}
	return u, nil
}

// UserByID resolves the identity stored in a session cookie.
func (s *Store) UserByID(id int) (User, error) {
	var u User
	err := s.db.QueryRow(
		`SELECT id, username, password_hash FROM users WHERE id = $1`,
		id,
	).Scan(&u.ID, &u.Username, &u.PasswordHash)
	if err == sql.ErrNoRows {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("failed to fetch user: %w", err)
	}
	return u, nil
}

// ListSymbols returns every known ticker symbol.
func (s *Store) ListSymbols() ([]string, error) {
	rows, err := s.db.Query(`SELECT company FROM companies ORDER BY company`)
	if err != nil {
		return nil, fmt.Errorf("failed to query symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, symbol)
	}
	return symbols, rows.Err()
}

// ListStocks returns the stock catalog.
func (s *Store) ListStocks() ([]Stock, error) {
	rows, err := s.db.Query(`SELECT id, symbol, name, price FROM stocks ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to query stocks: %w", err)
	}
	defer rows.Close()

	var stocks []Stock
	for rows.Next() {
		var st Stock
		if err := rows.Scan(&st.ID, &st.Symbol, &st.Name, &st.Price); err != nil {
			return nil, fmt.Errorf("failed to scan stock: %w", err)
		}
		stocks = append(stocks, st)
	}
	return stocks, rows.Err()
}

// AddStock inserts a catalog entry.
func (s *Store) AddStock(symbol, name string, price float64) (Stock, error) {
	var st Stock
	err := s.db.QueryRow(
		`INSERT INTO stocks (symbol, name, price) VALUES ($1, $2, $3) RETURNING id, symbol, name, price`,
		symbol, name, price,
	).Scan(&st.ID, &st.Symbol, &st.Name, &st.Price)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return Stock{}, ErrDuplicate
		}
		return Stock{}, fmt.Errorf("failed to add stock: %w", err)
	}
	return st, nil
}

// ListCompanies returns all companies.
func (s *Store) ListCompanies() ([]Company, error) {
	rows, err := s.db.Query(`SELECT company_id, company FROM companies ORDER BY company_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query companies: %w", err)
	}
	defer rows.Close()

	var companies []Company
	for rows.Next() {
		var c Company
		if err := rows.Scan(&c.ID, &c.Symbol); err != nil {
			return nil, fmt.Errorf("failed to scan company: %w", err)
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

// ListMetrics returns all metrics.
func (s *Store) ListMetrics() ([]Metric, error) {
	rows, err := s.db.Query(`SELECT metric_id, metric FROM metrics ORDER BY metric_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query metrics: %w", err)
	}
	defer rows.Close()

	var metrics []Metric
	for rows.Next() {
		var m Metric
		if err := rows.Scan(&m.ID, &m.Name); err != nil {
			return nil, fmt.Errorf("failed to scan metric: %w", err)
		}
		metrics = append(metrics, m)
	}
	return metrics, rows.Err()
}

// ListData returns the first rows of metric data, a debug aid.
func (s *Store) ListData(limit int) ([]DataPoint, error) {
	rows, err := s.db.Query(
		`SELECT date, company_id, metric_id, value FROM metric_data ORDER BY id LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query data: %w", err)
	}
	defer rows.Close()

	var points []DataPoint
	for rows.Next() {
		var p DataPoint
		if err := rows.Scan(&p.Date, &p.CompanyID, &p.MetricID, &p.Value); err != nil {
			return nil, fmt.Errorf("failed to scan data point: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// CompanyBySymbol resolves a ticker symbol to its company row.
func (s *Store) CompanyBySymbol(symbol string) (Company, error) {
	var c Company
	err := s.db.QueryRow(
		`SELECT company_id, company FROM companies WHERE company = $1`,
		symbol,
	).Scan(&c.ID, &c.Symbol)
	if err == sql.ErrNoRows {
		return Company{}, ErrNotFound
	}
	if err != nil {
		return Company{}, fmt.Errorf("failed to fetch company: %w", err)
	}
	return c, nil
}

// EnsureCompany returns the company for a symbol, creating it when absent.
// company_id is assigned by the app because the original schema does not
// autoincrement it.
func (s *Store) EnsureCompany(symbol string) (Company, error) {
	c, err := s.CompanyBySymbol(symbol)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Company{}, err
	}

	err = s.db.QueryRow(
		`INSERT INTO companies (company_id, company)
		 SELECT COALESCE(MAX(company_id), 0) + 1, $1 FROM companies
		 ON CONFLICT (company) DO UPDATE SET company = EXCLUDED.company
		 RETURNING company_id, company`,
		symbol,
	).Scan(&c.ID, &c.Symbol)
	if err != nil {
		return Company{}, fmt.Errorf("failed to ensure company: %w", err)
	}
	return c, nil
}

// CompanyPrices returns the dated close prices for one company.
func (s *Store) CompanyPrices(companyID int) ([]PricePoint, error) {
	rows, err := s.db.Query(
		`SELECT date, value FROM metric_data
		 WHERE company_id = $1 AND metric_id = $2
		 ORDER BY date`,
		companyID, CloseMetricID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query prices: %w", err)
	}
	defer rows.Close()

	var prices []PricePoint
	for rows.Next() {
		var date time.Time
		var value float64
		if err := rows.Scan(&date, &value); err != nil {
			return nil, fmt.Errorf("failed to scan price: %w", err)
		}
		prices = append(prices, PricePoint{Date: date.Format(time.RFC3339), Price: value})
	}
	return prices, rows.Err()
}

// ClosePrices returns close prices for a symbol keyed by ISO date, oldest first.
func (s *Store) ClosePrices(symbol string, start, end time.Time) (map[string]float64, error) {
	rows, err := s.db.Query(
		`SELECT d.date, d.value
		 FROM metric_data d
		 JOIN companies c ON d.company_id = c.company_id
		 WHERE c.company = $1 AND d.metric_id = $2 AND d.date BETWEEN $3 AND $4
		 ORDER BY d.date`,
		symbol, CloseMetricID, start, end,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query close prices: %w", err)
	}
	defer rows.Close()

	prices := make(map[string]float64)
	for rows.Next() {
		var date time.Time
		var value float64
		if err := rows.Scan(&date, &value); err != nil {
			return nil, fmt.Errorf("failed to scan close price: %w", err)
		}
		prices[date.Format("2006-01-02")] = value
	}
	return prices, rows.Err()
}

// LastClose returns the most recent close for a symbol within a range.
func (s *Store) LastClose(symbol string, start, end time.Time) (float64, error) {
	var value float64
	err := s.db.QueryRow(
		`SELECT d.value
		 FROM metric_data d
		 JOIN companies c ON d.company_id = c.company_id
		 WHERE c.company = $1 AND d.metric_id = $2 AND d.date BETWEEN $3 AND $4
		 ORDER BY d.date DESC LIMIT 1`,
		symbol, CloseMetricID, start, end,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to fetch last close: %w", err)
	}
	return value, nil
}

// UpsertClose records one close price, replacing any existing row for the day.
func (s *Store) UpsertClose(companyID int, date time.Time, value float64) error {
	_, err := s.db.Exec(
		`INSERT INTO metric_data (date, company_id, metric_id, value)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (date, company_id, metric_id) DO UPDATE SET value = EXCLUDED.value`,
		date, companyID, CloseMetricID, value,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert close price: %w", err)
	}
	return nil
}

// EnsurePortfolio returns the portfolio id for a user, creating one when absent.
func (s *Store) EnsurePortfolio(userID int) (int, error) {
	var id int
	err := s.db.QueryRow(`SELECT id FROM portfolios WHERE user_id = $1`, userID).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("failed to fetch portfolio: %w", err)
	}

	err = s.db.QueryRow(
		`INSERT INTO portfolios (user_id) VALUES ($1) RETURNING id`,
		userID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create portfolio: %w", err)
	}
	return id, nil
}

// HoldingsForUser returns the user's holdings joined with their symbols.
func (s *Store) HoldingsForUser(userID int) ([]Holding, error) {
	rows, err := s.db.Query(
		`SELECT ps.id, c.company, ps.quantity, ps.purchase_price, ps.date
		 FROM portfolio_stocks ps
		 JOIN portfolios p ON ps.portfolio_id = p.id
		 JOIN companies c ON ps.company_id = c.company_id
		 WHERE p.user_id = $1
		 ORDER BY ps.id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	var holdings []Holding
	for rows.Next() {
		var h Holding
		if err := rows.Scan(&h.ID, &h.Symbol, &h.Quantity, &h.PurchasePrice, &h.Date); err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		holdings = append(holdings, h)
	}
	return holdings, rows.Err()
}

// AddHolding inserts one holding and returns it with its symbol.
func (s *Store) AddHolding(portfolioID, companyID, quantity int, purchasePrice float64, date time.Time) (Holding, error) {
	var h Holding
	err := s.db.QueryRow(
		`INSERT INTO portfolio_stocks (portfolio_id, company_id, quantity, purchase_price, date)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, (SELECT company FROM companies WHERE company_id = $2), quantity, purchase_price, date`,
		portfolioID, companyID, quantity, purchasePrice, date,
	).Scan(&h.ID, &h.Symbol, &h.Quantity, &h.PurchasePrice, &h.Date)
	if err != nil {
		return Holding{}, fmt.Errorf("failed to add holding: %w", err)
	}
	return h, nil
}

// UpdateHolding overwrites the editable fields of a holding. Returns
// ErrNotFound when the id does not exist.
func (s *Store) UpdateHolding(id, quantity int, purchasePrice float64, date time.Time) error {
	result, err := s.db.Exec(
		`UPDATE portfolio_stocks SET quantity = $1, purchase_price = $2, date = $3 WHERE id = $4`,
		quantity, purchasePrice, date, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update holding: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to confirm holding update: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteHolding removes a holding by id. Returns ErrNotFound when absent.
func (s *Store) DeleteHolding(id int) error {
	result, err := s.db.Exec(`DELETE FROM portfolio_stocks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete holding: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to confirm holding deletion: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
