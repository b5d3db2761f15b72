package migrations

import (
	"database/sql"
	"fmt"
	"log"
)

type Migration struct {
	Version     int
	Description string
	Func        func(*sql.DB) error
}

var Migrations = []Migration{
	{
		Version:     1,
		Description: "Create base schema",
		Func:        CreateBaseSchema,
	},
	{
		Version:     2,
		Description: "Add stock catalog",
		Func:        AddStockCatalog,
	},
	// Add future migrations here
}

// CreateMigrationsTable creates the migrations table if it doesn't exist
func CreateMigrationsTable(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS schema_migrations (
            version INTEGER PRIMARY KEY,
            description TEXT NOT NULL,
            applied_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
    `)
	return err
}

// RunMigrations runs all pending migrations
func RunMigrations(db *sql.DB) error {
	// Create migrations table if it doesn't exist
	if err := CreateMigrationsTable(db); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	// Get applied migrations
	rows, err := db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[version] = true
	}

	// Run pending migrations
	for _, migration := range Migrations {
		if !applied[migration.Version] {
			log.Printf("Running migration %d: %s", migration.Version, migration.Description)

			if err := migration.Func(db); err != nil {
				return fmt.Errorf("migration %d failed: %w", migration.Version, err)
			}

			// Record successful migration
			_, err := db.Exec(
				"INSERT INTO schema_migrations (version, description) VALUES ($1, $2)",
				migration.Version,
				migration.Description,
			)
			if err != nil {
				return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
			}

			log.Printf("Migration %d completed successfully", migration.Version)
		}
	}

	return nil
}

// CreateBaseSchema creates users, companies, metrics, price data and portfolio tables.
func CreateBaseSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			username VARCHAR(80) UNIQUE NOT NULL,
			password_hash VARCHAR(120) NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS companies (
			company_id INTEGER PRIMARY KEY,
			company TEXT NOT NULL UNIQUE
		);

		CREATE TABLE IF NOT EXISTS metrics (
			metric_id INTEGER PRIMARY KEY,
			metric TEXT NOT NULL UNIQUE
		);

		CREATE TABLE IF NOT EXISTS metric_data (
			id SERIAL PRIMARY KEY,
			date TIMESTAMP WITH TIME ZONE NOT NULL,
			company_id INTEGER NOT NULL REFERENCES companies(company_id),
			metric_id INTEGER NOT NULL REFERENCES metrics(metric_id),
			value DOUBLE PRECISION NOT NULL,
			UNIQUE (date, company_id, metric_id)
		);

		CREATE INDEX IF NOT EXISTS idx_metric_data_lookup
			ON metric_data (company_id, metric_id, date);

		CREATE TABLE IF NOT EXISTS portfolios (
			id SERIAL PRIMARY KEY,
			user_id INTEGER NOT NULL REFERENCES users(id),
			current_value DOUBLE PRECISION DEFAULT 0.0
		);

		CREATE TABLE IF NOT EXISTS portfolio_stocks (
			id SERIAL PRIMARY KEY,
			portfolio_id INTEGER NOT NULL REFERENCES portfolios(id) ON DELETE CASCADE,
			company_id INTEGER NOT NULL REFERENCES companies(company_id),
			quantity INTEGER NOT NULL,
			purchase_price DOUBLE PRECISION NOT NULL,
			date TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create base schema: %w", err)
	}

	// The close-price metric every price query joins against.
	_, err = tx.Exec(`
		INSERT INTO metrics (metric_id, metric) VALUES (1, 'Close')
		ON CONFLICT (metric_id) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("failed to seed metrics: %w", err)
	}

	return tx.Commit()
}

// AddStockCatalog creates the stock catalog table served at /api/stocks.
func AddStockCatalog(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		CREATE TABLE IF NOT EXISTS stocks (
			id SERIAL PRIMARY KEY,
			symbol VARCHAR(10) UNIQUE NOT NULL,
			name VARCHAR(100) NOT NULL,
			price DOUBLE PRECISION NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create stock catalog: %w", err)
	}

	return tx.Commit()
}
