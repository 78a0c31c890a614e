package main

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"mubot/internal/config"
)

// ANSI color codes for terminal output
const (
	colorReset = "\033[0m"
	colorRed   = "\033[31m"
	colorGreen = "\033[32m"
	colorCyan  = "\033[36m"
)

// Migration represents one schema migration
type Migration struct {
	Version int
	Name    string
	UpSQL   string
	DownSQL string
}

// migrations is the ordered schema for the outreach engine: one row of
// versioned state document, plus the reply table the mail ingest writes.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_outreach_state",
		UpSQL: `
			CREATE TABLE IF NOT EXISTS outreach_state (
				id INT PRIMARY KEY CHECK (id = 1),
				version BIGINT NOT NULL,
				doc JSONB NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
		`,
		DownSQL: `DROP TABLE IF EXISTS outreach_state;`,
	},
	{
		Version: 2,
		Name:    "create_inbound_replies",
		UpSQL: `
			CREATE TABLE IF NOT EXISTS inbound_replies (
				id SERIAL PRIMARY KEY,
				sender_email VARCHAR(255) NOT NULL,
				subject TEXT,
				received_at TIMESTAMPTZ NOT NULL,
				ingested_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_inbound_replies_sender
				ON inbound_replies (sender_email, received_at);
		`,
		DownSQL: `DROP TABLE IF EXISTS inbound_replies;`,
	},
}

func main() {
	// Load .env file (ignore error if not present)
	_ = godotenv.Load()

	printInfo("=== MuBot Migration Runner ===\n")

	command := "help"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	if command != "up" && command != "down" && command != "status" {
		printUsage()
		if command != "help" {
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		printError(fmt.Sprintf("Failed to load configuration: %v", err))
		os.Exit(1)
	}

	// Connect to database
	printInfo("Connecting to database...")
	db, err := sql.Open("postgres", cfg.GetDatabaseDSN())
	if err != nil {
		printError(fmt.Sprintf("Failed to open database connection: %v", err))
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		printError(fmt.Sprintf("Failed to ping database: %v", err))
		os.Exit(1)
	}
	printSuccess("✓ Connected to database\n")

	// Create migration tracking table
	if err := createMigrationTable(db); err != nil {
		printError(fmt.Sprintf("Failed to create migration table: %v", err))
		os.Exit(1)
	}

	switch command {
	case "up":
		err = runUp(db)
	case "down":
		err = runDown(db)
	case "status":
		err = showStatus(db)
	}
	if err != nil {
		printError(fmt.Sprintf("%s failed: %v", command, err))
		os.Exit(1)
	}

	printInfo("\n✨ Operation completed successfully!")
}

// createMigrationTable creates the schema_migrations tracking table
func createMigrationTable(db *sql.DB) error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INT PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`

	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}
	return nil
}

// appliedVersions returns the set of applied migration versions
func appliedVersions(db *sql.DB) (map[int]bool, error) {
	rows, err := db.Query(`SELECT version FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		applied[v] = true
	}
	return applied, nil
}

// runUp applies all pending migrations in order
func runUp(db *sql.DB) error {
	applied, err := appliedVersions(db)
	if err != nil {
		return err
	}

	count := 0
	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}

		printInfo(fmt.Sprintf("Applying %03d_%s...", m.Version, m.Name))
		if _, err := db.Exec(m.UpSQL); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Name, err)
		}
		if _, err := db.Exec(
			`INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`,
			m.Version, m.Name,
		); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
		}
		printSuccess(fmt.Sprintf("✓ Applied %03d_%s", m.Version, m.Name))
		count++
	}

	if count == 0 {
		printInfo("Nothing to apply, schema is up to date")
	}
	return nil
}

// runDown rolls back the most recent migration
func runDown(db *sql.DB) error {
	applied, err := appliedVersions(db)
	if err != nil {
		return err
	}

	for i := len(migrations) - 1; i >= 0; i-- {
		m := migrations[i]
		if !applied[m.Version] {
			continue
		}

		printInfo(fmt.Sprintf("Rolling back %03d_%s...", m.Version, m.Name))
		if _, err := db.Exec(m.DownSQL); err != nil {
			return fmt.Errorf("rollback %d (%s): %w", m.Version, m.Name, err)
		}
		if _, err := db.Exec(`DELETE FROM schema_migrations WHERE version = $1`, m.Version); err != nil {
			return fmt.Errorf("failed to unrecord migration %d: %w", m.Version, err)
		}
		printSuccess(fmt.Sprintf("✓ Rolled back %03d_%s", m.Version, m.Name))
		return nil
	}

	printInfo("Nothing to roll back")
	return nil
}

// showStatus prints the applied/pending status of every migration
func showStatus(db *sql.DB) error {
	applied, err := appliedVersions(db)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		status := colorRed + "pending" + colorReset
		if applied[m.Version] {
			status = colorGreen + "applied" + colorReset
		}
		fmt.Printf("  %03d_%-28s %s\n", m.Version, m.Name, status)
	}
	return nil
}

func printUsage() {
	fmt.Println("Usage: go run scripts/migrate.go <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  up      Apply all pending migrations")
	fmt.Println("  down    Roll back the most recent migration")
	fmt.Println("  status  Show migration status")
}

func printInfo(msg string) {
	fmt.Println(colorCyan + msg + colorReset)
}

func printSuccess(msg string) {
	fmt.Println(colorGreen + msg + colorReset)
}

func printError(msg string) {
	fmt.Println(colorRed + "✗ " + msg + colorReset)
}
