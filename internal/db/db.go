// Copyright (c) 2026 Stagehand Authors
// Stagehand - test bench provisioning for S3 services
// This source code is licensed under the MIT license found in the LICENSE file.

// Package db provides the provisioning journal for Stagehand.
// It abstracts the underlying database (e.g., SQLite, PostgreSQL) behind a
// consistent interface, allowing the rest of the application to record runs,
// steps and artifacts in a uniform way.
package db // import "github.com/stagehand/stagehand/internal/db"

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/stagehand/stagehand/internal/model"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "modernc.org/sqlite"

	// SQL drivers required for integration tests and runtime.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// package-level variables
var (
	store Store
	// sqlOpenFunc allows tests to override database opening behavior.
	sqlOpenFunc = sql.Open
)

// InitDB initializes the database connection based on the provided type and DSN.
// It sets the global `store` variable to the appropriate database implementation
// and runs any pending database migrations.
func InitDB(dbType, dsn string) error {
	s, err := NewStoreFromDSN(dbType, dsn)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	store = s
	return nil
}

// IsInitialized reports whether the package-level store has been set.
func IsInitialized() bool {
	return store != nil
}

// RunDBMaintenance performs engine-specific maintenance tasks for the given
// database DSN. It is safe to call for SQLite/Postgres/MySQL. For SQLite this
// will run PRAGMA optimize, VACUUM and WAL checkpoint. For Postgres it runs
// VACUUM ANALYZE. For MySQL it runs OPTIMIZE TABLE for all tables.
func RunDBMaintenance(dbType, dsn string) error {
	driverName := dbType
	if dbType == "postgres" {
		driverName = "pgx"
	}
	sqlDB, err := sqlOpenFunc(driverName, dsn)
	if err != nil {
		return fmt.Errorf("failed to open database for maintenance: %w", err)
	}
	defer func() { _ = sqlDB.Close() }()

	// Small timeout for maintenance operations to avoid blocking CI.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	switch dbType {
	case "sqlite":
		// PRAGMA optimize may not be supported or useful in some environments
		// (e.g., in-memory filesystems); treat optimize errors as non-fatal.
		if _, err := sqlDB.ExecContext(ctx, "PRAGMA optimize;"); err != nil {
			dbLogf("db: sqlite optimize failed (ignored): %v", err)
		}
		if _, err := sqlDB.ExecContext(ctx, "VACUUM;"); err != nil {
			return fmt.Errorf("sqlite vacuum failed: %w", err)
		}
		// WAL checkpoint; ignore errors if not supported.
		_, _ = sqlDB.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE);")
		var res string
		if row := sqlDB.QueryRowContext(ctx, "PRAGMA integrity_check;"); row != nil {
			_ = row.Scan(&res)
			if res != "ok" {
				return fmt.Errorf("sqlite integrity_check failed: %s", res)
			}
		}
	case "postgres":
		if _, err := sqlDB.ExecContext(ctx, "VACUUM ANALYZE;"); err != nil {
			return fmt.Errorf("postgres vacuum failed: %w", err)
		}
	case "mysql":
		rows, err := sqlDB.QueryContext(ctx, "SHOW TABLES")
		if err != nil {
			return fmt.Errorf("mysql show tables failed: %w", err)
		}
		defer func() { _ = rows.Close() }()
		var table string
		var lastErr error
		for rows.Next() {
			if err := rows.Scan(&table); err != nil {
				return fmt.Errorf("mysql read table name failed: %w", err)
			}
			if _, err := sqlDB.ExecContext(ctx, fmt.Sprintf("OPTIMIZE TABLE %s", table)); err != nil {
				// Non-fatal per-table: remember last error and continue
				dbLogf("db: mysql optimize table %s failed: %v", table, err)
				lastErr = err
			}
		}
		if lastErr != nil {
			return fmt.Errorf("mysql optimize encountered errors: %w", lastErr)
		}
	default:
		return fmt.Errorf("unsupported db type for maintenance: %s", dbType)
	}
	return nil
}

// NewStoreFromDSN opens a sql.DB for the given DSN, runs migrations, and
// returns a Store backed by a long-lived *bun.DB. This hides *sql.DB usage
// from higher-level callers.
func NewStoreFromDSN(dbType, dsn string) (Store, error) {
	driverName := dbType
	// The pgx stdlib registers driver name "pgx"; map "postgres" to that driver.
	if dbType == "postgres" {
		driverName = "pgx"
	}
	start := time.Now()
	sqlDB, err := sqlOpenFunc(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure DB connection pool with sensible defaults. Values can be
	// overridden via environment variables for CI or production tuning.
	const (
		defaultMaxOpenConns    = 25
		defaultMaxIdleConns    = 25
		defaultConnMaxLifetime = 5 * time.Minute
	)

	maxOpen := defaultMaxOpenConns
	if v := os.Getenv("STAGEHAND_DB_MAX_OPEN_CONNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			maxOpen = n
		}
	}
	maxIdle := defaultMaxIdleConns
	if v := os.Getenv("STAGEHAND_DB_MAX_IDLE_CONNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			maxIdle = n
		}
	}

	// For in-memory SQLite databases, force a single open connection to avoid
	// the SQLite per-connection in-memory database semantics which can make
	// schema changes invisible across different connections. Tests commonly
	// use ":memory:" and rely on a single DB.
	if dbType == "sqlite" && dsn == ":memory:" {
		maxOpen = 1
		maxIdle = 1
	}
	connMax := defaultConnMaxLifetime
	if v := os.Getenv("STAGEHAND_DB_CONN_MAX_LIFETIME_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			connMax = time.Duration(n) * time.Second
		}
	}

	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(connMax)
	connIdle := 60 // seconds
	if v := os.Getenv("STAGEHAND_DB_CONN_MAX_IDLE_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			connIdle = n
		}
	}
	sqlDB.SetConnMaxIdleTime(time.Duration(connIdle) * time.Second)

	openDur := time.Since(start)
	dbLogf("db: opened %s driver in %s (conn max open=%d, idle=%ds, maxLifetime=%s)", driverName, openDur, maxOpen, connIdle, connMax)

	migStart := time.Now()
	if err := RunMigrations(sqlDB, dbType); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	dbLogf("db: migrations for %s completed in %s", dbType, time.Since(migStart))
	bunDB := createBunDB(sqlDB, dbType)
	switch dbType {
	case "sqlite":
		return &SqliteStore{bun: bunDB}, nil
	case "postgres":
		return &PostgresStore{bun: bunDB}, nil
	case "mysql":
		return &MySQLStore{bun: bunDB}, nil
	default:
		return nil, fmt.Errorf("unsupported database type for store creation: '%s'", dbType)
	}
}

// createBunDB constructs a *bun.DB for the provided *sql.DB and dbType.
// Centralizing construction makes it easier to apply consistent options
// and to test Bun initialization in one place.
func createBunDB(sqlDB *sql.DB, dbType string) *bun.DB {
	switch dbType {
	case "sqlite":
		return bun.NewDB(sqlDB, sqlitedialect.New())
	case "postgres":
		return bun.NewDB(sqlDB, pgdialect.New())
	case "mysql":
		return bun.NewDB(sqlDB, mysqldialect.New())
	default:
		// Fallback to SQLite dialect as a safe default; callers should validate dbType earlier.
		return bun.NewDB(sqlDB, sqlitedialect.New())
	}
}

// migration pairs a version with its per-dialect DDL. The journal schema is
// small enough to keep inline rather than in embedded .sql files.
type migration struct {
	version    string
	statements map[string][]string
}

var migrations = []migration{
	{
		version: "0001_journal",
		statements: map[string][]string{
			"sqlite": {
				`CREATE TABLE IF NOT EXISTS runs (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					started_at TIMESTAMP NOT NULL,
					finished_at TIMESTAMP,
					status TEXT NOT NULL,
					detail TEXT NOT NULL DEFAULT '')`,
				`CREATE TABLE IF NOT EXISTS steps (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
					name TEXT NOT NULL,
					status TEXT NOT NULL,
					detail TEXT NOT NULL DEFAULT '',
					duration_ms INTEGER NOT NULL DEFAULT 0)`,
				`CREATE TABLE IF NOT EXISTS artifacts (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
					kind TEXT NOT NULL,
					path TEXT NOT NULL,
					fingerprint TEXT NOT NULL DEFAULT '',
					not_after TIMESTAMP,
					created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP)`,
				`CREATE TABLE IF NOT EXISTS audit_log (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					timestamp TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
					username TEXT NOT NULL,
					action TEXT NOT NULL,
					details TEXT NOT NULL DEFAULT '')`,
			},
			"postgres": {
				`CREATE TABLE IF NOT EXISTS runs (
					id SERIAL PRIMARY KEY,
					started_at TIMESTAMP NOT NULL,
					finished_at TIMESTAMP,
					status TEXT NOT NULL,
					detail TEXT NOT NULL DEFAULT '')`,
				`CREATE TABLE IF NOT EXISTS steps (
					id SERIAL PRIMARY KEY,
					run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
					name TEXT NOT NULL,
					status TEXT NOT NULL,
					detail TEXT NOT NULL DEFAULT '',
					duration_ms BIGINT NOT NULL DEFAULT 0)`,
				`CREATE TABLE IF NOT EXISTS artifacts (
					id SERIAL PRIMARY KEY,
					run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
					kind TEXT NOT NULL,
					path TEXT NOT NULL,
					fingerprint TEXT NOT NULL DEFAULT '',
					not_after TIMESTAMP,
					created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP)`,
				`CREATE TABLE IF NOT EXISTS audit_log (
					id SERIAL PRIMARY KEY,
					timestamp TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
					username TEXT NOT NULL,
					action TEXT NOT NULL,
					details TEXT NOT NULL DEFAULT '')`,
			},
			"mysql": {
				`CREATE TABLE IF NOT EXISTS runs (
					id INT AUTO_INCREMENT PRIMARY KEY,
					started_at TIMESTAMP NOT NULL,
					finished_at TIMESTAMP NULL,
					status VARCHAR(32) NOT NULL,
					detail TEXT)`,
				`CREATE TABLE IF NOT EXISTS steps (
					id INT AUTO_INCREMENT PRIMARY KEY,
					run_id INT NOT NULL,
					name VARCHAR(191) NOT NULL,
					status VARCHAR(32) NOT NULL,
					detail TEXT,
					duration_ms BIGINT NOT NULL DEFAULT 0,
					FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE)`,
				`CREATE TABLE IF NOT EXISTS artifacts (
					id INT AUTO_INCREMENT PRIMARY KEY,
					run_id INT NOT NULL,
					kind VARCHAR(32) NOT NULL,
					path VARCHAR(512) NOT NULL,
					fingerprint VARCHAR(191) NOT NULL DEFAULT '',
					not_after TIMESTAMP NULL,
					created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE)`,
				`CREATE TABLE IF NOT EXISTS audit_log (
					id INT AUTO_INCREMENT PRIMARY KEY,
					timestamp TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
					username VARCHAR(191) NOT NULL,
					action VARCHAR(191) NOT NULL,
					details TEXT)`,
			},
		},
	},
}

// RunMigrations applies the necessary database migrations for a given database connection.
func RunMigrations(db *sql.DB, dbType string) error {
	start := time.Now()
	dbLogf("db: starting migrations for %s", dbType)

	if err := ensureSchemaMigrationsTable(db, dbType); err != nil {
		return fmt.Errorf("failed to ensure schema_migrations table: %w", err)
	}

	for _, m := range migrations {
		stmts, ok := m.statements[dbType]
		if !ok {
			return fmt.Errorf("no migration %s for db type %s", m.version, dbType)
		}

		// Check if already applied.
		var exists int
		query := "SELECT 1 FROM schema_migrations WHERE version = ?"
		if dbType == "postgres" {
			query = "SELECT 1 FROM schema_migrations WHERE version = $1"
		}
		err := db.QueryRow(query, m.version).Scan(&exists)
		if err == nil {
			continue
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("failed to check migration version %s: %w", m.version, err)
		}

		// Apply within a transaction
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %s: %w", m.version, err)
		}
		for _, stmt := range stmts {
			if _, err := tx.Exec(stmt); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("failed to execute migration %s: %w", m.version, err)
			}
		}

		insertQuery := "INSERT INTO schema_migrations(version, applied_at) VALUES(?, ?)"
		if dbType == "postgres" {
			insertQuery = "INSERT INTO schema_migrations(version, applied_at) VALUES($1, $2)"
		}
		if _, err := tx.Exec(insertQuery, m.version, time.Now()); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %s: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to commit migration %s: %w", m.version, err)
		}
	}

	dbLogf("db: applied migrations for %s in %s", dbType, time.Since(start))
	return nil
}

// ensureSchemaMigrationsTable creates schema_migrations if missing.
func ensureSchemaMigrationsTable(db *sql.DB, dbType string) error {
	// MySQL does not permit TEXT/BLOB columns to be indexed without a length,
	// so use a VARCHAR with a safe length there. Other engines can use TEXT.
	if dbType == "mysql" {
		_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (version VARCHAR(191) PRIMARY KEY, applied_at TIMESTAMP)`)
		return err
	}
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY, applied_at TIMESTAMP)`)
	return err
}

// CreateRun records the start of a provisioning run and returns its ID.
func CreateRun(startedAt time.Time) (int, error) {
	return store.CreateRun(startedAt)
}

// FinishRun stamps a run with its final status.
func FinishRun(id int, status, detail string) error {
	return store.FinishRun(id, status, detail)
}

// GetRun retrieves a single run by ID.
func GetRun(id int) (*model.Run, error) {
	return store.GetRun(id)
}

// GetLatestRun retrieves the most recently started run.
func GetLatestRun() (*model.Run, error) {
	return store.GetLatestRun()
}

// GetAllRuns retrieves all runs, most recent first.
func GetAllRuns() ([]model.Run, error) {
	return store.GetAllRuns()
}

// AddStep records a step outcome for the given run.
func AddStep(runID int, step model.Step) (int, error) {
	return store.AddStep(runID, step)
}

// GetStepsForRun retrieves the steps of a run in execution order.
func GetStepsForRun(runID int) ([]model.Step, error) {
	return store.GetStepsForRun(runID)
}

// AddArtifact records a produced artifact for the given run.
func AddArtifact(runID int, artifact model.Artifact) (int, error) {
	return store.AddArtifact(runID, artifact)
}

// GetArtifactsForRun retrieves the artifacts recorded for a run.
func GetArtifactsForRun(runID int) ([]model.Artifact, error) {
	return store.GetArtifactsForRun(runID)
}

// GetLatestArtifactByKind retrieves the most recent artifact of the given kind.
func GetLatestArtifactByKind(kind string) (*model.Artifact, error) {
	return store.GetLatestArtifactByKind(kind)
}

// GetAllAuditLogEntries retrieves all entries from the audit log, most recent first.
func GetAllAuditLogEntries() ([]model.AuditLogEntry, error) {
	return store.GetAllAuditLogEntries()
}

// LogAction records an audit trail event.
func LogAction(action string, details string) error {
	return store.LogAction(action, details)
}

// ExportDataForBackup retrieves all data from the database for a backup.
func ExportDataForBackup() (*model.BackupData, error) {
	return store.ExportDataForBackup()
}

// ImportDataFromBackup restores the database from a backup data structure.
func ImportDataFromBackup(backup *model.BackupData) error {
	return store.ImportDataFromBackup(backup)
}
