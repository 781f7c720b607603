package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/moneybin/moneybin-w2/internal/common"
)

type Config struct {
	Driver          string
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	DialTimeout     time.Duration
	BusyRetries     uint
	RetryDelay      time.Duration
}

// ConfigFromApp maps the database section of the app config.
func ConfigFromApp(c common.DatabaseConfig) Config {
	return Config{
		Driver:          c.Driver,
		DSN:             c.DSN,
		MaxConns:        c.MaxConns,
		MinConns:        c.MinConns,
		MaxConnLifetime: c.MaxConnLifetime,
		DialTimeout:     c.DialTimeout,
		BusyRetries:     c.BusyRetries,
		RetryDelay:      c.RetryDelay,
	}
}

// DB is a database/sql handle plus what the repositories need to know about its dialect.
type DB struct {
	SQL    *sql.DB
	Driver string
	pool   *pgxpool.Pool
	cfg    Config
	logger *slog.Logger
}

// Open connects to SQLite (modernc, pure Go) or Postgres (pgx pool wrapped as *sql.DB).
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	logger.Info("connecting to database", "driver", cfg.Driver)

	d := &DB{Driver: cfg.Driver, cfg: cfg, logger: logger}
	switch cfg.Driver {
	case common.DriverSQLite:
		db, err := sql.Open("sqlite", cfg.DSN)
		if err != nil {
			logger.Error("failed to open database", "error", err)
			return nil, dbError("open sqlite", err)
		}
		// a single connection keeps ":memory:" databases shared and serializes writers
		db.SetMaxOpenConns(1)
		d.SQL = db
	case common.DriverPostgres:
		pc, err := pgxpool.ParseConfig(cfg.DSN)
		if err != nil {
			logger.Error("failed to parse database dsn", "error", err)
			return nil, dbError("parse postgres dsn", err)
		}
		if cfg.MaxConns > 0 {
			pc.MaxConns = cfg.MaxConns
		}
		pc.MinConns = cfg.MinConns
		if cfg.MaxConnLifetime > 0 {
			pc.MaxConnLifetime = cfg.MaxConnLifetime
		}
		pc.ConnConfig.RuntimeParams["application_name"] = "moneybin-w2"

		dialCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
		pool, err := pgxpool.NewWithConfig(dialCtx, pc)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			return nil, dbError("connect postgres", err)
		}
		d.pool = pool
		d.SQL = stdlib.OpenDBFromPool(pool)
	default:
		return nil, common.NewAppError(common.CodeConfig, fmt.Sprintf("unsupported database driver %q", cfg.Driver), common.ErrInvalidInput)
	}

	if err := d.HealthCheck(ctx, cfg.DialTimeout); err != nil {
		d.Close()
		return nil, err
	}
	logger.Info("successfully connected to database", "driver", cfg.Driver)
	return d, nil
}

// Close closes the database connections gracefully
func (d *DB) Close() {
	d.logger.Debug("closing database connections")
	if d.SQL != nil {
		if err := d.SQL.Close(); err != nil {
			d.logger.Error("failed to close database", "error", err)
		}
	}
	if d.pool != nil {
		d.pool.Close()
	}
}

// HealthCheck pings the database to catch DSN issues early.
func (d *DB) HealthCheck(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := d.SQL.PingContext(ctx); err != nil {
		d.logger.Error("database ping failed", "error", err)
		return dbError("ping", err)
	}
	d.logger.Debug("database ping successful")
	return nil
}

// Migrate creates the w2_forms table if it does not exist.
func (d *DB) Migrate(ctx context.Context) error {
	moneyType, floatType := "TEXT", "REAL"
	if d.Driver == common.DriverPostgres {
		moneyType, floatType = "NUMERIC(14,2)", "DOUBLE PRECISION"
	}
	ddl := fmt.Sprintf(createW2Forms, moneyType, floatType)
	if _, err := d.SQL.ExecContext(ctx, ddl); err != nil {
		return dbError("migrate w2_forms", err)
	}
	if _, err := d.SQL.ExecContext(ctx, createLoadedAtIndex); err != nil {
		return dbError("migrate w2_forms index", err)
	}
	return nil
}

// rebind turns "?" placeholders into "$n" for Postgres.
func (d *DB) rebind(query string) string {
	if d.Driver != common.DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func dbError(op string, err error) error {
	return common.NewAppError(common.CodeDatabase, op, errors.Join(common.ErrDatabase, err))
}

// Money is TEXT on SQLite so column affinity never converts it to a float.
const createW2Forms = `
CREATE TABLE IF NOT EXISTS w2_forms (
	extraction_id           TEXT NOT NULL,
	tax_year                INTEGER NOT NULL,
	employee_ssn            TEXT NOT NULL,
	employee_first_name     TEXT NOT NULL,
	employee_last_name      TEXT NOT NULL,
	employee_address        TEXT,
	employer_ein            TEXT NOT NULL,
	employer_name           TEXT NOT NULL,
	employer_address        TEXT,
	control_number          TEXT,
	wages                   %[1]s NOT NULL,
	federal_income_tax      %[1]s NOT NULL,
	social_security_wages   %[1]s,
	social_security_tax     %[1]s,
	medicare_wages          %[1]s,
	medicare_tax            %[1]s,
	social_security_tips    %[1]s,
	allocated_tips          %[1]s,
	dependent_care_benefits %[1]s,
	nonqualified_plans      %[1]s,
	is_statutory_employee   BOOLEAN NOT NULL DEFAULT FALSE,
	is_retirement_plan      BOOLEAN NOT NULL DEFAULT FALSE,
	is_third_party_sick_pay BOOLEAN NOT NULL DEFAULT FALSE,
	state_local_info        TEXT,
	optional_boxes          TEXT,
	extraction_method       TEXT NOT NULL,
	confidence_score        %[2]s NOT NULL,
	agreement               %[2]s,
	source_file             TEXT NOT NULL,
	extracted_at            TEXT NOT NULL,
	loaded_at               TEXT NOT NULL,
	PRIMARY KEY (tax_year, employee_ssn, employer_ein)
)`

const createLoadedAtIndex = `CREATE INDEX IF NOT EXISTS w2_forms_loaded_at_idx ON w2_forms (loaded_at)`
