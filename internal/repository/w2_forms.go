package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/moneybin/moneybin-w2/internal/common"
	"github.com/moneybin/moneybin-w2/internal/w2"
)

const loadedAtLayout = "2006-01-02T15:04:05.000000Z"

var w2Columns = []string{
	"extraction_id",
	"tax_year",
	"employee_ssn",
	"employee_first_name",
	"employee_last_name",
	"employee_address",
	"employer_ein",
	"employer_name",
	"employer_address",
	"control_number",
	"wages",
	"federal_income_tax",
	"social_security_wages",
	"social_security_tax",
	"medicare_wages",
	"medicare_tax",
	"social_security_tips",
	"allocated_tips",
	"dependent_care_benefits",
	"nonqualified_plans",
	"is_statutory_employee",
	"is_retirement_plan",
	"is_third_party_sick_pay",
	"state_local_info",
	"optional_boxes",
	"extraction_method",
	"confidence_score",
	"agreement",
	"source_file",
	"extracted_at",
	"loaded_at",
}

// ListFilter narrows List. Zero values mean no restriction.
type ListFilter struct {
	TaxYear int
	Limit   int
}

type W2FormRepository interface {
	// Upsert stores rec, replacing any earlier load of the same (tax_year, employee_ssn, employer_ein).
	Upsert(ctx context.Context, rec *w2.Record) error
	List(ctx context.Context, filter ListFilter) ([]w2.Row, error)
	Get(ctx context.Context, taxYear int, ssn, ein string) (*w2.Row, error)
}

type w2FormRepo struct {
	db     *DB
	logger *slog.Logger
	now    func() time.Time
}

func NewW2FormRepository(db *DB, logger *slog.Logger) W2FormRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &w2FormRepo{db: db, logger: logger, now: time.Now}
}

func (r *w2FormRepo) Upsert(ctx context.Context, rec *w2.Record) error {
	row, err := w2.RowFromRecord(rec)
	if err != nil {
		return common.NewAppError(common.CodeDatabase, "flatten w2 record", errors.Join(common.ErrInvalidInput, err))
	}

	updates := make([]string, 0, len(w2Columns))
	for _, c := range w2Columns {
		switch c {
		case "tax_year", "employee_ssn", "employer_ein":
			continue
		}
		updates = append(updates, c+" = excluded."+c)
	}
	query := r.db.rebind(
		"INSERT INTO w2_forms (" + strings.Join(w2Columns, ", ") + ") VALUES (" +
			strings.TrimSuffix(strings.Repeat("?, ", len(w2Columns)), ", ") + ") " +
			"ON CONFLICT (tax_year, employee_ssn, employer_ein) DO UPDATE SET " + strings.Join(updates, ", "))
	args := append(rowArgs(row), r.now().UTC().Format(loadedAtLayout))

	attempts := r.db.cfg.BusyRetries
	if attempts == 0 {
		attempts = 1
	}
	err = retry.Do(
		func() error {
			_, err := r.db.SQL.ExecContext(ctx, query, args...)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(r.db.cfg.RetryDelay),
		retry.RetryIf(isTransient),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			r.logger.Warn("retrying w2 upsert", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		r.logger.Error("failed to upsert w2 form", "tax_year", row.TaxYear, "source_file", row.SourceFile, "error", err)
		return dbError("upsert w2 form", err)
	}
	r.logger.Debug("w2 form stored", "tax_year", row.TaxYear, "extraction_id", row.ExtractionID)
	return nil
}

func (r *w2FormRepo) List(ctx context.Context, filter ListFilter) ([]w2.Row, error) {
	query := "SELECT " + strings.Join(w2Columns[:len(w2Columns)-1], ", ") + " FROM w2_forms"
	var args []any
	if filter.TaxYear > 0 {
		query += " WHERE tax_year = ?"
		args = append(args, filter.TaxYear)
	}
	query += " ORDER BY loaded_at DESC, employee_ssn"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := r.db.SQL.QueryContext(ctx, r.db.rebind(query), args...)
	if err != nil {
		r.logger.Error("failed to list w2 forms", "error", err)
		return nil, dbError("list w2 forms", err)
	}
	defer rows.Close()

	var out []w2.Row
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, dbError("scan w2 form", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("list w2 forms", err)
	}
	return out, nil
}

func (r *w2FormRepo) Get(ctx context.Context, taxYear int, ssn, ein string) (*w2.Row, error) {
	query := "SELECT " + strings.Join(w2Columns[:len(w2Columns)-1], ", ") +
		" FROM w2_forms WHERE tax_year = ? AND employee_ssn = ? AND employer_ein = ?"
	row, err := scanRow(r.db.SQL.QueryRowContext(ctx, r.db.rebind(query), taxYear, ssn, ein))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NewAppError(common.CodeDatabase, "w2 form not found", common.ErrNotFound)
	}
	if err != nil {
		return nil, dbError("get w2 form", err)
	}
	return &row, nil
}

// rowArgs lists row's values in w2Columns order, without loaded_at.
func rowArgs(row w2.Row) []any {
	return []any{
		row.ExtractionID,
		row.TaxYear,
		row.EmployeeSSN,
		row.EmployeeFirstName,
		row.EmployeeLastName,
		row.EmployeeAddress,
		row.EmployerEIN,
		row.EmployerName,
		row.EmployerAddress,
		row.ControlNumber,
		row.Wages,
		row.FederalIncomeTax,
		row.SocialSecurityWages,
		row.SocialSecurityTax,
		row.MedicareWages,
		row.MedicareTax,
		row.SocialSecurityTips,
		row.AllocatedTips,
		row.DependentCareBenefits,
		row.NonqualifiedPlans,
		row.IsStatutoryEmployee,
		row.IsRetirementPlan,
		row.IsThirdPartySickPay,
		row.StateLocalInfo,
		row.OptionalBoxes,
		row.ExtractionMethod,
		row.ConfidenceScore,
		row.Agreement,
		row.SourceFile,
		row.ExtractedAt,
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRow(s scanner) (w2.Row, error) {
	var row w2.Row
	err := s.Scan(
		&row.ExtractionID,
		&row.TaxYear,
		&row.EmployeeSSN,
		&row.EmployeeFirstName,
		&row.EmployeeLastName,
		&row.EmployeeAddress,
		&row.EmployerEIN,
		&row.EmployerName,
		&row.EmployerAddress,
		&row.ControlNumber,
		&row.Wages,
		&row.FederalIncomeTax,
		&row.SocialSecurityWages,
		&row.SocialSecurityTax,
		&row.MedicareWages,
		&row.MedicareTax,
		&row.SocialSecurityTips,
		&row.AllocatedTips,
		&row.DependentCareBenefits,
		&row.NonqualifiedPlans,
		&row.IsStatutoryEmployee,
		&row.IsRetirementPlan,
		&row.IsThirdPartySickPay,
		&row.StateLocalInfo,
		&row.OptionalBoxes,
		&row.ExtractionMethod,
		&row.ConfidenceScore,
		&row.Agreement,
		&row.SourceFile,
		&row.ExtractedAt,
	)
	return row, err
}

// isTransient reports lock contention worth retrying: SQLite busy/locked and
// Postgres serialization failures or deadlocks.
func isTransient(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "SQLITE_LOCKED") ||
		strings.Contains(msg, "database is locked")
}
