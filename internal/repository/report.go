package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"seo-opportunity/internal/clock"
	"seo-opportunity/internal/domain"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

type ReportRepository struct {
	db     *sql.DB
	clock  clock.Clock
	logger zerolog.Logger
}

func NewReportRepository(sqlDB *sql.DB, clk clock.Clock, logger zerolog.Logger) *ReportRepository {
	return &ReportRepository{db: sqlDB, clock: clk, logger: logger}
}

// ReportSummary is a report row without its payload.
type ReportSummary struct {
	ID                string       `json:"id"`
	BusinessURL       string       `json:"businessUrl"`
	BusinessType      string       `json:"businessType"`
	Location          string       `json:"location"`
	Scope             domain.Scope `json:"scope"`
	TotalSearchVolume int          `json:"totalSearchVolume"`
	PotentialRevenue  float64      `json:"potentialRevenue"`
	CreatedAt         time.Time    `json:"createdAt"`
}

// Save assigns an id and creation time when missing and stores the report
// with one row per keyword.
func (r *ReportRepository) Save(ctx context.Context, report *domain.StoredReport) error {
	if report.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return fmt.Errorf("failed to generate nanoid: %w", err)
		}
		report.ID = id
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = r.clock.Now().UTC()
	}

	seeds, err := json.Marshal(nonNil(report.SeedKeywords))
	if err != nil {
		return fmt.Errorf("failed to encode seed keywords: %w", err)
	}
	dataset, err := json.Marshal(report.Dataset)
	if err != nil {
		return fmt.Errorf("failed to encode dataset: %w", err)
	}
	payload, err := json.Marshal(report.Report)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO reports (
			id, business_url, business_type, location, scope, seed_keywords,
			dataset, report, total_search_volume, potential_revenue, email_sent, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.ID, report.BusinessURL, report.BusinessType, report.Location, string(report.Scope), string(seeds),
		string(dataset), string(payload), report.Report.TotalSearchVolume, report.Report.PotentialRevenue,
		report.EmailSent, report.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert report: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO report_keywords (report_id, keyword, search_volume, client_rank, is_local)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(report_id, keyword) DO NOTHING`)
	if err != nil {
		return fmt.Errorf("failed to prepare keyword insert: %w", err)
	}
	defer stmt.Close()

	for _, kw := range report.Dataset.KeywordData {
		var rank sql.NullInt64
		if kw.ClientRank.Ranked {
			rank = sql.NullInt64{Int64: int64(kw.ClientRank.Position), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, report.ID, kw.Keyword, kw.SearchVolume, rank, kw.IsLocal); err != nil {
			return fmt.Errorf("failed to insert keyword %q: %w", kw.Keyword, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.logger.Debug().Str("report_id", report.ID).Int("keywords", len(report.Dataset.KeywordData)).Msg("report saved")
	return nil
}

func (r *ReportRepository) Get(ctx context.Context, id string) (*domain.StoredReport, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, business_url, business_type, location, scope, seed_keywords,
		       dataset, report, email_sent, created_at
		FROM reports WHERE id = ?`, id)

	var (
		out                     domain.StoredReport
		scope                   string
		seeds, dataset, payload string
	)
	err := row.Scan(&out.ID, &out.BusinessURL, &out.BusinessType, &out.Location, &scope, &seeds,
		&dataset, &payload, &out.EmailSent, &out.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{What: "report", Query: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load report %s: %w", id, err)
	}

	out.Scope = domain.Scope(scope)
	if err := json.Unmarshal([]byte(seeds), &out.SeedKeywords); err != nil {
		return nil, fmt.Errorf("failed to decode seed keywords: %w", err)
	}
	if err := json.Unmarshal([]byte(dataset), &out.Dataset); err != nil {
		return nil, fmt.Errorf("failed to decode dataset: %w", err)
	}
	if err := json.Unmarshal([]byte(payload), &out.Report); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return &out, nil
}

// ListRecent returns the newest reports first.
func (r *ReportRepository) ListRecent(ctx context.Context, limit int) ([]ReportSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, business_url, business_type, location, scope,
		       total_search_volume, potential_revenue, created_at
		FROM reports
		ORDER BY created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	summaries := []ReportSummary{}
	for rows.Next() {
		var s ReportSummary
		var scope string
		if err := rows.Scan(&s.ID, &s.BusinessURL, &s.BusinessType, &s.Location, &scope,
			&s.TotalSearchVolume, &s.PotentialRevenue, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		s.Scope = domain.Scope(scope)
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// MarkEmailSent flags a report as delivered.
func (r *ReportRepository) MarkEmailSent(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE reports SET email_sent = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to update report %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.NotFoundError{What: "report", Query: id}
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
