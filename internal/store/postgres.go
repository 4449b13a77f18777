package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog/log"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Config holds Postgres connection settings.
type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Postgres implements Store on top of a Postgres database reached through
// the pgx stdlib driver.
type Postgres struct {
	db *sqlx.DB
}

var _ Store = (*Postgres)(nil)

// Open connects to Postgres and verifies the connection.
func Open(cfg Config) (*Postgres, error) {
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = 10
	}
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = 5
	}
	if cfg.ConnMaxLifetime <= 0 {
		cfg.ConnMaxLifetime = 30 * time.Minute
	}

	db, err := sqlx.Connect("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	log.Info().Int("max_open_conns", cfg.MaxOpenConns).Msg("Connected to Postgres")
	return New(db), nil
}

// New wraps an existing connection. Tests use it with a mock driver.
func New(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

// Migrate applies all pending schema migrations.
func (s *Postgres) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err := goose.UpContext(ctx, s.db.DB, "migrations"); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	log.Info().Msg("Database schema is up to date")
	return nil
}

// Ping verifies database connectivity.
func (s *Postgres) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the connection pool.
func (s *Postgres) Close() error {
	return s.db.Close()
}

const insertCompanySQL = `
INSERT INTO companies (name, display_name, industry)
VALUES ($1, $2, $3)
ON CONFLICT (name) DO NOTHING
RETURNING id`

const insertExperienceSQL = `
INSERT INTO interview_experiences
	(company_id, title, content, source_url, source_platform, role,
	 experience_date, scraped_at, time_weight, rounds_count, rounds_details,
	 difficulty_indicators, outcome, success, difficulty_score)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
ON CONFLICT (source_url) DO NOTHING
RETURNING id`

// UpsertExperience inserts a scraped experience, creating the company row on
// first sight. A URL already in the store is left untouched and its existing
// id is returned with created=false.
func (s *Postgres) UpsertExperience(ctx context.Context, exp *Experience) (int64, bool, error) {
	if exp.Company == "" || exp.SourceURL == "" {
		return 0, false, fmt.Errorf("experience requires a company and a source_url")
	}

	// 1. Resolve the owning company.
	companyID, err := s.ensureCompany(ctx, exp.Company, exp.Industry)
	if err != nil {
		return 0, false, err
	}

	// 2. Normalize derived fields. The success flag mirrors the parsed
	// outcome; an unparseable date defaults to 30 days before scraping.
	if exp.ScrapedAt.IsZero() {
		exp.ScrapedAt = time.Now().UTC()
	}
	if exp.ExperienceDate.IsZero() {
		exp.ExperienceDate = exp.ScrapedAt.AddDate(0, 0, -30)
	}
	exp.Success = exp.Outcome == "offer"
	exp.CompanyID = companyID

	// 3. Insert; on a source_url conflict fall back to the existing row.
	var id int64
	err = s.db.QueryRowContext(ctx, insertExperienceSQL,
		companyID, exp.Title, exp.Content, exp.SourceURL, exp.SourcePlatform,
		exp.Role, exp.ExperienceDate, exp.ScrapedAt, exp.TimeWeight,
		exp.RoundsCount, exp.RoundsDetails, exp.DifficultyIndicators,
		exp.Outcome, exp.Success, exp.DifficultyScore,
	).Scan(&id)
	if err == nil {
		exp.ID = id
		return id, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, false, fmt.Errorf("failed to insert experience: %w", err)
	}

	if err := s.db.QueryRowContext(ctx,
		`SELECT id FROM interview_experiences WHERE source_url = $1`,
		exp.SourceURL,
	).Scan(&id); err != nil {
		return 0, false, fmt.Errorf("failed to resolve existing experience: %w", err)
	}
	exp.ID = id
	return id, false, nil
}

// ensureCompany returns the id for a company name, inserting the row when it
// does not exist yet. Safe under concurrent callers: the losing inserter
// falls through to the select.
func (s *Postgres) ensureCompany(ctx context.Context, name, industry string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, insertCompanySQL, name, name, industry).Scan(&id)
	if err == nil {
		log.Debug().Str("company", name).Int64("id", id).Msg("Created company")
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to insert company: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT id FROM companies WHERE name = $1`, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to resolve company %q: %w", name, err)
	}
	return id, nil
}

// CountExperiences returns the stored experience count for a company.
func (s *Postgres) CountExperiences(ctx context.Context, company string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM interview_experiences e
		JOIN companies c ON c.id = e.company_id
		WHERE c.name = $1`, company).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count experiences: %w", err)
	}
	return count, nil
}

// LatestScrapedAt returns the most recent scrape time for a company, or the
// zero time when nothing is stored yet.
func (s *Postgres) LatestScrapedAt(ctx context.Context, company string) (time.Time, error) {
	var latest sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(e.scraped_at)
		FROM interview_experiences e
		JOIN companies c ON c.id = e.company_id
		WHERE c.name = $1`, company).Scan(&latest)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read latest scrape time: %w", err)
	}
	if !latest.Valid {
		return time.Time{}, nil
	}
	return latest.Time, nil
}

const experienceColumns = `e.id, e.company_id, e.title, e.content, e.source_url,
	e.source_platform, e.role, e.experience_date, e.scraped_at, e.processed_at,
	e.time_weight, e.rounds_count, e.rounds_details, e.difficulty_indicators,
	e.outcome, e.success, e.difficulty_score`

// ListExperiences returns all experiences for a company, newest scrape first.
func (s *Postgres) ListExperiences(ctx context.Context, company string) ([]Experience, error) {
	var out []Experience
	err := s.db.SelectContext(ctx, &out, `
		SELECT `+experienceColumns+`
		FROM interview_experiences e
		JOIN companies c ON c.id = e.company_id
		WHERE c.name = $1
		ORDER BY e.scraped_at DESC`, company)
	if err != nil {
		return nil, fmt.Errorf("failed to list experiences: %w", err)
	}
	return out, nil
}

// ListExperiencesPage returns one page of experiences plus the unpaged total.
func (s *Postgres) ListExperiencesPage(ctx context.Context, company string, limit, offset int) ([]Experience, int, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	total, err := s.CountExperiences(ctx, company)
	if err != nil {
		return nil, 0, err
	}

	var out []Experience
	err = s.db.SelectContext(ctx, &out, `
		SELECT `+experienceColumns+`
		FROM interview_experiences e
		JOIN companies c ON c.id = e.company_id
		WHERE c.name = $1
		ORDER BY e.scraped_at DESC
		LIMIT $2 OFFSET $3`, company, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list experience page: %w", err)
	}
	return out, total, nil
}

// ListUnprocessed returns experiences that were never analyzed, or whose last
// analysis is older than ttl. A non-positive ttl selects only never-analyzed
// rows.
func (s *Postgres) ListUnprocessed(ctx context.Context, company string, ttl time.Duration) ([]Experience, error) {
	var out []Experience
	var err error
	if ttl <= 0 {
		err = s.db.SelectContext(ctx, &out, `
			SELECT `+experienceColumns+`
			FROM interview_experiences e
			JOIN companies c ON c.id = e.company_id
			WHERE c.name = $1 AND e.processed_at IS NULL
			ORDER BY e.scraped_at DESC`, company)
	} else {
		cutoff := time.Now().UTC().Add(-ttl)
		err = s.db.SelectContext(ctx, &out, `
			SELECT `+experienceColumns+`
			FROM interview_experiences e
			JOIN companies c ON c.id = e.company_id
			WHERE c.name = $1 AND (e.processed_at IS NULL OR e.processed_at < $2)
			ORDER BY e.scraped_at DESC`, company, cutoff)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list unprocessed experiences: %w", err)
	}
	return out, nil
}

const insertTopicSQL = `
INSERT INTO topics (name, display_name, category)
VALUES ($1, $2, $3)
ON CONFLICT (name) DO NOTHING
RETURNING id`

const insertMentionSQL = `
INSERT INTO topic_mentions (experience_id, topic_id, frequency, importance_score, confidence)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (experience_id, topic_id) DO UPDATE
SET frequency = EXCLUDED.frequency,
    importance_score = EXCLUDED.importance_score,
    confidence = EXCLUDED.confidence,
    detected_at = now()`

// SaveMentions writes the topic mentions for one experience and marks it
// processed, all in one transaction. Re-analysis of the same experience
// overwrites the previous detection per topic.
func (s *Postgres) SaveMentions(ctx context.Context, experienceID int64, mentions []TopicMention) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, m := range mentions {
		topicID, err := ensureTopic(ctx, tx, m.Topic, m.DisplayName, m.Category)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, insertMentionSQL,
			experienceID, topicID, m.Frequency, m.Importance, m.Confidence); err != nil {
			return fmt.Errorf("failed to save mention %s: %w", m.Topic, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE interview_experiences SET processed_at = now() WHERE id = $1`,
		experienceID); err != nil {
		return fmt.Errorf("failed to mark experience processed: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit mentions: %w", err)
	}
	return nil
}

// ensureTopic returns the id for a canonical topic name, inserting the row
// when it does not exist yet. Display name and category are immutable once
// written.
func ensureTopic(ctx context.Context, tx *sqlx.Tx, name, display, category string) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, insertTopicSQL, name, display, category).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to insert topic %s: %w", name, err)
	}
	if err := tx.QueryRowContext(ctx, `SELECT id FROM topics WHERE name = $1`, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to resolve topic %s: %w", name, err)
	}
	return id, nil
}

const insertInsightSQL = `
INSERT INTO company_insights
	(company_id, topic_id, weighted_frequency, confidence_score, sample_size,
	 priority_level, study_recommendation, analysis_date)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

// ReplaceInsights swaps the full insight set for a company in one
// transaction: delete everything, then insert the new rows. Returns
// ErrNotFound when the company does not exist.
func (s *Postgres) ReplaceInsights(ctx context.Context, company string, insights []CompanyInsight) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var companyID int64
	if err := tx.QueryRowContext(ctx,
		`SELECT id FROM companies WHERE name = $1`, company).Scan(&companyID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to resolve company %q: %w", company, err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM company_insights WHERE company_id = $1`, companyID); err != nil {
		return fmt.Errorf("failed to clear insights: %w", err)
	}

	for _, ins := range insights {
		topicID, err := ensureTopic(ctx, tx, ins.Topic, ins.DisplayName, ins.Category)
		if err != nil {
			return err
		}
		analysisDate := ins.AnalysisDate
		if analysisDate.IsZero() {
			analysisDate = time.Now().UTC()
		}
		if _, err := tx.ExecContext(ctx, insertInsightSQL,
			companyID, topicID, ins.WeightedFrequency, ins.Confidence,
			ins.SampleSize, ins.Priority, ins.StudyRecommendation, analysisDate); err != nil {
			return fmt.Errorf("failed to insert insight %s: %w", ins.Topic, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit insights: %w", err)
	}

	log.Info().Str("company", company).Int("insights", len(insights)).Msg("Replaced company insights")
	return nil
}

// ListInsights returns the current insight rows for a company, highest
// weighted frequency first.
func (s *Postgres) ListInsights(ctx context.Context, company string) ([]CompanyInsight, error) {
	var out []CompanyInsight
	err := s.db.SelectContext(ctx, &out, `
		SELECT t.name AS topic, t.display_name, t.category,
		       i.weighted_frequency, i.confidence_score, i.sample_size,
		       i.priority_level, i.study_recommendation, i.analysis_date
		FROM company_insights i
		JOIN companies c ON c.id = i.company_id
		JOIN topics t ON t.id = i.topic_id
		WHERE c.name = $1
		ORDER BY i.weighted_frequency DESC`, company)
	if err != nil {
		return nil, fmt.Errorf("failed to list insights: %w", err)
	}
	return out, nil
}

// GetCompany looks a company up by canonical name.
func (s *Postgres) GetCompany(ctx context.Context, name string) (*Company, error) {
	var c Company
	err := s.db.GetContext(ctx, &c, `
		SELECT id, name, display_name, industry, created_at
		FROM companies
		WHERE name = $1`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	return &c, nil
}

// ListCompanies returns every company with its experience count, most
// experiences first.
func (s *Postgres) ListCompanies(ctx context.Context) ([]CompanyCount, error) {
	var out []CompanyCount
	err := s.db.SelectContext(ctx, &out, `
		SELECT c.id, c.name, c.display_name, c.industry, c.created_at,
		       COUNT(e.id) AS experience_count,
		       MAX(e.scraped_at) AS latest_update
		FROM companies c
		LEFT JOIN interview_experiences e ON e.company_id = c.id
		GROUP BY c.id
		ORDER BY experience_count DESC, c.name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	return out, nil
}

// Totals returns system-wide row counts for health reporting.
func (s *Postgres) Totals(ctx context.Context) (*Totals, error) {
	var t Totals
	err := s.db.GetContext(ctx, &t, `
		SELECT
			(SELECT COUNT(*) FROM companies) AS companies,
			(SELECT COUNT(*) FROM interview_experiences) AS experiences,
			(SELECT COUNT(*) FROM topics) AS topics,
			(SELECT COUNT(*) FROM interview_experiences
			  WHERE scraped_at > now() - INTERVAL '7 days') AS recent_scrapes`)
	if err != nil {
		return nil, fmt.Errorf("failed to read totals: %w", err)
	}
	return &t, nil
}
