package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("store: not found")

// Store is the persistence gateway. All durable state flows through it;
// callers never see SQL. Implementations must make every multi-row write
// transactional.
type Store interface {
	// UpsertExperience inserts a scraped experience, creating its company
	// row on first sight. Idempotent on SourceURL: re-ingesting the same
	// URL changes nothing and returns the existing id with created=false.
	UpsertExperience(ctx context.Context, exp *Experience) (id int64, created bool, err error)

	CountExperiences(ctx context.Context, company string) (int, error)
	// LatestScrapedAt returns the zero time when the company has no
	// experiences yet.
	LatestScrapedAt(ctx context.Context, company string) (time.Time, error)
	ListExperiences(ctx context.Context, company string) ([]Experience, error)
	// ListExperiencesPage returns one page ordered by scraped_at descending
	// plus the unpaged total.
	ListExperiencesPage(ctx context.Context, company string, limit, offset int) ([]Experience, int, error)
	// ListUnprocessed returns experiences never analyzed or analyzed longer
	// than ttl ago.
	ListUnprocessed(ctx context.Context, company string, ttl time.Duration) ([]Experience, error)

	// SaveMentions writes the topic mentions for one experience and marks it
	// processed in a single transaction. An empty mention list still marks
	// the experience processed.
	SaveMentions(ctx context.Context, experienceID int64, mentions []TopicMention) error

	// ReplaceInsights swaps the full insight set for a company atomically
	// (delete then insert in one transaction). Returns ErrNotFound when the
	// company does not exist.
	ReplaceInsights(ctx context.Context, company string, insights []CompanyInsight) error
	ListInsights(ctx context.Context, company string) ([]CompanyInsight, error)

	GetCompany(ctx context.Context, name string) (*Company, error)
	ListCompanies(ctx context.Context) ([]CompanyCount, error)
	Totals(ctx context.Context) (*Totals, error)

	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

// Company is one tracked employer.
type Company struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	DisplayName string    `db:"display_name" json:"display_name"`
	Industry    string    `db:"industry" json:"industry"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// CompanyCount is a company with its experience count, as listed by the API.
// LatestUpdate is null until the first experience is scraped.
type CompanyCount struct {
	Company
	ExperienceCount int          `db:"experience_count" json:"experience_count"`
	LatestUpdate    sql.NullTime `db:"latest_update" json:"-"`
}

// RoundDetail is one interview round as captured at scrape time.
type RoundDetail struct {
	RoundNumber int    `json:"round_number"`
	Description string `json:"description"`
}

// RoundList stores round details in a JSONB column.
type RoundList []RoundDetail

// StringList stores a string slice in a JSONB column.
type StringList []string

// Experience is one persisted interview experience. Company and Industry
// are only consulted on upsert; reads resolve the owning company by join.
type Experience struct {
	ID                   int64           `db:"id" json:"id"`
	CompanyID            int64           `db:"company_id" json:"company_id"`
	Company              string          `db:"-" json:"company,omitempty"`
	Industry             string          `db:"-" json:"-"`
	Title                string          `db:"title" json:"title"`
	Content              string          `db:"content" json:"content"`
	SourceURL            string          `db:"source_url" json:"source_url"`
	SourcePlatform       string          `db:"source_platform" json:"source_platform"`
	Role                 string          `db:"role" json:"role"`
	ExperienceDate       time.Time       `db:"experience_date" json:"experience_date"`
	ScrapedAt            time.Time       `db:"scraped_at" json:"scraped_at"`
	ProcessedAt          sql.NullTime    `db:"processed_at" json:"-"`
	TimeWeight           float64         `db:"time_weight" json:"time_weight"`
	RoundsCount          int             `db:"rounds_count" json:"rounds_count"`
	RoundsDetails        RoundList       `db:"rounds_details" json:"rounds_details"`
	DifficultyIndicators StringList      `db:"difficulty_indicators" json:"difficulty_indicators"`
	Outcome              string          `db:"outcome" json:"outcome"`
	Success              bool            `db:"success" json:"success"`
	DifficultyScore      sql.NullFloat64 `db:"difficulty_score" json:"-"`
}

// Processed reports whether the topic extractor has analyzed this experience.
func (e *Experience) Processed() bool { return e.ProcessedAt.Valid }

// TopicMention is one detected topic for one experience.
type TopicMention struct {
	Topic       string  `json:"topic"`
	DisplayName string  `json:"display_name"`
	Category    string  `json:"category"`
	Frequency   int     `json:"frequency"`
	Importance  float64 `json:"importance_score"`
	Confidence  float64 `json:"confidence"`
}

// CompanyInsight is one rolled-up (company, topic) insight row.
type CompanyInsight struct {
	Topic               string    `db:"topic" json:"topic"`
	DisplayName         string    `db:"display_name" json:"display_name"`
	Category            string    `db:"category" json:"category"`
	WeightedFrequency   float64   `db:"weighted_frequency" json:"weighted_frequency"`
	Confidence          float64   `db:"confidence_score" json:"confidence"`
	SampleSize          int       `db:"sample_size" json:"sample_size"`
	Priority            string    `db:"priority_level" json:"priority"`
	StudyRecommendation string    `db:"study_recommendation" json:"study_recommendation"`
	AnalysisDate        time.Time `db:"analysis_date" json:"analysis_date"`
}

// Totals is the system-wide row counts used by health reporting.
type Totals struct {
	Companies     int `db:"companies" json:"companies"`
	Experiences   int `db:"experiences" json:"experiences"`
	Topics        int `db:"topics" json:"topics"`
	RecentScrapes int `db:"recent_scrapes" json:"recent_scrapes_7d"`
}

// Value marshals the round list for a JSONB column.
func (r RoundList) Value() (driver.Value, error) {
	if r == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(r)
}

// Scan unmarshals a JSONB column into the round list.
func (r *RoundList) Scan(src interface{}) error {
	return scanJSON(src, r)
}

// Value marshals the string list for a JSONB column.
func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s)
}

// Scan unmarshals a JSONB column into the string list.
func (s *StringList) Scan(src interface{}) error {
	return scanJSON(src, s)
}

func scanJSON(src, dst interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("cannot scan %T into JSON column", src)
	}
}
