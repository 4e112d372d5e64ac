// Package stats aggregates page logs into reading statistics: pages per
// author/category/publisher, per-book drill-downs, daily totals and the
// reading streak.
//
// All queries are read-only and use bound parameters. Table and column
// names come from entities.TagKind.
package stats

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/bookshelf/internal/entities"
)

type Config struct {
	TopN          int
	StreakMaxDays int
	WeekStart     time.Weekday
}

func DefaultConfig() Config {
	return Config{
		TopN:          10,
		StreakMaxDays: 3650,
		WeekStart:     time.Monday,
	}
}

type Service struct {
	db  *gorm.DB
	cfg Config
	now func() time.Time
}

// NewService creates a statistics service. A nil clock uses time.Now.
func NewService(db *gorm.DB, cfg Config, now func() time.Time) *Service {
	defaults := DefaultConfig()
	if cfg.TopN <= 0 {
		cfg.TopN = defaults.TopN
	}
	if cfg.StreakMaxDays <= 0 {
		cfg.StreakMaxDays = defaults.StreakMaxDays
	}
	if now == nil {
		now = time.Now
	}
	return &Service{db: db, cfg: cfg, now: now}
}

// Total is one row of an aggregation: a tag or a book with its page sum.
type Total struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Pages int64  `json:"pages"`
}

type DayTotal struct {
	Day   entities.Date `json:"day"`
	Pages int64         `json:"pages"`
}

type Summary struct {
	Timeframe     Timeframe      `json:"timeframe"`
	From          *entities.Date `json:"from,omitempty"`
	To            *entities.Date `json:"to,omitempty"`
	PagesRead     int64          `json:"pages_read"`
	Sessions      int64          `json:"sessions"`
	BooksRead     int64          `json:"books_read"`
	BooksFinished int64          `json:"books_finished"`
	CurrentStreak int            `json:"current_streak"`
}

// window returns a WHERE fragment restricting pl.read_date to the timeframe.
func (s *Service) window(tf Timeframe) (string, []any) {
	start, end := tf.Bounds(s.now(), s.cfg.WeekStart)
	if start.IsZero() {
		return "1 = 1", nil
	}
	return "pl.read_date >= ? AND pl.read_date < ?", []any{start, end}
}

// DimensionTotals sums pages read per tag of the given kind within the
// timeframe. Tags with no pages are omitted and at most TopN rows are returned,
// highest total first.
func (s *Service) DimensionTotals(ctx context.Context, kind entities.TagKind, tf Timeframe) ([]Total, error) {
	if !kind.Valid() {
		return nil, entities.NewValidationError("kind", fmt.Sprintf("unknown tag kind %q", string(kind)))
	}
	where, args := s.window(tf)
	query := fmt.Sprintf(`
		SELECT t.%[1]s AS id, t.name AS name, SUM(pl.total_page_read) AS pages
		FROM page_logs pl
		JOIN %[3]s j ON j.book_id = pl.book_id
		JOIN %[2]s t ON t.%[1]s = j.%[1]s
		WHERE %[4]s
		GROUP BY t.%[1]s, t.name
		HAVING SUM(pl.total_page_read) > 0
		ORDER BY pages DESC, t.name ASC
		LIMIT ?`, kind.IDColumn(), kind.Table(), kind.JoinTable(), where)

	totals := []Total{}
	if err := s.db.WithContext(ctx).Raw(query, append(args, s.cfg.TopN)...).Scan(&totals).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate pages by %s: %w", kind, err)
	}
	return totals, nil
}

// DrillDown sums pages read per book for the books carrying one tag.
func (s *Service) DrillDown(ctx context.Context, kind entities.TagKind, tagID uint, tf Timeframe) ([]Total, error) {
	if !kind.Valid() {
		return nil, entities.NewValidationError("kind", fmt.Sprintf("unknown tag kind %q", string(kind)))
	}
	db := s.db.WithContext(ctx)

	var n int64
	if err := db.Table(kind.Table()).Where(kind.IDColumn()+" = ?", tagID).Count(&n).Error; err != nil {
		return nil, fmt.Errorf("failed to check %s %d: %w", kind, tagID, err)
	}
	if n == 0 {
		return nil, fmt.Errorf("%s %d: %w", kind, tagID, entities.ErrNotFound)
	}

	where, args := s.window(tf)
	query := fmt.Sprintf(`
		SELECT b.book_id AS id, b.title AS name, SUM(pl.total_page_read) AS pages
		FROM page_logs pl
		JOIN books b ON b.book_id = pl.book_id
		JOIN %[1]s j ON j.book_id = pl.book_id
		WHERE j.%[2]s = ? AND %[3]s
		GROUP BY b.book_id, b.title
		HAVING SUM(pl.total_page_read) > 0
		ORDER BY pages DESC, b.title ASC
		LIMIT ?`, kind.JoinTable(), kind.IDColumn(), where)

	params := append([]any{tagID}, args...)
	params = append(params, s.cfg.TopN)
	totals := []Total{}
	if err := db.Raw(query, params...).Scan(&totals).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate pages for %s %d: %w", kind, tagID, err)
	}
	return totals, nil
}

// DailyPages returns the page total of every day with at least one log,
// oldest first.
func (s *Service) DailyPages(ctx context.Context, tf Timeframe) ([]DayTotal, error) {
	where, args := s.window(tf)
	query := `
		SELECT pl.read_date AS day, SUM(pl.total_page_read) AS pages
		FROM page_logs pl
		WHERE ` + where + `
		GROUP BY pl.read_date
		ORDER BY pl.read_date`

	days := []DayTotal{}
	if err := s.db.WithContext(ctx).Raw(query, args...).Scan(&days).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate daily pages: %w", err)
	}
	return days, nil
}

// Summary reports headline numbers for a timeframe. BooksFinished counts the
// whole library regardless of timeframe.
func (s *Service) Summary(ctx context.Context, tf Timeframe) (*Summary, error) {
	db := s.db.WithContext(ctx)
	where, args := s.window(tf)

	var row struct {
		Pages    int64
		Sessions int64
		Books    int64
	}
	query := `
		SELECT COALESCE(SUM(pl.total_page_read), 0) AS pages,
		       COUNT(*) AS sessions,
		       COUNT(DISTINCT pl.book_id) AS books
		FROM page_logs pl
		WHERE ` + where
	if err := db.Raw(query, args...).Scan(&row).Error; err != nil {
		return nil, fmt.Errorf("failed to summarize logs: %w", err)
	}

	var finished int64
	err := db.Model(&entities.Book{}).
		Where("number_of_pages > 0 AND current_page >= number_of_pages").
		Count(&finished).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count finished books: %w", err)
	}

	streak, err := s.Streak(ctx)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		Timeframe:     tf,
		PagesRead:     row.Pages,
		Sessions:      row.Sessions,
		BooksRead:     row.Books,
		BooksFinished: finished,
		CurrentStreak: streak,
	}
	if start, end := tf.Bounds(s.now(), s.cfg.WeekStart); !start.IsZero() {
		last := end.AddDays(-1)
		summary.From, summary.To = &start, &last
	}
	return summary, nil
}
