package stats

import (
	"context"
	"fmt"

	"github.com/mrlokans/bookshelf/internal/entities"
)

// Streak returns the current reading streak in days.
func (s *Service) Streak(ctx context.Context) (int, error) {
	today := entities.DateOf(s.now())
	oldest := today.AddDays(-s.cfg.StreakMaxDays)

	var rows []struct {
		ReadDate entities.Date
	}
	err := s.db.WithContext(ctx).
		Model(&entities.PageLog{}).
		Distinct("read_date").
		Where("read_date > ? AND read_date <= ?", oldest, today).
		Find(&rows).Error
	if err != nil {
		return 0, fmt.Errorf("failed to load reading days: %w", err)
	}

	days := make([]entities.Date, 0, len(rows))
	for _, r := range rows {
		days = append(days, r.ReadDate)
	}
	return CountStreak(days, today, s.cfg.StreakMaxDays), nil
}

// CountStreak walks back from today one day at a time. Days without a log are
// skipped until the first day with one; from there consecutive days are
// counted and the first gap ends the walk. At most maxDays days are visited.
func CountStreak(days []entities.Date, today entities.Date, maxDays int) int {
	logged := make(map[string]struct{}, len(days))
	for _, d := range days {
		logged[d.String()] = struct{}{}
	}

	count := 0
	day := today
	for i := 0; i < maxDays; i++ {
		if _, ok := logged[day.String()]; ok {
			count++
		} else if count > 0 {
			break
		}
		day = day.AddDays(-1)
	}
	return count
}
