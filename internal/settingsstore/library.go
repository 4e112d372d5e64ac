package settingsstore

import (
	"strings"

	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/library"
	"github.com/mrlokans/bookshelf/internal/stats"
)

// SortInfo is the default library sort with source information.
type SortInfo struct {
	Key         library.SortKey `json:"key"`
	KeySource   Source          `json:"key_source"`
	Order       string          `json:"order"`
	OrderSource Source          `json:"order_source"`
}

func parseSortKey(s string) (library.SortKey, bool) {
	return library.ParseSortKey(strings.TrimSpace(s))
}

func parseOrder(s string) (string, bool) {
	switch o := strings.ToLower(strings.TrimSpace(s)); o {
	case "asc", "desc":
		return o, true
	}
	return "", false
}

// DefaultSortInfo returns the sort applied to the book list when the
// request does not name one.
func (s *SettingsStore) DefaultSortInfo() SortInfo {
	key, keySource := resolve(s, entities.SettingKeyDefaultSortKey, EnvDefaultSort, s.defaults.SortKey, parseSortKey)
	order, orderSource := resolve(s, entities.SettingKeyDefaultSortOrder, EnvDefaultOrder, s.defaults.SortOrder, parseOrder)
	if order == "" {
		order = "asc"
	}
	return SortInfo{Key: key, KeySource: keySource, Order: order, OrderSource: orderSource}
}

func (s *SettingsStore) DefaultSort() library.Sort {
	info := s.DefaultSortInfo()
	return library.Sort{Key: info.Key, Descending: info.Order == "desc"}
}

// SetDefaultSort validates and stores the default sort.
func (s *SettingsStore) SetDefaultSort(key, order string) error {
	ve := &entities.ValidationError{}
	k, ok := parseSortKey(key)
	if !ok {
		ve.Add("default_sort", "unknown sort key "+key)
	}
	o, ok := parseOrder(order)
	if !ok {
		ve.Add("default_order", "must be asc or desc")
	}
	if ve.HasErrors() {
		return ve
	}

	if err := s.db.SetSetting(entities.SettingKeyDefaultSortKey, string(k)); err != nil {
		return err
	}
	return s.db.SetSetting(entities.SettingKeyDefaultSortOrder, o)
}

type TimeframeInfo struct {
	Timeframe stats.Timeframe `json:"timeframe"`
	Source    Source          `json:"source"`
}

func parseTimeframe(s string) (stats.Timeframe, bool) {
	tf, err := stats.ParseTimeframe(s)
	return tf, err == nil
}

// StatsTimeframeInfo returns the timeframe used when a statistics request
// does not name one.
func (s *SettingsStore) StatsTimeframeInfo() TimeframeInfo {
	tf, source := resolve(s, entities.SettingKeyStatsTimeframe, EnvStatsTimeframe, s.defaults.StatsTimeframe, parseTimeframe)
	if tf == "" {
		tf = stats.TimeframeAllTime
	}
	return TimeframeInfo{Timeframe: tf, Source: source}
}

func (s *SettingsStore) StatsTimeframe() stats.Timeframe {
	return s.StatsTimeframeInfo().Timeframe
}

func (s *SettingsStore) SetStatsTimeframe(value string) error {
	tf, err := stats.ParseTimeframe(value)
	if err != nil {
		return err
	}
	return s.db.SetSetting(entities.SettingKeyStatsTimeframe, string(tf))
}

// ClearLibrarySettings removes the database overrides for sort and
// timeframe, reverting to env/default.
func (s *SettingsStore) ClearLibrarySettings() error {
	return s.clear(
		entities.SettingKeyDefaultSortKey,
		entities.SettingKeyDefaultSortOrder,
		entities.SettingKeyStatsTimeframe,
	)
}
