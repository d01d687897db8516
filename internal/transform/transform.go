// Package transform cleans and validates raw Helix records: required-field
// enforcement, date normalization, string truncation, numeric clamping and
// first-seen deduplication. All transformations are pure over their input
// slices; outcomes are reported through Stats.
package transform

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/stream-insights/twitch-etl-go/internal/metrics"
	"github.com/stream-insights/twitch-etl-go/pkg/logger"
)

// Stats counts the outcomes of one entity transformation.
type Stats struct {
	Processed         int `json:"processed"`
	Cleaned           int `json:"cleaned"`
	RemovedNull       int `json:"removed_null"`
	RemovedDuplicates int `json:"removed_duplicates"`
	DateConversions   int `json:"date_conversions"`
	ValidationErrors  int `json:"validation_errors"`
}

// Accepted upstream datetime layouts. RFC3339Nano covers both the plain and
// fractional-second "Z" forms Helix sends.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTime normalizes a datetime string to UTC at second precision.
// An empty value reports ok=false without counting an error; an unparseable
// one counts a validation error.
func parseTime(value, field, entity, id string, s *Stats) (time.Time, bool) {
	v := strings.TrimSpace(value)
	if v == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			s.DateConversions++
			return t.UTC().Truncate(time.Second), true
		}
	}

	s.ValidationErrors++
	logger.Log.Warn("unrecognized datetime format",
		zap.String("entity", entity),
		zap.String("id", id),
		zap.String("field", field),
		zap.String("value", v),
	)
	return time.Time{}, false
}

// cleanString trims whitespace and truncates to maxLen runes, logging the
// truncation as a warning.
func cleanString(value string, maxLen int, field, entity, id string, s *Stats) string {
	v := strings.TrimSpace(value)
	if maxLen <= 0 {
		return v
	}

	runes := []rune(v)
	if len(runes) > maxLen {
		logger.Log.Warn("string truncated",
			zap.String("entity", entity),
			zap.String("id", id),
			zap.String("field", field),
			zap.Int("length", len(runes)),
			zap.Int("max", maxLen),
		)
		s.Cleaned++
		return string(runes[:maxLen])
	}
	return v
}

// clampCount floors negative counters to zero, logging the adjustment.
func clampCount[T int | int64](value T, field, entity, id string, s *Stats) T {
	if value < 0 {
		logger.Log.Warn("negative counter floored to zero",
			zap.String("entity", entity),
			zap.String("id", id),
			zap.String("field", field),
			zap.Int64("value", int64(value)),
		)
		s.Cleaned++
		return 0
	}
	return value
}

func isBlank(value string) bool {
	return strings.TrimSpace(value) == ""
}

// optionalID maps Helix's empty-string absent ids to nil.
func optionalID(value string) *string {
	v := strings.TrimSpace(value)
	if v == "" {
		return nil
	}
	return &v
}

// rejectNull records a required-field rejection.
func rejectNull(entity, id, field string, s *Stats) {
	s.RemovedNull++
	metrics.RecordsRemoved.WithLabelValues(entity, "null_field").Inc()
	logger.Log.Warn("record rejected: required field null or empty",
		zap.String("entity", entity),
		zap.String("id", id),
		zap.String("field", field),
	)
}

// seenBefore tracks first-seen deduplication; later occurrences are dropped.
func seenBefore(seen map[string]struct{}, entity, id string, s *Stats) bool {
	if _, ok := seen[id]; ok {
		s.RemovedDuplicates++
		metrics.RecordsRemoved.WithLabelValues(entity, "duplicate").Inc()
		logger.Log.Warn("duplicate record removed",
			zap.String("entity", entity),
			zap.String("id", id),
		)
		return true
	}
	seen[id] = struct{}{}
	return false
}
