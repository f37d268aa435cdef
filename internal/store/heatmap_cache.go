package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Mlcruz9/miguel-dev/internal/heatmap"
)

var _ heatmap.Cache = (*Store)(nil)

func (s *Store) LoadCalendar(ctx context.Context, username string) (heatmap.Calendar, bool, error) {
	var raw, fetched string
	err := s.db.QueryRowContext(ctx,
		`SELECT calendar, fetched_at FROM heatmap_cache WHERE username = ?`,
		strings.ToLower(username)).Scan(&raw, &fetched)
	if errors.Is(err, sql.ErrNoRows) {
		return heatmap.Calendar{}, false, nil
	}
	if err != nil {
		return heatmap.Calendar{}, false, fmt.Errorf("load calendar: %w", err)
	}

	var cal heatmap.Calendar
	if err := json.Unmarshal([]byte(raw), &cal); err != nil {
		return heatmap.Calendar{}, false, fmt.Errorf("decode calendar: %w", err)
	}
	if t, err := time.Parse(time.RFC3339Nano, fetched); err == nil {
		cal.FetchedAt = t
	}
	return cal, true, nil
}

func (s *Store) SaveCalendar(ctx context.Context, cal heatmap.Calendar) error {
	raw, err := json.Marshal(cal)
	if err != nil {
		return fmt.Errorf("encode calendar: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO heatmap_cache (username, calendar, fetched_at) VALUES (?, ?, ?)
		ON CONFLICT(username) DO UPDATE SET calendar = excluded.calendar, fetched_at = excluded.fetched_at
	`, strings.ToLower(cal.Username), string(raw), cal.FetchedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save calendar: %w", err)
	}
	return nil
}

// PurgeCalendars drops every cached calendar so the next render refetches.
func (s *Store) PurgeCalendars(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM heatmap_cache`)
	if err != nil {
		return 0, fmt.Errorf("purge calendars: %w", err)
	}
	return res.RowsAffected()
}
