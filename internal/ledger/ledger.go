// Package ledger records link visits: a per-site counter and a bounded log
// of recent visits, both kept in a kv.Store.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/poku-e/navhub/internal/kv"
)

const (
	KeyVisits = "siteVisits"
	KeyLogs   = "visitLogs"

	// MaxLogs bounds the visit log; older entries are dropped first.
	MaxLogs = 100
	// RecentLogs is how many entries Stats reports.
	RecentLogs = 10

	timeLayout = "2006-01-02T15:04:05.000Z07:00"
)

type Entry struct {
	Site      string `json:"site"`
	URL       string `json:"url"`
	Timestamp string `json:"timestamp"`
	UserAgent string `json:"userAgent"`
}

// Time parses the entry timestamp. The zero time is returned for entries
// that were stored with a malformed value.
func (e Entry) Time() time.Time {
	t, err := time.Parse(time.RFC3339Nano, e.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return t
}

type Stats struct {
	TotalVisits int            `json:"totalVisits"`
	PerSite     map[string]int `json:"siteVisits"`
	RecentLogs  []Entry        `json:"recentLogs"`
}

// MostVisited returns the site with the highest count; ties go to the
// alphabetically first name. ok is false when nothing was visited.
func (s Stats) MostVisited() (site string, count int, ok bool) {
	for name, n := range s.PerSite {
		if !ok || n > count || (n == count && name < site) {
			site, count, ok = name, n, true
		}
	}
	return site, count, ok
}

// SiteCount is one row of Counts.
type SiteCount struct {
	Site  string
	Count int
}

type Ledger struct {
	store kv.Store
	log   *zap.Logger
}

func New(store kv.Store, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{store: store, log: logger}
}

// RecordVisit increments the site counter and appends a log entry in a
// single store update, so readers never see one without the other.
func (l *Ledger) RecordVisit(ctx context.Context, site, url string, now time.Time, agent string) error {
	entry := Entry{
		Site:      site,
		URL:       url,
		Timestamp: now.UTC().Format(timeLayout),
		UserAgent: agent,
	}
	err := l.store.Update(ctx, func(tx kv.Tx) error {
		visits, err := l.readVisits(tx)
		if err != nil {
			return err
		}
		logs, err := l.readLogs(tx)
		if err != nil {
			return err
		}

		visits[site]++
		logs = append(logs, entry)
		if len(logs) > MaxLogs {
			logs = logs[len(logs)-MaxLogs:]
		}

		if err := kv.SetJSON(tx, KeyVisits, visits); err != nil {
			return err
		}
		return kv.SetJSON(tx, KeyLogs, logs)
	})
	if err != nil {
		return fmt.Errorf("ledger: record visit: %w", err)
	}
	l.log.Debug("visit recorded",
		zap.String("site", site), zap.String("url", url), zap.String("at", entry.Timestamp))
	return nil
}

func (l *Ledger) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := l.store.View(ctx, func(tx kv.Tx) error {
		visits, err := l.readVisits(tx)
		if err != nil {
			return err
		}
		logs, err := l.readLogs(tx)
		if err != nil {
			return err
		}
		st.PerSite = visits
		for _, n := range visits {
			st.TotalVisits += n
		}
		if len(logs) > RecentLogs {
			logs = logs[len(logs)-RecentLogs:]
		}
		st.RecentLogs = logs
		return nil
	})
	if err != nil {
		return Stats{}, fmt.Errorf("ledger: stats: %w", err)
	}
	return st, nil
}

// Logs returns the full visit log, oldest first.
func (l *Ledger) Logs(ctx context.Context) ([]Entry, error) {
	var logs []Entry
	err := l.store.View(ctx, func(tx kv.Tx) error {
		var err error
		logs, err = l.readLogs(tx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("ledger: logs: %w", err)
	}
	return logs, nil
}

// Counts returns visit counts ordered by count descending, then site name.
func (l *Ledger) Counts(ctx context.Context) ([]SiteCount, error) {
	var visits map[string]int
	err := l.store.View(ctx, func(tx kv.Tx) error {
		var err error
		visits, err = l.readVisits(tx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("ledger: counts: %w", err)
	}
	out := make([]SiteCount, 0, len(visits))
	for site, n := range visits {
		out = append(out, SiteCount{Site: site, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Site < out[j].Site
	})
	return out, nil
}

// Clear drops both the counters and the log.
func (l *Ledger) Clear(ctx context.Context) error {
	return l.store.Update(ctx, ClearTx)
}

// ClearTx deletes the ledger keys inside a caller's transaction.
func ClearTx(tx kv.Tx) error {
	if err := tx.Delete(KeyVisits); err != nil {
		return err
	}
	return tx.Delete(KeyLogs)
}

// readVisits returns the stored counters; a malformed value reads as empty
// and negative counts are dropped.
func (l *Ledger) readVisits(tx kv.Tx) (map[string]int, error) {
	var visits map[string]int
	if _, err := kv.GetJSON(tx, KeyVisits, &visits); err != nil {
		if !l.recoverable(err) {
			return nil, err
		}
		visits = nil
	}
	if visits == nil {
		visits = map[string]int{}
	}
	for site, n := range visits {
		if n < 0 {
			delete(visits, site)
		}
	}
	return visits, nil
}

func (l *Ledger) readLogs(tx kv.Tx) ([]Entry, error) {
	var logs []Entry
	if _, err := kv.GetJSON(tx, KeyLogs, &logs); err != nil {
		if !l.recoverable(err) {
			return nil, err
		}
		logs = nil
	}
	if logs == nil {
		logs = []Entry{}
	}
	return logs, nil
}

func (l *Ledger) recoverable(err error) bool {
	var de *kv.DecodeError
	if errors.As(err, &de) {
		l.log.Warn("ignoring corrupted ledger value", zap.String("key", de.Key), zap.Error(de.Err))
		return true
	}
	return false
}
