package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/alanyoungcy/nexustrade/internal/domain"
)

const (
	jsonlContentType = "application/x-ndjson"

	// multipartThreshold is the payload size above which uploads go through
	// the multipart manager.
	multipartThreshold = 16 << 20
)

// TradeSource lists trades older than a cutoff.
type TradeSource interface {
	ListBefore(ctx context.Context, before time.Time) ([]domain.Trade, error)
}

// LogSource lists log lines older than a cutoff.
type LogSource interface {
	ListBefore(ctx context.Context, before time.Time) ([]domain.LogEntry, error)
}

// ObjectChecker reports whether a key is already stored.
type ObjectChecker interface {
	Exists(ctx context.Context, path string) (bool, error)
}

// Archiver writes history older than a cutoff as one JSONL object per UTC
// day, at archive/{trades|logs}/YYYY-MM-DD.jsonl. The cutoff is truncated to
// midnight so each object covers a whole day, and days already present in
// the bucket are skipped. Nothing is removed from the primary store.
type Archiver struct {
	writer  domain.BlobWriter
	checker ObjectChecker
	trades  TradeSource
	logs    LogSource
	logger  *slog.Logger
}

// NewArchiver creates an Archiver. checker may be nil, in which case every
// day is rewritten.
func NewArchiver(writer domain.BlobWriter, checker ObjectChecker, trades TradeSource, logs LogSource, logger *slog.Logger) *Archiver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Archiver{
		writer:  writer,
		checker: checker,
		trades:  trades,
		logs:    logs,
		logger:  logger.With(slog.String("component", "archiver")),
	}
}

// ArchiveTrades uploads trades before the cutoff and returns how many were
// written.
func (a *Archiver) ArchiveTrades(ctx context.Context, before time.Time) (int64, error) {
	before = dayStart(before)
	trades, err := a.trades.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: list trades: %w", err)
	}
	return archiveByDay(ctx, a, "trades", trades, func(t domain.Trade) time.Time { return t.Timestamp })
}

// ArchiveLogs uploads log lines before the cutoff and returns how many were
// written.
func (a *Archiver) ArchiveLogs(ctx context.Context, before time.Time) (int64, error) {
	before = dayStart(before)
	logs, err := a.logs.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: list logs: %w", err)
	}
	return archiveByDay(ctx, a, "logs", logs, func(e domain.LogEntry) time.Time { return e.Timestamp })
}

func archiveByDay[T any](ctx context.Context, a *Archiver, kind string, records []T, stamp func(T) time.Time) (int64, error) {
	byDay := make(map[string][]T)
	for _, r := range records {
		day := stamp(r).UTC().Format(time.DateOnly)
		byDay[day] = append(byDay[day], r)
	}
	days := make([]string, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Strings(days)

	var written int64
	for _, day := range days {
		path := ArchivePath(kind, day)
		if a.checker != nil {
			exists, err := a.checker.Exists(ctx, path)
			if err != nil {
				return written, err
			}
			if exists {
				a.logger.Debug("archive object exists, skipping", slog.String("path", path))
				continue
			}
		}

		buf, err := marshalJSONL(byDay[day])
		if err != nil {
			return written, fmt.Errorf("s3blob: encode %s: %w", path, err)
		}
		if len(buf) > multipartThreshold {
			err = a.writer.PutMultipart(ctx, path, bytes.NewReader(buf), minPartSize)
		} else {
			err = a.writer.Put(ctx, path, bytes.NewReader(buf), jsonlContentType)
		}
		if err != nil {
			return written, err
		}
		written += int64(len(byDay[day]))
		a.logger.Info("archived", slog.String("path", path), slog.Int("records", len(byDay[day])))
	}
	return written, nil
}

// ArchivePath is the object key for one kind and UTC day (YYYY-MM-DD).
func ArchivePath(kind, day string) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, day)
}

func dayStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// marshalJSONL encodes one compact JSON document per line.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

var _ domain.Archiver = (*Archiver)(nil)
