package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"

	"github.com/spreadinsight/newsbot/internal/logger"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const schema = `
CREATE TABLE IF NOT EXISTS sent_news (
	id SERIAL PRIMARY KEY,
	hash VARCHAR(64) NOT NULL,
	title TEXT NOT NULL,
	link TEXT UNIQUE NOT NULL,
	source VARCHAR(100),
	sent_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_sent_news_sent_at ON sent_news(sent_at);

CREATE TABLE IF NOT EXISTS analysis_cache (
	content_hash VARCHAR(64) PRIMARY KEY,
	summary TEXT,
	explanation TEXT,
	keywords TEXT,
	ai_provider VARCHAR(50),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	last_used_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	use_count INTEGER DEFAULT 1
);
`

// PostgresStore keeps the sent history and the analysis cache in PostgreSQL.
type PostgresStore struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

func NewPostgresStore(ctx context.Context, dsn string, ttlHours int) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &PostgresStore{db: db, ttl: time.Duration(ttlHours) * time.Hour, now: time.Now}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("PostgreSQL store connected")
	return s, nil
}

func (s *PostgresStore) IsSent(ctx context.Context, link string) (bool, error) {
	query, args, err := isSentQuery(link, s.now().Add(-s.ttl))
	if err != nil {
		return false, err
	}

	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("error checking duplicate: %w", err)
	}
	return count > 0, nil
}

func (s *PostgresStore) MarkSent(ctx context.Context, item SentItem) error {
	if item.Hash == "" {
		item.Hash = NewsHash(item.Title, item.Link)
	}
	if item.SentAt.IsZero() {
		item.SentAt = s.now()
	}

	query, args, err := markSentQuery(item)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to mark as sent: %w", err)
	}
	return nil
}

// Cleanup removes expired rows from sent_news.
func (s *PostgresStore) Cleanup(ctx context.Context) (int64, error) {
	query, args, err := psql.Delete("sent_news").Where(sq.Lt{"sent_at": s.now().Add(-s.ttl)}).ToSql()
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup: %w", err)
	}
	rows, _ := res.RowsAffected()
	if rows > 0 {
		logger.Info("Cleaned up old records", "rows", rows)
	}
	return rows, nil
}

func (s *PostgresStore) GetAnalysis(ctx context.Context, contentHash string) (Analysis, bool, error) {
	query, args, err := getAnalysisQuery(contentHash)
	if err != nil {
		return Analysis{}, false, err
	}

	var a Analysis
	var summary, explanation, keywords, provider sql.NullString
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&a.ContentHash, &summary, &explanation, &keywords, &provider, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Analysis{}, false, nil
	}
	if err != nil {
		return Analysis{}, false, fmt.Errorf("failed to get analysis from cache: %w", err)
	}

	a.Summary = summary.String
	a.Explanation = explanation.String
	a.Keywords = splitKeywords(keywords.String)
	a.Provider = provider.String

	if q, args, err := touchAnalysisQuery(contentHash); err == nil {
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			logger.Warn("Can't update analysis cache usage", "error", err)
		}
	}
	return a, true, nil
}

func (s *PostgresStore) PutAnalysis(ctx context.Context, a Analysis) error {
	query, args, err := putAnalysisQuery(a)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to set analysis cache: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func isSentQuery(link string, cutoff time.Time) (string, []interface{}, error) {
	return psql.Select("COUNT(*)").
		From("sent_news").
		Where(sq.Eq{"link": link}).
		Where(sq.Gt{"sent_at": cutoff}).
		ToSql()
}

func markSentQuery(item SentItem) (string, []interface{}, error) {
	return psql.Insert("sent_news").
		Columns("hash", "title", "link", "source", "sent_at").
		Values(item.Hash, item.Title, item.Link, item.Source, item.SentAt).
		Suffix("ON CONFLICT (link) DO UPDATE SET sent_at = EXCLUDED.sent_at").
		ToSql()
}

func getAnalysisQuery(contentHash string) (string, []interface{}, error) {
	return psql.Select("content_hash", "summary", "explanation", "keywords", "ai_provider", "created_at").
		From("analysis_cache").
		Where(sq.Eq{"content_hash": contentHash}).
		ToSql()
}

func touchAnalysisQuery(contentHash string) (string, []interface{}, error) {
	return psql.Update("analysis_cache").
		Set("last_used_at", sq.Expr("NOW()")).
		Set("use_count", sq.Expr("use_count + 1")).
		Where(sq.Eq{"content_hash": contentHash}).
		ToSql()
}

func putAnalysisQuery(a Analysis) (string, []interface{}, error) {
	return psql.Insert("analysis_cache").
		Columns("content_hash", "summary", "explanation", "keywords", "ai_provider").
		Values(a.ContentHash, a.Summary, a.Explanation, strings.Join(a.Keywords, ","), a.Provider).
		Suffix(`ON CONFLICT (content_hash) DO UPDATE SET
	summary = EXCLUDED.summary,
	explanation = EXCLUDED.explanation,
	keywords = EXCLUDED.keywords,
	ai_provider = EXCLUDED.ai_provider,
	last_used_at = NOW()`).
		ToSql()
}

func splitKeywords(s string) []string {
	var out []string
	for _, kw := range strings.Split(s, ",") {
		if kw = strings.TrimSpace(kw); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}
