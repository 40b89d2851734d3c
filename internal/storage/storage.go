package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// SentItem is one article already delivered to the channel.
type SentItem struct {
	Hash   string    `json:"hash"`
	Title  string    `json:"title"`
	Link   string    `json:"link"`
	Source string    `json:"source"`
	SentAt time.Time `json:"sent_at"`
}

// SentStore remembers which links were published inside the TTL window.
type SentStore interface {
	IsSent(ctx context.Context, link string) (bool, error)
	MarkSent(ctx context.Context, item SentItem) error
	Close() error
}

// Analysis is the model output cached per article body.
type Analysis struct {
	ContentHash string
	Summary     string
	Explanation string
	Keywords    []string
	Provider    string
	CreatedAt   time.Time
}

// AnalysisCache stores Analysis by content hash.
type AnalysisCache interface {
	GetAnalysis(ctx context.Context, contentHash string) (Analysis, bool, error)
	PutAnalysis(ctx context.Context, a Analysis) error
}

// NewsHash creates a stable hash for a news item from its normalized title
// and the link's domain.
func NewsHash(title, link string) string {
	normalizedTitle := strings.Join(strings.Fields(strings.ToLower(title)), " ")

	h := sha256.New()
	h.Write([]byte(normalizedTitle + "|" + extractDomain(link)))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

func extractDomain(url string) string {
	if url == "" {
		return "unknown"
	}
	url = strings.TrimPrefix(url, "http://")
	url = strings.TrimPrefix(url, "https://")

	domain, _, _ := strings.Cut(url, "/")
	domain = strings.TrimPrefix(domain, "www.")
	return strings.ToLower(domain)
}
