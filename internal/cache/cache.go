package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Cache stores successful backend answers so repeated questions skip the
// analysis pipeline. Failures are never cached.
type Cache interface {
	// GetAnswer retrieves a cached answer by key.
	// Returns nil if not found.
	GetAnswer(ctx context.Context, key string) (*Answer, error)

	// SetAnswer stores an answer with TTL.
	SetAnswer(ctx context.Context, key string, answer *Answer, ttl time.Duration) error

	// Flush removes every cached answer.
	Flush(ctx context.Context) error

	// Close closes the cache connection.
	Close() error
}

// Answer is a cached backend response.
type Answer struct {
	Text     string    `json:"text"`
	Endpoint string    `json:"endpoint"`
	CachedAt time.Time `json:"cached_at"`
}

// GenerateCacheKey derives a stable key from the endpoint and the question.
// Case and surrounding or repeated whitespace are ignored.
func GenerateCacheKey(endpoint, question string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(question)), " ")
	sum := sha256.Sum256([]byte(endpoint + "\x00" + normalized))
	return hex.EncodeToString(sum[:])
}
