package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"interviewgo/internal/models"
	"interviewgo/internal/redis"
)

const cacheTTL = 30 * time.Minute

// Cache keeps read-path artifacts (final reports, history listings) in redis
// so a completed session's report and the history page do not hit the
// database on every fetch. Every session mutation invalidates the owner's
// entries. All methods are nil-safe: a missing cache degrades to the store.
type Cache struct {
	client *redis.Client
}

// NewCache wraps a redis client; client may be nil.
func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Report keys carry the owner so a cached report can never be served to
// another user.
func reportKey(userID, sessionID int64) string {
	return fmt.Sprintf("interview:report:%d:%d", userID, sessionID)
}

func historyKey(userID int64) string {
	return fmt.Sprintf("interview:history:%d", userID)
}

// Report returns the cached final report, if present.
func (c *Cache) Report(ctx context.Context, userID, sessionID int64) (*models.Report, bool) {
	if c == nil || c.client == nil || sessionID <= 0 {
		return nil, false
	}
	raw, err := c.client.Get(ctx, reportKey(userID, sessionID))
	if err != nil {
		if err != redis.ErrCacheMiss {
			log.Printf("report cache get failed: %v", err)
		}
		return nil, false
	}
	var report models.Report
	if err := json.Unmarshal([]byte(raw), &report); err != nil {
		log.Printf("report cache decode failed: %v", err)
		return nil, false
	}
	return &report, true
}

// StoreReport caches a generated report. Failures are logged, never fatal.
func (c *Cache) StoreReport(ctx context.Context, userID, sessionID int64, report *models.Report) {
	if c == nil || c.client == nil || sessionID <= 0 || report == nil {
		return
	}
	data, err := json.Marshal(report)
	if err != nil {
		log.Printf("report cache encode failed: %v", err)
		return
	}
	if err := c.client.Set(ctx, reportKey(userID, sessionID), data, cacheTTL); err != nil {
		log.Printf("report cache set failed: %v", err)
	}
}

// History returns the cached history listing for the user, if present.
func (c *Cache) History(ctx context.Context, userID int64) ([]models.SessionSummary, bool) {
	if c == nil || c.client == nil || userID <= 0 {
		return nil, false
	}
	raw, err := c.client.Get(ctx, historyKey(userID))
	if err != nil {
		if err != redis.ErrCacheMiss {
			log.Printf("history cache get failed: %v", err)
		}
		return nil, false
	}
	var summaries []models.SessionSummary
	if err := json.Unmarshal([]byte(raw), &summaries); err != nil {
		log.Printf("history cache decode failed: %v", err)
		return nil, false
	}
	return summaries, true
}

// StoreHistory caches a history listing.
func (c *Cache) StoreHistory(ctx context.Context, userID int64, summaries []models.SessionSummary) {
	if c == nil || c.client == nil || userID <= 0 {
		return
	}
	data, err := json.Marshal(summaries)
	if err != nil {
		log.Printf("history cache encode failed: %v", err)
		return
	}
	if err := c.client.Set(ctx, historyKey(userID), data, cacheTTL); err != nil {
		log.Printf("history cache set failed: %v", err)
	}
}

// Invalidate drops the user's history listing and, when sessionID is
// positive, the session's report entry.
func (c *Cache) Invalidate(ctx context.Context, userID, sessionID int64) {
	if c == nil || c.client == nil {
		return
	}
	keys := []string{historyKey(userID)}
	if sessionID > 0 {
		keys = append(keys, reportKey(userID, sessionID))
	}
	if err := c.client.Del(ctx, keys...); err != nil && err != redis.ErrCacheMiss {
		log.Printf("cache invalidate failed: %v", err)
	}
}
