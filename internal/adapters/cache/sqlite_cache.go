package cache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/mikey/mail-threat-scanner/internal/core"
)

// SQLiteCache is a SQLite implementation of the DomainAgeCache interface
type SQLiteCache struct {
	db          *sql.DB
	logger      *zap.Logger
	cleanupFreq time.Duration
	stopCh      chan struct{}
}

// NewSQLiteCache creates a new SQLite cache
func NewSQLiteCache(dbPath string, logger *zap.Logger, cleanupFreq time.Duration) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Create table if it doesn't exist
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS domain_age_cache (
			domain TEXT PRIMARY KEY,
			age_days INTEGER,
			recently_updated BOOLEAN,
			fetched_at TIMESTAMP,
			expires_at TIMESTAMP
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	// Create index on expires_at for faster cleanup
	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_domain_age_expires_at ON domain_age_cache(expires_at)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	cache := &SQLiteCache{
		db:          db,
		logger:      logger,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
	}

	// Start background cleanup
	go cache.startCleanupTask()

	return cache, nil
}

// Get retrieves a cached entry for a domain
func (c *SQLiteCache) Get(ctx context.Context, domain string) (*core.DomainAgeEntry, error) {
	var ageDays int
	var recentlyUpdated bool
	var fetchedAt, expiresAt string

	err := c.db.QueryRowContext(ctx, `
		SELECT age_days, recently_updated, fetched_at, expires_at
		FROM domain_age_cache
		WHERE domain = ? AND expires_at > ?
	`, domain, time.Now().Format(time.RFC3339)).Scan(&ageDays, &recentlyUpdated, &fetchedAt, &expiresAt)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		c.logger.Error("Failed to query cache", zap.Error(err), zap.String("domain", domain))
		return nil, err
	}

	fetched, err := time.Parse(time.RFC3339, fetchedAt)
	if err != nil {
		c.logger.Error("Failed to parse fetched_at timestamp", zap.Error(err))
		return nil, err
	}
	expires, err := time.Parse(time.RFC3339, expiresAt)
	if err != nil {
		c.logger.Error("Failed to parse expires_at timestamp", zap.Error(err))
		return nil, err
	}

	return &core.DomainAgeEntry{
		Domain:          domain,
		AgeDays:         ageDays,
		RecentlyUpdated: recentlyUpdated,
		FetchedAt:       fetched,
		ExpiresAt:       expires,
	}, nil
}

// Set stores a cache entry
func (c *SQLiteCache) Set(ctx context.Context, entry *core.DomainAgeEntry) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO domain_age_cache (domain, age_days, recently_updated, fetched_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
	`, entry.Domain, entry.AgeDays, entry.RecentlyUpdated,
		entry.FetchedAt.Format(time.RFC3339), entry.ExpiresAt.Format(time.RFC3339))

	if err != nil {
		c.logger.Error("Failed to insert cache entry", zap.Error(err), zap.String("domain", entry.Domain))
		return err
	}
	return nil
}

// Delete removes a cache entry
func (c *SQLiteCache) Delete(ctx context.Context, domain string) error {
	_, err := c.db.ExecContext(ctx, `
		DELETE FROM domain_age_cache WHERE domain = ?
	`, domain)
	return err
}

// Cleanup removes expired entries
func (c *SQLiteCache) Cleanup(ctx context.Context) error {
	result, err := c.db.ExecContext(ctx, `
		DELETE FROM domain_age_cache WHERE expires_at <= ?
	`, time.Now().Format(time.RFC3339))
	if err != nil {
		return err
	}

	if count, err := result.RowsAffected(); err == nil {
		c.logger.Debug("Cleaned up expired cache entries", zap.Int64("expired_count", count))
	}
	return nil
}

// startCleanupTask starts a background task to clean up expired entries
func (c *SQLiteCache) startCleanupTask() {
	if c.cleanupFreq <= 0 {
		return
	}
	ticker := time.NewTicker(c.cleanupFreq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.Cleanup(context.Background()); err != nil {
				c.logger.Error("Failed to clean up cache", zap.Error(err))
			}
		case <-c.stopCh:
			return
		}
	}
}

// Stop stops the background cleanup task and closes the database
func (c *SQLiteCache) Stop() error {
	close(c.stopCh)
	return c.db.Close()
}
