package cache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/mikey/mail-threat-scanner/internal/core"
)

// MySQLCache is a MySQL implementation of the DomainAgeCache interface
type MySQLCache struct {
	db          *sql.DB
	logger      *zap.Logger
	cleanupFreq time.Duration
	stopCh      chan struct{}
}

// NewMySQLCache creates a new MySQL cache
func NewMySQLCache(dsn string, logger *zap.Logger, cleanupFreq time.Duration) (*MySQLCache, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	// Create table if it doesn't exist
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS domain_age_cache (
			domain VARCHAR(255) PRIMARY KEY,
			age_days INT,
			recently_updated BOOLEAN,
			fetched_at DATETIME,
			expires_at DATETIME,
			INDEX idx_domain_age_expires_at (expires_at)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	cache := &MySQLCache{
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
func (c *MySQLCache) Get(ctx context.Context, domain string) (*core.DomainAgeEntry, error) {
	var ageDays int
	var recentlyUpdated bool
	var fetchedAt, expiresAt time.Time

	err := c.db.QueryRowContext(ctx, `
		SELECT age_days, recently_updated, fetched_at, expires_at
		FROM domain_age_cache
		WHERE domain = ? AND expires_at > NOW()
	`, domain).Scan(&ageDays, &recentlyUpdated, &fetchedAt, &expiresAt)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		c.logger.Error("Failed to query cache", zap.Error(err), zap.String("domain", domain))
		return nil, err
	}

	return &core.DomainAgeEntry{
		Domain:          domain,
		AgeDays:         ageDays,
		RecentlyUpdated: recentlyUpdated,
		FetchedAt:       fetchedAt,
		ExpiresAt:       expiresAt,
	}, nil
}

// Set stores a cache entry
func (c *MySQLCache) Set(ctx context.Context, entry *core.DomainAgeEntry) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO domain_age_cache (domain, age_days, recently_updated, fetched_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			age_days = VALUES(age_days),
			recently_updated = VALUES(recently_updated),
			fetched_at = VALUES(fetched_at),
			expires_at = VALUES(expires_at)
	`, entry.Domain, entry.AgeDays, entry.RecentlyUpdated, entry.FetchedAt, entry.ExpiresAt)

	if err != nil {
		c.logger.Error("Failed to insert cache entry", zap.Error(err), zap.String("domain", entry.Domain))
		return err
	}
	return nil
}

// Delete removes a cache entry
func (c *MySQLCache) Delete(ctx context.Context, domain string) error {
	_, err := c.db.ExecContext(ctx, `
		DELETE FROM domain_age_cache WHERE domain = ?
	`, domain)
	return err
}

// Cleanup removes expired entries
func (c *MySQLCache) Cleanup(ctx context.Context) error {
	result, err := c.db.ExecContext(ctx, `
		DELETE FROM domain_age_cache WHERE expires_at <= NOW()
	`)
	if err != nil {
		return err
	}

	if count, err := result.RowsAffected(); err == nil {
		c.logger.Debug("Cleaned up expired cache entries", zap.Int64("expired_count", count))
	}
	return nil
}

// startCleanupTask starts a background task to clean up expired entries
func (c *MySQLCache) startCleanupTask() {
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
func (c *MySQLCache) Stop() error {
	close(c.stopCh)
	return c.db.Close()
}
