package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pq "github.com/lib/pq"

	"github.com/julianstephens/salahlog/internal/constants"
	"github.com/julianstephens/salahlog/internal/logger"
	"github.com/julianstephens/salahlog/internal/migration"
	"github.com/julianstephens/salahlog/internal/remote"
	"github.com/julianstephens/salahlog/migrations"
)

var (
	ErrInvalidConnectionString = errors.New("invalid PostgreSQL connection string")
	ErrEmbeddedCredentials     = errors.New("connection string must not contain a password")
	ErrNotOpen                 = errors.New("remote store is not open")
)

var _ remote.Store = (*Store)(nil)

// Store is the hosted backend. Migrations run over database/sql with lib/pq;
// reads and writes go through a pgx pool.
type Store struct {
	connStr string
	pool    *pgxpool.Pool
}

func New(connStr string) *Store {
	s := &Store{
		connStr: connStr,
	}
	s.ensureSearchPath()
	return s
}

func (s *Store) ensureSearchPath() {
	if strings.HasPrefix(s.connStr, "postgres://") || strings.HasPrefix(s.connStr, "postgresql://") {
		u, err := url.Parse(s.connStr)
		if err != nil {
			logger.Warn("Failed to parse Postgres connection string", "error", err)
			return
		}
		q := u.Query()
		if q.Get("search_path") == "" {
			q.Set("search_path", constants.AppName)
			u.RawQuery = q.Encode()
			s.connStr = u.String()
		}
		return
	}
	if !hasParam(s.connStr, "search_path") {
		s.connStr = strings.TrimSpace(s.connStr) + " search_path=" + constants.AppName
	}
}

// hasParam reports whether a URL-style or DSN-style connection string sets key (case-insensitive).
func hasParam(connStr, key string) bool {
	if u, err := url.Parse(connStr); err == nil && u.Scheme != "" {
		for k := range u.Query() {
			if strings.EqualFold(k, key) {
				return true
			}
		}
	}
	for _, part := range strings.Fields(connStr) {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) == 2 && strings.EqualFold(kv[0], key) {
			return true
		}
	}
	return false
}

// ValidateConnString checks that connStr is a valid PostgreSQL connection
// string (URI or DSN) and that it carries no password. Passwords belong in
// ~/.pgpass or PGPASSWORD.
func ValidateConnString(connStr string) (bool, error) {
	if strings.TrimSpace(connStr) == "" {
		return false, fmt.Errorf("%w: connection string cannot be empty", ErrInvalidConnectionString)
	}

	if _, err := pq.NewConnector(connStr); err != nil {
		return false, fmt.Errorf("%w: invalid connection string format: %v", ErrInvalidConnectionString, err)
	}

	if strings.HasPrefix(connStr, "postgres://") || strings.HasPrefix(connStr, "postgresql://") {
		parsedURL, err := url.Parse(connStr)
		if err != nil {
			return false, fmt.Errorf("%w: failed to parse connection URL: %v", ErrInvalidConnectionString, err)
		}
		if _, isSet := parsedURL.User.Password(); isSet {
			return false, ErrEmbeddedCredentials
		}
		if parsedURL.Host == "" && parsedURL.User == nil && (parsedURL.Path == "" || parsedURL.Path == "/") {
			return false, fmt.Errorf("%w: connection URL is incomplete", ErrInvalidConnectionString)
		}
		return true, nil
	}

	for _, pair := range strings.Fields(connStr) {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) == 2 && strings.ToLower(strings.TrimSpace(parts[0])) == "password" {
			return false, ErrEmbeddedCredentials
		}
	}
	return true, nil
}

func wrapConnectErr(connStr string, err error) error {
	if strings.Contains(err.Error(), "SSL is not enabled on the server") && !hasParam(connStr, "sslmode") {
		return fmt.Errorf("failed to connect to database: %w (hint: try adding ?sslmode=disable to your connection string)", err)
	}
	return fmt.Errorf("failed to connect to database: %w", err)
}

// Init creates the schema, applies migrations and opens the pool.
func (s *Store) Init(ctx context.Context) error {
	if err := s.withMigrationDB(ctx, true, func(r *migration.Runner) error {
		_, err := r.ApplyMigrations(func(msg string) { logger.Info(msg) })
		return err
	}); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return s.openPool(ctx)
}

// Load opens the pool against an already-migrated database.
func (s *Store) Load(ctx context.Context) error {
	if s.pool != nil {
		return nil
	}
	if err := s.withMigrationDB(ctx, false, func(r *migration.Runner) error {
		return r.ValidateVersion()
	}); err != nil {
		return err
	}
	return s.openPool(ctx)
}

// withMigrationDB opens a short-lived database/sql handle for schema work
func (s *Store) withMigrationDB(ctx context.Context, createSchema bool, fn func(*migration.Runner) error) error {
	db, err := sql.Open("postgres", s.connStr)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return wrapConnectErr(s.connStr, err)
	}

	if createSchema {
		if _, err := db.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+constants.AppName); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	subFS, err := fs.Sub(migrations.FS, "postgres")
	if err != nil {
		return fmt.Errorf("failed to access postgres migrations: %w", err)
	}
	return fn(migration.NewRunner(db, subFS, migration.DriverPostgres))
}

func (s *Store) openPool(ctx context.Context) error {
	cfg, err := pgxpool.ParseConfig(s.connStr)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConnectionString, err)
	}
	cfg.MaxConns = 4
	cfg.MinConns = 0
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return wrapConnectErr(s.connStr, err)
	}
	s.pool = pool
	return nil
}

func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
		s.pool = nil
	}
	return nil
}

// Ping checks that the backend is reachable
func (s *Store) Ping(ctx context.Context) error {
	if s.pool == nil {
		return ErrNotOpen
	}
	return s.pool.Ping(ctx)
}

// Addr returns host:port of the first configured host, for connectivity probes
func (s *Store) Addr() (string, error) {
	cfg, err := pgx.ParseConfig(s.connStr)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidConnectionString, err)
	}
	if strings.HasPrefix(cfg.Host, "/") {
		return "", fmt.Errorf("unix socket %s has no network address", cfg.Host)
	}
	return net.JoinHostPort(cfg.Host, strconv.Itoa(int(cfg.Port))), nil
}

func upsertEntriesSQL(target []string, ignoreDuplicates bool) string {
	action := `DO UPDATE SET
			id = EXCLUDED.id,
			user_id = EXCLUDED.user_id,
			prayer_name = EXCLUDED.prayer_name,
			date = EXCLUDED.date,
			status = EXCLUDED.status,
			mode = EXCLUDED.mode,
			recorded_at = EXCLUDED.recorded_at,
			updated_at = now()`
	if ignoreDuplicates {
		action = "DO NOTHING"
	}
	return `
		INSERT INTO ` + constants.RemoteEntriesTable + ` (id, user_id, prayer_name, date, status, mode, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (` + strings.Join(target, ", ") + `) ` + action
}

// UpsertEntries writes rows in one transaction; either every row lands or none does.
func (s *Store) UpsertEntries(ctx context.Context, rows []remote.Entry, opts remote.UpsertOptions) error {
	if s.pool == nil {
		return ErrNotOpen
	}
	if len(rows) == 0 {
		return nil
	}
	target, err := remote.ResolveConflictTarget(opts.ConflictTarget)
	if err != nil {
		return err
	}
	query := upsertEntriesSQL(target, opts.IgnoreDuplicates)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, r := range rows {
		var mode *string
		if r.Mode != "" {
			m := r.Mode
			mode = &m
		}
		batch.Queue(query, r.ID, r.UserID, r.PrayerName, r.Date, r.Status, mode, r.RecordedAt.UTC())
	}

	br := tx.SendBatch(ctx, batch)
	for _, r := range rows {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("failed to upsert entry %s: %w", r.ID, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("failed to finish upsert batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit upsert: %w", err)
	}
	return nil
}

func (s *Store) SelectEntries(ctx context.Context, q remote.Query) ([]remote.Entry, error) {
	if s.pool == nil {
		return nil, ErrNotOpen
	}
	order, err := remote.ResolveOrder(q.OrderBy)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, user_id, prayer_name, date::text, status, COALESCE(mode, ''), recorded_at
		FROM ` + constants.RemoteEntriesTable
	var args []interface{}
	if q.UserID != "" {
		args = append(args, q.UserID)
		query += " WHERE user_id = $1"
	}
	query += " ORDER BY " + order
	if q.Descending {
		query += " DESC"
	}
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select entries: %w", err)
	}
	defer rows.Close()

	var out []remote.Entry
	for rows.Next() {
		var e remote.Entry
		if err := rows.Scan(&e.ID, &e.UserID, &e.PrayerName, &e.Date, &e.Status, &e.Mode, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) UpsertProfile(ctx context.Context, userID string, settings json.RawMessage) error {
	if s.pool == nil {
		return ErrNotOpen
	}
	if !json.Valid(settings) {
		return fmt.Errorf("profile settings for %s are not valid JSON", userID)
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO `+constants.RemoteProfilesTable+` (user_id, settings, updated_at)
		VALUES ($1, $2::jsonb, now())
		ON CONFLICT (user_id) DO UPDATE SET settings = EXCLUDED.settings, updated_at = now()`,
		userID, string(settings))
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}

func (s *Store) GetConfigPath() string {
	// Non-sensitive identifier instead of the full connection string
	return "postgresql"
}
