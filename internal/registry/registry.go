package registry

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"courier/internal/config"
	"courier/internal/services"
	"courier/internal/transport"
)

// Store manages share persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string

	entropyMu sync.Mutex
	entropy   io.Reader
}

// Open initializes or connects to the registry database and applies migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.DatabasePath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	maxConns := cfg.Storage.MaxConnections
	if maxConns <= 0 {
		maxConns = 4
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{
		db:      db,
		path:    dbPath,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) applyMigrations(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}

	var version int
	err := s.db.QueryRowContext(ctx, `SELECT version FROM schema_info LIMIT 1`).Scan(&version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := s.db.ExecContext(ctx, `INSERT INTO schema_info (version) VALUES (?)`, schemaVersion); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	case version != schemaVersion:
		return fmt.Errorf("registry schema version %d is not supported (want %d); remove %s to rebuild", version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) newID() string {
	s.entropyMu.Lock()
	defer s.entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

// Create persists a new share record atomically and returns it with a fresh
// unguessable token. Token uniqueness is enforced by the database; the
// negligible collision case regenerates and retries.
func (s *Store) Create(ctx context.Context, owner transport.PrincipalID, refs []transport.ItemRef, caption, kind string) (*Share, error) {
	if len(refs) == 0 {
		return nil, services.Wrap(services.ErrPersistence, "registry", "create", "refusing to create empty share", nil)
	}

	now := time.Now().UTC()
	share := &Share{
		ID:        s.newID(),
		Owner:     owner,
		Refs:      append([]transport.ItemRef{}, refs...),
		Caption:   strings.TrimSpace(caption),
		Kind:      strings.TrimSpace(kind),
		CreatedAt: now,
	}

	const attempts = 5
	for attempt := 0; attempt < attempts; attempt++ {
		token, err := NewToken()
		if err != nil {
			return nil, services.Wrap(services.ErrPersistence, "registry", "create", "token generation failed", err)
		}
		share.Token = token

		_, err = s.db.ExecContext(
			ctx,
			`INSERT INTO shares (id, token, owner_id, item_refs, item_count, caption, kind, created_at)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			share.ID,
			share.Token,
			int64(share.Owner),
			encodeRefs(share.Refs),
			len(share.Refs),
			share.Caption,
			share.Kind,
			now.Format(time.RFC3339Nano),
		)
		if err == nil {
			return share, nil
		}
		if isTokenCollision(err) {
			continue
		}
		return nil, services.Wrap(services.ErrPersistence, "registry", "create", "insert share", err)
	}
	return nil, services.Wrap(services.ErrPersistence, "registry", "create", "token collisions exhausted retries", nil)
}

func isTokenCollision(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed: shares.token")
}

// GetByToken fetches a share by its public token.
func (s *Store) GetByToken(ctx context.Context, token string) (*Share, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+shareColumns+` FROM shares WHERE token = ?`, token)
	share, err := scanShare(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "registry", "lookup", "unknown share token", nil)
	}
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "registry", "lookup", "get share", err)
	}
	return share, nil
}

// ListByOwner returns the owner's shares ordered by creation time descending.
func (s *Store) ListByOwner(ctx context.Context, owner transport.PrincipalID, offset, limit int) ([]*Share, error) {
	if limit <= 0 {
		return nil, nil
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+shareColumns+` FROM shares WHERE owner_id = ? ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		int64(owner), limit, offset,
	)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "registry", "list", "query shares", err)
	}
	defer rows.Close()

	var shares []*Share
	for rows.Next() {
		share, err := scanShare(rows)
		if err != nil {
			return nil, services.Wrap(services.ErrPersistence, "registry", "list", "scan share", err)
		}
		shares = append(shares, share)
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrPersistence, "registry", "list", "iterate shares", err)
	}
	return shares, nil
}

// List returns shares across all owners ordered by creation time descending.
// Operator surface; principal-facing listings go through ListByOwner.
func (s *Store) List(ctx context.Context, offset, limit int) ([]*Share, error) {
	if limit <= 0 {
		return nil, nil
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+shareColumns+` FROM shares ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "registry", "list", "query shares", err)
	}
	defer rows.Close()

	var shares []*Share
	for rows.Next() {
		share, err := scanShare(rows)
		if err != nil {
			return nil, services.Wrap(services.ErrPersistence, "registry", "list", "scan share", err)
		}
		shares = append(shares, share)
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrPersistence, "registry", "list", "iterate shares", err)
	}
	return shares, nil
}

// CountByOwner returns the total number of shares the owner has created.
func (s *Store) CountByOwner(ctx context.Context, owner transport.PrincipalID) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM shares WHERE owner_id = ?`, int64(owner)).Scan(&count)
	if err != nil {
		return 0, services.Wrap(services.ErrPersistence, "registry", "count", "count shares", err)
	}
	return count, nil
}

// Delete removes a share on behalf of the requester. Only the owner may
// delete; the removed record is returned so the caller can retract the
// underlying vault items best-effort. The registry delete is authoritative
// and is not reversed by a later retraction failure.
func (s *Store) Delete(ctx context.Context, token string, requester transport.PrincipalID) (*Share, error) {
	share, err := s.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if share.Owner != requester {
		return nil, services.Wrap(services.ErrForbidden, "registry", "delete", "requester does not own share", nil)
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM shares WHERE token = ? AND owner_id = ?`, token, int64(requester))
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "registry", "delete", "delete share", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "registry", "delete", "rows affected", err)
	}
	if affected == 0 {
		// Raced with another delete of the same record.
		return nil, services.Wrap(services.ErrNotFound, "registry", "delete", "share already removed", nil)
	}
	return share, nil
}

// Remove deletes a share regardless of owner. Operator surface for the
// control socket; principal-facing deletes go through Delete.
func (s *Store) Remove(ctx context.Context, token string) (*Share, error) {
	share, err := s.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM shares WHERE token = ?`, token)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "registry", "remove", "delete share", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "registry", "remove", "rows affected", err)
	}
	if affected == 0 {
		return nil, services.Wrap(services.ErrNotFound, "registry", "remove", "share already removed", nil)
	}
	return share, nil
}

// Stats returns aggregate counts for diagnostics.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	err := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(*), COALESCE(SUM(item_count), 0), COUNT(DISTINCT owner_id) FROM shares`,
	).Scan(&stats.Shares, &stats.Items, &stats.Owners)
	if err != nil {
		return Stats{}, services.Wrap(services.ErrPersistence, "registry", "stats", "aggregate shares", err)
	}
	return stats, nil
}

// CheckHealth verifies the database file and connection are usable.
func (s *Store) CheckHealth(ctx context.Context) error {
	if s.path == "" {
		return errors.New("registry database path is unknown")
	}
	if _, err := os.Stat(s.path); err != nil {
		return fmt.Errorf("stat registry database: %w", err)
	}
	if s.db == nil {
		return errors.New("registry database connection unavailable")
	}

	connCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.db.PingContext(connCtx); err != nil {
		return fmt.Errorf("ping registry database: %w", err)
	}

	var integrity string
	if err := s.db.QueryRowContext(connCtx, "PRAGMA integrity_check").Scan(&integrity); err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	if !strings.EqualFold(integrity, "ok") {
		return fmt.Errorf("integrity check reported %q", integrity)
	}
	return nil
}

const shareColumns = "id, token, owner_id, item_refs, caption, kind, created_at"

func scanShare(scanner interface{ Scan(dest ...any) error }) (*Share, error) {
	var (
		id         string
		token      string
		ownerID    int64
		refsRaw    string
		caption    sql.NullString
		kind       sql.NullString
		createdRaw string
	)
	if err := scanner.Scan(&id, &token, &ownerID, &refsRaw, &caption, &kind, &createdRaw); err != nil {
		return nil, err
	}

	refs, err := decodeRefs(refsRaw)
	if err != nil {
		return nil, fmt.Errorf("decode item refs: %w", err)
	}

	share := &Share{
		ID:      id,
		Token:   token,
		Owner:   transport.PrincipalID(ownerID),
		Refs:    refs,
		Caption: caption.String,
		Kind:    kind.String,
	}
	if created, err := time.Parse(time.RFC3339Nano, createdRaw); err == nil {
		share.CreatedAt = created
	}
	return share, nil
}
