package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const entryColumns = `id, path, fingerprint, mod_time, title, artist, album, album_artist,
	track_number, disc_number, year, genre, duration_seconds, sample_rate_hz, bit_depth,
	bitrate_kbps, bitrate_mode, format, status, missing_since, analysis_version, analyzed_at,
	created_at, updated_at`

// GetByID fetches an entry by identifier. Returns nil when absent.
func (s *Store) GetByID(ctx context.Context, id string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM catalog_entries WHERE id = ?`, id)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}
	return entry, nil
}

// GetByPath fetches an entry by its absolute file path. Returns nil when
// absent.
func (s *Store) GetByPath(ctx context.Context, path string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM catalog_entries WHERE path = ?`, path)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get entry by path: %w", err)
	}
	return entry, nil
}

// List returns every entry ordered by path.
func (s *Store) List(ctx context.Context) ([]*Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+entryColumns+` FROM catalog_entries ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()
	return collectEntries(rows)
}

// ListByPathPrefix returns every entry whose path starts with the given
// prefix, ordered by path. The comparison is a plain byte prefix so LIKE
// metacharacters in paths need no escaping.
func (s *Store) ListByPathPrefix(ctx context.Context, prefix string) ([]*Entry, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+entryColumns+` FROM catalog_entries WHERE substr(path, 1, length(?)) = ? ORDER BY path`,
		prefix, prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("list entries by prefix: %w", err)
	}
	defer rows.Close()
	return collectEntries(rows)
}

// Insert persists a new entry, assigning an identifier and timestamps.
func (s *Store) Insert(ctx context.Context, entry *Entry) error {
	return insertEntry(ctx, s.db, entry)
}

// Update overwrites a persisted entry.
func (s *Store) Update(ctx context.Context, entry *Entry) error {
	return updateEntry(ctx, s.db, entry)
}

// Delete removes an entry by identifier.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM catalog_entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return nil
}

// Tx groups entry mutations into one database transaction.
type Tx struct {
	tx *sql.Tx
}

// WithTx runs fn inside a transaction, committing on nil return and rolling
// back otherwise.
func (s *Store) WithTx(ctx context.Context, fn func(*Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	wrapped := &Tx{tx: tx}
	if err := fn(wrapped); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Insert persists a new entry within the transaction.
func (t *Tx) Insert(ctx context.Context, entry *Entry) error {
	return insertEntry(ctx, t.tx, entry)
}

// Update overwrites an entry within the transaction.
func (t *Tx) Update(ctx context.Context, entry *Entry) error {
	return updateEntry(ctx, t.tx, entry)
}

// Delete removes an entry within the transaction.
func (t *Tx) Delete(ctx context.Context, id string) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM catalog_entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertEntry(ctx context.Context, db execer, entry *Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Status == "" {
		entry.Status = StatusActive
	}
	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now

	_, err := db.ExecContext(
		ctx,
		`INSERT INTO catalog_entries (`+entryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.Path,
		entry.Fingerprint,
		formatTime(entry.ModTime),
		entry.Title,
		entry.Artist,
		entry.Album,
		entry.AlbumArtist,
		entry.TrackNumber,
		entry.DiscNumber,
		entry.Year,
		entry.Genre,
		entry.DurationSeconds,
		entry.SampleRateHz,
		entry.BitDepth,
		entry.BitrateKbps,
		entry.BitrateMode,
		entry.Format,
		string(entry.Status),
		formatTimePtr(entry.MissingSince),
		entry.AnalysisVersion,
		formatTimePtr(entry.AnalyzedAt),
		entry.CreatedAt.Format(time.RFC3339Nano),
		entry.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

func updateEntry(ctx context.Context, db execer, entry *Entry) error {
	entry.UpdatedAt = time.Now().UTC()
	_, err := db.ExecContext(
		ctx,
		`UPDATE catalog_entries SET
			path = ?, fingerprint = ?, mod_time = ?, title = ?, artist = ?, album = ?,
			album_artist = ?, track_number = ?, disc_number = ?, year = ?, genre = ?,
			duration_seconds = ?, sample_rate_hz = ?, bit_depth = ?, bitrate_kbps = ?,
			bitrate_mode = ?, format = ?, status = ?, missing_since = ?,
			analysis_version = ?, analyzed_at = ?, updated_at = ?
		WHERE id = ?`,
		entry.Path,
		entry.Fingerprint,
		formatTime(entry.ModTime),
		entry.Title,
		entry.Artist,
		entry.Album,
		entry.AlbumArtist,
		entry.TrackNumber,
		entry.DiscNumber,
		entry.Year,
		entry.Genre,
		entry.DurationSeconds,
		entry.SampleRateHz,
		entry.BitDepth,
		entry.BitrateKbps,
		entry.BitrateMode,
		entry.Format,
		string(entry.Status),
		formatTimePtr(entry.MissingSince),
		entry.AnalysisVersion,
		formatTimePtr(entry.AnalyzedAt),
		entry.UpdatedAt.Format(time.RFC3339Nano),
		entry.ID,
	)
	if err != nil {
		return fmt.Errorf("update entry: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*Entry, error) {
	var (
		entry        Entry
		status       string
		modTime      sql.NullString
		missingSince sql.NullString
		analyzedAt   sql.NullString
		createdAt    string
		updatedAt    string
	)
	if err := row.Scan(
		&entry.ID,
		&entry.Path,
		&entry.Fingerprint,
		&modTime,
		&entry.Title,
		&entry.Artist,
		&entry.Album,
		&entry.AlbumArtist,
		&entry.TrackNumber,
		&entry.DiscNumber,
		&entry.Year,
		&entry.Genre,
		&entry.DurationSeconds,
		&entry.SampleRateHz,
		&entry.BitDepth,
		&entry.BitrateKbps,
		&entry.BitrateMode,
		&entry.Format,
		&status,
		&missingSince,
		&entry.AnalysisVersion,
		&analyzedAt,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	parsed, err := ParseStatus(status)
	if err != nil {
		return nil, err
	}
	entry.Status = parsed
	entry.ModTime = parseTime(modTime)
	entry.MissingSince = parseTimePtr(missingSince)
	entry.AnalyzedAt = parseTimePtr(analyzedAt)
	entry.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	entry.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return &entry, nil
}

func collectEntries(rows *sql.Rows) ([]*Entry, error) {
	var entries []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

func formatTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value sql.NullString) time.Time {
	if !value.Valid {
		return time.Time{}
	}
	parsed, err := time.Parse(time.RFC3339Nano, value.String)
	if err != nil {
		return time.Time{}
	}
	return parsed
}

func parseTimePtr(value sql.NullString) *time.Time {
	if !value.Valid {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339Nano, value.String)
	if err != nil {
		return nil
	}
	return &parsed
}
