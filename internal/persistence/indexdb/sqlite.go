package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"voxelforge.ai/internal/sim/ids"
	"voxelforge.ai/internal/structure"
)

const schemaVersion = "1"

var (
	ErrNotFound = errors.New("structure not found")
	ErrTooLarge = errors.New("structure exceeds volume limit")
)

// Library is a SQLite-backed registry of encoded structure snapshots keyed by
// namespaced id. Each key holds one document; Put replaces it.
type Library struct {
	db *sql.DB

	// MaxVolume rejects larger snapshots on Put when > 0.
	MaxVolume int
	// CatalogDigest is recorded with every stored snapshot.
	CatalogDigest string
	Logger        *log.Logger
}

// Entry describes a stored snapshot without its document.
type Entry struct {
	Key           string
	Size          [3]int
	Volume        int
	Bytes         int
	Digest        string
	CatalogDigest string
	UpdatedAt     time.Time
}

func OpenSQLite(path string) (*Library, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Library{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS structures (
			key TEXT PRIMARY KEY,
			size_x INTEGER NOT NULL,
			size_y INTEGER NOT NULL,
			size_z INTEGER NOT NULL,
			volume INTEGER NOT NULL,
			bytes INTEGER NOT NULL,
			digest TEXT NOT NULL,
			catalog_digest TEXT NOT NULL,
			doc BLOB NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`INSERT OR IGNORE INTO meta(key,value) VALUES('schema_version','` + schemaVersion + `');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (l *Library) Close() error { return l.db.Close() }

func (l *Library) logf(format string, args ...any) {
	if l.Logger != nil {
		l.Logger.Printf(format, args...)
	}
}

func digest(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Put stores s under key, replacing any previous document.
func (l *Library) Put(ctx context.Context, key string, s *structure.Snapshot) (Entry, error) {
	if _, err := ids.ParseResourceID(key); err != nil {
		return Entry{}, fmt.Errorf("library key: %w", err)
	}
	if l.MaxVolume > 0 && s.Volume() > l.MaxVolume {
		return Entry{}, fmt.Errorf("%w: %s has %d cells (max %d)", ErrTooLarge, key, s.Volume(), l.MaxVolume)
	}
	doc, err := structure.Encode(s)
	if err != nil {
		return Entry{}, err
	}
	size := s.Size()
	e := Entry{
		Key:           key,
		Size:          size.ToArray(),
		Volume:        s.Volume(),
		Bytes:         len(doc),
		Digest:        digest(doc),
		CatalogDigest: l.CatalogDigest,
		UpdatedAt:     time.Now().UTC(),
	}
	_, err = l.db.ExecContext(ctx, `INSERT INTO structures(key,size_x,size_y,size_z,volume,bytes,digest,catalog_digest,doc,updated_at)
		VALUES(?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(key) DO UPDATE SET
			size_x=excluded.size_x, size_y=excluded.size_y, size_z=excluded.size_z,
			volume=excluded.volume, bytes=excluded.bytes, digest=excluded.digest,
			catalog_digest=excluded.catalog_digest, doc=excluded.doc, updated_at=excluded.updated_at`,
		e.Key, e.Size[0], e.Size[1], e.Size[2], e.Volume, e.Bytes, e.Digest, e.CatalogDigest, doc,
		e.UpdatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return Entry{}, fmt.Errorf("library put %s: %w", key, err)
	}
	l.logf("library: put %s size=%v digest=%s", key, e.Size, e.Digest[:12])
	return e, nil
}

// Raw returns the stored document bytes for key.
func (l *Library) Raw(ctx context.Context, key string) ([]byte, error) {
	var doc []byte
	err := l.db.QueryRowContext(ctx, `SELECT doc FROM structures WHERE key=?`, key).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("library get %s: %w", key, err)
	}
	return doc, nil
}

// Get decodes the snapshot stored under key.
func (l *Library) Get(ctx context.Context, key string) (*structure.Snapshot, error) {
	doc, err := l.Raw(ctx, key)
	if err != nil {
		return nil, err
	}
	return structure.Decode(key, doc)
}

func scanEntry(sc interface{ Scan(...any) error }) (Entry, error) {
	var (
		e       Entry
		updated string
	)
	if err := sc.Scan(&e.Key, &e.Size[0], &e.Size[1], &e.Size[2], &e.Volume, &e.Bytes, &e.Digest, &e.CatalogDigest, &updated); err != nil {
		return Entry{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, updated)
	if err != nil {
		return Entry{}, fmt.Errorf("library %s: updated_at: %w", e.Key, err)
	}
	e.UpdatedAt = t
	return e, nil
}

const entryColumns = `key,size_x,size_y,size_z,volume,bytes,digest,catalog_digest,updated_at`

func (l *Library) Stat(ctx context.Context, key string) (Entry, error) {
	row := l.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM structures WHERE key=?`, key)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return e, err
}

// List returns entries whose key starts with prefix, ordered by key.
func (l *Library) List(ctx context.Context, prefix string) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT `+entryColumns+` FROM structures WHERE substr(key,1,?)=? ORDER BY key`,
		len(prefix), prefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (l *Library) Delete(ctx context.Context, key string) error {
	res, err := l.db.ExecContext(ctx, `DELETE FROM structures WHERE key=?`, key)
	if err != nil {
		return fmt.Errorf("library delete %s: %w", key, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	l.logf("library: deleted %s", key)
	return nil
}

// SchemaVersion reports the stored schema version.
func (l *Library) SchemaVersion(ctx context.Context) (string, error) {
	var v string
	err := l.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key='schema_version'`).Scan(&v)
	return strings.TrimSpace(v), err
}
