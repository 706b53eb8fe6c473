package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/scriptura/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// Each pooled connection to :memory: would get its own database.
	if strings.Contains(dsn, ":memory:") {
		db.SetMaxOpenConns(1)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS chapter_cache (
	id             TEXT PRIMARY KEY,
	work_name      TEXT NOT NULL,
	chapter_number INTEGER NOT NULL,
	edition_code   TEXT NOT NULL,
	verses         TEXT NOT NULL,
	attribution    TEXT,
	cached_at      DATETIME NOT NULL DEFAULT (datetime('now')),
	expires_at     DATETIME,
	UNIQUE (work_name, chapter_number, edition_code)
);

CREATE INDEX IF NOT EXISTS idx_chapter_cache_expires_at ON chapter_cache(expires_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetChapter(ctx context.Context, workName string, chapterNumber int, editionCode string) (*model.CacheRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, work_name, chapter_number, edition_code, verses, attribution, cached_at, expires_at
		 FROM chapter_cache
		 WHERE work_name = ? AND chapter_number = ? AND edition_code = ?`,
		workName, chapterNumber, strings.ToUpper(editionCode),
	)

	var rec model.CacheRecord
	var versesJSON string
	var attribution sql.NullString
	var expiresAt sql.NullTime
	err := row.Scan(&rec.ID, &rec.WorkName, &rec.ChapterNumber, &rec.EditionCode, &versesJSON, &attribution, &rec.CachedAt, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get chapter")
	}
	if attribution.Valid {
		a := attribution.String
		rec.Attribution = &a
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		rec.ExpiresAt = &t
	}
	if err := json.Unmarshal([]byte(versesJSON), &rec.Verses); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal cached verses")
	}
	return &rec, nil
}

func (s *SQLiteStore) PutChapter(ctx context.Context, rec *model.CacheRecord) error {
	if rec == nil {
		return eris.New("sqlite: nil cache record")
	}
	versesJSON, err := json.Marshal(rec.Verses)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal verses")
	}

	id := rec.ID
	if id == "" {
		id = uuid.New().String()
	}
	cachedAt := rec.CachedAt
	if cachedAt.IsZero() {
		cachedAt = time.Now().UTC()
	}
	var attribution any
	if rec.Attribution != nil {
		attribution = *rec.Attribution
	}
	var expiresAt any
	if rec.ExpiresAt != nil {
		expiresAt = rec.ExpiresAt.UTC()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO chapter_cache (id, work_name, chapter_number, edition_code, verses, attribution, cached_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (work_name, chapter_number, edition_code) DO UPDATE SET
			verses = excluded.verses,
			attribution = excluded.attribution,
			cached_at = excluded.cached_at,
			expires_at = excluded.expires_at`,
		id, rec.WorkName, rec.ChapterNumber, strings.ToUpper(rec.EditionCode), string(versesJSON), attribution, cachedAt, expiresAt,
	)
	return eris.Wrap(err, "sqlite: put chapter")
}
