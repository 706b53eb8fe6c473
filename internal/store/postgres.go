package store

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/scriptura/internal/model"
)

// pgPool is the slice of *pgxpool.Pool the store uses; pgxmock satisfies
// it in unit tests.
type pgPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool pgPool
}

// preparedStatements lists queries to prepare on each new connection.
// Chapter reads dominate the workload, so both hot paths are prepared.
var preparedStatements = map[string]string{
	"get_chapter": `SELECT id, work_name, chapter_number, edition_code, verses, attribution, cached_at, expires_at
		FROM chapter_cache WHERE work_name = $1 AND chapter_number = $2 AND edition_code = $3`,
	"put_chapter": `INSERT INTO chapter_cache (id, work_name, chapter_number, edition_code, verses, attribution, cached_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (work_name, chapter_number, edition_code) DO UPDATE SET
			verses = EXCLUDED.verses,
			attribution = EXCLUDED.attribution,
			cached_at = EXCLUDED.cached_at,
			expires_at = EXCLUDED.expires_at`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS chapter_cache (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	work_name      TEXT NOT NULL,
	chapter_number INTEGER NOT NULL,
	edition_code   TEXT NOT NULL,
	verses         JSONB NOT NULL,
	attribution    TEXT,
	cached_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at     TIMESTAMPTZ,
	UNIQUE (work_name, chapter_number, edition_code)
);

CREATE INDEX IF NOT EXISTS idx_chapter_cache_expires_at ON chapter_cache(expires_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) GetChapter(ctx context.Context, workName string, chapterNumber int, editionCode string) (*model.CacheRecord, error) {
	row := s.pool.QueryRow(ctx, "get_chapter", workName, chapterNumber, strings.ToUpper(editionCode))

	var rec model.CacheRecord
	var versesJSON []byte
	var attribution *string
	var expiresAt *time.Time
	err := row.Scan(&rec.ID, &rec.WorkName, &rec.ChapterNumber, &rec.EditionCode, &versesJSON, &attribution, &rec.CachedAt, &expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get chapter")
	}
	rec.Attribution = attribution
	rec.ExpiresAt = expiresAt
	if err := json.Unmarshal(versesJSON, &rec.Verses); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal cached verses")
	}
	return &rec, nil
}

func (s *PostgresStore) PutChapter(ctx context.Context, rec *model.CacheRecord) error {
	if rec == nil {
		return eris.New("postgres: nil cache record")
	}
	versesJSON, err := json.Marshal(rec.Verses)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal verses")
	}

	id := rec.ID
	if id == "" {
		id = uuid.New().String()
	}
	cachedAt := rec.CachedAt
	if cachedAt.IsZero() {
		cachedAt = time.Now().UTC()
	}

	_, err = s.pool.Exec(ctx, "put_chapter",
		id, rec.WorkName, rec.ChapterNumber, strings.ToUpper(rec.EditionCode), versesJSON, rec.Attribution, cachedAt, rec.ExpiresAt,
	)
	return eris.Wrap(err, "postgres: put chapter")
}
