package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/scriptura/internal/config"
	"github.com/sells-group/scriptura/internal/model"
)

// Store is the chapter cache persistence interface. GetChapter returns
// (nil, nil) on a miss and does not filter on expiry — freshness is the
// resolver's decision. PutChapter upserts whole records keyed by
// (work_name, chapter_number, edition_code), last writer wins.
type Store interface {
	GetChapter(ctx context.Context, workName string, chapterNumber int, editionCode string) (*model.CacheRecord, error)
	PutChapter(ctx context.Context, rec *model.CacheRecord) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates a Store from config, choosing the driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "sqlite", "":
		return NewSQLite(cfg.Path)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
