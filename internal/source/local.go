package source

import (
	"context"
	"time"

	"github.com/sells-group/scriptura/internal/model"
	"github.com/sells-group/scriptura/internal/store"
)

// LocalSource serves pre-seeded public-domain editions straight from the
// cache store. It never calls a network; a miss means the offline seeding
// process has not loaded this chapter yet. Local chapters carry no
// attribution and never expire.
type LocalSource struct {
	store store.Store
}

// NewLocal creates a LocalSource backed by the given store.
func NewLocal(s store.Store) *LocalSource {
	return &LocalSource{store: s}
}

// Name implements Source.
func (s *LocalSource) Name() string { return "local" }

// Available implements Source.
func (s *LocalSource) Available() bool { return true }

// TTL implements Source. Seeded text never goes stale.
func (s *LocalSource) TTL() time.Duration { return 0 }

// Fetch implements Source by reading the seeded record for the key.
func (s *LocalSource) Fetch(ctx context.Context, ref ChapterRef) (*model.Chapter, error) {
	rec, err := s.store.GetChapter(ctx, ref.Work.Name, ref.Chapter, ref.Edition.Code)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrNotSeeded
	}

	return &model.Chapter{
		WorkCode:      ref.Work.Code,
		WorkName:      ref.Work.Name,
		ChapterNumber: ref.Chapter,
		EditionCode:   ref.Edition.Code,
		Verses:        rec.Verses,
		CachedAt:      rec.CachedAt,
	}, nil
}
