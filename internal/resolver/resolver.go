// Package resolver is the single entry point for chapter resolution. It
// owns the dispatch from edition to acquisition strategy, the freshness
// decision, the write-through to the cache store, and the collapsing of
// concurrent identical requests into one upstream fetch.
package resolver

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sells-group/scriptura/internal/catalog"
	"github.com/sells-group/scriptura/internal/model"
	"github.com/sells-group/scriptura/internal/source"
	"github.com/sells-group/scriptura/internal/store"
)

// Caller-facing failures. Upstream and configuration failures from the
// source package pass through unchanged; see source.Err*.
var (
	ErrUnsupportedEdition = eris.New("resolver: unsupported edition")
	ErrUnknownWork        = eris.New("resolver: unknown work")
	ErrChapterOutOfRange  = eris.New("resolver: chapter out of range")
)

// Resolver resolves (work, chapter, edition) into canonical chapters.
type Resolver struct {
	store   store.Store
	sources map[catalog.Strategy]source.Source
	group   singleflight.Group
	now     func() time.Time
}

// Option configures the resolver.
type Option func(*Resolver)

// WithClock overrides the time source (for testing freshness boundaries).
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		r.now = now
	}
}

// New creates a Resolver dispatching to the given sources by strategy.
func New(st store.Store, sources map[catalog.Strategy]source.Source, opts ...Option) *Resolver {
	r := &Resolver{
		store:   st,
		sources: sources,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the canonical chapter for the key, serving from cache
// when fresh and delegating to the edition's source otherwise. All
// failures come back as typed errors; nothing panics across this
// boundary.
func (r *Resolver) Resolve(ctx context.Context, workCode string, chapterNumber int, editionCode string) (*model.Chapter, error) {
	edition, ok := catalog.Lookup(editionCode)
	if !ok {
		return nil, eris.Wrapf(ErrUnsupportedEdition, "resolver: edition %q", editionCode)
	}
	work, ok := catalog.ResolveWork(workCode)
	if !ok {
		return nil, eris.Wrapf(ErrUnknownWork, "resolver: work %q", workCode)
	}
	if chapterNumber < 1 || chapterNumber > work.Chapters {
		return nil, eris.Wrapf(ErrChapterOutOfRange, "resolver: %s has %d chapters, requested %d", work.Name, work.Chapters, chapterNumber)
	}

	src, ok := r.sources[edition.Strategy]
	if !ok {
		return nil, eris.Wrapf(ErrUnsupportedEdition, "resolver: no source for strategy %q", edition.Strategy)
	}

	if ch := r.cached(ctx, work, chapterNumber, edition); ch != nil {
		return ch, nil
	}

	key := fmt.Sprintf("%s|%d|%s", work.Code, chapterNumber, edition.Code)
	result, err, _ := r.group.Do(key, func() (any, error) {
		// A caller that waited on an in-flight fetch may find the
		// cache already warm; re-check before hitting the upstream.
		if ch := r.cached(ctx, work, chapterNumber, edition); ch != nil {
			return ch, nil
		}
		return r.fetchAndCache(ctx, source.ChapterRef{Work: work, Chapter: chapterNumber, Edition: edition}, src)
	})
	if err != nil {
		return nil, err
	}
	return result.(*model.Chapter), nil
}

// cached returns the chapter for the key if the store holds a fresh
// record. Store failures are logged and treated as a miss so resolution
// can still attempt the upstream.
func (r *Resolver) cached(ctx context.Context, work catalog.Work, chapterNumber int, edition catalog.Edition) *model.Chapter {
	rec, err := r.store.GetChapter(ctx, work.Name, chapterNumber, edition.Code)
	if err != nil {
		zap.L().Warn("cache read failed, falling through to source",
			zap.String("work", work.Code),
			zap.Int("chapter", chapterNumber),
			zap.String("edition", edition.Code),
			zap.Error(err),
		)
		return nil
	}
	if rec == nil || !rec.Fresh(r.now()) {
		return nil
	}

	return &model.Chapter{
		WorkCode:      work.Code,
		WorkName:      work.Name,
		ChapterNumber: chapterNumber,
		EditionCode:   edition.Code,
		Verses:        rec.Verses,
		Attribution:   rec.Attribution,
		CachedAt:      rec.CachedAt,
		ExpiresAt:     rec.ExpiresAt,
	}
}

// fetchAndCache delegates to the source and writes the result through to
// the store. A write failure is logged and swallowed; the freshly
// fetched chapter is still returned.
func (r *Resolver) fetchAndCache(ctx context.Context, ref source.ChapterRef, src source.Source) (*model.Chapter, error) {
	chapter, err := src.Fetch(ctx, ref)
	if err != nil {
		return nil, err
	}

	now := r.now().UTC()
	chapter.CachedAt = now
	if ttl := src.TTL(); ttl > 0 {
		expiresAt := now.Add(ttl)
		chapter.ExpiresAt = &expiresAt
	}

	// The local source reads the seeded row it would write; skip the
	// redundant write-back.
	if ref.Edition.Strategy != catalog.StrategyLocal {
		rec := &model.CacheRecord{
			WorkName:      ref.Work.Name,
			ChapterNumber: ref.Chapter,
			EditionCode:   ref.Edition.Code,
			Verses:        chapter.Verses,
			Attribution:   chapter.Attribution,
			CachedAt:      chapter.CachedAt,
			ExpiresAt:     chapter.ExpiresAt,
		}
		if err := r.store.PutChapter(ctx, rec); err != nil {
			zap.L().Warn("cache write failed, returning chapter anyway",
				zap.String("work", ref.Work.Code),
				zap.Int("chapter", ref.Chapter),
				zap.String("edition", ref.Edition.Code),
				zap.Error(err),
			)
		}
	}

	return chapter, nil
}
