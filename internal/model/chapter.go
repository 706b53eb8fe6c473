// Package model defines the canonical chapter resolution types shared
// across the catalog, store, source, and resolver layers.
package model

import (
	"sort"
	"strings"
	"time"
)

// Verse is a single numbered text unit within a chapter.
type Verse struct {
	Number         int    `json:"number"`
	Text           string `json:"text"`
	ParagraphStart bool   `json:"paragraph_start"`
}

// Chapter is the canonical resolved object returned to callers.
// Attribution is non-nil only for editions whose license requires
// displayed credit text. A nil ExpiresAt means the record never
// expires (locally seeded public-domain editions only).
type Chapter struct {
	WorkCode      string     `json:"work_code"`
	WorkName      string     `json:"work_name"`
	ChapterNumber int        `json:"chapter_number"`
	EditionCode   string     `json:"edition_code"`
	Verses        []Verse    `json:"verses"`
	Attribution   *string    `json:"attribution,omitempty"`
	CachedAt      time.Time  `json:"cached_at"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}

// CacheRecord is the persisted form of a Chapter, keyed by
// (work_name, chapter_number, edition_code).
type CacheRecord struct {
	ID            string     `json:"id"`
	WorkName      string     `json:"work_name"`
	ChapterNumber int        `json:"chapter_number"`
	EditionCode   string     `json:"edition_code"`
	Verses        []Verse    `json:"verses"`
	Attribution   *string    `json:"attribution,omitempty"`
	CachedAt      time.Time  `json:"cached_at"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}

// Fresh reports whether the record is still valid at the given instant.
// A nil expiry never goes stale; an expiry exactly equal to now is stale.
func (r *CacheRecord) Fresh(now time.Time) bool {
	return r.ExpiresAt == nil || r.ExpiresAt.After(now)
}

// NormalizeVerses sorts verses ascending by number and merges duplicate
// numbers into one verse. Upstream trees split a verse across paragraph
// containers, so fragments with the same number are joined in order; the
// merged verse starts a paragraph if any fragment did.
func NormalizeVerses(verses []Verse) []Verse {
	if len(verses) == 0 {
		return verses
	}
	sort.SliceStable(verses, func(i, j int) bool {
		return verses[i].Number < verses[j].Number
	})

	out := verses[:0]
	for _, v := range verses {
		if n := len(out); n > 0 && out[n-1].Number == v.Number {
			out[n-1].Text = strings.TrimSpace(out[n-1].Text + " " + v.Text)
			out[n-1].ParagraphStart = out[n-1].ParagraphStart || v.ParagraphStart
			continue
		}
		out = append(out, v)
	}
	return out
}
