package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeVerses_SortsAscending(t *testing.T) {
	t.Parallel()

	verses := NormalizeVerses([]Verse{
		{Number: 3, Text: "third"},
		{Number: 1, Text: "first", ParagraphStart: true},
		{Number: 2, Text: "second"},
	})

	assert.Equal(t, []int{1, 2, 3}, verseNumbers(verses))
	assert.True(t, verses[0].ParagraphStart)
}

func TestNormalizeVerses_MergesDuplicateNumbers(t *testing.T) {
	t.Parallel()

	verses := NormalizeVerses([]Verse{
		{Number: 1, Text: "And he said,", ParagraphStart: true},
		{Number: 1, Text: "Let there be light."},
		{Number: 2, Text: "And there was light."},
	})

	assert.Len(t, verses, 2)
	assert.Equal(t, "And he said, Let there be light.", verses[0].Text)
	assert.True(t, verses[0].ParagraphStart)
	assert.Equal(t, 2, verses[1].Number)
}

func TestNormalizeVerses_DuplicateKeepsAnyParagraphStart(t *testing.T) {
	t.Parallel()

	verses := NormalizeVerses([]Verse{
		{Number: 5, Text: "opening words"},
		{Number: 5, Text: "closing words", ParagraphStart: true},
	})

	assert.Len(t, verses, 1)
	assert.True(t, verses[0].ParagraphStart)
}

func TestNormalizeVerses_Empty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, NormalizeVerses(nil))
}

func TestCacheRecordFresh(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	tests := []struct {
		name      string
		expiresAt *time.Time
		want      bool
	}{
		{"nil expiry never goes stale", nil, true},
		{"future expiry is fresh", &future, true},
		{"past expiry is stale", &past, false},
		{"expiry exactly now is stale", &now, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := &CacheRecord{ExpiresAt: tt.expiresAt}
			assert.Equal(t, tt.want, rec.Fresh(now))
		})
	}
}

func verseNumbers(verses []Verse) []int {
	nums := make([]int, len(verses))
	for i, v := range verses {
		nums[i] = v.Number
	}
	return nums
}
