package source

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/scriptura/internal/catalog"
	"github.com/sells-group/scriptura/internal/config"
)

func esvRef(t *testing.T) ChapterRef {
	t.Helper()
	work, ok := catalog.LookupWork("GEN")
	require.True(t, ok)
	edition, ok := catalog.Lookup("ESV")
	require.True(t, ok)
	return ChapterRef{Work: work, Chapter: 1, Edition: edition}
}

func newESVForTest(key, baseURL string) *ESVSource {
	return NewESV(config.ESVConfig{Key: key, RatePerSec: 1000}, WithESVBaseURL(baseURL))
}

func TestESVFetch_Success(t *testing.T) {
	t.Parallel()

	passage := "[1] In the beginning, God created the heavens and the earth. [2] The earth was without form and void.\n\n[3] And God said, \"Let there be light,\" and there was light."

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Token test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "/v3/passage/text/", r.URL.Path)

		q := r.URL.Query()
		assert.Equal(t, "Genesis 1", q.Get("q"))
		assert.Equal(t, "true", q.Get("include-verse-numbers"))
		assert.Equal(t, "false", q.Get("include-footnotes"))
		assert.Equal(t, "false", q.Get("include-headings"))
		assert.Equal(t, "false", q.Get("include-passage-references"))
		assert.Equal(t, "0", q.Get("indent-paragraphs"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(esvResponse{Canonical: "Genesis 1", Passages: []string{passage}})
	}))
	defer srv.Close()

	src := newESVForTest("test-key", srv.URL)
	chapter, err := src.Fetch(context.Background(), esvRef(t))

	require.NoError(t, err)
	require.Len(t, chapter.Verses, 3)
	assert.Equal(t, "GEN", chapter.WorkCode)
	assert.Equal(t, "Genesis", chapter.WorkName)
	assert.Equal(t, "ESV", chapter.EditionCode)

	assert.True(t, chapter.Verses[0].ParagraphStart)
	assert.False(t, chapter.Verses[1].ParagraphStart)
	assert.True(t, chapter.Verses[2].ParagraphStart, "verse 3 opens the second paragraph block")

	require.NotNil(t, chapter.Attribution)
	assert.Contains(t, *chapter.Attribution, "Crossway")
}

func TestESVFetch_MissingKeyShortCircuits(t *testing.T) {
	t.Parallel()

	var called bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	src := newESVForTest("", srv.URL)
	_, err := src.Fetch(context.Background(), esvRef(t))

	require.ErrorIs(t, err, ErrMissingCredential)
	assert.False(t, called, "no network call may happen without a credential")
	assert.False(t, src.Available())
}

func TestESVFetch_HTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	src := newESVForTest("test-key", srv.URL)
	_, err := src.Fetch(context.Background(), esvRef(t))

	require.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestESVFetch_EmptyPassages(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(esvResponse{Passages: []string{}})
	}))
	defer srv.Close()

	src := newESVForTest("test-key", srv.URL)
	_, err := src.Fetch(context.Background(), esvRef(t))

	require.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestESVFetch_NoMarkersIsMalformed(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(esvResponse{Passages: []string{"prose with no verse markers at all"}})
	}))
	defer srv.Close()

	src := newESVForTest("test-key", srv.URL)
	_, err := src.Fetch(context.Background(), esvRef(t))

	require.ErrorIs(t, err, ErrMalformedContent)
}

func TestESVFetch_Timeout(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	src := newESVForTest("test-key", srv.URL)
	src.http = &http.Client{Timeout: 20 * time.Millisecond}

	_, err := src.Fetch(context.Background(), esvRef(t))
	require.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestParsePassageText_EachBlockStartsParagraph(t *testing.T) {
	t.Parallel()

	verses := parsePassageText("[1] In the beginning.\n\n[2] And the earth.")

	require.Len(t, verses, 2)
	assert.Equal(t, 1, verses[0].Number)
	assert.Equal(t, 2, verses[1].Number)
	assert.True(t, verses[0].ParagraphStart)
	assert.True(t, verses[1].ParagraphStart, "each block's first verse starts its own paragraph")
}

func TestParsePassageText_SortsAndDeduplicates(t *testing.T) {
	t.Parallel()

	verses := parsePassageText("[3] Third. [1] First. [2] Second.")

	require.Len(t, verses, 3)
	for i, v := range verses {
		assert.Equal(t, i+1, v.Number)
	}
	assert.True(t, verses[0].ParagraphStart)
}

func TestParsePassageText_CollapsesInternalWhitespace(t *testing.T) {
	t.Parallel()

	verses := parsePassageText("[1] In the\n    beginning,  God\tcreated.")

	require.Len(t, verses, 1)
	assert.Equal(t, "In the beginning, God created.", verses[0].Text)
}

func TestParsePassageText_DropsEmptyVersesAndBlocks(t *testing.T) {
	t.Parallel()

	verses := parsePassageText("[1]   \n\nno markers here\n\n[2] Real text.")

	require.Len(t, verses, 1)
	assert.Equal(t, 2, verses[0].Number)
	assert.True(t, verses[0].ParagraphStart)
}

func TestParsePassageText_CRLFNormalized(t *testing.T) {
	t.Parallel()

	verses := parsePassageText("[1] First.\r\n\r\n[2] Second.")

	require.Len(t, verses, 2)
	assert.True(t, verses[1].ParagraphStart)
}

func TestESVTTL(t *testing.T) {
	t.Parallel()

	src := NewESV(config.ESVConfig{Key: "k", CacheTTLHours: 24})
	assert.Equal(t, 24*time.Hour, src.TTL())
}
