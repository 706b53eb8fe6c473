package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/scriptura/internal/config"
	"github.com/sells-group/scriptura/internal/model"
)

// esvAttribution is the legal credit text Crossway requires alongside
// displayed ESV content.
const esvAttribution = "Scripture quotations are from the ESV® Bible " +
	"(The Holy Bible, English Standard Version®), copyright © 2001 by Crossway, " +
	"a publishing ministry of Good News Publishers. Used by permission. All rights reserved."

// esvResponse is the JSON envelope from the ESV passage text API.
type esvResponse struct {
	Canonical string   `json:"canonical"`
	Passages  []string `json:"passages"`
}

// ESVSource fetches chapters from the ESV passage text API, which returns
// plain text with inline [n] verse markers.
type ESVSource struct {
	apiKey  string
	baseURL string
	ttl     time.Duration
	http    *http.Client
	limiter *rate.Limiter
}

// ESVOption configures the ESV source.
type ESVOption func(*ESVSource)

// WithESVBaseURL sets a custom base URL (for testing).
func WithESVBaseURL(u string) ESVOption {
	return func(s *ESVSource) {
		s.baseURL = u
	}
}

// WithESVHTTPClient sets a custom HTTP client.
func WithESVHTTPClient(hc *http.Client) ESVOption {
	return func(s *ESVSource) {
		s.http = hc
	}
}

// NewESV creates an ESV source from config.
func NewESV(cfg config.ESVConfig, opts ...ESVOption) *ESVSource {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	perSec := cfg.RatePerSec
	if perSec <= 0 {
		perSec = 4
	}
	s := &ESVSource{
		apiKey:  cfg.Key,
		baseURL: cfg.BaseURL,
		ttl:     time.Duration(cfg.CacheTTLHours) * time.Hour,
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(perSec), 1),
	}
	if s.baseURL == "" {
		s.baseURL = "https://api.esv.org"
	}
	if s.ttl <= 0 {
		s.ttl = 24 * time.Hour
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements Source.
func (s *ESVSource) Name() string { return "esv" }

// Available implements Source. The ESV API is unusable without a key.
func (s *ESVSource) Available() bool { return s.apiKey != "" }

// TTL implements Source. Licensed text changes rarely, so the cache
// horizon is long.
func (s *ESVSource) TTL() time.Duration { return s.ttl }

// Fetch implements Source.
func (s *ESVSource) Fetch(ctx context.Context, ref ChapterRef) (*model.Chapter, error) {
	if s.apiKey == "" {
		return nil, ErrMissingCredential
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "esv: rate limit")
	}

	params := url.Values{
		"q":                          {fmt.Sprintf("%s %d", ref.Work.Name, ref.Chapter)},
		"include-passage-references": {"false"},
		"include-verse-numbers":      {"true"},
		"include-footnotes":          {"false"},
		"include-headings":           {"false"},
		"indent-paragraphs":          {"0"},
	}

	reqURL := s.baseURL + "/v3/passage/text/?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "esv: build request")
	}
	req.Header.Set("Authorization", "Token "+s.apiKey)
	req.Header.Set("Accept", "application/json")

	body, statusCode, err := retryDo(ctx, s.http, req)
	if err != nil {
		zap.L().Warn("esv request failed",
			zap.String("work", ref.Work.Code),
			zap.Int("chapter", ref.Chapter),
			zap.Error(err),
		)
		return nil, eris.Wrap(ErrUpstreamUnavailable, "esv: request")
	}
	if statusCode != http.StatusOK {
		return nil, eris.Wrapf(ErrUpstreamUnavailable, "esv: status %d", statusCode)
	}

	var envelope esvResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, eris.Wrap(ErrUpstreamUnavailable, "esv: unmarshal response")
	}
	if len(envelope.Passages) == 0 || strings.TrimSpace(envelope.Passages[0]) == "" {
		return nil, eris.Wrap(ErrUpstreamUnavailable, "esv: empty passage")
	}

	verses := parsePassageText(envelope.Passages[0])
	if len(verses) == 0 {
		zap.L().Warn("esv passage produced no verses",
			zap.String("work", ref.Work.Code),
			zap.Int("chapter", ref.Chapter),
		)
		return nil, eris.Wrap(ErrMalformedContent, "esv: no verse markers")
	}

	attribution := esvAttribution
	return &model.Chapter{
		WorkCode:      ref.Work.Code,
		WorkName:      ref.Work.Name,
		ChapterNumber: ref.Chapter,
		EditionCode:   ref.Edition.Code,
		Verses:        verses,
		Attribution:   &attribution,
	}, nil
}

var (
	verseMarkerRe = regexp.MustCompile(`\[(\d+)\]\s*([^\[]*)`)
	blankLineRe   = regexp.MustCompile(`\n[ \t]*\n`)
)

// parsePassageText splits inline-marked plain text into verses grouped by
// paragraph. Blank lines separate paragraph blocks; within a block each
// [n] marker starts a verse running to the next marker. The first
// non-empty verse of each block starts a paragraph. A block with no
// parseable verses is dropped.
func parsePassageText(text string) []model.Verse {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var verses []model.Verse

	for _, block := range blankLineRe.Split(strings.TrimSpace(text), -1) {
		first := true
		for _, m := range verseMarkerRe.FindAllStringSubmatch(block, -1) {
			num, err := strconv.Atoi(m[1])
			if err != nil || num <= 0 {
				continue
			}
			vtext := collapseWhitespace(m[2])
			if vtext == "" {
				continue
			}
			verses = append(verses, model.Verse{
				Number:         num,
				Text:           vtext,
				ParagraphStart: first,
			})
			first = false
		}
	}

	// Upstream order is assumed correct but not guaranteed.
	return model.NormalizeVerses(verses)
}
