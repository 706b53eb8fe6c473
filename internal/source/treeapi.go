package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/scriptura/internal/config"
	"github.com/sells-group/scriptura/internal/model"
)

// treeResponse is the JSON envelope from the aggregator chapter endpoint.
type treeResponse struct {
	Data struct {
		ID        string        `json:"id"`
		Copyright string        `json:"copyright"`
		Content   []contentNode `json:"content"`
	} `json:"data"`
}

// contentNode is one node of the recursive content tree. Paragraph
// containers are named "para", verse nodes "verse" with a number
// attribute; anything else is an opaque container or plain text.
type contentNode struct {
	Name  string            `json:"name"`
	Type  string            `json:"type"`
	Attrs map[string]string `json:"attrs"`
	Items []contentNode     `json:"items"`
	Text  string            `json:"text"`
}

func (n contentNode) isText() bool { return n.Type == "text" }

func (n contentNode) isParagraph() bool { return n.Name == "para" }

func (n contentNode) isVerse() bool {
	return n.Name == "verse" && n.Attrs["number"] != ""
}

func (n contentNode) verseNumber() int {
	num, err := strconv.Atoi(n.Attrs["number"])
	if err != nil {
		return 0
	}
	return num
}

// TreeSource fetches chapters from a multi-edition aggregator that
// returns a nested JSON content tree.
type TreeSource struct {
	apiKey  string
	baseURL string
	ttl     time.Duration
	http    *http.Client
	limiter *rate.Limiter
}

// TreeOption configures the tree source.
type TreeOption func(*TreeSource)

// WithTreeBaseURL sets a custom base URL (for testing).
func WithTreeBaseURL(u string) TreeOption {
	return func(s *TreeSource) {
		s.baseURL = u
	}
}

// WithTreeHTTPClient sets a custom HTTP client.
func WithTreeHTTPClient(hc *http.Client) TreeOption {
	return func(s *TreeSource) {
		s.http = hc
	}
}

// NewTree creates a tree API source from config.
func NewTree(cfg config.BibleAPIConfig, opts ...TreeOption) *TreeSource {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	perSec := cfg.RatePerSec
	if perSec <= 0 {
		perSec = 2
	}
	s := &TreeSource{
		apiKey:  cfg.Key,
		baseURL: cfg.BaseURL,
		ttl:     time.Duration(cfg.CacheTTLMins) * time.Minute,
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
		s.baseURL = "https://api.scripture.api.bible"
	}
	if s.ttl <= 0 {
		s.ttl = time.Hour
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements Source.
func (s *TreeSource) Name() string { return "tree" }

// Available implements Source.
func (s *TreeSource) Available() bool { return s.apiKey != "" }

// TTL implements Source. The aggregator rate-limits aggressively and
// revises text, so the cache horizon is short.
func (s *TreeSource) TTL() time.Duration { return s.ttl }

// Fetch implements Source.
func (s *TreeSource) Fetch(ctx context.Context, ref ChapterRef) (*model.Chapter, error) {
	if s.apiKey == "" {
		return nil, ErrMissingCredential
	}
	if ref.Edition.SourceID == "" {
		return nil, eris.Wrapf(ErrUpstreamUnavailable, "tree: edition %s has no aggregator id", ref.Edition.Code)
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "tree: rate limit")
	}

	chapterID := fmt.Sprintf("%s.%d", ref.Work.Code, ref.Chapter)
	params := url.Values{
		"content-type":            {"json"},
		"include-verse-numbers":   {"true"},
		"include-notes":           {"false"},
		"include-titles":          {"false"},
		"include-chapter-numbers": {"false"},
	}

	reqURL := fmt.Sprintf("%s/v1/bibles/%s/chapters/%s?%s",
		s.baseURL, ref.Edition.SourceID, chapterID, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "tree: build request")
	}
	req.Header.Set("api-key", s.apiKey)
	req.Header.Set("Accept", "application/json")

	body, statusCode, err := retryDo(ctx, s.http, req)
	if err != nil {
		zap.L().Warn("tree request failed",
			zap.String("chapter_id", chapterID),
			zap.String("edition", ref.Edition.Code),
			zap.Error(err),
		)
		return nil, eris.Wrap(ErrUpstreamUnavailable, "tree: request")
	}
	if statusCode != http.StatusOK {
		return nil, eris.Wrapf(ErrUpstreamUnavailable, "tree: status %d", statusCode)
	}

	var envelope treeResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, eris.Wrap(ErrUpstreamUnavailable, "tree: unmarshal response")
	}
	if len(envelope.Data.Content) == 0 {
		return nil, eris.Wrap(ErrUpstreamUnavailable, "tree: missing content tree")
	}

	verses, _ := collectVerses(envelope.Data.Content, true)
	verses = model.NormalizeVerses(verses)
	if len(verses) == 0 {
		zap.L().Warn("tree content produced no verses",
			zap.String("chapter_id", chapterID),
			zap.String("edition", ref.Edition.Code),
		)
		return nil, eris.Wrap(ErrMalformedContent, "tree: no verses in content")
	}

	chapter := &model.Chapter{
		WorkCode:      ref.Work.Code,
		WorkName:      ref.Work.Name,
		ChapterNumber: ref.Chapter,
		EditionCode:   ref.Edition.Code,
		Verses:        verses,
	}
	if ref.Edition.RequiresAttribution {
		attribution := strings.TrimSpace(envelope.Data.Copyright)
		if attribution == "" {
			attribution = fmt.Sprintf("Text provided under license from the publisher of the %s.", ref.Edition.DisplayName)
		}
		chapter.Attribution = &attribution
	}
	return chapter, nil
}

// collectVerses walks the content tree depth-first. The pending flag
// marks that the next verse yielding text starts a new paragraph; it is
// passed in and returned by value rather than shared, so sibling order
// cannot corrupt it. A paragraph container arms the flag for its own
// subtree only; an unconsumed boundary does not leak to later siblings.
// Opaque containers inherit and propagate the current flag unchanged.
func collectVerses(nodes []contentNode, pending bool) ([]model.Verse, bool) {
	var verses []model.Verse
	for _, n := range nodes {
		switch {
		case n.isVerse():
			num := n.verseNumber()
			text := collapseWhitespace(textBeneath(n))
			// Number 0 and empty verses are non-content artifacts.
			if num <= 0 || text == "" {
				continue
			}
			verses = append(verses, model.Verse{
				Number:         num,
				Text:           text,
				ParagraphStart: pending,
			})
			pending = false
		case n.isParagraph():
			sub, _ := collectVerses(n.Items, true)
			verses = append(verses, sub...)
		default:
			var sub []model.Verse
			sub, pending = collectVerses(n.Items, pending)
			verses = append(verses, sub...)
		}
	}
	return verses, pending
}

// textBeneath concatenates all text found anywhere beneath a node.
func textBeneath(n contentNode) string {
	if n.isText() {
		return n.Text
	}
	var b strings.Builder
	for _, child := range n.Items {
		b.WriteString(textBeneath(child))
		b.WriteString(" ")
	}
	return b.String()
}
