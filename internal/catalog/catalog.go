// Package catalog is the static edition and work registry. It is loaded
// once at process start and read-only thereafter; every lookup is
// case-insensitive on the code.
package catalog

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Strategy identifies how an edition's text is acquired.
type Strategy string

const (
	StrategyLocal   Strategy = "local"
	StrategyESV     Strategy = "esv_api"
	StrategyTreeAPI Strategy = "tree_api"
)

// AccessTier gates which subscription level may read an edition.
type AccessTier string

const (
	TierFree     AccessTier = "free"
	TierStandard AccessTier = "standard"
	TierPremium  AccessTier = "premium"
)

// Edition describes one supported translation.
type Edition struct {
	Code                string     `json:"code"`
	DisplayName         string     `json:"display_name"`
	Abbreviation        string     `json:"abbreviation"`
	Tier                AccessTier `json:"access_tier"`
	Strategy            Strategy   `json:"strategy"`
	Language            string     `json:"language"`
	RequiresAttribution bool       `json:"requires_attribution"`
	// SourceID is the aggregator's identifier for this edition.
	// Empty for editions not served by the tree API.
	SourceID string `json:"-"`
}

var editions = []Edition{
	{Code: "KJV", DisplayName: "King James Version", Abbreviation: "KJV", Tier: TierFree, Strategy: StrategyLocal, Language: "en"},
	{Code: "WEB", DisplayName: "World English Bible", Abbreviation: "WEB", Tier: TierFree, Strategy: StrategyLocal, Language: "en"},
	{Code: "ESV", DisplayName: "English Standard Version", Abbreviation: "ESV", Tier: TierStandard, Strategy: StrategyESV, Language: "en", RequiresAttribution: true},
	{Code: "ASV", DisplayName: "American Standard Version", Abbreviation: "ASV", Tier: TierFree, Strategy: StrategyTreeAPI, Language: "en", SourceID: "06125adad2d5898a-01"},
	{Code: "BSB", DisplayName: "Berean Standard Bible", Abbreviation: "BSB", Tier: TierStandard, Strategy: StrategyTreeAPI, Language: "en", SourceID: "bba9f40183526463-01"},
	{Code: "DRA", DisplayName: "Douay-Rheims American 1899", Abbreviation: "DRA", Tier: TierPremium, Strategy: StrategyTreeAPI, Language: "en", SourceID: "179568874c45066f-01"},
}

var editionsByCode = func() map[string]Edition {
	m := make(map[string]Edition, len(editions))
	for _, e := range editions {
		m[strings.ToUpper(e.Code)] = e
	}
	return m
}()

// LanguageName returns the English display name of the edition's
// language tag, falling back to the raw tag if it does not parse.
func (e Edition) LanguageName() string {
	tag, err := language.Parse(e.Language)
	if err != nil {
		return e.Language
	}
	return display.English.Tags().Name(tag)
}

// Lookup returns the edition for the given code, case-insensitively.
func Lookup(code string) (Edition, bool) {
	e, ok := editionsByCode[strings.ToUpper(strings.TrimSpace(code))]
	return e, ok
}

// Editions returns all supported editions in declaration order.
func Editions() []Edition {
	out := make([]Edition, len(editions))
	copy(out, editions)
	return out
}
