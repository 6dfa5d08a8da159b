package extract

import (
	"regexp"
	"strconv"
	"strings"

	"dealscout/internal/model"
)

// Extractor pulls structured fragments out of free-text utterances. All
// methods are pure: a miss returns nil/empty, never an error, because the
// absence of information in an utterance is a normal outcome.
type Extractor struct {
	// knownCities maps lowercase city names (and aliases) to their
	// canonical "City, ST" form. Supplied by the geography lookup; the
	// extractor does not maintain its own gazetteer.
	knownCities map[string]model.Location
}

// New creates an extractor. knownCities is the allow-list used for the
// last-resort city name match; keys are matched case-insensitively.
func New(knownCities map[string]model.Location) *Extractor {
	lowered := make(map[string]model.Location, len(knownCities))
	for name, loc := range knownCities {
		lowered[strings.ToLower(name)] = loc
	}
	return &Extractor{knownCities: lowered}
}

var (
	zipPattern         = regexp.MustCompile(`(^|\D)(\d{5})(\D|$)`)
	stateSuffixPattern = regexp.MustCompile(`,\s*([A-Za-z]{2})\b`)
)

// stateCodes is the USPS two-letter state/district allow-list used to
// reject "word, xx" noise that is not a location.
var stateCodes = map[string]bool{
	"AL": true, "AK": true, "AZ": true, "AR": true, "CA": true, "CO": true,
	"CT": true, "DE": true, "DC": true, "FL": true, "GA": true, "HI": true,
	"ID": true, "IL": true, "IN": true, "IA": true, "KS": true, "KY": true,
	"LA": true, "ME": true, "MD": true, "MA": true, "MI": true, "MN": true,
	"MS": true, "MO": true, "MT": true, "NE": true, "NV": true, "NH": true,
	"NJ": true, "NM": true, "NY": true, "NC": true, "ND": true, "OH": true,
	"OK": true, "OR": true, "PA": true, "RI": true, "SC": true, "SD": true,
	"TN": true, "TX": true, "UT": true, "VT": true, "VA": true, "WA": true,
	"WV": true, "WI": true, "WY": true,
}

// Location resolves a search area from an utterance. Priority order: a
// 5-digit ZIP token, then a "City, ST" pattern, then a known city name.
// The first rule that matches wins; later rules are not attempted.
func (e *Extractor) Location(text string) *model.Location {
	if m := zipPattern.FindStringSubmatch(text); m != nil {
		return &model.Location{Zip: m[2]}
	}

	if loc := matchCityState(text); loc != nil {
		return loc
	}

	lower := strings.ToLower(text)
	for name, loc := range e.knownCities {
		if containsWord(lower, name) {
			found := loc
			return &found
		}
	}

	return nil
}

// matchCityState finds "City, ST" by locating the state suffix and walking
// backwards over the words in front of the comma. Capitalized words are
// collected ("in New Orleans, LA" -> "New Orleans"); for all-lowercase
// input only the word just before the comma is taken.
func matchCityState(text string) *model.Location {
	for _, loc := range stateSuffixPattern.FindAllStringSubmatchIndex(text, -1) {
		state := strings.ToUpper(text[loc[2]:loc[3]])
		if !stateCodes[state] {
			continue
		}
		words := strings.Fields(text[:loc[0]])
		if len(words) == 0 {
			continue
		}

		var cityWords []string
		for i := len(words) - 1; i >= 0; i-- {
			w := strings.Trim(words[i], ".,!?")
			if w == "" || !isCityWord(w) {
				break
			}
			first := w[0]
			if first >= 'A' && first <= 'Z' {
				cityWords = append([]string{w}, cityWords...)
				continue
			}
			// lowercase word: accept exactly one, directly before the comma
			if len(cityWords) == 0 {
				cityWords = []string{w}
			}
			break
		}
		if len(cityWords) == 0 {
			continue
		}
		return &model.Location{
			City:  canonicalCase(strings.Join(cityWords, " ")),
			State: state,
		}
	}
	return nil
}

func isCityWord(w string) bool {
	for _, r := range w {
		if !(r == '\'' || r == '-' || r == '.' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')) {
			return false
		}
	}
	return true
}

// containsWord reports whether name occurs in text on word boundaries,
// so "Reno" does not match inside "renovate".
func containsWord(text, name string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], name)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(name)
		beforeOK := start == 0 || !isWordByte(text[start-1])
		afterOK := end == len(text) || !isWordByte(text[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// canonicalCase title-cases a city name ("new york" -> "New York")
func canonicalCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// amountPattern matches currency-formatted numbers: $450,000, 450000,
// 450k, 1.2m. The suffix multiplies the base value.
var amountPattern = regexp.MustCompile(`\$?(\d{1,3}(?:,\d{3})+|\d+(?:\.\d+)?)\s*([kKmM])?\b`)

var (
	betweenPattern = regexp.MustCompile(`(?i)(?:between|from)\s+\$?([\d,.]+\s*[kKmM]?)\s+(?:and|to)\s+\$?([\d,.]+\s*[kKmM]?)`)
	rangePattern   = regexp.MustCompile(`(?i)\$?([\d,]+(?:\.\d+)?\s*[kKmM]?)\s*(?:-|to)\s*\$?([\d,]+(?:\.\d+)?\s*[kKmM]?)`)

	maxVocab = []string{"under", "up to", "less than", "below", "at most", "no more than", "max"}
	minVocab = []string{"at least", "over", "above", "more than", "starting at", "minimum", "min"}
)

// Budget extracts a price range from an utterance. A single bound is
// treated as Max when preceded by "under"-type vocabulary, else as Min.
// Amounts under 10,000 are ignored so bedroom counts and years never read
// as prices.
func (e *Extractor) Budget(text string) *model.Range {
	if m := betweenPattern.FindStringSubmatch(text); m != nil {
		lo, okLo := parseAmount(m[1])
		hi, okHi := parseAmount(m[2])
		if okLo && okHi && lo >= minBudgetAmount && hi >= minBudgetAmount {
			if lo > hi {
				lo, hi = hi, lo
			}
			return &model.Range{Min: &lo, Max: &hi}
		}
	}

	if m := rangePattern.FindStringSubmatch(text); m != nil {
		lo, okLo := parseAmount(m[1])
		hi, okHi := parseAmount(m[2])
		if okLo && okHi && lo >= minBudgetAmount && hi >= minBudgetAmount {
			if lo > hi {
				lo, hi = hi, lo
			}
			return &model.Range{Min: &lo, Max: &hi}
		}
	}

	lower := strings.ToLower(text)
	for _, loc := range amountPattern.FindAllStringSubmatchIndex(text, -1) {
		raw := text[loc[2]:loc[3]]
		suffix := ""
		if loc[4] >= 0 {
			suffix = text[loc[4]:loc[5]]
		}
		amount, ok := parseAmount(raw + suffix)
		if !ok || amount < minBudgetAmount {
			continue
		}
		prefix := lower[:loc[0]]
		if hasTrailingVocab(prefix, maxVocab) {
			return &model.Range{Max: &amount}
		}
		if hasTrailingVocab(prefix, minVocab) {
			return &model.Range{Min: &amount}
		}
		return &model.Range{Min: &amount}
	}

	return nil
}

// minBudgetAmount filters out small numbers that are clearly not prices
const minBudgetAmount = 10000

// hasTrailingVocab reports whether any phrase appears near the end of
// prefix (within a few words of the amount).
func hasTrailingVocab(prefix string, vocab []string) bool {
	tail := prefix
	if len(tail) > 24 {
		tail = tail[len(tail)-24:]
	}
	for _, v := range vocab {
		if strings.Contains(tail, v) {
			return true
		}
	}
	return false
}

// parseAmount converts "450,000", "450k", "1.2m" to a float value
func parseAmount(s string) (float64, bool) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "$"))
	multiplier := 1.0
	switch {
	case strings.HasSuffix(strings.ToLower(s), "k"):
		multiplier = 1000
		s = s[:len(s)-1]
	case strings.HasSuffix(strings.ToLower(s), "m"):
		multiplier = 1000000
		s = s[:len(s)-1]
	}
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v * multiplier, true
}

// propertyTypeVocab maps keyword phrases to category tags. Longer phrases
// are listed before their substrings where it matters. Bare "house"/"home"
// intentionally map to nothing: an explicit category word is required.
var propertyTypeVocab = []struct {
	keyword string
	tag     model.PropertyType
}{
	{"primary residence", model.TypePrimaryResidence},
	{"first home", model.TypePrimaryResidence},
	{"live in", model.TypePrimaryResidence},
	{"forever home", model.TypePrimaryResidence},
	{"move in", model.TypePrimaryResidence},
	{"fix and flip", model.TypeFixFlip},
	{"fix-and-flip", model.TypeFixFlip},
	{"fixer", model.TypeFixFlip},
	{"flip", model.TypeFixFlip},
	{"renovate", model.TypeFixFlip},
	{"rental", model.TypeRental},
	{"rent out", model.TypeRental},
	{"rent it out", model.TypeRental},
	{"cash flow", model.TypeRental},
	{"tenant", model.TypeRental},
	{"multi-family", model.TypeMultiFamily},
	{"multifamily", model.TypeMultiFamily},
	{"multi family", model.TypeMultiFamily},
	{"duplex", model.TypeMultiFamily},
	{"triplex", model.TypeMultiFamily},
	{"fourplex", model.TypeMultiFamily},
	{"apartment building", model.TypeMultiFamily},
	{"quick deal", model.TypeQuickDeal},
	{"quick deals", model.TypeQuickDeal},
	{"wholesale", model.TypeQuickDeal},
	{"wholesaling", model.TypeQuickDeal},
}

// PropertyTypes extracts every category tag mentioned in the utterance.
// Categories are not mutually exclusive; all matches apply.
func (e *Extractor) PropertyTypes(text string) []model.PropertyType {
	lower := strings.ToLower(text)
	var tags []model.PropertyType
	seen := map[model.PropertyType]bool{}
	for _, entry := range propertyTypeVocab {
		if strings.Contains(lower, entry.keyword) && !seen[entry.tag] {
			seen[entry.tag] = true
			tags = append(tags, entry.tag)
		}
	}
	return tags
}

var (
	bedPattern  = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:\+\s*)?(?:bed(?:room)?s?|br\b)`)
	bathPattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:\+\s*)?(?:bath(?:room)?s?|ba\b)`)
	sqftPattern = regexp.MustCompile(`(?i)([\d,]+)\s*(?:\+\s*)?(?:sq\.?\s*ft|sqft|square\s*feet|square\s*foot)`)
)

// Specs extracts bedroom/bathroom/square-footage requirements. A bare
// count ("3 bed") pins both bounds; "at least"/"+" keeps only the minimum
// and "up to" only the maximum.
func (e *Extractor) Specs(text string) *model.Specs {
	specs := &model.Specs{}
	lower := strings.ToLower(text)

	if r := matchSpecRange(lower, bedPattern); r != nil {
		specs.Bedrooms = r
	}
	if r := matchSpecRange(lower, bathPattern); r != nil {
		specs.Bathrooms = r
	}
	if r := matchSpecRange(lower, sqftPattern); r != nil {
		specs.SquareFeet = r
	}

	if specs.IsZero() {
		return nil
	}
	return specs
}

func matchSpecRange(lower string, pattern *regexp.Regexp) *model.Range {
	loc := pattern.FindStringSubmatchIndex(lower)
	if loc == nil {
		return nil
	}
	raw := strings.ReplaceAll(lower[loc[2]:loc[3]], ",", "")
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 {
		return nil
	}

	prefix := lower[:loc[0]]
	matched := lower[loc[0]:loc[1]]
	switch {
	case hasTrailingVocab(prefix, minVocab) || strings.Contains(matched, "+"):
		return &model.Range{Min: &v}
	case hasTrailingVocab(prefix, maxVocab):
		return &model.Range{Max: &v}
	default:
		exact := v
		return &model.Range{Min: &v, Max: &exact}
	}
}

var strategyVocab = []struct {
	keyword  string
	strategy model.InvestmentStrategy
}{
	{"buy and hold", model.StrategyBuyAndHold},
	{"buy-and-hold", model.StrategyBuyAndHold},
	{"hold long term", model.StrategyBuyAndHold},
	{"passive income", model.StrategyBuyAndHold},
	{"fix and flip", model.StrategyFixAndFlip},
	{"fix-and-flip", model.StrategyFixAndFlip},
	{"flip", model.StrategyFixAndFlip},
	{"brrrr", model.StrategyBRRRR},
	{"refinance", model.StrategyBRRRR},
	{"wholesale", model.StrategyWholesale},
	{"wholesaling", model.StrategyWholesale},
	{"assignment", model.StrategyWholesale},
}

// Strategies extracts investing-approach tags; multiple matches all apply
func (e *Extractor) Strategies(text string) []model.InvestmentStrategy {
	lower := strings.ToLower(text)
	var out []model.InvestmentStrategy
	seen := map[model.InvestmentStrategy]bool{}
	for _, entry := range strategyVocab {
		if strings.Contains(lower, entry.keyword) && !seen[entry.strategy] {
			seen[entry.strategy] = true
			out = append(out, entry.strategy)
		}
	}
	return out
}

// Timeline extracts a purchase-horizon bucket, or "" on a miss
func (e *Extractor) Timeline(text string) model.Timeline {
	lower := strings.ToLower(text)
	switch {
	case containsAny(lower, "asap", "right away", "immediately", "this month", "next month", "as soon as"):
		return model.TimelineImmediate
	case containsAny(lower, "3 month", "three month", "few month", "this quarter", "couple of month", "couple month"):
		return model.TimelineQuarter
	case containsAny(lower, "6 month", "six month", "half a year", "end of the year", "this year"):
		return model.TimelineHalfYear
	case containsAny(lower, "next year", "no rush", "year or", "eventually", "not sure when", "someday"):
		return model.TimelineLongerTerm
	}
	return ""
}

var (
	investorKeywords = []string{
		"investment", "roi", "cash flow", "rental", "flip", "brrrr", "portfolio",
		"cap rate", "investor", "investing", "appreciation", "leverage",
		"wholesale", "noi", "yield",
	}
	realtorKeywords = []string{
		"realtor", "agent", "listing", "mls", "client", "commission",
		"comparable", "comp", "brokerage", "licensed", "referral",
	}
	homebuyerKeywords = []string{
		"first home", "homebuyer", "home buyer", "buying my first", "moving",
		"family", "neighborhood", "schools", "mortgage", "down payment",
		"primary residence",
	}
)

// UserType scores an utterance against per-audience keyword lists and
// returns the highest-scoring classification, or unknown on a tie at zero.
func (e *Extractor) UserType(text string) model.UserType {
	lower := strings.ToLower(text)
	investor := countMatches(lower, investorKeywords)
	realtor := countMatches(lower, realtorKeywords)
	homebuyer := countMatches(lower, homebuyerKeywords)

	switch {
	case investor > realtor && investor > homebuyer:
		return model.UserInvestor
	case realtor > homebuyer && realtor > 0:
		return model.UserRealtor
	case homebuyer > 0:
		return model.UserHomebuyer
	}
	return model.UserUnknown
}

func countMatches(text string, keywords []string) int {
	n := 0
	for _, k := range keywords {
		if strings.Contains(text, k) {
			n++
		}
	}
	return n
}

func containsAny(text string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}
