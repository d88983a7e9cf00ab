package align

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// Matcher decides whether a candidate response plausibly answers a question.
// It is the pluggable mismatch heuristic of the alignment engine: returning
// false triggers the lookahead-1 correction.
type Matcher interface {
	Matches(question, response string) bool
}

// keywordRule flags a mismatch when the question contains QuestionKey but the
// response does not contain ResponseKey. Both sides are compared lower-cased.
type keywordRule struct {
	QuestionKey string
	ResponseKey string
}

// defaultRules are the observed misalignment signatures: a "what is your
// name" question answered without a name-shaped response, and a motivation
// question answered without any "motivat..." stem.
var defaultRules = []keywordRule{
	{QuestionKey: "name", ResponseKey: "name"},
	{QuestionKey: "motivated", ResponseKey: "motivat"},
}

// KeywordMatcher is the default Matcher: a small set of substring rules.
// It is deliberately approximate — the rules catch the common one-step
// capture misalignments, not arbitrary topic drift.
type KeywordMatcher struct {
	rules []keywordRule
}

var _ Matcher = (*KeywordMatcher)(nil)

// NewKeywordMatcher creates a matcher with the default rule set.
func NewKeywordMatcher() *KeywordMatcher {
	return &KeywordMatcher{rules: defaultRules}
}

// Matches implements Matcher.
func (m *KeywordMatcher) Matches(question, response string) bool {
	q := strings.ToLower(question)
	r := strings.ToLower(response)
	for _, rule := range m.rules {
		if strings.Contains(q, rule.QuestionKey) && !strings.Contains(r, rule.ResponseKey) {
			return false
		}
	}
	return true
}

// defaultFuzzyThreshold is the Jaro-Winkler similarity at or above which a
// response token counts as carrying a rule's keyword.
const defaultFuzzyThreshold = 0.84

// FuzzyMatcher applies the same rules as KeywordMatcher but compares the
// response tokens to the rule keyword by Jaro-Winkler similarity, so
// recognition artifacts ("motyvation", "naem") still count as on-topic.
type FuzzyMatcher struct {
	rules     []keywordRule
	threshold float64
}

var _ Matcher = (*FuzzyMatcher)(nil)

// NewFuzzyMatcher creates a fuzzy matcher with the default rule set and
// threshold. threshold <= 0 selects the default.
func NewFuzzyMatcher(threshold float64) *FuzzyMatcher {
	if threshold <= 0 {
		threshold = defaultFuzzyThreshold
	}
	return &FuzzyMatcher{rules: defaultRules, threshold: threshold}
}

// Matches implements Matcher.
func (m *FuzzyMatcher) Matches(question, response string) bool {
	q := strings.ToLower(question)
	tokens := strings.Fields(strings.ToLower(response))
	for _, rule := range m.rules {
		if !strings.Contains(q, rule.QuestionKey) {
			continue
		}
		if !m.anyTokenMatches(tokens, rule.ResponseKey) {
			return false
		}
	}
	return true
}

func (m *FuzzyMatcher) anyTokenMatches(tokens []string, keyword string) bool {
	for _, tok := range tokens {
		if strings.Contains(tok, keyword) {
			return true
		}
		if matchr.JaroWinkler(tok, keyword, false) >= m.threshold {
			return true
		}
	}
	return false
}
