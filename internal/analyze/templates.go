package analyze

import (
	"path"
	"sort"
	"strings"

	"github.com/lei/actions-gateway/internal/models"
)

// Suggester scores candidate PR templates against a changed-file set using
// an ordered rule table. It is stateless given its rules.
type Suggester struct {
	rules            []models.TemplateRule
	aliases          map[string]string
	fallbackTemplate string
}

// NewSuggester creates a suggester over a rule table and a change-type alias
// map. fallback is the template returned when a change type has no alias.
func NewSuggester(rules []models.TemplateRule, aliases map[string]string, fallback string) *Suggester {
	return &Suggester{rules: rules, aliases: aliases, fallbackTemplate: fallback}
}

// Suggest scores templates against the changed files. Each rule matching at
// least one file votes once with its priority; a template's score is the sum
// of votes across its distinct matching rules, so matching more concerns
// raises confidence without double-counting files under one rule. Results
// are ordered by descending score, ties broken by rule declaration order.
// No matching rule yields an empty slice; the caller decides any fallback.
func (s *Suggester) Suggest(changedFiles []string) []models.TemplateScore {
	scores := make(map[string]int)
	firstRule := make(map[string]int)

	for i, rule := range s.rules {
		if !matchesAny(rule.Pattern, changedFiles) {
			continue
		}
		scores[rule.Template] += rule.Priority
		if _, seen := firstRule[rule.Template]; !seen {
			firstRule[rule.Template] = i
		}
	}

	out := make([]models.TemplateScore, 0, len(scores))
	for tmpl, score := range scores {
		out = append(out, models.TemplateScore{Template: tmpl, Score: score})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return firstRule[out[i].Template] < firstRule[out[j].Template]
	})
	return out
}

// SuggestByType resolves a caller-identified change type (bug, feature,
// docs, ...) through the alias map, falling back to the default template for
// unknown types.
func (s *Suggester) SuggestByType(changeType string) string {
	if tmpl, ok := s.aliases[strings.ToLower(strings.TrimSpace(changeType))]; ok {
		return tmpl
	}
	return s.fallbackTemplate
}

// matchesAny reports whether the pattern matches at least one changed file.
// Patterns match as path globs against the full path and the base name
// (path.Match semantics, so "*" never crosses a separator), or as a
// directory prefix when they end in "/".
func matchesAny(pattern string, files []string) bool {
	for _, f := range files {
		if matchesFile(pattern, f) {
			return true
		}
	}
	return false
}

func matchesFile(pattern, file string) bool {
	if strings.HasSuffix(pattern, "/") {
		return strings.HasPrefix(file, pattern)
	}
	if ok, err := path.Match(pattern, file); err == nil && ok {
		return true
	}
	if ok, err := path.Match(pattern, path.Base(file)); err == nil && ok {
		return true
	}
	return false
}
