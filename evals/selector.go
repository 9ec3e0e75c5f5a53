package evals

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/pagerduty-mcp/pagerduty-mcp-server/tools"
)

// pagerDutyID matches PagerDuty object IDs such as PABC123
var pagerDutyID = regexp.MustCompile(`\bP[A-Z0-9]{6}\b`)

// KeywordSelector is a deterministic baseline. It picks the tool whose
// USE WHEN examples share the most words with the request, and pulls
// PagerDuty IDs out of the request as arguments. An LLM should beat it.
type KeywordSelector struct {
	specs    []tools.ToolSpec
	keywords []map[string]bool
}

// NewKeywordSelector indexes the USE WHEN section of each spec
func NewKeywordSelector(specs []tools.ToolSpec) *KeywordSelector {
	s := &KeywordSelector{specs: specs}
	for _, spec := range specs {
		words := map[string]bool{}
		for _, w := range tokenize(useWhen(spec.Description)) {
			words[w] = true
		}
		s.keywords = append(s.keywords, words)
	}
	return s
}

// SelectTool implements ToolSelector. Ties go to the earlier spec.
func (s *KeywordSelector) SelectTool(input string) (string, map[string]any, error) {
	words := map[string]bool{}
	for _, w := range tokenize(input) {
		words[w] = true
	}

	best, bestScore := -1, 0
	for i, keywords := range s.keywords {
		score := 0
		for w := range words {
			if keywords[w] {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return "", nil, nil
	}

	spec := s.specs[best]
	return spec.Name, extractArgs(spec.Method, input), nil
}

func extractArgs(method, input string) map[string]any {
	ids := pagerDutyID.FindAllString(input, -1)
	args := map[string]any{}

	switch method {
	case "ShowService":
		if len(ids) > 0 {
			args["service_id"] = ids[0]
		}
	case "ListServices":
		if len(ids) > 0 {
			teamIDs := make([]any, len(ids))
			for i, id := range ids {
				teamIDs[i] = id
			}
			args["team_ids"] = teamIDs
			args["current_user_context"] = false
		}
	}
	return args
}

// useWhen returns the USE WHEN paragraph of a tool description
func useWhen(description string) string {
	_, rest, ok := strings.Cut(description, "USE WHEN:")
	if !ok {
		return description
	}
	section, _, _ := strings.Cut(rest, "\n")
	return section
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
