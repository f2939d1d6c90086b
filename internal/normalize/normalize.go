// Package normalize coerces raw model output into the guaranteed analysis
// result shape. Normalize never fails: the worst malformed input produces a
// structurally valid default result.
package normalize

import (
	"encoding/json"
	"strconv"
	"strings"

	domain "github.com/bryanwahyu/creditlens/internal/domain/analysis"
)

// Outcome tags which of the three normalization paths produced the result.
type Outcome string

const (
	// OutcomeParsed means the raw output was a valid JSON object.
	OutcomeParsed Outcome = "parsed"
	// OutcomeRecovered means a balanced JSON object was dug out of
	// surrounding prose or code fences.
	OutcomeRecovered Outcome = "recovered"
	// OutcomeFallback means nothing usable was found and a default result
	// was synthesized.
	OutcomeFallback Outcome = "fallback"
)

// FallbackSummary is the summary text of a synthesized default result.
const FallbackSummary = "Analysis data was unavailable for this report. Please retry the analysis or upload a clearer document."

// Normalized pairs the coerced result with the path that produced it.
type Normalized struct {
	Result  *domain.Result
	Outcome Outcome
}

// Normalize converts raw model output into a complete Result. Absent fields
// are filled with type-appropriate empty defaults; a score outside [300,850]
// is treated as null.
func Normalize(raw string) Normalized {
	trimmed := strings.TrimSpace(raw)

	var loose map[string]any
	if err := json.Unmarshal([]byte(trimmed), &loose); err == nil {
		return Normalized{Result: coerce(loose), Outcome: OutcomeParsed}
	}

	if inner, ok := extractObject(trimmed); ok {
		if err := json.Unmarshal([]byte(inner), &loose); err == nil {
			return Normalized{Result: coerce(loose), Outcome: OutcomeRecovered}
		}
	}

	fallback := domain.EmptyResult()
	fallback.Overview.Summary = FallbackSummary
	return Normalized{Result: fallback, Outcome: OutcomeFallback}
}

// extractObject returns the first balanced top-level JSON object substring,
// skipping braces inside string literals.
func extractObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

func coerce(m map[string]any) *domain.Result {
	out := domain.EmptyResult()

	if ov, ok := m["overview"].(map[string]any); ok {
		out.Overview.Score = coerceScore(ov["score"])
		out.Overview.Summary = str(ov["summary"])
		out.Overview.Positives = strSlice(ov["positives"])
		out.Overview.Negatives = strSlice(ov["negatives"])
	}

	for _, item := range objSlice(m["disputes"]) {
		out.Disputes = append(out.Disputes, domain.Dispute{
			Bureau:            str(item["bureau"]),
			AccountName:       str(item["accountName"]),
			AccountNumber:     str(item["accountNumber"]),
			IssueType:         str(item["issueType"]),
			RecommendedAction: str(item["recommendedAction"]),
		})
	}

	for _, item := range objSlice(m["creditHacks"]) {
		out.CreditHacks = append(out.CreditHacks, domain.CreditHack{
			Title:       str(item["title"]),
			Description: str(item["description"]),
			Impact:      str(item["impact"]),
			Timeframe:   str(item["timeframe"]),
		})
	}

	for _, item := range objSlice(m["creditCards"]) {
		out.CreditCards = append(out.CreditCards, domain.CreditCard{
			Name:         str(item["name"]),
			Issuer:       str(item["issuer"]),
			ApprovalOdds: str(item["approvalOdds"]),
			Reason:       str(item["reason"]),
		})
	}

	for _, item := range objSlice(m["sideHustles"]) {
		out.SideHustles = append(out.SideHustles, domain.SideHustle{
			Title:            str(item["title"]),
			Description:      str(item["description"]),
			EarningPotential: str(item["earningPotential"]),
		})
	}

	return out
}

// coerceScore accepts numbers and numeric strings; anything outside the
// inclusive [300,850] range is null.
func coerceScore(v any) *int {
	var score int
	switch n := v.(type) {
	case float64:
		score = int(n)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return nil
		}
		score = parsed
	default:
		return nil
	}
	if !domain.ValidScore(score) {
		return nil
	}
	return &score
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func strSlice(v any) []string {
	out := []string{}
	items, ok := v.([]any)
	if !ok {
		return out
	}
	for _, item := range items {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

func objSlice(v any) []map[string]any {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []map[string]any
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}
