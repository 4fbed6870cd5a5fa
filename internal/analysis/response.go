package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/garyjia/tax-document-analyzer/internal/models"
)

// Degraded result texts, used when a provider answer does not match the expected schema
const (
	degradedSummary        = "Analisi completata con formato di risposta non standard"
	degradedConfidence     = 0.5
	degradedRecommendation = "Verifica manuale consigliata"
)

var (
	errNoJSON = errors.New("no JSON object found in response")

	fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")
)

// parseResponse turns raw provider text into an analysis result.
// Required keys are summary, confidence and recommendations.
func parseResponse(raw string) (*models.AnalysisResult, error) {
	var lastErr error = errNoJSON
	for _, candidate := range jsonCandidates(raw) {
		var fields map[string]interface{}
		if err := json.Unmarshal([]byte(candidate), &fields); err != nil {
			lastErr = fmt.Errorf("invalid JSON: %w", err)
			continue
		}
		return resultFromFields(fields)
	}
	return nil, lastErr
}

// jsonCandidates lists substrings that may hold the answer, most specific first:
// a fenced json block, a brace-balanced object, then first '{' to last '}'
func jsonCandidates(raw string) []string {
	var out []string
	if m := fencedJSON.FindStringSubmatch(raw); m != nil {
		out = append(out, m[1])
	}
	if balanced := extractJSON(raw); balanced != "" {
		out = append(out, balanced)
	}
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start >= 0 && end > start {
		out = append(out, raw[start:end+1])
	}
	return out
}

func resultFromFields(fields map[string]interface{}) (*models.AnalysisResult, error) {
	for _, key := range []string{"summary", "confidence", "recommendations"} {
		if v, ok := fields[key]; !ok || v == nil {
			return nil, fmt.Errorf("missing required field %q", key)
		}
	}

	summary, ok := fields["summary"].(string)
	if !ok {
		return nil, fmt.Errorf("summary is %T, want string", fields["summary"])
	}

	confidence, err := toFloat(fields["confidence"])
	if err != nil {
		return nil, err
	}

	recommendations, err := toStrings(fields["recommendations"])
	if err != nil {
		return nil, fmt.Errorf("recommendations: %w", err)
	}
	risks, err := toStrings(fields["risks"])
	if err != nil {
		return nil, fmt.Errorf("risks: %w", err)
	}
	optimizations, err := toStrings(fields["optimizations"])
	if err != nil {
		return nil, fmt.Errorf("optimizations: %w", err)
	}

	return &models.AnalysisResult{
		Summary:         summary,
		Confidence:      clamp01(confidence),
		Recommendations: recommendations,
		Risks:           risks,
		Optimizations:   optimizations,
	}, nil
}

// degradedResult is returned when the provider answered but the answer could not be used
func degradedResult(parseErr error) *models.AnalysisResult {
	return &models.AnalysisResult{
		Summary:         degradedSummary,
		Confidence:      degradedConfidence,
		Recommendations: []string{degradedRecommendation},
		Risks:           []string{},
		Optimizations:   []string{},
		Metadata:        models.AnalysisMetadata{ParseError: parseErr.Error()},
	}
}

func toFloat(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(strings.Replace(n, ",", ".", 1)), 64)
		if err != nil {
			return 0, fmt.Errorf("confidence %q is not a number", n)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("confidence is %T, want number", v)
	}
}

// toStrings coerces nil to an empty slice and a bare string to a one-element slice
func toStrings(v interface{}) ([]string, error) {
	switch s := v.(type) {
	case nil:
		return []string{}, nil
	case string:
		return []string{s}, nil
	case []interface{}:
		out := make([]string, 0, len(s))
		for _, item := range s {
			switch it := item.(type) {
			case string:
				out = append(out, it)
			case nil:
			default:
				out = append(out, fmt.Sprint(it))
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unexpected type %T", v)
	}
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// extractJSON returns the first brace-balanced object in content, skipping braces inside strings
func extractJSON(content string) string {
	start := strings.IndexByte(content, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escapeNext := false
	for i := start; i < len(content); i++ {
		c := content[i]
		if escapeNext {
			escapeNext = false
			continue
		}
		if c == '\\' {
			escapeNext = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		switch c {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return content[start : i+1]
			}
		}
	}
	return ""
}
