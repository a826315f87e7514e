package audit

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Severity of an issue.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Rank orders severities, most severe first.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityWarning:
		return 1
	default:
		return 2
	}
}

func normalizeSeverity(s Severity) Severity {
	switch strings.ToLower(strings.TrimSpace(string(s))) {
	case "critical", "high", "error":
		return SeverityCritical
	case "warning", "medium", "moderate":
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

// RiskLevel of a whole screen.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

func normalizeRisk(r RiskLevel) RiskLevel {
	switch strings.ToLower(strings.TrimSpace(string(r))) {
	case "low":
		return RiskLow
	case "high", "critical":
		return RiskHigh
	default:
		return RiskMedium
	}
}

// Score is a 0-100 value. Models sometimes send floats or quoted numbers;
// both decode, rounded and clamped to the range. Anything else decodes as 0.
type Score int

func (s *Score) UnmarshalJSON(b []byte) error {
	f, ok := looseNumber(b)
	if !ok {
		*s = 0
		return nil
	}
	*s = Score(math.Max(0, math.Min(100, math.Round(f))))
	return nil
}

// looseNumber reads a JSON number, or a string holding one with an optional
// trailing percent sign.
func looseNumber(b []byte) (float64, bool) {
	raw := strings.Trim(strings.TrimSpace(string(b)), `"`)
	raw = strings.TrimSpace(strings.TrimSuffix(raw, "%"))
	if raw == "" || raw == "null" {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// looseString reads a JSON string or number as text.
func looseString(b json.RawMessage) string {
	if len(b) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		return n.String()
	}
	return ""
}

// Issue is one problem the model found, optionally positioned on the image
// by percentage coordinates.
type Issue struct {
	ID          string   `json:"id"`
	RuleID      string   `json:"ruleId,omitempty"`
	Principle   string   `json:"principle,omitempty"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
	Category    string   `json:"category"`
	Suggestion  string   `json:"suggestion"`
	X           *float64 `json:"x,omitempty"`
	Y           *float64 `json:"y,omitempty"`
}

// UnmarshalJSON accepts numeric ids and percentage strings for coordinates.
// Coordinates that do not parse are dropped instead of failing the audit.
func (i *Issue) UnmarshalJSON(b []byte) error {
	type plain Issue
	var aux struct {
		plain
		ID     json.RawMessage `json:"id"`
		RuleID json.RawMessage `json:"ruleId"`
		X      json.RawMessage `json:"x"`
		Y      json.RawMessage `json:"y"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*i = Issue(aux.plain)
	i.ID = looseString(aux.ID)
	i.RuleID = looseString(aux.RuleID)
	i.X = looseCoord(aux.X)
	i.Y = looseCoord(aux.Y)
	return nil
}

func looseCoord(b json.RawMessage) *float64 {
	f, ok := looseNumber(b)
	if !ok {
		return nil
	}
	return &f
}

// Category groups issues. Its score comes from the model as is.
type Category struct {
	Name   string  `json:"name"`
	Score  Score   `json:"score"`
	Icon   string  `json:"icon"`
	Issues []Issue `json:"issues"`
}

// AuditResult is the full audit of one screen.
type AuditResult struct {
	OverallScore Score      `json:"overallScore"`
	Summary      string     `json:"summary"`
	RiskLevel    RiskLevel  `json:"riskLevel"`
	Categories   []Category `json:"categories"`
}

// IssueCount returns the number of issues across all categories.
func (r *AuditResult) IssueCount() int {
	n := 0
	for _, c := range r.Categories {
		n += len(c.Issues)
	}
	return n
}

// JSON returns the indented JSON encoding of r.
func (r *AuditResult) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// FallbackSummary explains a fallback result.
const FallbackSummary = "The AI response could not be parsed into a structured audit. Please run the analysis again."

// FallbackResult is returned when the model output cannot be recovered.
func FallbackResult() *AuditResult {
	return &AuditResult{
		OverallScore: 0,
		Summary:      FallbackSummary,
		RiskLevel:    RiskMedium,
		Categories:   []Category{},
	}
}
