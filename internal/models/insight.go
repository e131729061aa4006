package models

// InsightCategory classifies where an insight came from.
type InsightCategory string

const (
	InsightTrend     InsightCategory = "trend"
	InsightKpiGap    InsightCategory = "kpi-gap"
	InsightHighlight InsightCategory = "highlight"
)

// categoryPrecedence orders categories for key-takeaway tie-breaking.
// kpi-gap beats trend beats highlight.
var categoryPrecedence = map[InsightCategory]int{
	InsightKpiGap:    3,
	InsightTrend:     2,
	InsightHighlight: 1,
}

// Insight is one statement produced by the insight engine.
type Insight struct {
	Statement string          `json:"statement"`
	Category  InsightCategory `json:"category"`
	Priority  int             `json:"priority"`  // higher ranks first
	Magnitude float64         `json:"magnitude"` // absolute size of the move/gap, for tie-breaks
	Metrics   []string        `json:"metrics,omitempty"`

	// Attribution is set for highlight insights: they are human-authored
	// qualitative input, never merged with metric-derived statements.
	Attribution string `json:"attribution,omitempty"`
}

// OutranksFor reports whether i should be promoted over other as the key
// takeaway: priority first, then category precedence, then magnitude.
func (i Insight) OutranksFor(other Insight) bool {
	if i.Priority != other.Priority {
		return i.Priority > other.Priority
	}
	if categoryPrecedence[i.Category] != categoryPrecedence[other.Category] {
		return categoryPrecedence[i.Category] > categoryPrecedence[other.Category]
	}
	return i.Magnitude > other.Magnitude
}

// InsightBundle is the full output of the insight engine for one job.
// KeyTakeaway is always set: the engine falls back to the highlight
// insight, then a placeholder, so the bundle is never left without one.
type InsightBundle struct {
	Insights    []Insight `json:"insights"`
	KeyTakeaway Insight   `json:"key_takeaway"`
}
