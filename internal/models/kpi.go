package models

// Kpi is a single target extracted from a strategy document.
type Kpi struct {
	Pillar string  `json:"pillar,omitempty"` // content pillar the target belongs to, if stated
	Metric string  `json:"metric"`           // target metric name, e.g. "Engagement Rate"
	Target float64 `json:"target"`
	Unit   string  `json:"unit,omitempty"` // "%", "count", "K", ...
	Page   int     `json:"page"`           // 1-indexed source page, preserves document order
}

// KpiSet is the ordered collection of KPIs and content pillars extracted
// from a client's strategy deck. Immutable once extracted; ordering follows
// document page order.
type KpiSet struct {
	Kpis     []Kpi    `json:"kpis"`
	Pillars  []string `json:"content_pillars,omitempty"`
	Warnings []string `json:"warnings,omitempty"` // pages skipped, OCR fallbacks
}

// Empty reports whether the set carries no KPIs and no pillars.
func (s *KpiSet) Empty() bool {
	return s == nil || (len(s.Kpis) == 0 && len(s.Pillars) == 0)
}
