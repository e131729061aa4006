// -----------------------------------------------------------------------
// Insight Engine - KPI gaps, month-over-month trends, highlights
// -----------------------------------------------------------------------

package insights

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/quimbydigital/client-report-automations/internal/common"
	"github.com/quimbydigital/client-report-automations/internal/interfaces"
	"github.com/quimbydigital/client-report-automations/internal/models"
)

// Band classifies a KPI comparison outcome.
const (
	bandMet         = "met"
	bandExceeded    = "exceeded"
	bandApproaching = "approaching"
	bandMissed      = "missed"
)

// accountManagerAttribution marks highlight insights as human-authored.
const accountManagerAttribution = "account manager"

// Engine implements the InsightEngine interface.
type Engine struct {
	config *common.InsightsConfig
	logger arbor.ILogger
}

// Compile-time interface assertion
var _ interfaces.InsightEngine = (*Engine)(nil)

// NewEngine creates a new insight engine.
func NewEngine(config *common.InsightsConfig, logger arbor.ILogger) *Engine {
	return &Engine{
		config: config,
		logger: logger,
	}
}

// Generate merges KPIs, current and prior metrics, and the highlights note
// into a ranked insight bundle with exactly one key takeaway.
//
// KPI-gap comparisons use verified metrics only, so a low-confidence OCR
// read never produces a false "missed target". A KPI with no matching
// verified metric yields no insight at all (absence, not a miss). The
// bundle is never returned without a key takeaway: metric-derived insights
// win by rank, the highlight is the fallback, and a placeholder covers the
// fully-empty case.
func (e *Engine) Generate(kpis *models.KpiSet, metrics, priorMetrics []models.ExtractedMetric, highlights string) (*models.InsightBundle, error) {
	var insights []models.Insight

	insights = append(insights, e.kpiGapInsights(kpis, metrics)...)
	insights = append(insights, e.trendInsights(metrics, priorMetrics)...)
	insights = append(insights, e.highlightInsights(kpis, highlights)...)

	// Rank: stable order by priority, category precedence, magnitude.
	sort.SliceStable(insights, func(i, j int) bool {
		return insights[i].OutranksFor(insights[j])
	})

	bundle := &models.InsightBundle{Insights: insights}
	switch {
	case len(insights) > 0:
		bundle.KeyTakeaway = insights[0]
	case strings.TrimSpace(highlights) != "":
		bundle.KeyTakeaway = e.highlightInsight(highlights)
	default:
		bundle.KeyTakeaway = models.Insight{
			Statement: "Insufficient data this month to surface a takeaway. Ensure the strategy deck, screenshots and highlights are provided for the next run.",
			Category:  models.InsightHighlight,
		}
	}

	if bundle.KeyTakeaway.Statement == "" {
		return nil, fmt.Errorf("insight generation produced an empty key takeaway")
	}

	e.logger.Info().
		Int("insights", len(insights)).
		Str("takeaway_category", string(bundle.KeyTakeaway.Category)).
		Msg("Insight bundle generated")
	return bundle, nil
}

// kpiGapInsights compares each KPI against a matching verified metric.
func (e *Engine) kpiGapInsights(kpis *models.KpiSet, metrics []models.ExtractedMetric) []models.Insight {
	if kpis == nil {
		return nil
	}

	verified := make(map[string]models.ExtractedMetric)
	for _, m := range metrics {
		if !m.Verified {
			continue
		}
		key := strings.ToLower(m.Name)
		// Keep the highest-confidence read per metric name.
		if prev, ok := verified[key]; !ok || m.Confidence > prev.Confidence {
			verified[key] = m
		}
	}

	var out []models.Insight
	for _, kpi := range kpis.Kpis {
		metric, ok := matchMetric(verified, kpi.Metric)
		if !ok {
			continue // no verified metric: no insight, not a false miss
		}

		delta := metric.Value - kpi.Target
		percentOfTarget := 0.0
		if kpi.Target != 0 {
			percentOfTarget = metric.Value / kpi.Target * 100
		}

		band := bandApproaching
		priority := 2
		switch {
		case percentOfTarget >= e.config.MetPercent*1.2:
			band, priority = bandExceeded, 3
		case percentOfTarget >= e.config.MetPercent:
			band, priority = bandMet, 3
		case percentOfTarget < e.config.MissedPercent:
			band, priority = bandMissed, 3
		}

		out = append(out, models.Insight{
			Statement: fmt.Sprintf("%s %s target: achieved %s against a target of %s (%s).",
				kpi.Metric, bandVerb(band),
				formatValue(metric.Value, metric.Unit),
				formatValue(kpi.Target, kpi.Unit),
				formatDelta(delta, kpi.Unit)),
			Category:  models.InsightKpiGap,
			Priority:  priority,
			Magnitude: math.Abs(percentOfTarget - 100),
			Metrics:   []string{metric.Name},
		})
	}
	return out
}

// trendInsights flags significant month-over-month moves, ranked by the
// magnitude of the change.
func (e *Engine) trendInsights(metrics, priorMetrics []models.ExtractedMetric) []models.Insight {
	prior := make(map[string]models.ExtractedMetric)
	for _, m := range priorMetrics {
		prior[trendKey(m)] = m
	}

	var out []models.Insight
	seen := make(map[string]bool)
	for _, m := range metrics {
		key := trendKey(m)
		if seen[key] {
			continue
		}
		seen[key] = true

		p, ok := prior[key]
		if !ok || p.Value == 0 {
			continue
		}

		changePc := (m.Value - p.Value) / p.Value * 100
		if math.Abs(changePc) < e.config.TrendThresholdPc {
			continue
		}

		direction := "up"
		if changePc < 0 {
			direction = "down"
		}
		out = append(out, models.Insight{
			Statement: fmt.Sprintf("%s %s is %s %.1f%% month over month (%s to %s).",
				platformTitle(m.Platform), m.Name, direction, math.Abs(changePc),
				formatValue(p.Value, p.Unit), formatValue(m.Value, m.Unit)),
			Category:  models.InsightTrend,
			Priority:  2,
			Magnitude: math.Abs(changePc),
			Metrics:   []string{m.Name},
		})
	}
	return out
}

// highlightInsights surfaces the account manager's note verbatim, plus a
// pillar mention when the note references a known content pillar. The
// note is qualitative human input: it is attributed, never rewritten, and
// never merged into metric-derived insights.
func (e *Engine) highlightInsights(kpis *models.KpiSet, highlights string) []models.Insight {
	text := strings.TrimSpace(highlights)
	if text == "" {
		return nil
	}

	out := []models.Insight{e.highlightInsight(text)}

	if kpis != nil {
		lower := strings.ToLower(text)
		for _, pillar := range kpis.Pillars {
			if strings.Contains(lower, strings.ToLower(pillar)) {
				out = append(out, models.Insight{
					Statement:   fmt.Sprintf("Content aligned with the %q pillar was called out in this month's highlights.", pillar),
					Category:    models.InsightHighlight,
					Priority:    1,
					Attribution: accountManagerAttribution,
				})
			}
		}
	}
	return out
}

func (e *Engine) highlightInsight(text string) models.Insight {
	return models.Insight{
		Statement:   strings.TrimSpace(text),
		Category:    models.InsightHighlight,
		Priority:    1,
		Attribution: accountManagerAttribution,
	}
}

// matchMetric finds a verified metric whose name matches the KPI metric
// name in either direction ("Engagement Rate" matches "engagement rate").
func matchMetric(verified map[string]models.ExtractedMetric, kpiMetric string) (models.ExtractedMetric, bool) {
	key := strings.ToLower(kpiMetric)
	if m, ok := verified[key]; ok {
		return m, true
	}
	for name, m := range verified {
		if strings.Contains(name, key) || strings.Contains(key, name) {
			return m, true
		}
	}
	return models.ExtractedMetric{}, false
}

func trendKey(m models.ExtractedMetric) string {
	return string(m.Platform) + "|" + strings.ToLower(m.Name)
}

func bandVerb(band string) string {
	switch band {
	case bandExceeded:
		return "exceeded"
	case bandMet:
		return "met"
	case bandMissed:
		return "missed"
	default:
		return "is approaching"
	}
}

func platformTitle(p models.Platform) string {
	switch p {
	case models.PlatformTikTok:
		return "TikTok"
	case models.PlatformOther:
		return "Other"
	default:
		s := string(p)
		return strings.ToUpper(s[:1]) + s[1:]
	}
}

func formatValue(v float64, unit string) string {
	if unit == "%" {
		return fmt.Sprintf("%.1f%%", v)
	}
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.1f", v)
}

func formatDelta(delta float64, unit string) string {
	sign := "+"
	if delta < 0 {
		sign = "-"
	}
	if unit == "%" {
		// Percentage-point delta for rate targets.
		return fmt.Sprintf("%s%.1fpp", sign, math.Abs(delta))
	}
	return fmt.Sprintf("%s%s", sign, formatValue(math.Abs(delta), unit))
}
