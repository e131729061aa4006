package document

import (
	"strings"

	"github.com/quimbydigital/client-report-automations/internal/common"
	"github.com/quimbydigital/client-report-automations/internal/models"
)

// Section headings that introduce KPI definitions in strategy decks.
var kpiSections = []string{
	"key performance indicators",
	"performance metrics",
	"kpis",
}

// Section headings that introduce content pillar lists.
var pillarSections = []string{
	"content pillars",
	"content strategy",
	"content themes",
}

// ParseKpis applies layout heuristics over extracted page text: a KPI
// section heading opens a block in which each line holding a label and a
// nearby number becomes a (metric, target, unit) triple. Content pillar
// headings open blocks of plain pillar names. A blank line or a new
// heading closes the current block. Page order is preserved.
func ParseKpis(pages []pageText) *models.KpiSet {
	set := &models.KpiSet{}
	seenPillars := make(map[string]bool)

	for _, page := range pages {
		var inKpis, inPillars bool
		var pillar string

		for _, raw := range strings.Split(page.Text, "\n") {
			line := strings.TrimSpace(raw)
			if line == "" {
				inKpis, inPillars = false, false
				continue
			}

			lower := strings.ToLower(strings.Trim(line, ":# "))
			if matchesSection(lower, kpiSections) {
				inKpis, inPillars = true, false
				continue
			}
			if matchesSection(lower, pillarSections) {
				inPillars, inKpis = true, false
				continue
			}

			switch {
			case inKpis:
				label, value, unit, ok := common.FindNumber(line)
				if !ok || label == "" {
					// A bare label with no number names the pillar the
					// following targets belong to.
					if !ok && len(line) < 60 {
						pillar = strings.Trim(line, ":- ")
					}
					continue
				}
				set.Kpis = append(set.Kpis, models.Kpi{
					Pillar: pillar,
					Metric: canonicalLabel(label),
					Target: value,
					Unit:   unit,
					Page:   page.Number,
				})
			case inPillars:
				name := strings.Trim(line, "•*-– \t")
				if name == "" || strings.HasPrefix(name, "#") {
					continue
				}
				if !seenPillars[strings.ToLower(name)] {
					seenPillars[strings.ToLower(name)] = true
					set.Pillars = append(set.Pillars, name)
				}
			}
		}
	}
	return set
}

func matchesSection(line string, sections []string) bool {
	for _, s := range sections {
		if strings.HasPrefix(line, s) {
			return true
		}
	}
	return false
}

// canonicalLabel normalizes a KPI label: comparison words and target
// punctuation are stripped so "Engagement Rate >=" and "engagement rate:"
// both resolve to "Engagement Rate".
func canonicalLabel(label string) string {
	label = strings.TrimSpace(label)
	for _, noise := range []string{">=", "<=", "≥", "≤", ">", "<", "=", ":", "target", "Target", "goal", "Goal"} {
		label = strings.ReplaceAll(label, noise, " ")
	}
	return strings.Join(strings.Fields(label), " ")
}
