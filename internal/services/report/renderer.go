// -----------------------------------------------------------------------
// Report Renderer - deterministic report artifact generation
// -----------------------------------------------------------------------

package report

import (
	"bytes"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"fmt"
	"html/template"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/quimbydigital/client-report-automations/internal/interfaces"
	"github.com/quimbydigital/client-report-automations/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

// RenderError indicates the renderer could not produce an artifact.
// Render failures are fatal to the job.
type RenderError struct {
	Reason string
	Err    error
}

func (e *RenderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("render failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("render failed: %s", e.Reason)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Renderer implements the ReportRenderer interface.
//
// Rendering is deterministic: the canonical markdown built from the
// inputs carries every piece of report content in a stable order, and the
// content hash is the sha256 of that markdown. The generation timestamp
// appears only in the HTML footer, outside the hashed content, so
// identical inputs always produce identical hashes. The PDF export is
// derived from the same canonical markdown, never a second source.
//
// Archive navigation is rendered oldest-first, matching the index order.
type Renderer struct {
	logger arbor.ILogger
	tmpl   *template.Template
}

// Compile-time interface assertion
var _ interfaces.ReportRenderer = (*Renderer)(nil)

// NewRenderer creates a new report renderer.
func NewRenderer(logger arbor.ILogger) (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/report.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse report template: %w", err)
	}
	return &Renderer{
		logger: logger,
		tmpl:   tmpl,
	}, nil
}

// Render produces the report artifact for one job.
func (r *Renderer) Render(in *interfaces.RenderInput) (*models.ReportArtifact, error) {
	if in.Bundle == nil || in.Bundle.KeyTakeaway.Statement == "" {
		return nil, &RenderError{Reason: "insight bundle has no key takeaway"}
	}

	canonical := buildCanonicalMarkdown(in)
	sum := sha256.Sum256([]byte(canonical))
	hash := hex.EncodeToString(sum[:])

	generatedAt := time.Now()

	html, err := r.renderHTML(in, generatedAt)
	if err != nil {
		return nil, &RenderError{Reason: "template execution", Err: err}
	}

	pdf, err := markdownToPDF(canonical)
	if err != nil {
		return nil, &RenderError{Reason: "pdf export", Err: err}
	}

	assets := map[string][]byte{
		"assets/style.css": []byte(stylesheet),
	}
	for _, shot := range in.Shots {
		data, err := os.ReadFile(shot.Path)
		if err != nil {
			// The screenshot was already OCR'd; a read failure here only
			// costs the gallery image.
			r.logger.Warn().Err(err).Str("screenshot", shot.Filename).Msg("Screenshot unreadable at render time, omitting from gallery")
			continue
		}
		assets["assets/"+shot.Filename] = data
	}

	r.logger.Info().
		Str("client", in.Client).
		Str("month", in.Month).
		Str("content_hash", hash[:12]).
		Int("html_bytes", len(html)).
		Int("pdf_bytes", len(pdf)).
		Msg("Report artifact rendered")

	return &models.ReportArtifact{
		Client:      in.Client,
		Month:       in.Month,
		HTML:        html,
		PDF:         pdf,
		Assets:      assets,
		ContentHash: hash,
		GeneratedAt: generatedAt,
	}, nil
}

// platformGroup is one platform's metric table, for the template.
type platformGroup struct {
	Platform string
	Metrics  []metricRow
}

type metricRow struct {
	Name     string
	Display  string
	Source   string
	Verified bool
}

type galleryItem struct {
	Filename string
	Caption  string
}

type templateData struct {
	Client         string
	DisplayMonth   string
	KeyTakeaway    models.Insight
	Insights       []models.Insight
	PlatformGroups []platformGroup
	Highlights     string
	Gallery        []galleryItem
	Archive        []models.ArchiveEntry
	GeneratedAt    string
}

func (r *Renderer) renderHTML(in *interfaces.RenderInput, generatedAt time.Time) ([]byte, error) {
	data := templateData{
		Client:         in.Client,
		DisplayMonth:   displayMonth(in.Month),
		KeyTakeaway:    in.Bundle.KeyTakeaway,
		Insights:       in.Bundle.Insights,
		PlatformGroups: groupMetrics(in.Metrics),
		Highlights:     strings.TrimSpace(in.Highlights),
		GeneratedAt:    generatedAt.UTC().Format("2 January 2006 15:04 UTC"),
	}

	for _, shot := range in.Shots {
		data.Gallery = append(data.Gallery, galleryItem{
			Filename: shot.Filename,
			Caption:  captionFor(shot),
		})
	}

	if in.Archive != nil {
		data.Archive = in.Archive.Entries // oldest-first, as stored
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// buildCanonicalMarkdown serializes the full report content in a stable
// order. This is both the hashed canonical form and the PDF source.
func buildCanonicalMarkdown(in *interfaces.RenderInput) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s — %s Performance Report\n\n", in.Client, displayMonth(in.Month))

	sb.WriteString("## Key Takeaway\n\n")
	sb.WriteString(in.Bundle.KeyTakeaway.Statement)
	sb.WriteString("\n\n")

	sb.WriteString("## Performance Metrics\n\n")
	for _, group := range groupMetrics(in.Metrics) {
		fmt.Fprintf(&sb, "### %s\n\n", group.Platform)
		sb.WriteString("| Metric | Value | Source |\n|---|---|---|\n")
		for _, m := range group.Metrics {
			name := m.Name
			if !m.Verified {
				name += " (unverified)"
			}
			fmt.Fprintf(&sb, "| %s | %s | %s |\n", name, m.Display, m.Source)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Insights\n\n")
	for i, insight := range in.Bundle.Insights {
		fmt.Fprintf(&sb, "%d. %s", i+1, insight.Statement)
		if insight.Attribution != "" {
			fmt.Fprintf(&sb, " — %s", insight.Attribution)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	if text := strings.TrimSpace(in.Highlights); text != "" {
		sb.WriteString("## Account Manager Highlights\n\n")
		sb.WriteString(text)
		sb.WriteString("\n\n")
	}

	sb.WriteString("## Screenshots\n\n")
	for _, shot := range in.Shots {
		fmt.Fprintf(&sb, "- %s\n", captionFor(shot))
	}
	sb.WriteString("\n")

	if in.Archive != nil && len(in.Archive.Entries) > 0 {
		sb.WriteString("## Report Archive\n\n")
		for _, e := range in.Archive.Entries {
			fmt.Fprintf(&sb, "- %s\n", e.Month)
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// groupMetrics buckets metrics by platform in a stable order: known
// platforms alphabetically, then "other"; within a platform, by metric
// name then source filename.
func groupMetrics(metrics []models.ExtractedMetric) []platformGroup {
	byPlatform := make(map[string][]models.ExtractedMetric)
	for _, m := range metrics {
		key := string(m.Platform)
		byPlatform[key] = append(byPlatform[key], m)
	}

	platforms := make([]string, 0, len(byPlatform))
	for p := range byPlatform {
		if p != string(models.PlatformOther) {
			platforms = append(platforms, p)
		}
	}
	sort.Strings(platforms)
	if _, ok := byPlatform[string(models.PlatformOther)]; ok {
		platforms = append(platforms, string(models.PlatformOther))
	}

	groups := make([]platformGroup, 0, len(platforms))
	for _, p := range platforms {
		ms := byPlatform[p]
		sort.Slice(ms, func(i, j int) bool {
			if ms[i].Name != ms[j].Name {
				return ms[i].Name < ms[j].Name
			}
			return ms[i].Source < ms[j].Source
		})
		group := platformGroup{Platform: platformTitle(p)}
		for _, m := range ms {
			group.Metrics = append(group.Metrics, metricRow{
				Name:     m.Name,
				Display:  displayValue(m.Value, m.Unit),
				Source:   m.Source,
				Verified: m.Verified,
			})
		}
		groups = append(groups, group)
	}
	return groups
}

// displayMonth turns a month token like "2025_05_May" into "May 2025".
// Tokens that don't follow the convention are shown with underscores
// replaced by spaces.
func displayMonth(month string) string {
	parts := strings.Split(month, "_")
	if len(parts) == 3 && len(parts[0]) == 4 {
		return parts[2] + " " + parts[0]
	}
	return strings.ReplaceAll(month, "_", " ")
}

func captionFor(shot models.PlatformScreenshot) string {
	base := strings.TrimSuffix(shot.Filename, filepath.Ext(shot.Filename))
	base = strings.ReplaceAll(base, "_", " ")
	base = strings.ReplaceAll(base, "-", " ")
	return fmt.Sprintf("%s (%s)", strings.TrimSpace(base), platformTitle(string(shot.Platform)))
}

func platformTitle(p string) string {
	switch models.Platform(p) {
	case models.PlatformTikTok:
		return "TikTok"
	case models.PlatformOther:
		return "Other"
	default:
		if p == "" {
			return "Other"
		}
		return strings.ToUpper(p[:1]) + p[1:]
	}
}

func displayValue(v float64, unit string) string {
	if unit == "%" {
		return fmt.Sprintf("%.1f%%", v)
	}
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.1f", v)
}

const stylesheet = `body { font-family: -apple-system, "Segoe UI", Helvetica, Arial, sans-serif; margin: 0; color: #1f2430; background: #f6f7f9; }
.container { max-width: 960px; margin: 0 auto; padding: 0 24px; }
header { background: #1f2430; color: #fff; padding: 32px 0; }
header h1 { margin: 0; font-size: 28px; }
header h2 { margin: 4px 0 0; font-size: 18px; font-weight: 400; color: #aeb4c2; }
section { background: #fff; border-radius: 8px; padding: 24px; margin: 24px 0; box-shadow: 0 1px 3px rgba(0,0,0,.08); }
.key-takeaway { border-left: 4px solid #3366ff; }
table { width: 100%; border-collapse: collapse; font-size: 14px; }
th, td { text-align: left; padding: 6px 10px; border-bottom: 1px solid #e3e6ec; }
tr.unverified td { color: #8a8f9c; }
.flag { font-size: 11px; color: #b35c00; border: 1px solid #b35c00; border-radius: 3px; padding: 0 4px; }
.metrics-grid, .gallery-grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(280px, 1fr)); gap: 16px; }
.insight-list li { margin-bottom: 12px; }
.attribution { font-style: italic; color: #5a6070; margin: 4px 0 0; }
figure { margin: 0; }
figure img { width: 100%; border-radius: 4px; border: 1px solid #e3e6ec; }
figcaption { font-size: 13px; color: #5a6070; margin-top: 4px; }
blockquote { margin: 0; padding-left: 16px; border-left: 3px solid #c6cbd6; color: #3a4050; }
.archive-list { list-style: none; padding: 0; display: flex; flex-wrap: wrap; gap: 8px; }
.archive-list a { text-decoration: none; color: #3366ff; border: 1px solid #d4dcff; border-radius: 4px; padding: 4px 10px; }
footer { color: #8a8f9c; font-size: 13px; padding: 16px 0 32px; }
`
