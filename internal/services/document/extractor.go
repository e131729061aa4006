// -----------------------------------------------------------------------
// Document Extractor - KPI and content pillar extraction from strategy decks
// Uses pdfcpu for Go-native PDF processing, with vision OCR fallback for
// pages that carry no machine-readable text layer.
// -----------------------------------------------------------------------

package document

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/ternarybob/arbor"

	"github.com/quimbydigital/client-report-automations/internal/interfaces"
	"github.com/quimbydigital/client-report-automations/internal/models"
)

// Extractor implements the DocumentExtractor interface using pdfcpu,
// falling back to vision OCR for image-only pages.
type Extractor struct {
	vision  interfaces.VisionProvider
	logger  arbor.ILogger
	tempDir string
}

// Compile-time interface assertion
var _ interfaces.DocumentExtractor = (*Extractor)(nil)

// NewExtractor creates a new strategy document extractor. The vision
// provider may be nil, in which case image-only pages are skipped with a
// warning instead of OCR'd.
func NewExtractor(vision interfaces.VisionProvider, logger arbor.ILogger) *Extractor {
	tempDir := filepath.Join(os.TempDir(), "reportd-pdf")
	os.MkdirAll(tempDir, 0755)

	return &Extractor{
		vision:  vision,
		logger:  logger,
		tempDir: tempDir,
	}
}

// Extract parses the strategy PDF at path into an ordered KpiSet.
// Pages unreadable by both the text layer and OCR become warnings; a
// document with zero readable pages is a hard failure.
func (e *Extractor) Extract(ctx context.Context, path string) (*models.KpiSet, error) {
	e.logger.Info().Str("path", path).Msg("Extracting strategy document")

	pages, warnings, err := e.extractPages(ctx, path)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, &DocumentParseError{Reason: "no readable pages in document"}
	}

	set := ParseKpis(pages)
	set.Warnings = append(set.Warnings, warnings...)

	e.logger.Info().
		Int("pages", len(pages)).
		Int("kpis", len(set.Kpis)).
		Int("pillars", len(set.Pillars)).
		Int("warnings", len(set.Warnings)).
		Msg("Strategy document extracted")

	if set.Empty() {
		set.Warnings = append(set.Warnings, "no KPI or content pillar sections recognized in document")
	}
	return set, nil
}

// pageText is one page's text in document order.
type pageText struct {
	Number int
	Text   string
}

func (e *Extractor) extractPages(ctx context.Context, path string) ([]pageText, []string, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, nil, &DocumentParseError{Reason: "document not readable", Err: err}
	}

	conf := model.NewDefaultConfiguration()
	pdfCtx, err := api.ReadContextFile(path)
	if err != nil {
		return nil, nil, &DocumentParseError{Reason: "malformed PDF", Err: err}
	}
	pageCount := pdfCtx.PageCount
	if pageCount == 0 {
		return nil, nil, &DocumentParseError{Reason: "document has no pages"}
	}

	outDir := filepath.Join(e.tempDir, fmt.Sprintf("pages_%d", os.Getpid()))
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create extraction directory: %w", err)
	}
	defer os.RemoveAll(outDir)

	texts := make(map[int]string)
	if err := api.ExtractContentFile(path, outDir, nil, conf); err != nil {
		e.logger.Warn().Err(err).Msg("pdfcpu content extraction failed, relying on OCR fallback")
	} else {
		files, _ := os.ReadDir(outDir)
		for _, f := range files {
			if f.IsDir() {
				continue
			}
			var pageNum int
			if _, err := fmt.Sscanf(f.Name(), "%d_Content", &pageNum); err != nil {
				if _, err := fmt.Sscanf(f.Name(), "page_%d", &pageNum); err != nil {
					continue
				}
			}
			content, err := os.ReadFile(filepath.Join(outDir, f.Name()))
			if err == nil {
				texts[pageNum] = cleanContentStream(string(content))
			}
		}
	}

	var pages []pageText
	var warnings []string
	for n := 1; n <= pageCount; n++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		text := strings.TrimSpace(texts[n])
		if text == "" {
			ocr, err := e.ocrPage(ctx, path, n, conf)
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("page %d: no text layer and OCR failed: %v", n, err))
				continue
			}
			text = ocr
		}
		if text != "" {
			pages = append(pages, pageText{Number: n, Text: text})
		}
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].Number < pages[j].Number })
	return pages, warnings, nil
}

// ocrPage extracts the page's embedded images and runs them through the
// vision provider. Strategy decks exported as flattened slides carry one
// full-page image per page; OCR of that image recovers the slide text.
func (e *Extractor) ocrPage(ctx context.Context, path string, page int, conf *model.Configuration) (string, error) {
	if e.vision == nil {
		return "", fmt.Errorf("no vision provider configured")
	}

	imgDir := filepath.Join(e.tempDir, fmt.Sprintf("images_%d_%d", os.Getpid(), page))
	if err := os.MkdirAll(imgDir, 0755); err != nil {
		return "", err
	}
	defer os.RemoveAll(imgDir)

	if err := api.ExtractImagesFile(path, imgDir, []string{fmt.Sprintf("%d", page)}, conf); err != nil {
		return "", fmt.Errorf("image extraction failed: %w", err)
	}

	files, err := os.ReadDir(imgDir)
	if err != nil || len(files) == 0 {
		return "", fmt.Errorf("page has no extractable images")
	}

	// OCR the largest image on the page, which for flattened slide
	// exports is the slide itself.
	var largest string
	var largestSize int64
	for _, f := range files {
		info, err := f.Info()
		if err != nil {
			continue
		}
		if info.Size() > largestSize {
			largestSize = info.Size()
			largest = f.Name()
		}
	}
	if largest == "" {
		return "", fmt.Errorf("page has no extractable images")
	}

	data, err := os.ReadFile(filepath.Join(imgDir, largest))
	if err != nil {
		return "", err
	}

	result, err := e.vision.ReadImage(ctx, data, mimeTypeFor(largest))
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, line := range result.Lines {
		sb.WriteString(line.Text)
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String()), nil
}

func mimeTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".tif", ".tiff":
		return "image/tiff"
	default:
		return "image/png"
	}
}

// cleanContentStream strips PDF content-stream operators, keeping the
// text shown between Tj/TJ string literals. pdfcpu extracts raw content
// streams, not decoded text, so the string operands are pulled out here.
func cleanContentStream(content string) string {
	var sb strings.Builder
	depth := 0
	var current strings.Builder
	for i := 0; i < len(content); i++ {
		c := content[i]
		switch {
		case c == '(':
			depth++
			if depth == 1 {
				continue
			}
		case c == ')':
			depth--
			if depth == 0 {
				sb.WriteString(current.String())
				sb.WriteString("\n")
				current.Reset()
				continue
			}
		case c == '\\' && depth > 0 && i+1 < len(content):
			i++
			switch content[i] {
			case 'n':
				current.WriteByte('\n')
			case 't':
				current.WriteByte('\t')
			default:
				current.WriteByte(content[i])
			}
			continue
		}
		if depth > 0 {
			current.WriteByte(c)
		}
	}
	return sb.String()
}
