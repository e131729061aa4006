package report

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// markdownToPDF renders the canonical report markdown as an A4 PDF.
// The same markdown that feeds the content hash feeds this renderer,
// so regenerating an unchanged report yields the same document body.
func markdownToPDF(markdown string) ([]byte, error) {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetMargins(12, 12, 12)
	doc.SetAutoPageBreak(true, 12)
	doc.AddPage()
	doc.SetFont("Helvetica", "", 10)

	md := goldmark.New(
		goldmark.WithExtensions(extension.Table),
	)

	source := []byte(markdown)
	root := md.Parser().Parse(text.NewReader(source))

	w := &pdfWriter{
		doc:    doc,
		source: source,
		font:   "Helvetica",
		size:   10,
	}

	if err := ast.Walk(root, w.walk); err != nil {
		return nil, fmt.Errorf("failed to lay out report PDF: %w", err)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write report PDF: %w", err)
	}
	return buf.Bytes(), nil
}

type pdfWriter struct {
	doc       *fpdf.Fpdf
	source    []byte
	font      string
	size      float64
	bold      bool
	italic    bool
	listDepth int
}

func (w *pdfWriter) resetFont() {
	style := ""
	if w.bold {
		style += "B"
	}
	if w.italic {
		style += "I"
	}
	w.doc.SetFont(w.font, style, w.size)
}

func (w *pdfWriter) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch n.Kind() {
	case ast.KindHeading:
		w.heading(n.(*ast.Heading), entering)
	case ast.KindParagraph:
		if !entering {
			w.doc.Ln(7)
		}
	case ast.KindText:
		if entering {
			w.doc.Write(5, string(n.Text(w.source)))
		}
	case ast.KindEmphasis:
		w.emphasis(n.(*ast.Emphasis), entering)
	case ast.KindBlockquote:
		w.blockquote(entering)
	case ast.KindList:
		w.list(entering)
	case ast.KindListItem:
		if entering {
			w.listItem()
		}
	case ast.KindThematicBreak:
		if entering {
			w.doc.Ln(3)
			w.doc.Line(12, w.doc.GetY(), 198, w.doc.GetY())
			w.doc.Ln(3)
		}
	case extast.KindTable:
		if entering {
			w.table(n.(*extast.Table))
			return ast.WalkSkipChildren, nil
		}
	}
	return ast.WalkContinue, nil
}

func (w *pdfWriter) heading(n *ast.Heading, entering bool) {
	if entering {
		w.doc.Ln(6)
		size := 10.0
		switch n.Level {
		case 1:
			size = 15
		case 2:
			size = 12.5
		case 3:
			size = 11
		}
		w.doc.SetFont(w.font, "B", size)
		return
	}
	w.doc.Ln(6)
	w.resetFont()
}

func (w *pdfWriter) emphasis(n *ast.Emphasis, entering bool) {
	if n.Level == 2 {
		w.bold = entering
	} else {
		w.italic = entering
	}
	w.resetFont()
}

func (w *pdfWriter) blockquote(entering bool) {
	if entering {
		w.italic = true
		w.doc.SetLeftMargin(18)
	} else {
		w.italic = false
		w.doc.SetLeftMargin(12)
	}
	w.resetFont()
}

func (w *pdfWriter) list(entering bool) {
	if entering {
		w.listDepth++
		return
	}
	w.listDepth--
	if w.listDepth == 0 {
		w.doc.Ln(2)
	}
}

func (w *pdfWriter) listItem() {
	w.doc.Ln(5)
	w.doc.SetX(14 + float64(w.listDepth)*5)
	w.doc.Write(5, "- ")
}

func (w *pdfWriter) table(n *extast.Table) {
	var rows [][]string
	var collect func(node ast.Node)
	collect = func(node ast.Node) {
		for child := node.FirstChild(); child != nil; child = child.NextSibling() {
			switch c := child.(type) {
			case *extast.TableRow:
				rows = append(rows, w.tableRow(c))
			case *extast.TableHeader:
				collect(c)
			}
		}
	}
	collect(n)
	w.renderTable(rows)
}

func (w *pdfWriter) tableRow(n *extast.TableRow) []string {
	var row []string
	for cell := n.FirstChild(); cell != nil; cell = cell.NextSibling() {
		if _, ok := cell.(*extast.TableCell); ok {
			row = append(row, string(cell.Text(w.source)))
		}
	}
	return row
}

func (w *pdfWriter) renderTable(rows [][]string) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return
	}

	cols := len(rows[0])
	widths := w.columnWidths(rows, cols, 186)
	lineHeight := 5.0

	w.doc.Ln(2)
	for i, row := range rows {
		if i == 0 {
			w.doc.SetFont(w.font, "B", 8.5)
			w.doc.SetFillColor(232, 232, 232)
		} else {
			w.doc.SetFont(w.font, "", 8.5)
			w.doc.SetFillColor(255, 255, 255)
		}

		startX := w.doc.GetX()
		startY := w.doc.GetY()
		if startY+lineHeight+2 > 285 {
			w.doc.AddPage()
			startY = w.doc.GetY()
		}

		x := startX
		for j := 0; j < cols; j++ {
			cell := ""
			if j < len(row) {
				cell = w.fitCell(row[j], widths[j]-2)
			}
			w.doc.Rect(x, startY, widths[j], lineHeight+2, "FD")
			w.doc.SetXY(x+1, startY+1)
			w.doc.CellFormat(widths[j]-2, lineHeight, cell, "", 0, "L", false, 0, "")
			x += widths[j]
		}
		w.doc.SetXY(startX, startY+lineHeight+2)
	}
	w.doc.Ln(3)
	w.resetFont()
}

func (w *pdfWriter) columnWidths(rows [][]string, cols int, pageWidth float64) []float64 {
	widths := make([]float64, cols)
	w.doc.SetFont(w.font, "B", 8.5)
	for _, row := range rows {
		for i, cell := range row {
			if i >= cols {
				continue
			}
			if cw := w.doc.GetStringWidth(cell) + 4; cw > widths[i] {
				widths[i] = cw
			}
		}
	}

	total := 0.0
	for i := range widths {
		if widths[i] < 14 {
			widths[i] = 14
		}
		total += widths[i]
	}
	if total > pageWidth {
		scale := pageWidth / total
		for i := range widths {
			widths[i] *= scale
		}
	}
	return widths
}

// fitCell truncates cell text so it fits on a single table line.
func (w *pdfWriter) fitCell(cell string, width float64) string {
	if w.doc.GetStringWidth(cell) <= width {
		return cell
	}
	for len(cell) > 3 && w.doc.GetStringWidth(cell+"...") > width {
		cell = cell[:len(cell)-1]
	}
	return cell + "..."
}
