package document

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

const (
	fontFamily = "Helvetica"
	monoFamily = "Courier"
	bodySize   = 11
	lineHeight = 5.5
	cellPad    = 1.5
)

var headingSizes = map[int]float64{1: 20, 2: 16, 3: 14, 4: 12, 5: 11, 6: 11}

var md = goldmark.New()

type renderer struct {
	pdf     *fpdf.Fpdf
	src     []byte
	tr      func(string) string
	figures int
}

// Render writes doc to w as an A4 PDF. Headings, paragraphs, lists, quotes
// and code blocks are laid out from the Markdown body; figures are rendered
// as a caption and a link to the source image; tables follow the body.
func Render(doc Document, w io.Writer) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.SetCreator("mindshear", true)

	r := &renderer{
		pdf: pdf,
		src: []byte(doc.Body),
		tr:  pdf.UnicodeTranslatorFromDescriptor(""),
	}

	root := md.Parser().Parse(text.NewReader(r.src))
	if title := firstHeading(root, r.src); title != "" {
		pdf.SetTitle(title, true)
	}

	pdf.AddPage()
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		r.block(n)
	}
	for _, t := range doc.Tables {
		r.table(t.Title, t.Headers, t.Rows)
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("layout pdf: %w", err)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func (r *renderer) block(n ast.Node) {
	switch n := n.(type) {
	case *ast.Heading:
		size := headingSizes[n.Level]
		r.pdf.Ln(2)
		r.pdf.SetFont(fontFamily, "B", size)
		r.pdf.MultiCell(0, size*0.5, r.tr(inlineText(n, r.src)), "", "L", false)
		r.pdf.Ln(2)
	case *ast.Paragraph, *ast.TextBlock:
		r.paragraph(n, "")
	case *ast.List:
		r.list(n, 0)
	case *ast.Blockquote:
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			r.paragraph(c, "I")
		}
	case *ast.FencedCodeBlock:
		r.code(n.Lines())
	case *ast.CodeBlock:
		r.code(n.Lines())
	case *ast.ThematicBreak:
		left, _, right, _ := r.pdf.GetMargins()
		pageW, _ := r.pdf.GetPageSize()
		y := r.pdf.GetY() + 2
		r.pdf.Line(left, y, pageW-right, y)
		r.pdf.Ln(5)
	default:
		if t := strings.TrimSpace(inlineText(n, r.src)); t != "" {
			r.writeText(t, "")
		}
	}
}

// paragraph writes the inline content of n, breaking out images as figures.
func (r *renderer) paragraph(n ast.Node, style string) {
	var buf strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		img, ok := c.(*ast.Image)
		if !ok {
			buf.WriteString(inlineText(c, r.src))
			continue
		}
		if t := strings.TrimSpace(buf.String()); t != "" {
			r.writeText(t, style)
		}
		buf.Reset()
		r.figure(inlineText(img, r.src), string(img.Destination))
	}
	if t := strings.TrimSpace(buf.String()); t != "" {
		r.writeText(t, style)
	}
}

func (r *renderer) writeText(s, style string) {
	r.pdf.SetFont(fontFamily, style, bodySize)
	r.pdf.MultiCell(0, lineHeight, r.tr(s), "", "L", false)
	r.pdf.Ln(2)
}

func (r *renderer) figure(caption, url string) {
	r.figures++
	r.pdf.SetFont(fontFamily, "I", bodySize-1)
	r.pdf.MultiCell(0, lineHeight, r.tr(fmt.Sprintf("Figure %d: %s", r.figures, caption)), "", "L", false)
	r.pdf.SetFont(fontFamily, "U", bodySize-2)
	r.pdf.SetTextColor(0, 0, 200)
	r.pdf.WriteLinkString(lineHeight, r.tr(url), url)
	r.pdf.SetTextColor(0, 0, 0)
	r.pdf.Ln(lineHeight + 2)
}

func (r *renderer) list(l *ast.List, depth int) {
	left, _, _, _ := r.pdf.GetMargins()
	indent := float64(depth+1) * 5
	num := l.Start
	if num == 0 {
		num = 1
	}
	for item := l.FirstChild(); item != nil; item = item.NextSibling() {
		marker := "-"
		if l.IsOrdered() {
			marker = fmt.Sprintf("%d.", num)
			num++
		}
		var nested []*ast.List
		var buf strings.Builder
		for c := item.FirstChild(); c != nil; c = c.NextSibling() {
			if sub, ok := c.(*ast.List); ok {
				nested = append(nested, sub)
				continue
			}
			buf.WriteString(inlineText(c, r.src))
			buf.WriteString(" ")
		}
		r.pdf.SetFont(fontFamily, "", bodySize)
		r.pdf.SetX(left + indent)
		r.pdf.MultiCell(0, lineHeight, r.tr(marker+" "+strings.TrimSpace(buf.String())), "", "L", false)
		for _, sub := range nested {
			r.list(sub, depth+1)
		}
	}
	if depth == 0 {
		r.pdf.Ln(2)
	}
}

func (r *renderer) code(lines *text.Segments) {
	var buf strings.Builder
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(r.src))
	}
	r.pdf.SetFont(monoFamily, "", bodySize-2)
	r.pdf.SetFillColor(242, 242, 242)
	r.pdf.MultiCell(0, lineHeight-1, r.tr(strings.TrimRight(buf.String(), "\n")), "", "L", true)
	r.pdf.Ln(2)
}

func (r *renderer) table(title string, headers []string, rows [][]string) {
	if len(headers) == 0 {
		return
	}
	left, _, right, bottom := r.pdf.GetMargins()
	pageW, pageH := r.pdf.GetPageSize()
	colW := (pageW - left - right) / float64(len(headers))

	r.pdf.Ln(3)
	if title != "" {
		r.pdf.SetFont(fontFamily, "B", bodySize+1)
		r.pdf.MultiCell(0, lineHeight+1, r.tr(title), "", "L", false)
		r.pdf.Ln(1)
	}

	r.pdf.SetFont(fontFamily, "B", bodySize-1)
	r.row(headers, colW, left, pageH-bottom, true)
	r.pdf.SetFont(fontFamily, "", bodySize-1)
	for _, row := range rows {
		r.row(row, colW, left, pageH-bottom, false)
	}
	r.pdf.Ln(4)
}

// row draws one table row with every cell as tall as its tallest neighbour.
func (r *renderer) row(cells []string, colW, left, limit float64, header bool) {
	lines := 1
	for _, c := range cells {
		if n := len(r.pdf.SplitText(r.tr(c), colW-2*cellPad)); n > lines {
			lines = n
		}
	}
	h := float64(lines)*lineHeight + 2*cellPad

	if r.pdf.GetY()+h > limit {
		r.pdf.AddPage()
	}
	y := r.pdf.GetY()
	style := "D"
	if header {
		r.pdf.SetFillColor(225, 230, 240)
		style = "FD"
	}
	for i, c := range cells {
		x := left + float64(i)*colW
		r.pdf.Rect(x, y, colW, h, style)
		r.pdf.SetXY(x+cellPad, y+cellPad)
		r.pdf.MultiCell(colW-2*cellPad, lineHeight, r.tr(c), "", "L", false)
	}
	r.pdf.SetXY(left, y+h)
}

func firstHeading(root ast.Node, src []byte) string {
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok {
			return strings.TrimSpace(inlineText(h, src))
		}
	}
	return ""
}

// inlineText flattens the text content below n.
func inlineText(n ast.Node, src []byte) string {
	var b strings.Builder
	var walk func(ast.Node)
	walk = func(n ast.Node) {
		switch n := n.(type) {
		case *ast.Text:
			b.Write(n.Segment.Value(src))
			if n.HardLineBreak() {
				b.WriteString("\n")
			} else if n.SoftLineBreak() {
				b.WriteString(" ")
			}
			return
		case *ast.String:
			b.Write(n.Value)
			return
		case *ast.AutoLink:
			b.Write(n.Label(src))
			return
		}
		if n.Type() == ast.TypeBlock && n.ChildCount() == 0 {
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				b.Write(seg.Value(src))
			}
			return
		}
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
