package parser

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"html"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

var (
	ErrUnsupportedFormat  = errors.New("unsupported file format")
	ErrUnreadableDocument = errors.New("unreadable document")
)

const pdfMagic = "%PDF"

// ExtractText returns the plain text of a document, choosing the extractor
// from the file extension. Files without a known extension are sniffed for
// the PDF header.
func ExtractText(filename string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pdf":
		return extractPDF(data)
	case ".docx":
		return extractDOCX(data)
	case ".pptx":
		return extractPPTX(data)
	case ".xlsx", ".xlsm":
		return extractXLSX(data)
	case ".md", ".markdown":
		return extractMarkdown(data)
	case ".txt":
		return string(data), nil
	case "":
		if bytes.HasPrefix(data, []byte(pdfMagic)) {
			return extractPDF(data)
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
}

// extractPDF concatenates the plain text of every page in page order.
// Pages without extractable text contribute an empty string.
func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: pdf: %v", ErrUnreadableDocument, err)
	}

	var sb strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		sb.WriteString(pageText(reader, i))
	}
	return sb.String(), nil
}

func pageText(reader *pdf.Reader, num int) (text string) {
	// the pdf package panics on some malformed content streams
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Int("page", num).Interface("panic", r).Msg("Skipping unreadable pdf page")
			text = ""
		}
	}()

	page := reader.Page(num)
	if page.V.IsNull() {
		return ""
	}
	content, err := page.GetPlainText(nil)
	if err != nil {
		log.Warn().Err(err).Int("page", num).Msg("Skipping pdf page without text")
		return ""
	}
	return content
}

func extractDOCX(data []byte) (string, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: docx: %v", ErrUnreadableDocument, err)
	}
	defer r.Close()

	content := r.Editable().GetContent()
	var paragraphs []string
	for _, p := range strings.Split(content, "</w:p>") {
		if t := extractTextFromXML(p, "w:t", ""); strings.TrimSpace(t) != "" {
			paragraphs = append(paragraphs, t)
		}
	}
	return strings.Join(paragraphs, "\n"), nil
}

func extractPPTX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: pptx: %v", ErrUnreadableDocument, err)
	}

	var slides []*zip.File
	for _, file := range zr.File {
		if strings.HasPrefix(file.Name, "ppt/slides/slide") && strings.HasSuffix(file.Name, ".xml") {
			slides = append(slides, file)
		}
	}
	sort.Slice(slides, func(i, j int) bool { return slideNumber(slides[i].Name) < slideNumber(slides[j].Name) })

	var sb strings.Builder
	for _, file := range slides {
		rc, err := file.Open()
		if err != nil {
			continue
		}
		raw, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			continue
		}
		if slideText := extractTextFromXML(string(raw), "a:t", " "); strings.TrimSpace(slideText) != "" {
			sb.WriteString(slideText)
			sb.WriteString("\n")
		}
	}
	return sb.String(), nil
}

// slideNumber parses N out of "ppt/slides/slideN.xml".
func slideNumber(name string) int {
	n := 0
	for _, c := range strings.TrimSuffix(strings.TrimPrefix(name, "ppt/slides/slide"), ".xml") {
		if c < '0' || c > '9' {
			return n
		}
		n = n*10 + int(c-'0')
	}
	return n
}

func extractXLSX(data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: xlsx: %v", ErrUnreadableDocument, err)
	}
	defer f.Close()

	var sb strings.Builder
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			continue
		}
		sb.WriteString(fmt.Sprintf("## Sheet: %s\n", sheetName))
		for _, row := range rows {
			sb.WriteString(strings.Join(row, "\t"))
			sb.WriteString("\n")
		}
	}
	return sb.String(), nil
}

// extractMarkdown drops markdown syntax and keeps the readable text,
// one line per block.
func extractMarkdown(data []byte) (string, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	doc := md.Parser().Parse(text.NewReader(data))

	var sb strings.Builder
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock && n.Kind() != ast.KindDocument && n.NextSibling() != nil {
				sb.WriteString("\n")
			}
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Text:
			sb.Write(node.Segment.Value(data))
			if node.SoftLineBreak() || node.HardLineBreak() {
				sb.WriteString("\n")
			}
		case *ast.String:
			sb.Write(node.Value)
		case *ast.AutoLink:
			sb.Write(node.URL(data))
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				sb.Write(seg.Value(data))
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: markdown: %v", ErrUnreadableDocument, err)
	}
	return sb.String(), nil
}

// extractTextFromXML collects the character data of every <tag>...</tag>
// element in document order, joining runs with sep.
func extractTextFromXML(xmlContent, tag, sep string) string {
	open, end := "<"+tag, "</"+tag+">"
	var sb strings.Builder
	rest := xmlContent
	for {
		i := strings.Index(rest, open)
		if i < 0 {
			break
		}
		rest = rest[i+len(open):]
		// <w:tab/>, <w:tbl> and friends share the prefix
		if rest == "" || (rest[0] != '>' && rest[0] != ' ') {
			continue
		}
		gt := strings.IndexByte(rest, '>')
		if gt < 0 {
			break
		}
		if gt > 0 && rest[gt-1] == '/' {
			rest = rest[gt+1:]
			continue
		}
		rest = rest[gt+1:]
		endIdx := strings.Index(rest, end)
		if endIdx < 0 {
			break
		}
		if sb.Len() > 0 {
			sb.WriteString(sep)
		}
		sb.WriteString(html.UnescapeString(rest[:endIdx]))
		rest = rest[endIdx+len(end):]
	}
	return sb.String()
}
