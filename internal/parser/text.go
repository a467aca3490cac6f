package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/dgallion1/docrank/internal/document"
)

// TextParser handles plain text files. Paragraphs separated by blank lines
// become body blocks; a form feed starts a new page.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*document.Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	doc := &document.Document{Name: filename}
	pageNum := 1
	var w blockWriter
	var current strings.Builder

	flushPara := func() {
		if current.Len() > 0 {
			w.add(current.String(), BodySize, false)
			current.Reset()
		}
	}
	flushPage := func() {
		flushPara()
		if len(w.blocks) > 0 {
			doc.Pages = append(doc.Pages, document.Page{Number: pageNum, Blocks: w.blocks})
		}
		w = blockWriter{}
	}

	for scanner.Scan() {
		line := scanner.Text()
		for strings.Contains(line, "\f") {
			before, after, _ := strings.Cut(line, "\f")
			if strings.TrimSpace(before) != "" {
				if current.Len() > 0 {
					current.WriteString("\n")
				}
				current.WriteString(before)
			}
			flushPage()
			pageNum++
			line = after
		}
		if strings.TrimSpace(line) == "" {
			flushPara()
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flushPage()

	return doc, nil
}
