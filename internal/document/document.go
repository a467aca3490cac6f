package document

import "strings"

// Document is a parsed source file. It is not modified after parsing.
type Document struct {
	Name  string // Source filename as listed in the descriptor
	Index int    // Position in the descriptor's document list
	Pages []Page
}

// Page is one page of a document.
type Page struct {
	Number int // 1-based
	Blocks []TextBlock
}

// TextBlock is a single line or paragraph of text with its layout metadata.
type TextBlock struct {
	Text     string
	FontSize float64
	Bold     bool
	Top      float64 // Distance from the top of the page; larger is further down
}

// Section is a titled span of a document's content.
type Section struct {
	Document  string // Owning document name
	DocIndex  int    // Owning document's input position
	Index     int    // Order within the document
	Title     string
	Level     int // 1 = most prominent
	StartPage int
	EndPage   int
	Body      string
}

// BlockCount returns the number of text blocks across all pages.
func (d *Document) BlockCount() int {
	n := 0
	for _, p := range d.Pages {
		n += len(p.Blocks)
	}
	return n
}

// FirstLine returns the first non-empty line of text in the document.
func (d *Document) FirstLine() string {
	for _, p := range d.Pages {
		for _, b := range p.Blocks {
			if line := firstLine(b.Text); line != "" {
				return line
			}
		}
	}
	return ""
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if t := strings.TrimSpace(line); t != "" {
			return t
		}
	}
	return ""
}
