package parser

import (
	"strings"
	"testing"
)

func TestHTMLParser_HeadingsAndParagraphs(t *testing.T) {
	input := `<html><head><title>Guide</title><style>p{}</style></head>
<body>
<nav>Home | About</nav>
<h1>Coastal Adventures</h1>
<p>Beaches along the   coast.</p>
<h3>Nightlife</h3>
<p><strong>Top bars</strong></p>
<ul><li>Bar one</li><li>Bar two</li></ul>
<script>var x = 1;</script>
</body></html>`

	p := &HTMLParser{}
	doc, err := p.Parse(strings.NewReader(input), "guide.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	blocks := allBlocks(doc)
	want := []struct {
		text string
		size float64
		bold bool
	}{
		{"Coastal Adventures", HeadingSize(1), true},
		{"Beaches along the coast.", BodySize, false},
		{"Nightlife", HeadingSize(3), true},
		{"Top bars", BodySize, true},
		{"Bar one", BodySize, false},
		{"Bar two", BodySize, false},
	}
	if len(blocks) != len(want) {
		t.Fatalf("expected %d blocks, got %d: %+v", len(want), len(blocks), blocks)
	}
	for i, w := range want {
		b := blocks[i]
		if b.Text != w.text || b.FontSize != w.size || b.Bold != w.bold {
			t.Errorf("block[%d]: expected {%q %v %v}, got {%q %v %v}", i, w.text, w.size, w.bold, b.Text, b.FontSize, b.Bold)
		}
	}
}

func TestHeadingLevel(t *testing.T) {
	tests := map[string]int{"h1": 1, "h4": 4, "h6": 6, "h7": 0, "hr": 0, "p": 0, "header": 0}
	for tag, want := range tests {
		if got := headingLevel(tag); got != want {
			t.Errorf("headingLevel(%q) = %d, want %d", tag, got, want)
		}
	}
}
