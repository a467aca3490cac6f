// Package rank scores sections against a persona and task and picks a diverse
// top-K selection.
package rank

import (
	"fmt"
	"strings"

	"github.com/bbalet/stopwords"
	"github.com/jdkato/prose/v2"

	"github.com/dgallion1/docrank/internal/embedding"
)

// Query is the persona and task a run ranks sections for.
type Query struct {
	Persona string
	Task    string
}

// Text is the query as it is embedded.
func (q Query) Text() string {
	return fmt.Sprintf("Role: %s. Task: %s.", strings.TrimSpace(q.Persona), strings.TrimSpace(q.Task))
}

const minTermRunes = 3

// Keywords returns the lower-cased nouns, verbs and adjectives of the persona
// and task, stopwords removed, deduplicated in first-seen order. When tagging
// finds nothing every remaining word is used.
func Keywords(q Query) []string {
	cleaned := strings.ToLower(stopwords.CleanString(q.Persona+" . "+q.Task, "en", false))

	var terms []string
	doc, err := prose.NewDocument(cleaned, prose.WithExtraction(false), prose.WithSegmentation(false))
	if err == nil {
		for _, tok := range doc.Tokens() {
			if contentTag(tok.Tag) {
				terms = append(terms, embedding.Tokenize(tok.Text)...)
			}
		}
	}
	if len(terms) == 0 {
		terms = embedding.Tokenize(cleaned)
	}
	return dedupe(terms)
}

func contentTag(tag string) bool {
	return strings.HasPrefix(tag, "NN") || strings.HasPrefix(tag, "VB") || strings.HasPrefix(tag, "JJ")
}

func dedupe(terms []string) []string {
	seen := make(map[string]bool, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if len([]rune(t)) < minTermRunes || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
