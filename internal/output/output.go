// Package output builds and writes the ranked output record.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dgallion1/docrank/internal/rank"
	"github.com/dgallion1/docrank/internal/textutil"
)

// TimestampLayout is the UTC completion time format.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Record is the output of one run.
type Record struct {
	Metadata           Metadata          `json:"metadata"`
	ExtractedSections  []ExtractedSection `json:"extracted_sections"`
	SubsectionAnalysis []Subsection      `json:"subsection_analysis"`
}

type Metadata struct {
	InputDocuments      []string        `json:"input_documents"`
	Persona             string          `json:"persona"`
	JobToBeDone         string          `json:"job_to_be_done"`
	ProcessingTimestamp string          `json:"processing_timestamp"`
	ChallengeInfo       json.RawMessage `json:"challenge_info,omitempty"`
}

type ExtractedSection struct {
	Document       string `json:"document"`
	SectionTitle   string `json:"section_title"`
	ImportanceRank int    `json:"importance_rank"`
	PageNumber     int    `json:"page_number"`
}

type Subsection struct {
	Document    string `json:"document"`
	RefinedText string `json:"refined_text"`
	PageNumber  int    `json:"page_number"`
}

// Meta is the run information copied into the record.
type Meta struct {
	InputDocuments []string
	Persona        string
	JobToBeDone    string
	ChallengeInfo  json.RawMessage
}

// Options controls text refinement and the clock.
type Options struct {
	Truncate textutil.TruncateOptions
	Now      func() time.Time
}

func DefaultOptions() Options {
	return Options{Truncate: textutil.DefaultTruncateOptions(), Now: time.Now}
}

// Assemble builds the record for selected sections, which must already be in
// rank order.
func Assemble(selected []rank.ScoredSection, meta Meta, opts Options) *Record {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Truncate == (textutil.TruncateOptions{}) {
		opts.Truncate = textutil.DefaultTruncateOptions()
	}

	docs := make([]string, len(meta.InputDocuments))
	copy(docs, meta.InputDocuments)
	rec := &Record{
		Metadata: Metadata{
			InputDocuments: docs,
			Persona:        meta.Persona,
			JobToBeDone:    meta.JobToBeDone,
			ChallengeInfo:  meta.ChallengeInfo,
		},
		ExtractedSections:  make([]ExtractedSection, 0, len(selected)),
		SubsectionAnalysis: make([]Subsection, 0, len(selected)),
	}
	for _, s := range selected {
		rec.ExtractedSections = append(rec.ExtractedSections, ExtractedSection{
			Document:       s.Section.Document,
			SectionTitle:   s.Section.Title,
			ImportanceRank: s.Rank,
			PageNumber:     s.Section.StartPage,
		})
		rec.SubsectionAnalysis = append(rec.SubsectionAnalysis, Subsection{
			Document:    s.Section.Document,
			RefinedText: textutil.Refine(s.Section.Body, opts.Truncate),
			PageNumber:  s.Section.StartPage,
		})
	}
	rec.Metadata.ProcessingTimestamp = opts.Now().UTC().Format(TimestampLayout)
	return rec
}

// Marshal encodes rec with four-space indentation and no HTML escaping.
func Marshal(rec *Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(rec); err != nil {
		return nil, fmt.Errorf("encode output record: %w", err)
	}
	return buf.Bytes(), nil
}

// Write stores rec at path, creating the parent directory.
func Write(path string, rec *Record) error {
	data, err := Marshal(rec)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write output %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write output %s: %w", path, err)
	}
	return nil
}
