package producers

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/lehigh-university-libraries/extractcompare/internal/gemini"
	"github.com/lehigh-university-libraries/extractcompare/internal/ollama"
	"github.com/lehigh-university-libraries/extractcompare/internal/openai"
	"github.com/lehigh-university-libraries/extractcompare/internal/providers"
	"github.com/lehigh-university-libraries/extractcompare/internal/record"
)

// PageBreak separates pages in model output
const PageBreak = "---PAGE BREAK---"

// DefaultPrompt asks a multimodal model for a faithful markdown transcription
const DefaultPrompt = `You are extracting the content of a document.

Transcribe ALL visible text exactly as it appears, in reading order, preserving:
- Headings (as markdown "#" headings)
- Tables (as markdown pipe tables)
- Lists (as markdown list items)
- Paragraph breaks (as blank lines)

Separate pages with a line containing only ` + PageBreak + `

Do not add commentary, summaries or explanations. If text is illegible, write [?].
Start immediately with the transcribed content.`

var pageBreak = regexp.MustCompile(`(?im)^[ \t]*-{3}[ \t]*page[ \t]+break[ \t]*-{3}[ \t]*$`)

// NewProvider resolves a provider by name
func NewProvider(name string) (providers.Provider, error) {
	switch name {
	case "ollama":
		return ollama.New(), nil
	case "openai":
		return openai.New(), nil
	case "gemini":
		return gemini.New(), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s (expected ollama, openai or gemini)", name)
	}
}

// ModelProducer wraps an external multimodal model as a producer. Page
// images are sent when the document has them, otherwise its text is
// appended to the prompt.
func ModelProducer(provider providers.Provider, cfg providers.Config) Func {
	if cfg.Prompt == "" {
		cfg.Prompt = DefaultPrompt
	}
	return func(ctx context.Context, doc Document) (record.ExtractionRecord, error) {
		call := cfg
		call.Images = doc.Images
		if len(doc.Images) == 0 {
			if doc.Text == "" {
				return record.ExtractionRecord{}, fmt.Errorf("document %s has neither page images nor text", doc.ID)
			}
			call.Prompt = cfg.Prompt + "\n\n" + doc.Text
		}

		raw, err := provider.ExtractText(ctx, call)
		if err != nil {
			return record.ExtractionRecord{}, fmt.Errorf("failed to extract text: %w", err)
		}

		rec := FromMarkdown(raw, doc.PageCount)
		rec.DocumentID = doc.ID
		if call.Model != "" {
			rec.Metadata = map[string]string{"model": call.Model}
		}
		return rec, nil
	}
}

// FromMarkdown builds a record from markdown model output. Pages are split
// on PageBreak and structural elements are located in the joined text.
func FromMarkdown(raw string, expectedPages int) record.ExtractionRecord {
	var pages []string
	for _, p := range pageBreak.Split(raw, -1) {
		if p = strings.TrimSpace(p); p != "" {
			pages = append(pages, p)
		}
	}
	text := strings.Join(pages, "\n\n")

	rec := record.ExtractionRecord{
		Status:             record.StatusOK,
		Text:               text,
		StructuralElements: Elements(text),
		PageCountObserved:  len(pages),
		PageCountExpected:  expectedPages,
		ByteSize:           int64(len(raw)),
	}
	switch {
	case text == "":
		rec.Status = record.StatusFailed
		rec.ErrorMessages = append(rec.ErrorMessages, "model returned no text")
	case expectedPages > 0 && len(pages) < expectedPages:
		rec.Status = record.StatusPartial
		rec.ErrorMessages = append(rec.ErrorMessages,
			fmt.Sprintf("observed %d of %d expected pages", len(pages), expectedPages))
	}
	return rec
}

var (
	headingLine  = regexp.MustCompile(`^#{1,6}\s+\S`)
	listItemLine = regexp.MustCompile(`^\s*(?:[-*+]|\d+[.)])\s+\S`)
	tableLine    = regexp.MustCompile(`^\s*\|.*\|\s*$`)
)

// Elements finds markdown headings, list items and pipe tables in text.
// A run of consecutive table lines is one table.
func Elements(text string) []record.StructuralElement {
	var out []record.StructuralElement
	tableStart, tableEnd := -1, -1

	flush := func() {
		if tableStart >= 0 {
			out = append(out, element(record.ElementTable, text, tableStart, tableEnd))
			tableStart, tableEnd = -1, -1
		}
	}

	offset := 0
	for _, line := range strings.SplitAfter(text, "\n") {
		start := offset
		offset += len(line)
		line = strings.TrimRight(line, "\r\n")
		end := start + len(line)

		if tableLine.MatchString(line) {
			if tableStart < 0 {
				tableStart = start
			}
			tableEnd = end
			continue
		}
		flush()

		switch {
		case headingLine.MatchString(line):
			out = append(out, element(record.ElementHeading, text, start, end))
		case listItemLine.MatchString(line):
			out = append(out, element(record.ElementListItem, text, start, end))
		}
	}
	flush()

	return out
}

func element(kind record.ElementKind, text string, start, end int) record.StructuralElement {
	return record.StructuralElement{
		Kind:    kind,
		Span:    &record.Span{Start: start, End: end},
		Content: text[start:end],
	}
}
