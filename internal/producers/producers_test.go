package producers

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lehigh-university-libraries/extractcompare/internal/providers"
	"github.com/lehigh-university-libraries/extractcompare/internal/record"
)

type fakeProvider struct {
	reply string
	err   error
	got   providers.Config
}

func (f *fakeProvider) ExtractText(ctx context.Context, cfg providers.Config) (string, error) {
	f.got = cfg
	return f.reply, f.err
}

func okFunc(text string) Func {
	return func(ctx context.Context, doc Document) (record.ExtractionRecord, error) {
		return record.ExtractionRecord{Status: record.StatusOK, Text: text}, nil
	}
}

func TestRunner_CollectsInInputOrder(t *testing.T) {
	doc := Document{ID: "doc-1", PageCount: 3}
	producers := []Producer{
		{ID: "slow", Run: func(ctx context.Context, doc Document) (record.ExtractionRecord, error) {
			time.Sleep(20 * time.Millisecond)
			return record.ExtractionRecord{Status: record.StatusOK, Text: "slow text"}, nil
		}},
		{ID: "fast", Run: okFunc("fast text")},
		{ID: "broken", Run: func(ctx context.Context, doc Document) (record.ExtractionRecord, error) {
			return record.ExtractionRecord{}, errors.New("parser exploded")
		}},
	}

	records := Runner{Concurrency: 3}.Run(context.Background(), doc, producers)
	require.Len(t, records, 3)

	assert.Equal(t, "slow", records[0].ProducerID)
	assert.Equal(t, "slow text", records[0].Text)
	assert.Equal(t, "doc-1", records[0].DocumentID)
	assert.Equal(t, 3, records[0].PageCountExpected)
	assert.GreaterOrEqual(t, records[0].ProcessingTimeMs, int64(20))

	assert.Equal(t, "fast", records[1].ProducerID)

	assert.Equal(t, "broken", records[2].ProducerID)
	assert.Equal(t, record.StatusFailed, records[2].Status)
	assert.Equal(t, []string{"parser exploded"}, records[2].ErrorMessages)
}

func TestRunner_Timeout(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	producers := []Producer{
		{ID: "stuck", Timeout: 30 * time.Millisecond, Run: func(ctx context.Context, doc Document) (record.ExtractionRecord, error) {
			<-block
			return record.ExtractionRecord{Status: record.StatusOK, Text: "too late"}, nil
		}},
		{ID: "fine", Run: okFunc("done")},
	}

	records := Runner{Concurrency: 2, DefaultTimeout: time.Minute}.Run(context.Background(), Document{ID: "d"}, producers)

	require.Len(t, records, 2)
	assert.Equal(t, record.StatusFailed, records[0].Status)
	require.Len(t, records[0].ErrorMessages, 1)
	assert.Contains(t, records[0].ErrorMessages[0], "timed out after 30ms")
	assert.Empty(t, records[0].Text)
	assert.Equal(t, record.StatusOK, records[1].Status)
}

func TestRunner_Panic(t *testing.T) {
	producers := []Producer{
		{ID: "panicky", Run: func(ctx context.Context, doc Document) (record.ExtractionRecord, error) {
			panic("index out of range")
		}},
	}

	records := Runner{}.Run(context.Background(), Document{ID: "d"}, producers)

	require.Len(t, records, 1)
	assert.Equal(t, record.StatusFailed, records[0].Status)
	assert.Contains(t, records[0].ErrorMessages[0], "index out of range")
}

func TestRunner_InvalidRecordBecomesFailed(t *testing.T) {
	producers := []Producer{
		{ID: "liar", Run: func(ctx context.Context, doc Document) (record.ExtractionRecord, error) {
			return record.ExtractionRecord{Status: record.StatusPartial, Text: "half"}, nil
		}},
	}

	records := Runner{}.Run(context.Background(), Document{ID: "d"}, producers)

	assert.Equal(t, record.StatusFailed, records[0].Status)
	assert.Empty(t, records[0].Text)
	assert.Contains(t, records[0].ErrorMessages[0], "partial record must carry error messages")
	assert.NoError(t, records[0].Validate())
}

func TestRunner_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	producers := []Producer{
		{ID: "a", Run: func(ctx context.Context, doc Document) (record.ExtractionRecord, error) {
			<-ctx.Done()
			return record.ExtractionRecord{}, ctx.Err()
		}},
	}

	records := Runner{Concurrency: 1}.Run(ctx, Document{ID: "d"}, producers)
	require.Len(t, records, 1)
	assert.Equal(t, record.StatusFailed, records[0].Status)
	assert.Equal(t, "a", records[0].ProducerID)
}

func TestModelProducer_Images(t *testing.T) {
	fake := &fakeProvider{reply: "# Page one\n\nbody\n---PAGE BREAK---\n| a | b |\n|---|---|\n| 1 | 2 |"}
	run := ModelProducer(fake, providers.Config{Model: "llava"})

	doc := Document{ID: "scan", PageCount: 2, Images: [][]byte{[]byte("p1"), []byte("p2")}}
	rec, err := run(context.Background(), doc)
	require.NoError(t, err)

	assert.Equal(t, DefaultPrompt, fake.got.Prompt)
	assert.Len(t, fake.got.Images, 2)
	assert.Equal(t, "llava", fake.got.Model)

	assert.Equal(t, record.StatusOK, rec.Status)
	assert.Equal(t, 2, rec.PageCountObserved)
	assert.Equal(t, "scan", rec.DocumentID)
	assert.Equal(t, map[string]string{"model": "llava"}, rec.Metadata)
	assert.Equal(t, 1, rec.Tables())
	assert.Equal(t, int64(len(fake.reply)), rec.ByteSize)
	assert.NotContains(t, rec.Text, "PAGE BREAK")
}

func TestModelProducer_TextDocument(t *testing.T) {
	fake := &fakeProvider{reply: "transcribed"}
	run := ModelProducer(fake, providers.Config{Prompt: "Clean this up:"})

	_, err := run(context.Background(), Document{ID: "txt", Text: "raw words"})
	require.NoError(t, err)
	assert.Equal(t, "Clean this up:\n\nraw words", fake.got.Prompt)
	assert.Empty(t, fake.got.Images)
}

func TestModelProducer_Errors(t *testing.T) {
	fake := &fakeProvider{err: errors.New("connection refused")}
	run := ModelProducer(fake, providers.Config{})

	_, err := run(context.Background(), Document{ID: "d", Text: "x"})
	assert.ErrorContains(t, err, "connection refused")

	_, err = run(context.Background(), Document{ID: "empty"})
	assert.Error(t, err)
}

func TestFromMarkdown(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected int
		status   record.Status
		pages    int
	}{
		{"single page", "hello", 1, record.StatusOK, 1},
		{"missing pages", "one\n--- page break ---\ntwo", 3, record.StatusPartial, 2},
		{"unknown expected", "one\n---PAGE BREAK---\ntwo", 0, record.StatusOK, 2},
		{"empty reply", "  \n---PAGE BREAK---\n ", 1, record.StatusFailed, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := FromMarkdown(tt.raw, tt.expected)
			rec.ProducerID = "model"
			assert.Equal(t, tt.status, rec.Status)
			assert.Equal(t, tt.pages, rec.PageCountObserved)
			assert.NoError(t, rec.Validate())
		})
	}
}

func TestElements(t *testing.T) {
	text := strings.Join([]string{
		"# Report",
		"",
		"Intro paragraph with a | pipe.",
		"",
		"| col | val |",
		"|-----|-----|",
		"| a   | 1   |",
		"",
		"- first",
		"2. second",
		"## Closing",
	}, "\n")

	elements := Elements(text)

	var kinds []record.ElementKind
	for _, el := range elements {
		kinds = append(kinds, el.Kind)
		require.NotNil(t, el.Span)
		assert.Equal(t, el.Content, text[el.Span.Start:el.Span.End])
	}
	assert.Equal(t, []record.ElementKind{
		record.ElementHeading,
		record.ElementTable,
		record.ElementListItem,
		record.ElementListItem,
		record.ElementHeading,
	}, kinds)
	assert.Equal(t, "| col | val |\n|-----|-----|\n| a   | 1   |", elements[1].Content)
}

func TestLoadDocument(t *testing.T) {
	dir := t.TempDir()
	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("plain words here"), 0644))
	png := filepath.Join(dir, "page.png")
	require.NoError(t, os.WriteFile(png, []byte("\x89PNG\r\n\x1a\n0000"), 0644))

	doc, err := LoadDocument(txt, 0)
	require.NoError(t, err)
	assert.Equal(t, "notes", doc.ID)
	assert.Equal(t, "plain words here", doc.Text)
	assert.Empty(t, doc.Images)

	doc, err = LoadDocument(png, 0)
	require.NoError(t, err)
	assert.Len(t, doc.Images, 1)
	assert.Equal(t, 1, doc.PageCount)

	require.NoError(t, doc.AddPage(png))
	assert.Len(t, doc.Images, 2)
	assert.Error(t, doc.AddPage(txt))

	_, err = LoadDocument(filepath.Join(dir, "missing.pdf"), 0)
	assert.Error(t, err)
}

func TestNewProvider(t *testing.T) {
	for _, name := range []string{"ollama", "openai", "gemini"} {
		p, err := NewProvider(name)
		require.NoError(t, err)
		assert.NotNil(t, p)
	}
	_, err := NewProvider("tesseract")
	assert.Error(t, err)
}
