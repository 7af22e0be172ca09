package producers

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Document is the source a producer extracts from
type Document struct {
	ID        string
	Path      string
	MIMEType  string
	PageCount int
	Text      string
	// Images holds one entry per page image
	Images [][]byte
}

// LoadDocument reads a source file. Images are passed to producers as page
// images, plain text as text; other formats need their pages supplied
// separately with AddPage.
func LoadDocument(path string, pageCount int) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("failed to read document: %w", err)
	}

	doc := Document{
		ID:        strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Path:      path,
		MIMEType:  http.DetectContentType(data),
		PageCount: pageCount,
	}
	switch {
	case strings.HasPrefix(doc.MIMEType, "image/"):
		doc.Images = [][]byte{data}
		if doc.PageCount == 0 {
			doc.PageCount = 1
		}
	case strings.HasPrefix(doc.MIMEType, "text/"):
		doc.Text = string(data)
	}
	return doc, nil
}

// AddPage appends a page image read from path
func (d *Document) AddPage(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read page image: %w", err)
	}
	if mime := http.DetectContentType(data); !strings.HasPrefix(mime, "image/") {
		return fmt.Errorf("page %s is not an image (%s)", path, mime)
	}
	d.Images = append(d.Images, data)
	return nil
}
