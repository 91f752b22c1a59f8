// Package docx loads a WordprocessingML template, substitutes delimited
// placeholders across body, tables, headers and footers, and writes the
// result back without touching any other part of the package.
package docx

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"regexp"

	"github.com/beevik/etree"
)

// Delimiters is the glyph pair marking a placeholder name in the template.
type Delimiters struct {
	Open  string
	Close string
}

// DefaultDelimiters is the guillemet pair used by the contract templates.
var DefaultDelimiters = Delimiters{Open: "«", Close: "»"}

// textPartPattern matches the zip entries that carry paragraph text: the
// main body plus every header and footer of every section.
var textPartPattern = regexp.MustCompile(`^word/(document|header\d*|footer\d*)\.xml$`)

// Document is one loaded template instance. Ownership is exclusive to a
// single render; concurrent renders must each Open their own copy.
type Document struct {
	entries []entry
}

type entry struct {
	name string
	raw  []byte          // verbatim passthrough when tree is nil
	tree *etree.Document // parsed text-bearing part
}

// Open loads a .docx template from disk.
func Open(path string) (*Document, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open template %s: %w", path, err)
	}
	defer r.Close()

	doc := &Document{}
	for _, f := range r.File {
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("read template entry %s: %w", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read template entry %s: %w", f.Name, err)
		}

		e := entry{name: f.Name, raw: data}
		if textPartPattern.MatchString(f.Name) {
			tree := etree.NewDocument()
			if err := tree.ReadFromBytes(data); err != nil {
				return nil, fmt.Errorf("parse template entry %s: %w", f.Name, err)
			}
			e.tree = tree
		}
		doc.entries = append(doc.entries, e)
	}

	if len(doc.entries) == 0 {
		return nil, fmt.Errorf("template %s: empty package", path)
	}
	return doc, nil
}

// SaveAs writes the rendered document to path.
func (d *Document) SaveAs(path string) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create document %s: %w", path, err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	for _, e := range d.entries {
		w, err := zw.Create(e.name)
		if err != nil {
			zw.Close()
			return fmt.Errorf("write document entry %s: %w", e.name, err)
		}
		data := e.raw
		if e.tree != nil {
			data, err = e.tree.WriteToBytes()
			if err != nil {
				zw.Close()
				return fmt.Errorf("serialize document entry %s: %w", e.name, err)
			}
		}
		if _, err := w.Write(data); err != nil {
			zw.Close()
			return fmt.Errorf("write document entry %s: %w", e.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize document %s: %w", path, err)
	}
	return nil
}

// ParagraphTexts returns the logical text of every paragraph across all
// text-bearing parts, in document order.
func (d *Document) ParagraphTexts() []string {
	var texts []string
	for _, e := range d.entries {
		if e.tree == nil {
			continue
		}
		for _, p := range e.tree.FindElements("//w:p") {
			texts = append(texts, paragraphText(p))
		}
	}
	return texts
}
