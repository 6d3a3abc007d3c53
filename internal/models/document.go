package models

import "strings"

// Word is a run of text with its position on the page. Y grows upwards,
// as in PDF user space.
type Word struct {
	X, Y, W float64
	S       string
}

// Center returns the horizontal midpoint of the word.
func (w Word) Center() float64 {
	return w.X + w.W/2
}

// Table is a grid recovered from the page layout. Cells in a row line up
// with the header; a missing cell is the empty string.
type Table struct {
	Page   int
	Header []string
	Rows   [][]string
}

// Page is the extracted content of one page. Words is nil when the text
// did not come from the PDF library (e.g. OCR or pdftotext output).
type Page struct {
	Number int
	Text   string
	Words  []Word
}

// Document is everything the extraction strategies get to look at.
type Document struct {
	Path   string
	Method string // library, pdftotext, ocr, text
	Pages  []Page
	Tables []Table
}

// NewTextDocument builds a document from plain page texts.
func NewTextDocument(pages ...string) *Document {
	doc := &Document{Method: "text"}
	for i, p := range pages {
		doc.Pages = append(doc.Pages, Page{Number: i + 1, Text: p})
	}
	return doc
}

// Text returns all pages joined by blank lines.
func (d *Document) Text() string {
	parts := make([]string, 0, len(d.Pages))
	for _, p := range d.Pages {
		parts = append(parts, p.Text)
	}
	return strings.Join(parts, "\n\n")
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int {
	return len(d.Pages)
}

// HasGeometry reports whether any page carries positioned words.
func (d *Document) HasGeometry() bool {
	for _, p := range d.Pages {
		if len(p.Words) > 0 {
			return true
		}
	}
	return false
}
