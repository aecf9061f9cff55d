// Package xml renders string tables as editable XML and parses them back.
//
// The document is a single root element with one child per item, named
// positionally (Item_1, Item_2, ...). CR LF pairs in item text appear as
// the [0D0A] token so each item stays on one line.
//
// Security Notes:
//   - XXE (External Entity) attacks are mitigated by parsing with xmlquery,
//     which uses Go's encoding/xml and never fetches external entities.
package xml

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"github.com/FocuswithJustin/xus2xml/core/encoding"
	apperrors "github.com/FocuswithJustin/xus2xml/core/errors"
)

// Extension is the conventional file extension for rendered documents.
const Extension = ".xml"

// RootName is the root element written by Render.
const RootName = "Root"

// ItemPrefix starts every item element name.
const ItemPrefix = "Item_"

var (
	rootExpr  = xpath.MustCompile("/*")
	itemsExpr = xpath.MustCompile("/*/*")
	childExpr = xpath.MustCompile("*")
)

// Item is one element of the document. Text holds the escaped form.
type Item struct {
	Name string
	Text string
}

// Document is an ordered list of items under a root element.
type Document struct {
	Root  string
	Items []Item
}

// ItemName returns the element name for the item at 1-based position i.
func ItemName(i int) string {
	return ItemPrefix + strconv.Itoa(i)
}

// NewDocument builds a document from raw item texts, escaping line breaks.
func NewDocument(texts []string) *Document {
	doc := &Document{Root: RootName, Items: make([]Item, len(texts))}
	for i, text := range texts {
		doc.Items[i] = Item{
			Name: ItemName(i + 1),
			Text: encoding.EscapeLineBreaks(text),
		}
	}
	return doc
}

// Texts returns the raw item texts with line breaks restored.
func (d *Document) Texts() []string {
	out := make([]string, len(d.Items))
	for i, item := range d.Items {
		out[i] = encoding.UnescapeLineBreaks(item.Text)
	}
	return out
}

// CheckTexts returns an InvalidText error naming the first item whose text
// holds a character XML 1.0 cannot carry, not even as a character reference.
// Tab, LF and CR are allowed; other C0 controls, U+FFFE and U+FFFF are not.
func CheckTexts(texts []string) error {
	for i, text := range texts {
		for _, r := range text {
			if !isXMLChar(r) {
				return apperrors.Newf(apperrors.InvalidText,
					"item %d: character %U cannot be written to XML", i+1, r)
			}
		}
	}
	return nil
}

func isXMLChar(r rune) bool {
	switch {
	case r == '\t' || r == '\n' || r == '\r':
		return true
	case r < 0x20:
		return false
	case r == 0xFFFE || r == 0xFFFF:
		return false
	}
	return true
}

// Render serializes the document. Every tag boundary gets its own line and
// the whole document is wrapped in one leading and one trailing newline, so
// edits diff cleanly. Empty items are written as self-closing elements.
func (d *Document) Render() []byte {
	root := d.Root
	if root == "" {
		root = RootName
	}

	var buf bytes.Buffer
	buf.WriteString("\n")
	if len(d.Items) == 0 {
		fmt.Fprintf(&buf, "<%s />\n", root)
		return buf.Bytes()
	}

	fmt.Fprintf(&buf, "<%s>\n", root)
	for _, item := range d.Items {
		if item.Text == "" {
			fmt.Fprintf(&buf, "<%s />\n", item.Name)
			continue
		}
		fmt.Fprintf(&buf, "<%s>%s</%s>\n", item.Name, encoding.EscapeXMLText(item.Text), item.Name)
	}
	fmt.Fprintf(&buf, "</%s>\n", root)
	return buf.Bytes()
}

// Parse reads a document. Child elements of the root are taken in order
// whatever their names; an element without text is an empty item.
func Parse(data []byte) (*Document, error) {
	top, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, &apperrors.FormatError{Kind: apperrors.MalformedDocument, Err: err}
	}

	roots := xmlquery.QuerySelectorAll(top, rootExpr)
	if len(roots) != 1 {
		return nil, apperrors.Newf(apperrors.MalformedDocument, "expected one root element, found %d", len(roots))
	}

	nodes := xmlquery.QuerySelectorAll(top, itemsExpr)
	doc := &Document{Root: roots[0].Data, Items: make([]Item, 0, len(nodes))}
	for i, n := range nodes {
		if nested := xmlquery.QuerySelector(n, childExpr); nested != nil {
			return nil, apperrors.Newf(apperrors.MalformedDocument,
				"item %d (%s) contains element %s", i+1, n.Data, nested.Data)
		}
		doc.Items = append(doc.Items, Item{Name: n.Data, Text: n.InnerText()})
	}
	return doc, nil
}

// MisnamedItems lists the positions (1-based) whose element name is not the
// positional Item_<n> name.
func (d *Document) MisnamedItems() []int {
	var out []int
	for i, item := range d.Items {
		if item.Name != ItemName(i+1) {
			out = append(out, i+1)
		}
	}
	return out
}

// String summarizes the document for log lines.
func (d *Document) String() string {
	return fmt.Sprintf("<%s> with %d items", d.Root, len(d.Items))
}
