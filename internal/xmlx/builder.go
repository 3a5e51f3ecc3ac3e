// Package xmlx provides the XML builder collaborator that records use to
// emit their fields into a larger document.
package xmlx

import (
	"bytes"
	"encoding/xml"
	"errors"
)

// Builder receives elements one at a time and appends them to its output.
type Builder interface {
	Element(name, value string) error
}

var ErrNotOpen = errors.New("xml document has no open element")

// Document is a Builder backed by encoding/xml. Element values are
// escaped. Start/End nest container elements:
//
//	doc := xmlx.NewDocument()
//	doc.Start("users")
//	doc.Start("user")
//	doc.Element("name", "Alice")
//	doc.End()
//	doc.End()
//	doc.Bytes() // <?xml ...?><users><user><name>Alice</name></user></users>
type Document struct {
	buf   bytes.Buffer
	enc   *xml.Encoder
	stack []xml.StartElement
}

// NewDocument starts a document with the standard XML header.
func NewDocument() *Document {
	d := &Document{}
	d.buf.WriteString(xml.Header)
	d.enc = xml.NewEncoder(&d.buf)
	return d
}

// Start opens a container element.
func (d *Document) Start(name string, attrs ...xml.Attr) error {
	se := xml.StartElement{Name: xml.Name{Local: name}, Attr: attrs}
	if err := d.enc.EncodeToken(se); err != nil {
		return err
	}
	d.stack = append(d.stack, se)
	return nil
}

// End closes the innermost open element.
func (d *Document) End() error {
	if len(d.stack) == 0 {
		return ErrNotOpen
	}
	se := d.stack[len(d.stack)-1]
	d.stack = d.stack[:len(d.stack)-1]
	return d.enc.EncodeToken(se.End())
}

// Element writes <name>value</name>.
func (d *Document) Element(name, value string) error {
	return d.enc.EncodeElement(value, xml.StartElement{Name: xml.Name{Local: name}})
}

// Bytes closes any open elements, flushes, and returns the document.
func (d *Document) Bytes() ([]byte, error) {
	for len(d.stack) > 0 {
		if err := d.End(); err != nil {
			return nil, err
		}
	}
	if err := d.enc.Flush(); err != nil {
		return nil, err
	}
	return d.buf.Bytes(), nil
}

// Recorder is a Builder that remembers every element it was given.
type Recorder struct {
	Elements []xml.StartElement
	Values   []string
}

func (r *Recorder) Element(name, value string) error {
	r.Elements = append(r.Elements, xml.StartElement{Name: xml.Name{Local: name}})
	r.Values = append(r.Values, value)
	return nil
}
