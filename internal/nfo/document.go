// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package nfo

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

var (
	errEmptyDocument = errors.New("document has no root element")
	errLeadingData   = errors.New("content before document element")
	errTrailingData  = errors.New("content after document element")
	errUnclosed      = errors.New("unclosed element at end of document")
)

// Element is a node of a decoded NFO document. Names are local names; any
// namespace prefix is dropped.
type Element struct {
	Name     string
	Attr     map[string]string
	Text     string
	Children []*Element
}

// Child returns the first direct child named name, or nil.
func (e *Element) Child(name string) *Element {
	if e == nil {
		return nil
	}
	for _, c := range e.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ChildrenNamed returns every direct child named name in document order.
func (e *Element) ChildrenNamed(name string) []*Element {
	if e == nil {
		return nil
	}
	var out []*Element
	for _, c := range e.Children {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// Find walks a chain of first-match children, e.g. Find("fileinfo", "streamdetails", "video").
func (e *Element) Find(names ...string) *Element {
	cur := e
	for _, n := range names {
		cur = cur.Child(n)
		if cur == nil {
			return nil
		}
	}
	return cur
}

// ChildText returns the text of the first direct child named name, or "".
func (e *Element) ChildText(name string) string {
	if c := e.Child(name); c != nil {
		return c.Text
	}
	return ""
}

// Decode reads one XML document from r into an element tree.
// Text holds the character data that precedes an element's first child element.
func Decode(r io.Reader) (*Element, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = true
	// No custom entities: only the predefined XML entities expand.
	dec.Entity = make(map[string]string)
	dec.CharsetReader = charsetReader

	var (
		root  *Element
		stack []*Element
		text  []*strings.Builder
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			el := &Element{Name: t.Name.Local}
			if len(t.Attr) > 0 {
				el.Attr = make(map[string]string, len(t.Attr))
				for _, a := range t.Attr {
					el.Attr[a.Name.Local] = a.Value
				}
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, errTrailingData
				}
				root = el
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, el)
			}
			stack = append(stack, el)
			text = append(text, &strings.Builder{})
		case xml.EndElement:
			el := stack[len(stack)-1]
			el.Text = text[len(text)-1].String()
			stack = stack[:len(stack)-1]
			text = text[:len(text)-1]
		case xml.CharData:
			if len(stack) == 0 {
				if len(bytes.TrimSpace(t)) == 0 {
					continue
				}
				if root == nil {
					return nil, errLeadingData
				}
				return nil, errTrailingData
			}
			if len(stack[len(stack)-1].Children) == 0 {
				text[len(text)-1].Write(t)
			}
		}
	}

	if len(stack) > 0 {
		return nil, errUnclosed
	}
	if root == nil {
		return nil, errEmptyDocument
	}
	return root, nil
}

// charsetReader decodes declared non-UTF-8 encodings. UTF-16 declarations are
// passed through because a UTF-16 stream has already been transcoded from its
// byte-order mark by the time the decoder sees the prolog.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(label)), "utf-16") {
		return input, nil
	}
	r, err := charset.NewReaderLabel(label, input)
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding %q: %w", label, err)
	}
	return r, nil
}
