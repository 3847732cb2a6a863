// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package nfo

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultMaxBytes caps the size of a single NFO file.
const DefaultMaxBytes int64 = 10 * 1024 * 1024

// Parser turns NFO files into MediaInfo records. A Parser holds no per-parse
// state and is safe for concurrent use.
type Parser struct {
	maxBytes   int64
	extractors Extractors
}

// Option configures a Parser.
type Option func(*Parser)

// WithMaxBytes overrides DefaultMaxBytes. Values <= 0 keep the default.
func WithMaxBytes(n int64) Option {
	return func(p *Parser) {
		if n > 0 {
			p.maxBytes = n
		}
	}
}

// WithExtractors replaces the technical field extractors.
func WithExtractors(x Extractors) Option {
	return func(p *Parser) {
		if x != nil {
			p.extractors = x
		}
	}
}

// NewParser creates a Parser with the default extractor set.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		maxBytes:   DefaultMaxBytes,
		extractors: DefaultExtractors(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse reads and parses the NFO at path. The caller is expected to have checked
// that the file exists; a missing file is reported as ErrUnreadable.
// Every error returned is a *ParseError.
func (p *Parser) Parse(path string) (MediaInfo, error) {
	path = filepath.Clean(path)
	// path is derived from a library item reported by the media server
	f, err := os.Open(path) // #nosec G304
	if err != nil {
		return MediaInfo{}, newParseError(path, ErrUnreadable, err)
	}
	defer func() { _ = f.Close() }()

	st, err := f.Stat()
	if err != nil {
		return MediaInfo{}, newParseError(path, ErrUnreadable, err)
	}
	if st.IsDir() {
		return MediaInfo{}, newParseError(path, ErrUnreadable, errors.New("is a directory"))
	}
	if st.Size() > p.maxBytes {
		return MediaInfo{}, newParseError(path, ErrTooLarge,
			fmt.Errorf("%d bytes exceeds limit of %d", st.Size(), p.maxBytes))
	}

	return p.ParseReader(path, f)
}

// ParseReader parses an NFO document from r. name is only used in errors.
func (p *Parser) ParseReader(name string, r io.Reader) (MediaInfo, error) {
	src := &readErrTracker{r: io.LimitReader(r, p.maxBytes+1)}
	counted := &countingReader{r: src}
	in := transform.NewReader(counted, unicode.BOMOverride(transform.Nop))

	root, err := Decode(in)
	if counted.n > p.maxBytes {
		return MediaInfo{}, newParseError(name, ErrTooLarge,
			fmt.Errorf("more than %d bytes", p.maxBytes))
	}
	if err != nil {
		if src.err != nil {
			return MediaInfo{}, newParseError(name, ErrUnreadable, src.err)
		}
		return MediaInfo{}, newParseError(name, ErrMalformed, err)
	}

	info, err := p.extract(root)
	if err != nil {
		return MediaInfo{}, newParseError(name, ErrExtract, err)
	}
	return info, nil
}

func (p *Parser) extract(root *Element) (info MediaInfo, err error) {
	info = MediaInfo{
		Title:         root.ChildText("title"),
		OriginalTitle: root.ChildText("originaltitle"),
		Year:          root.ChildText("year"),
		Country:       []string{},
	}
	for _, c := range root.ChildrenNamed("country") {
		info.Country = append(info.Country, c.Text)
	}

	var field string
	defer func() {
		if r := recover(); r != nil {
			info = MediaInfo{}
			err = fmt.Errorf("extractor %q panicked: %v", field, r)
		}
	}()
	for _, field = range ExtractorFields {
		v := p.extractors.run(field, root)
		switch field {
		case FieldResolution:
			info.Resolution = v
		case FieldVideoCodec:
			info.VideoCodec = v
		case FieldSource:
			info.Source = v
		case FieldReleaseGroup:
			info.ReleaseGroup = v
		}
	}
	return info, nil
}

type readErrTracker struct {
	r   io.Reader
	err error
}

func (t *readErrTracker) Read(b []byte) (int, error) {
	n, err := t.r.Read(b)
	if err != nil && !errors.Is(err, io.EOF) {
		t.err = err
	}
	return n, err
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(b []byte) (int, error) {
	n, err := c.r.Read(b)
	c.n += int64(n)
	return n, err
}
