// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package nfo

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

func writeNFO(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, data, 0o600))
	return p
}

func TestParse_Fields(t *testing.T) {
	tests := []struct {
		name string
		xml  string
		want MediaInfo
	}{
		{
			name: "title and year only",
			xml:  `<movie><title>Foo</title><year>1999</year></movie>`,
			want: MediaInfo{Title: "Foo", Year: "1999", Country: []string{}},
		},
		{
			name: "countries in document order",
			xml:  `<movie><country>USA</country><country>UK</country></movie>`,
			want: MediaInfo{Country: []string{"USA", "UK"}},
		},
		{
			name: "self-closing country keeps an empty entry",
			xml:  `<movie><country>France</country><country/><country></country></movie>`,
			want: MediaInfo{Country: []string{"France", "", ""}},
		},
		{
			name: "first match wins",
			xml:  `<movie><title>First</title><title>Second</title><originaltitle>Erste</originaltitle></movie>`,
			want: MediaInfo{Title: "First", OriginalTitle: "Erste", Country: []string{}},
		},
		{
			name: "no trimming or coercion",
			xml:  "<movie><title>  Spaced  </title><year> 0042 </year></movie>",
			want: MediaInfo{Title: "  Spaced  ", Year: " 0042 ", Country: []string{}},
		},
		{
			name: "nested fields are not root children",
			xml:  `<movie><set><title>Collection</title></set><actor><country>DE</country></actor></movie>`,
			want: MediaInfo{Country: []string{}},
		},
		{
			name: "root tag is not checked",
			xml:  `<episodedetails><title>Pilot</title></episodedetails>`,
			want: MediaInfo{Title: "Pilot", Country: []string{}},
		},
		{
			name: "entities and cdata",
			xml:  `<movie><title>Tom &amp; Jerry</title><originaltitle><![CDATA[<raw>]]></originaltitle></movie>`,
			want: MediaInfo{Title: "Tom & Jerry", OriginalTitle: "<raw>", Country: []string{}},
		},
		{
			name: "text stops at first child element",
			xml:  `<movie><title>Head<i>x</i>tail</title></movie>`,
			want: MediaInfo{Title: "Head", Country: []string{}},
		},
		{
			name: "namespaced tags match by local name",
			xml:  `<movie xmlns:k="urn:kodi"><k:title>Ns</k:title></movie>`,
			want: MediaInfo{Title: "Ns", Country: []string{}},
		},
	}

	p := NewParser()
	dir := t.TempDir()
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeNFO(t, dir, strings.Repeat("x", i+1)+".nfo", []byte(tt.xml))
			got, err := p.Parse(path)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParse_CountryIsNeverNil(t *testing.T) {
	path := writeNFO(t, t.TempDir(), "a.nfo", []byte(`<movie/>`))
	got, err := NewParser().Parse(path)
	require.NoError(t, err)
	assert.NotNil(t, got.Country)
	assert.Empty(t, got.Country)
}

func TestParse_Deterministic(t *testing.T) {
	path := writeNFO(t, t.TempDir(), "movie.nfo", []byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<movie>
  <title>Heat</title>
  <originaltitle>Heat</originaltitle>
  <year>1995</year>
  <country>United States of America</country>
  <country>Canada</country>
</movie>`))

	p := NewParser()
	first, err := p.Parse(path)
	require.NoError(t, err)
	second, err := p.Parse(path)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("second parse differs (-first +second):\n%s", diff)
	}
	first.Country[0] = "mutated"
	assert.Equal(t, "United States of America", second.Country[0], "results must not share backing arrays")
}

func TestParse_Errors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		data string
		kind error
	}{
		{"truncated", `<movie><title>Foo</title>`, ErrMalformed},
		{"mismatched tags", `<movie><title>Foo</year></movie>`, ErrMalformed},
		{"empty file", ``, ErrMalformed},
		{"only prolog", `<?xml version="1.0"?>`, ErrMalformed},
		{"not xml", `just some text`, ErrMalformed},
		{"second root", `<movie/><movie/>`, ErrMalformed},
		{"junk after root", `<movie/>trailing`, ErrMalformed},
		{"undefined entity", `<movie><title>&nbsp;</title></movie>`, ErrMalformed},
		{"unknown encoding", `<?xml version="1.0" encoding="x-made-up"?><movie/>`, ErrMalformed},
	}

	p := NewParser()
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeNFO(t, dir, strings.Repeat("e", i+1)+".nfo", []byte(tt.data))
			info, err := p.Parse(path)
			require.Error(t, err)

			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, path, pe.Path)
			assert.ErrorIs(t, err, tt.kind)
			assert.Equal(t, MediaInfo{}, info, "no partial MediaInfo on error")
		})
	}
}

func TestParse_MissingFile(t *testing.T) {
	_, err := NewParser().Parse(filepath.Join(t.TempDir(), "missing.nfo"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnreadable)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParse_Directory(t *testing.T) {
	dir := t.TempDir()
	_, err := NewParser().Parse(dir)
	assert.ErrorIs(t, err, ErrUnreadable)
}

func TestParse_TooLarge(t *testing.T) {
	body := "<movie><title>" + strings.Repeat("a", 256) + "</title></movie>"
	path := writeNFO(t, t.TempDir(), "big.nfo", []byte(body))

	_, err := NewParser(WithMaxBytes(64)).Parse(path)
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = NewParser(WithMaxBytes(64)).ParseReader("stream", strings.NewReader(body))
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = NewParser(WithMaxBytes(int64(len(body)))).Parse(path)
	assert.NoError(t, err)
}

func TestParse_Encodings(t *testing.T) {
	dir := t.TempDir()

	t.Run("utf-8 bom", func(t *testing.T) {
		data := append([]byte{0xEF, 0xBB, 0xBF}, []byte(`<movie><title>Amélie</title></movie>`)...)
		got, err := NewParser().Parse(writeNFO(t, dir, "bom8.nfo", data))
		require.NoError(t, err)
		assert.Equal(t, "Amélie", got.Title)
	})

	t.Run("utf-16 little endian with bom", func(t *testing.T) {
		enc := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
		data, err := enc.Bytes([]byte(`<?xml version="1.0" encoding="UTF-16"?><movie><title>Das Boot</title><country>Deutschland</country></movie>`))
		require.NoError(t, err)

		got, err := NewParser().Parse(writeNFO(t, dir, "bom16.nfo", data))
		require.NoError(t, err)
		assert.Equal(t, "Das Boot", got.Title)
		assert.Equal(t, []string{"Deutschland"}, got.Country)
	})

	t.Run("declared iso-8859-1", func(t *testing.T) {
		enc := charmap.ISO8859_1.NewEncoder()
		data, err := enc.Bytes([]byte(`<?xml version="1.0" encoding="ISO-8859-1"?><movie><title>Léon</title></movie>`))
		require.NoError(t, err)

		got, err := NewParser().Parse(writeNFO(t, dir, "latin1.nfo", data))
		require.NoError(t, err)
		assert.Equal(t, "Léon", got.Title)
	})
}

func TestParse_ExtractorPanicIsRecovered(t *testing.T) {
	path := writeNFO(t, t.TempDir(), "a.nfo", []byte(`<movie><title>Foo</title></movie>`))
	x := DefaultExtractors().With(FieldSource, func(*Element) string { panic("boom") })

	info, err := NewParser(WithExtractors(x)).Parse(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExtract)
	assert.Contains(t, err.Error(), `"source"`)
	assert.Equal(t, MediaInfo{}, info)
}

func TestParse_CustomExtractors(t *testing.T) {
	path := writeNFO(t, t.TempDir(), "a.nfo", []byte(`<movie><title>Foo</title><tag>BluRay</tag></movie>`))
	x := DefaultExtractors().With(FieldSource, func(root *Element) string { return root.ChildText("tag") })

	info, err := NewParser(WithExtractors(x)).Parse(path)
	require.NoError(t, err)
	assert.Equal(t, "BluRay", info.Source)
	assert.Empty(t, info.Resolution)
}

func TestParseError_Unwrap(t *testing.T) {
	cause := errors.New("disk on fire")
	err := error(&ParseError{Path: "/x.nfo", Kind: ErrUnreadable, Cause: cause})
	assert.ErrorIs(t, err, ErrUnreadable)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrMalformed)
	assert.Equal(t, "parse /x.nfo: nfo unreadable: disk on fire", err.Error())
}
