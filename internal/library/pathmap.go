// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package library

import (
	"path"
	"path/filepath"
	"strings"
)

// PathMapping rewrites a media-server path prefix to a local one.
type PathMapping struct {
	From string
	To   string
}

type mapping struct {
	from string // slash-normalised, no trailing slash
	to   string
	fold bool // Windows roots compare case-insensitively
}

// PathMapper resolves media-server paths to local filesystem paths.
type PathMapper struct {
	mappings []mapping
}

// NewPathMapper creates a PathMapper. Mappings without an absolute From, with
// an empty To, or rooted at "/" are ignored.
func NewPathMapper(mappings []PathMapping) *PathMapper {
	var valid []mapping
	for _, m := range mappings {
		from := normalizeSlashes(m.From)
		if !isAbs(from) || m.To == "" {
			continue
		}
		from = strings.TrimSuffix(cleanSlashes(from), "/")
		if from == "" {
			continue
		}
		valid = append(valid, mapping{
			from: from,
			to:   strings.TrimRight(m.To, `/\`),
			fold: isWindowsPath(from),
		})
	}
	return &PathMapper{mappings: valid}
}

// Map returns the local path for serverPath. Longest From prefix wins; a path
// no mapping covers is returned unchanged.
func (pm *PathMapper) Map(serverPath string) string {
	if local, ok := pm.Resolve(serverPath); ok {
		return local
	}
	return serverPath
}

// Resolve reports the mapped path and whether a mapping matched.
func (pm *PathMapper) Resolve(serverPath string) (string, bool) {
	if pm == nil || len(pm.mappings) == 0 || serverPath == "" {
		return "", false
	}
	clean := cleanSlashes(normalizeSlashes(serverPath))

	var best *mapping
	var bestRel string
	for i := range pm.mappings {
		m := &pm.mappings[i]
		rel, ok := m.match(clean)
		if !ok {
			continue
		}
		if best == nil || len(m.from) > len(best.from) {
			best = m
			bestRel = rel
		}
	}
	if best == nil {
		return "", false
	}
	if bestRel == "" {
		return best.to, true
	}
	return filepath.Join(best.to, filepath.FromSlash(bestRel)), true
}

func (m *mapping) match(p string) (string, bool) {
	if len(p) < len(m.from) {
		return "", false
	}
	head := p[:len(m.from)]
	if m.fold {
		if !strings.EqualFold(head, m.from) {
			return "", false
		}
	} else if head != m.from {
		return "", false
	}
	rest := p[len(m.from):]
	switch {
	case rest == "":
		return "", true
	case rest[0] == '/':
		return rest[1:], true
	default:
		return "", false
	}
}

// cleanSlashes is path.Clean that keeps the leading "//" of a UNC path.
func cleanSlashes(p string) string {
	if strings.HasPrefix(p, "//") {
		return "/" + path.Clean(p[1:])
	}
	return path.Clean(p)
}

func normalizeSlashes(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}

func isWindowsPath(p string) bool {
	if strings.HasPrefix(p, "//") {
		return true
	}
	return len(p) >= 2 && p[1] == ':' && isLetter(p[0])
}

func isAbs(p string) bool {
	if strings.HasPrefix(p, "/") {
		return true
	}
	return len(p) >= 3 && p[1] == ':' && isLetter(p[0]) && p[2] == '/'
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
