// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package nfo

import "strings"

// Ext is the sidecar file extension.
const Ext = ".nfo"

// SidecarPath returns the NFO path for a media file: same directory, same stem,
// ".nfo" extension. Both '/' and '\' count as separators so paths reported by a
// Windows media server resolve the same way. Applying it twice is a no-op.
func SidecarPath(mediaPath string) string {
	base := mediaPath
	if i := strings.LastIndexAny(mediaPath, `/\`); i >= 0 {
		base = mediaPath[i+1:]
	}
	dir := mediaPath[:len(mediaPath)-len(base)]
	if base == "" || base == Ext {
		return dir + Ext
	}
	return dir + stem(base) + Ext
}

// stem strips the last extension. Leading dots belong to the name, so
// ".hidden" has no extension.
func stem(base string) string {
	trimmed := strings.TrimLeft(base, ".")
	i := strings.LastIndexByte(trimmed, '.')
	if i < 0 {
		return base
	}
	return base[:len(base)-len(trimmed)+i]
}
