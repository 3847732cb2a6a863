// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package nfo reads Kodi/Emby style NFO sidecar files and extracts media metadata.
package nfo

import "github.com/rs/zerolog"

// MediaInfo is the structured record extracted from a single NFO document.
// A fresh value is produced per parse and never shared between items.
type MediaInfo struct {
	Title         string   `json:"title"`
	OriginalTitle string   `json:"original_title"`
	Year          string   `json:"year"`
	Country       []string `json:"country"`
	Resolution    string   `json:"resolution"`
	VideoCodec    string   `json:"video_codec"`
	Source        string   `json:"source"`
	ReleaseGroup  string   `json:"release_group"`
}

// MarshalZerologObject lets a MediaInfo be logged with zerolog's Object/EmbedObject.
func (m MediaInfo) MarshalZerologObject(e *zerolog.Event) {
	e.Str("title", m.Title).
		Str("original_title", m.OriginalTitle).
		Str("year", m.Year).
		Strs("country", m.Country).
		Str("resolution", m.Resolution).
		Str("video_codec", m.VideoCodec).
		Str("source", m.Source).
		Str("release_group", m.ReleaseGroup)
}
