// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package nfo

import (
	"fmt"
	"strconv"
	"strings"
)

// StreamDetailsExtractors reads resolution and video codec from the
// <fileinfo><streamdetails><video> block Kodi and Emby write after probing a file.
// Source and release group are not part of stream details and stay empty.
func StreamDetailsExtractors() Extractors {
	return DefaultExtractors().
		With(FieldResolution, streamResolution).
		With(FieldVideoCodec, streamVideoCodec)
}

func videoStream(root *Element) *Element {
	return root.Find("fileinfo", "streamdetails", "video")
}

func streamResolution(root *Element) string {
	v := videoStream(root)
	if v == nil {
		return ""
	}
	w := atoi(v.ChildText("width"))
	h := atoi(v.ChildText("height"))
	return resolutionLabel(w, h)
}

// resolutionLabel buckets a frame size the way Kodi labels it; widths cover
// letterboxed encodes whose height is below the nominal line count.
func resolutionLabel(w, h int) string {
	switch {
	case w >= 3200 || h >= 1800:
		return "2160p"
	case w >= 1600 || h >= 900:
		return "1080p"
	case w >= 1200 || h >= 700:
		return "720p"
	case h >= 576:
		return "576p"
	case h >= 480:
		return "480p"
	case h > 0:
		return fmt.Sprintf("%dp", h)
	default:
		return ""
	}
}

var codecAliases = map[string]string{
	"avc":  "h264",
	"avc1": "h264",
	"x264": "h264",
	"h265": "hevc",
	"x265": "hevc",
	"hev1": "hevc",
	"hvc1": "hevc",
	"xvid": "mpeg4",
	"divx": "mpeg4",
}

func streamVideoCodec(root *Element) string {
	v := videoStream(root)
	if v == nil {
		return ""
	}
	c := strings.ToLower(strings.TrimSpace(v.ChildText("codec")))
	if alias, ok := codecAliases[c]; ok {
		return alias
	}
	return c
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
