package section

import (
	"html/template"
	"mime"
	"net/url"
	"path"
	"strings"
)

var videoExts = map[string]bool{
	".mp4": true, ".m4v": true, ".webm": true, ".ogv": true, ".mov": true,
}

type mediaView struct {
	Src       string
	Alt       string
	Class     string
	Video     bool
	Clickable bool
}

func newMedia(src, alt, class string, clickable bool) *mediaView {
	if src == "" {
		return nil
	}
	return &mediaView{Src: src, Alt: alt, Class: class, Video: isVideo(src), Clickable: clickable}
}

func isVideo(src string) bool {
	p := src
	if u, err := url.Parse(src); err == nil {
		p = u.Path
	}
	ext := strings.ToLower(path.Ext(p))
	if videoExts[ext] {
		return true
	}
	return strings.HasPrefix(mime.TypeByExtension(ext), "video/")
}

// Media renders an image or video element for src, wrapped in a link to
// the asset when clickable. Empty src renders nothing.
func Media(src, alt, class string, clickable bool) (template.HTML, error) {
	m := newMedia(src, alt, class, clickable)
	if m == nil {
		return "", nil
	}
	return execute("media", m)
}
