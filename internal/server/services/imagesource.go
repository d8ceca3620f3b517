package services

import "strings"

type imageSourceKind int

const (
	imageUnspecified imageSourceKind = iota
	imageFromURL
	imageFromUpload
)

// ImageSource is where a submitted image comes from: a URL typed into the
// form, an uploaded file, or nothing.
type ImageSource struct {
	kind        imageSourceKind
	URL         string
	Data        []byte
	ContentType string
	Filename    string
}

func FromURL(url string) ImageSource {
	return ImageSource{kind: imageFromURL, URL: url}
}

func FromUpload(data []byte, contentType, filename string) ImageSource {
	return ImageSource{kind: imageFromUpload, Data: data, ContentType: contentType, Filename: filename}
}

func Unspecified() ImageSource { return ImageSource{} }

func (s ImageSource) IsURL() bool         { return s.kind == imageFromURL }
func (s ImageSource) IsUpload() bool      { return s.kind == imageFromUpload }
func (s ImageSource) IsUnspecified() bool { return s.kind == imageUnspecified }

// ResolveImageSource picks the image input of a form: a non-empty file wins,
// then a non-blank URL, otherwise nothing.
func ResolveImageSource(url string, data []byte, contentType, filename string) ImageSource {
	if len(data) > 0 {
		return FromUpload(data, contentType, filename)
	}
	if u := strings.TrimSpace(url); u != "" {
		return FromURL(u)
	}
	return Unspecified()
}
