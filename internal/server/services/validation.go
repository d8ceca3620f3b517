package services

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/dmitrijs2005/portfolio/internal/server/images"
)

type fieldErrors map[string][]string

func (f fieldErrors) add(field, msg string) {
	f[field] = append(f[field], msg)
}

func (f fieldErrors) required(field, value, msg string) {
	if strings.TrimSpace(value) == "" {
		f.add(field, msg)
	}
}

// optionalURL accepts an empty value or an absolute http(s) URL.
func (f fieldErrors) optionalURL(field, value string) {
	if value != "" && !isAbsoluteURL(value) {
		f.add(field, "Invalid URL format")
	}
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// optionalEmail accepts an empty value or a plain address.
func (f fieldErrors) optionalEmail(field, value string) {
	if value != "" && !emailPattern.MatchString(value) {
		f.add(field, "Invalid email address")
	}
}

func isAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// checkImage validates src and returns the sniffed content type for uploads.
// urlField and fileField name the form fields errors are reported under.
func (f fieldErrors) checkImage(src ImageSource, urlField, fileField string) string {
	switch {
	case src.IsUpload():
		info, err := images.Inspect(src.Data)
		if err != nil {
			f.add(fileField, images.Message(err))
			return ""
		}
		return info.ContentType
	case src.IsURL():
		if !isAbsoluteURL(src.URL) {
			f.add(urlField, "A valid image URL is required")
		}
	}
	return ""
}

// SplitTechStack splits comma-separated input, trimming entries and dropping
// empty ones.
func SplitTechStack(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
