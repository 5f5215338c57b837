package sites

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Field extracts one value from a document or subtree, or "" when absent.
type Field func(s *goquery.Selection) string

// FirstNonEmpty tries fields in order and returns the first non-empty value.
func FirstNonEmpty(s *goquery.Selection, fields ...Field) string {
	for _, field := range fields {
		if v := field(s); v != "" {
			return v
		}
	}
	return ""
}

// Text returns the trimmed text of the first element matching selector
// whose text is not empty.
func Text(selector string) Field {
	return func(s *goquery.Selection) string {
		var text string
		s.Find(selector).EachWithBreak(func(_ int, el *goquery.Selection) bool {
			text = strings.TrimSpace(el.Text())
			return text == ""
		})
		return text
	}
}

// Image returns the source of the first image matching selector, reading
// attrs in priority order, e.g. "data-src" before "src".
func Image(selector string, attrs ...string) Field {
	return func(s *goquery.Selection) string {
		return imageSource(s.Find(selector).First(), attrs...)
	}
}

// Meta returns the content attribute of the first element matching selector.
func Meta(selector string) Field {
	return func(s *goquery.Selection) string {
		v, _ := s.Find(selector).First().Attr("content")
		return strings.TrimSpace(v)
	}
}

func imageSource(img *goquery.Selection, attrs ...string) string {
	for _, attr := range attrs {
		if v, ok := img.Attr(attr); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// climb applies field to the ancestors of start, nearest first, for up to
// levels levels, and returns the first non-empty value. The search does not
// go above stop when stop is set.
func climb(start *goquery.Selection, levels int, stop *goquery.Selection, field Field) string {
	node := start.Parent()
	for i := 0; i < levels && node.Length() > 0; i++ {
		if v := field(node); v != "" {
			return v
		}
		if stop != nil && node.IsSelection(stop) {
			break
		}
		node = node.Parent()
	}
	return ""
}
