package blog

import (
	"strings"

	"golang.org/x/net/html"
)

// WordsPerMinute is the reading speed used for ReadTime.
const WordsPerMinute = 225

// PlainText returns the text nodes of an HTML fragment joined by spaces.
// Script and style bodies are skipped.
func PlainText(content string) string {
	z := html.NewTokenizer(strings.NewReader(content))
	var b strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF or a malformed tail; either way the text so far is the answer.
			return strings.TrimSpace(b.String())
		case html.StartTagToken:
			if name, _ := z.TagName(); isRawTag(name) {
				skip++
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); isRawTag(name) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip > 0 {
				continue
			}
			b.Write(z.Text())
			b.WriteByte(' ')
		}
	}
}

// ReadTime estimates minutes to read content, never less than one.
func ReadTime(content string) int {
	words := len(strings.Fields(PlainText(content)))
	minutes := (words + WordsPerMinute - 1) / WordsPerMinute
	if minutes < 1 {
		return 1
	}
	return minutes
}

func isRawTag(name []byte) bool {
	s := string(name)
	return s == "script" || s == "style"
}
