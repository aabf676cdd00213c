package blog

import (
	"errors"
	"strings"
	"testing"

	"github.com/insightsphere/insightsphere/internal/model"
)

func TestPlainTextStripsMarkup(t *testing.T) {
	got := PlainText(`<h1>Hello</h1><p>big <b>world</b> &amp; friends</p><script>var x = 1;</script>`)
	if fields := strings.Fields(got); strings.Join(fields, " ") != "Hello big world & friends" {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestReadTime(t *testing.T) {
	tests := []struct {
		words int
		want  int
	}{
		{0, 1},
		{1, 1},
		{225, 1},
		{226, 2},
		{900, 4},
	}
	for _, tt := range tests {
		content := "<p>" + strings.TrimSpace(strings.Repeat("word ", tt.words)) + "</p>"
		if got := ReadTime(content); got != tt.want {
			t.Fatalf("%d words: expected %d, got %d", tt.words, tt.want, got)
		}
	}
}

func TestValidatePost(t *testing.T) {
	valid := func() model.Post {
		return model.Post{
			Title:       "  A fine title  ",
			Description: "A description that is long enough.",
			Content:     "<p>body</p>",
			Category:    "Tech",
			Thumbnail:   "/uploads/x.jpg",
			AuthorRole:  model.RoleAuthor,
		}
	}

	p := valid()
	if err := ValidatePost(&p); err != nil {
		t.Fatalf("valid post rejected: %v", err)
	}
	if p.Title != "A fine title" {
		t.Fatalf("title not trimmed: %q", p.Title)
	}

	cases := map[string]func(*model.Post){
		"title":       func(p *model.Post) { p.Title = "abc" },
		"description": func(p *model.Post) { p.Description = strings.Repeat("x", 301) },
		"content":     func(p *model.Post) { p.Content = " " },
		"category":    func(p *model.Post) { p.Category = "" },
		"thumbnail":   func(p *model.Post) { p.Thumbnail = "" },
		"authorRole":  func(p *model.Post) { p.AuthorRole = model.RoleReader },
	}
	for field, mutate := range cases {
		p := valid()
		mutate(&p)
		err := ValidatePost(&p)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("%s: expected validation error, got %v", field, err)
		}
		if verr.Field != field {
			t.Fatalf("expected field %s, got %s", field, verr.Field)
		}
	}
}

func TestValidatePostRejectsControlCharacters(t *testing.T) {
	for _, field := range []string{"title", "description", "category"} {
		p := model.Post{
			Title:       "A fine title",
			Description: "A description that is long enough.",
			Content:     "<p>body</p>",
			Category:    "Tech",
			Thumbnail:   "/uploads/x.jpg",
			AuthorRole:  model.RoleAuthor,
		}
		switch field {
		case "title":
			p.Title = "Hello\r\nBcc: victim@evil.test"
		case "description":
			p.Description = "A description that is\nlong enough."
		case "category":
			p.Category = "Te\x00ch"
		}
		err := ValidatePost(&p)
		var verr *ValidationError
		if !errors.As(err, &verr) || verr.Field != field {
			t.Fatalf("%s: expected control character rejection, got %v", field, err)
		}
	}
}

func TestValidateComment(t *testing.T) {
	if err := ValidateComment("  \n"); err == nil {
		t.Fatalf("expected blank comment rejected")
	}
	if err := ValidateComment("nice post"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
