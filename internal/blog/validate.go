package blog

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/insightsphere/insightsphere/internal/model"
)

// ValidationError names the offending field of a rejected post or comment.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

const (
	TitleMin       = 5
	TitleMax       = 100
	DescriptionMin = 20
	DescriptionMax = 300
)

// ValidatePost trims the text fields of p in place and checks their bounds.
func ValidatePost(p *model.Post) error {
	p.Title = strings.TrimSpace(p.Title)
	p.Description = strings.TrimSpace(p.Description)
	p.Category = strings.TrimSpace(p.Category)

	if err := checkLength("title", p.Title, TitleMin, TitleMax); err != nil {
		return err
	}
	if err := checkLength("description", p.Description, DescriptionMin, DescriptionMax); err != nil {
		return err
	}
	// Titles end up in mail subjects.
	for field, v := range map[string]string{"title": p.Title, "description": p.Description, "category": p.Category} {
		if strings.IndexFunc(v, unicode.IsControl) >= 0 {
			return &ValidationError{Field: field, Reason: "must not contain control characters"}
		}
	}
	if strings.TrimSpace(p.Content) == "" {
		return &ValidationError{Field: "content", Reason: "is required"}
	}
	if p.Category == "" {
		return &ValidationError{Field: "category", Reason: "is required"}
	}
	if strings.TrimSpace(p.Thumbnail) == "" {
		return &ValidationError{Field: "thumbnail", Reason: "is required"}
	}
	if !p.AuthorRole.Valid() || p.AuthorRole == model.RoleReader {
		return &ValidationError{Field: "authorRole", Reason: "must be admin or author"}
	}
	return nil
}

func ValidateComment(text string) error {
	if strings.TrimSpace(text) == "" {
		return &ValidationError{Field: "text", Reason: "is required"}
	}
	return nil
}

func checkLength(field, v string, min, max int) error {
	n := utf8.RuneCountInString(v)
	if n < min {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("must be at least %d characters", min)}
	}
	if n > max {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("must be at most %d characters", max)}
	}
	return nil
}
