// Package validation checks API request fields and reports every failure
// at once rather than stopping at the first.
package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/hyperengineering/pavilion/internal/types"
)

// Field limits, in runes.
const (
	MaxQueryLength   = 200
	MaxMessageLength = 4000
	MaxTitleLength   = 200
	MaxTextLength    = 2000
	MaxURLLength     = 2048
)

// ValidationError represents a single field validation failure.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Collector accumulates validation errors without failing on first.
type Collector struct {
	errors []ValidationError
}

// Add appends a validation error to the collector if non-nil.
func (c *Collector) Add(err *ValidationError) {
	if err != nil {
		c.errors = append(c.errors, *err)
	}
}

// HasErrors returns true if the collector has accumulated any errors.
func (c *Collector) HasErrors() bool {
	return len(c.errors) > 0
}

// Errors returns all accumulated validation errors.
func (c *Collector) Errors() []ValidationError {
	return c.errors
}

// ValidateUTF8 returns an error if the value is not valid UTF-8.
func ValidateUTF8(field, value string) *ValidationError {
	if !utf8.ValidString(value) {
		return &ValidationError{Field: field, Message: "must be valid UTF-8"}
	}
	return nil
}

// ValidateNoNullBytes returns an error if the value contains null bytes.
func ValidateNoNullBytes(field, value string) *ValidationError {
	if strings.Contains(value, "\x00") {
		return &ValidationError{Field: field, Message: "must not contain null bytes"}
	}
	return nil
}

// ValidateMaxLength returns an error if the value exceeds max runes.
func ValidateMaxLength(field, value string, max int) *ValidationError {
	if utf8.RuneCountInString(value) > max {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("exceeds maximum length of %d characters", max),
		}
	}
	return nil
}

// ValidateRequired returns an error if the value is empty or whitespace-only.
func ValidateRequired(field, value string) *ValidationError {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{Field: field, Message: "is required"}
	}
	return nil
}

// ValidateEnum returns an error if the value is not in the allowed list.
func ValidateEnum(field, value string, allowed []string) *ValidationError {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")),
	}
}

// ValidateIndex returns an error if the value is outside [0, n).
func ValidateIndex(field string, value, n int) *ValidationError {
	if value < 0 || value >= n {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must be between 0 and %d", n-1),
		}
	}
	return nil
}

// text runs the checks shared by every free-text field.
func text(c *Collector, field, value string, max int, required bool) {
	if required {
		if err := ValidateRequired(field, value); err != nil {
			c.Add(err)
			return
		}
	}
	c.Add(ValidateUTF8(field, value))
	c.Add(ValidateNoNullBytes(field, value))
	c.Add(ValidateMaxLength(field, value, max))
}

// ValidateSearchRequest checks a search submission.
func ValidateSearchRequest(req types.SearchRequest) []ValidationError {
	var c Collector
	text(&c, "query", req.Query, MaxQueryLength, true)
	return c.Errors()
}

// ValidateChatRequest checks a chat message.
func ValidateChatRequest(req types.ChatRequest) []ValidationError {
	var c Collector
	text(&c, "message", req.Message, MaxMessageLength, true)
	return c.Errors()
}

// ValidateTitle checks a guide title query parameter.
func ValidateTitle(title string) []ValidationError {
	var c Collector
	text(&c, "title", title, MaxTitleLength, true)
	return c.Errors()
}

// ValidateViewRequest checks a view switch.
func ValidateViewRequest(req types.ViewRequest) []ValidationError {
	var c Collector
	c.Add(ValidateEnum("view", req.View, []string{
		string(types.ViewHome), string(types.ViewSearch), string(types.ViewChat), string(types.ViewLibrary),
	}))
	return c.Errors()
}

// ValidateCategory checks a catalog filter value.
func ValidateCategory(field, category string) *ValidationError {
	allowed := []string{types.CategoryAll}
	for _, cat := range types.Categories() {
		allowed = append(allowed, string(cat))
	}
	return ValidateEnum(field, category, allowed)
}

// ValidateOpenReaderRequest checks that exactly one of book_id and book is
// given, and that an inline book carries a usable title and link.
func ValidateOpenReaderRequest(req types.OpenReaderRequest) []ValidationError {
	var c Collector
	switch {
	case req.BookID == "" && req.Book == nil:
		c.Add(&ValidationError{Field: "book_id", Message: "book_id or book is required"})
	case req.BookID != "" && req.Book != nil:
		c.Add(&ValidationError{Field: "book", Message: "must not be combined with book_id"})
	case req.Book != nil:
		b := req.Book
		text(&c, "book.id", b.ID, MaxTitleLength, true)
		text(&c, "book.title", b.Title, MaxTitleLength, true)
		text(&c, "book.author", b.Author, MaxTitleLength, false)
		text(&c, "book.description", b.Description, MaxTextLength, false)
		text(&c, "book.source_url", b.SourceURL, MaxURLLength, false)
		if b.SourceURL != "" && !strings.HasPrefix(b.SourceURL, "http") {
			c.Add(&ValidationError{Field: "book.source_url", Message: "must be an absolute http(s) URL"})
		}
	default:
		text(&c, "book_id", req.BookID, MaxTitleLength, true)
	}
	return c.Errors()
}

// ValidateQuizAnswer checks a quiz pick.
func ValidateQuizAnswer(req types.QuizAnswerRequest) []ValidationError {
	var c Collector
	c.Add(ValidateIndex("option", req.Option, types.QuizOptionCount))
	return c.Errors()
}
