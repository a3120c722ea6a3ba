package parser

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hyperengineering/pavilion/internal/types"
)

// FallbackQuiz is served whenever a quiz reply is unusable.
func FallbackQuiz() types.QuizItem {
	return types.QuizItem{
		Question:    "‘上善若水’出自哪部经典？",
		Options:     []string{"论语", "道德经", "庄子", "孟子"},
		Answer:      1,
		Explanation: "出自《道德经》第八章：上善若水。水善利万物而不争。",
	}
}

// FallbackWisdom is served whenever a wisdom reply is unusable.
func FallbackWisdom() types.WisdomQuote {
	return types.WisdomQuote{
		Text:           "道可道，非常道。",
		Source:         "道德经",
		Interpretation: "言语定义了界限，去直接体验生活的真谛吧。",
	}
}

// DecodeQuiz decodes a schema-constrained quiz reply.
func DecodeQuiz(raw string) Result[types.QuizItem] {
	var q types.QuizItem
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &q); err != nil {
		return fallback(FallbackQuiz(), fmt.Errorf("%w: %v", ErrMalformed, err))
	}
	if err := validateQuiz(q); err != nil {
		return fallback(FallbackQuiz(), err)
	}
	return parsed(q)
}

func validateQuiz(q types.QuizItem) error {
	if strings.TrimSpace(q.Question) == "" {
		return fmt.Errorf("%w: missing question", ErrInvalidShape)
	}
	if len(q.Options) != types.QuizOptionCount {
		return fmt.Errorf("%w: want %d options, got %d", ErrInvalidShape, types.QuizOptionCount, len(q.Options))
	}
	for i, opt := range q.Options {
		if strings.TrimSpace(opt) == "" {
			return fmt.Errorf("%w: option %d is empty", ErrInvalidShape, i)
		}
	}
	if q.Answer < 0 || q.Answer >= len(q.Options) {
		return fmt.Errorf("%w: answer %d out of range", ErrInvalidShape, q.Answer)
	}
	return nil
}

// DecodeWisdom decodes a schema-constrained wisdom reply.
func DecodeWisdom(raw string) Result[types.WisdomQuote] {
	var w types.WisdomQuote
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &w); err != nil {
		return fallback(FallbackWisdom(), fmt.Errorf("%w: %v", ErrMalformed, err))
	}
	if strings.TrimSpace(w.Text) == "" {
		return fallback(FallbackWisdom(), fmt.Errorf("%w: missing text", ErrInvalidShape))
	}
	return parsed(w)
}
