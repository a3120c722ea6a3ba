package validation

import (
	"strings"
	"testing"

	"github.com/hyperengineering/pavilion/internal/types"
)

// --- Field Validator Tests ---

func TestValidateUTF8(t *testing.T) {
	if err := ValidateUTF8("query", "王阳明 心学"); err != nil {
		t.Errorf("ValidateUTF8(valid) = %v, want nil", err)
	}
	err := ValidateUTF8("query", string([]byte{0xff, 0xfe}))
	if err == nil || err.Field != "query" {
		t.Errorf("ValidateUTF8(invalid) = %v, want error on field query", err)
	}
}

func TestValidateNoNullBytes(t *testing.T) {
	if err := ValidateNoNullBytes("message", "道可道"); err != nil {
		t.Errorf("ValidateNoNullBytes(clean) = %v, want nil", err)
	}
	if err := ValidateNoNullBytes("message", "道\x00可道"); err == nil {
		t.Error("ValidateNoNullBytes(with null) = nil, want error")
	}
}

func TestValidateMaxLength_CountsRunes(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"within", strings.Repeat("a", 10), false},
		{"at limit", strings.Repeat("a", 200), false},
		{"exceeds", strings.Repeat("a", 201), true},
		{"cjk at limit", strings.Repeat("道", 200), false},
		{"cjk exceeds", strings.Repeat("道", 201), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMaxLength("title", tt.value, 200)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateMaxLength() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateRequired(t *testing.T) {
	for _, v := range []string{"", "   ", "\t\n"} {
		if err := ValidateRequired("query", v); err == nil {
			t.Errorf("ValidateRequired(%q) = nil, want error", v)
		}
	}
	if err := ValidateRequired("query", "易经"); err != nil {
		t.Errorf("ValidateRequired(non-empty) = %v", err)
	}
}

func TestValidateEnum_CaseSensitive(t *testing.T) {
	allowed := []string{"home", "chat"}
	if err := ValidateEnum("view", "home", allowed); err != nil {
		t.Errorf("ValidateEnum(home) = %v", err)
	}
	err := ValidateEnum("view", "HOME", allowed)
	if err == nil {
		t.Fatal("ValidateEnum(HOME) = nil, want error")
	}
	if !strings.Contains(err.Message, "home, chat") {
		t.Errorf("message should list allowed values, got %q", err.Message)
	}
}

func TestValidateIndex(t *testing.T) {
	for _, v := range []int{0, 3} {
		if err := ValidateIndex("option", v, 4); err != nil {
			t.Errorf("ValidateIndex(%d) = %v", v, err)
		}
	}
	for _, v := range []int{-1, 4} {
		if err := ValidateIndex("option", v, 4); err == nil {
			t.Errorf("ValidateIndex(%d) = nil, want error", v)
		}
	}
}

// --- Collector Tests ---

func TestCollector_AccumulatesAndIgnoresNil(t *testing.T) {
	c := &Collector{}
	if c.HasErrors() {
		t.Error("HasErrors() = true, want false for empty collector")
	}
	c.Add(nil)
	c.Add(&ValidationError{Field: "f1", Message: "m1"})
	c.Add(nil)
	c.Add(&ValidationError{Field: "f2", Message: "m2"})

	errs := c.Errors()
	if len(errs) != 2 {
		t.Fatalf("len(Errors()) = %d, want 2", len(errs))
	}
	if errs[0].Field != "f1" || errs[1].Field != "f2" {
		t.Errorf("Errors() = %+v, want insertion order", errs)
	}
}

// --- Request Validator Tests ---

func TestValidateSearchRequest(t *testing.T) {
	if errs := ValidateSearchRequest(types.SearchRequest{Query: "曾国藩家书"}); len(errs) != 0 {
		t.Errorf("valid query: %+v", errs)
	}

	errs := ValidateSearchRequest(types.SearchRequest{Query: "  "})
	if len(errs) != 1 || errs[0].Message != "is required" {
		t.Errorf("blank query: %+v, want only 'is required'", errs)
	}

	errs = ValidateSearchRequest(types.SearchRequest{Query: strings.Repeat("书", MaxQueryLength+1)})
	if len(errs) != 1 || errs[0].Field != "query" {
		t.Errorf("long query: %+v", errs)
	}
}

func TestValidateChatRequest_ReportsAllFailures(t *testing.T) {
	msg := string([]byte{0xff}) + "\x00" + strings.Repeat("a", MaxMessageLength)
	errs := ValidateChatRequest(types.ChatRequest{Message: msg})
	if len(errs) != 3 {
		t.Errorf("got %d errors, want 3 (utf8, null, length): %+v", len(errs), errs)
	}
}

func TestValidateTitle(t *testing.T) {
	if errs := ValidateTitle("传习录"); len(errs) != 0 {
		t.Errorf("ValidateTitle(valid) = %+v", errs)
	}
	if errs := ValidateTitle(""); len(errs) != 1 {
		t.Errorf("ValidateTitle(empty) = %+v", errs)
	}
}

func TestValidateViewRequest(t *testing.T) {
	if errs := ValidateViewRequest(types.ViewRequest{View: "library"}); len(errs) != 0 {
		t.Errorf("library: %+v", errs)
	}
	if errs := ValidateViewRequest(types.ViewRequest{View: "reader"}); len(errs) != 1 {
		t.Errorf("reader: %+v", errs)
	}
}

func TestValidateCategory(t *testing.T) {
	for _, v := range []string{types.CategoryAll, string(types.CategoryIChing)} {
		if err := ValidateCategory("category", v); err != nil {
			t.Errorf("ValidateCategory(%q) = %v", v, err)
		}
	}
	if err := ValidateCategory("category", "all"); err == nil {
		t.Error("ValidateCategory(all) = nil, want error")
	}
}

func TestValidateOpenReaderRequest(t *testing.T) {
	tests := []struct {
		name     string
		req      types.OpenReaderRequest
		wantErrs int
	}{
		{"by id", types.OpenReaderRequest{BookID: "3"}, 0},
		{"neither", types.OpenReaderRequest{}, 1},
		{"both", types.OpenReaderRequest{BookID: "3", Book: &types.Book{ID: "x", Title: "t"}}, 1},
		{"inline", types.OpenReaderRequest{Book: &types.Book{
			ID: "search-1", Title: "大学问", SourceURL: "https://www.5000yan.com/",
		}}, 0},
		{"inline missing title", types.OpenReaderRequest{Book: &types.Book{ID: "search-1"}}, 1},
		{"inline relative url", types.OpenReaderRequest{Book: &types.Book{
			ID: "search-1", Title: "大学问", SourceURL: "/daxue",
		}}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidateOpenReaderRequest(tt.req)
			if len(errs) != tt.wantErrs {
				t.Errorf("got %d errors, want %d: %+v", len(errs), tt.wantErrs, errs)
			}
		})
	}
}

func TestValidateQuizAnswer(t *testing.T) {
	if errs := ValidateQuizAnswer(types.QuizAnswerRequest{Option: 2}); len(errs) != 0 {
		t.Errorf("option 2: %+v", errs)
	}
	if errs := ValidateQuizAnswer(types.QuizAnswerRequest{Option: types.QuizOptionCount}); len(errs) != 1 {
		t.Errorf("option 4: %+v", errs)
	}
}
