package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// Category is the closed set of shelf tags used to file classical texts.
type Category string

const (
	CategoryPhilosophy Category = "诸子百家"
	CategoryBuddhism   Category = "佛学经典"
	CategoryIChing     Category = "易经术数"
	CategoryHistory    Category = "史书典籍"
	CategoryWestern    Category = "西方哲学"
)

// CategoryAll is the catalog filter value that disables category filtering.
const CategoryAll = "ALL"

// Categories returns every category in display order.
func Categories() []Category {
	return []Category{
		CategoryPhilosophy,
		CategoryBuddhism,
		CategoryIChing,
		CategoryHistory,
		CategoryWestern,
	}
}

// ParseCategory converts a raw tag into a Category.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories() {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// Book is a catalog entry. Seed entries are immutable; search results
// are built fresh with synthesized IDs.
type Book struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Author      string   `json:"author"`
	Category    Category `json:"category"`
	Description string   `json:"description"`
	CoverColor  string   `json:"cover_color,omitempty"`
	IsPopular   bool     `json:"is_popular,omitempty"`
	SourceURL   string   `json:"source_url,omitempty"`
}

// Role identifies the speaker of a conversation turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// ConversationTurn is one message of a scholar chat.
type ConversationTurn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Citation is a web source the AI grounded a search answer on.
type Citation struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// SearchSession is the outcome of the most recent search.
type SearchSession struct {
	Query     string     `json:"query"`
	Summary   string     `json:"summary"`
	Books     []Book     `json:"books"`
	Citations []Citation `json:"citations"`
	// Fallback is set when no book list could be extracted from the reply.
	Fallback bool `json:"fallback,omitempty"`
}

// MarshalJSON renders nil slices as empty arrays.
func (s SearchSession) MarshalJSON() ([]byte, error) {
	type Alias SearchSession
	a := Alias(s)
	if a.Books == nil {
		a.Books = []Book{}
	}
	if a.Citations == nil {
		a.Citations = []Citation{}
	}
	return json.Marshal(a)
}

// QuizItem is a four-option multiple choice question.
type QuizItem struct {
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	Answer      int      `json:"answer"`
	Explanation string   `json:"explanation"`
}

// QuizOptionCount is the number of options every QuizItem carries.
const QuizOptionCount = 4

// WisdomQuote is a short saying with its source and a modern reading.
type WisdomQuote struct {
	Text           string `json:"text"`
	Source         string `json:"source"`
	Interpretation string `json:"interpretation"`
}

// View names the main screen of the portal.
type View string

const (
	ViewHome    View = "home"
	ViewSearch  View = "search"
	ViewChat    View = "chat"
	ViewLibrary View = "library"
)

// ParseView converts a raw view name into a View.
func ParseView(s string) (View, error) {
	switch View(s) {
	case ViewHome, ViewSearch, ViewChat, ViewLibrary:
		return View(s), nil
	}
	return "", fmt.Errorf("unknown view %q", s)
}

// Frame describes an embedded third-party site. The portal never loads
// these itself; it only hands the descriptor to the rendering surface.
type Frame struct {
	Title   string   `json:"title"`
	URL     string   `json:"url"`
	Sandbox []string `json:"sandbox"`
}

// ReaderState is the reader overlay. It is present whenever a book is open,
// whatever the main view.
type ReaderState struct {
	Book          Book   `json:"book"`
	Frame         *Frame `json:"frame,omitempty"`
	Progress      int    `json:"progress"`
	AssistantOpen bool   `json:"assistant_open"`
	Notice        string `json:"notice,omitempty"`
}

// QuizState is the live quiz together with the user's pick.
type QuizState struct {
	Quiz            QuizItem `json:"quiz"`
	Fallback        bool     `json:"fallback,omitempty"`
	Selected        *int     `json:"selected,omitempty"`
	Correct         *bool    `json:"correct,omitempty"`
	ShowExplanation bool     `json:"show_explanation"`
}

// DateLayout formats calendar days for check-ins and daily content keys.
const DateLayout = "2006-01-02"

// CheckInStatus is the daily check-in streak.
type CheckInStatus struct {
	LastDate  string `json:"last_date,omitempty"`
	Streak    int    `json:"streak"`
	CheckedIn bool   `json:"checked_in"`
}

// PortalState is the snapshot of one session's view state.
type PortalState struct {
	Session        string       `json:"session"`
	View           View         `json:"view"`
	ActiveCategory string       `json:"active_category"`
	Reader         *ReaderState `json:"reader,omitempty"`
	Busy           []string     `json:"busy"`
}

// HealthResponse is the health check payload.
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Gateway  string `json:"gateway"`
	Store    string `json:"store"`
}

// CatalogResponse is the filtered seed catalog.
type CatalogResponse struct {
	Category string `json:"category"`
	Books    []Book `json:"books"`
}

// SessionInfo describes a live portal session.
type SessionInfo struct {
	ID           string    `json:"id"`
	Created      time.Time `json:"created"`
	LastAccessed time.Time `json:"last_accessed"`
}

// ViewRequest switches the main view.
type ViewRequest struct {
	View string `json:"view"`
}

// CategoryRequest sets the catalog filter.
type CategoryRequest struct {
	Category string `json:"category"`
}

// OpenReaderRequest opens the reader overlay, either on a catalog
// entry by ID or on a book taken from search results.
type OpenReaderRequest struct {
	BookID string `json:"book_id,omitempty"`
	Book   *Book  `json:"book,omitempty"`
}

// SearchRequest submits a search query.
type SearchRequest struct {
	Query string `json:"query"`
}

// ChatRequest sends a message to the scholar.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse carries the reply and the full transcript.
type ChatResponse struct {
	Reply      string             `json:"reply"`
	Transcript []ConversationTurn `json:"transcript"`
}

// QuizAnswerRequest picks a quiz option.
type QuizAnswerRequest struct {
	Option int `json:"option"`
}

// GuideResponse is an AI reading guide for a title.
type GuideResponse struct {
	Title string `json:"title"`
	Guide string `json:"guide"`
}

// MottoResponse is the calendar motto for a day.
type MottoResponse struct {
	Date  string `json:"date"`
	Motto string `json:"motto"`
}

// WisdomResponse wraps a quote with how it was obtained.
type WisdomResponse struct {
	WisdomQuote
	Fallback  bool      `json:"fallback,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
}
