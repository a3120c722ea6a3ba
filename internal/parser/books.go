package parser

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hyperengineering/pavilion/internal/catalog"
	"github.com/hyperengineering/pavilion/internal/types"
)

// SearchCoverColor marks books that came from a search rather than the seed library.
const SearchCoverColor = "bg-indigo-900"

var (
	taggedFence = regexp.MustCompile("(?is)```json[ \t]*\\r?\\n?(.*?)```")
	anyFence    = regexp.MustCompile("(?s)```(.*?)```")
)

// Tier names the strategy that located the JSON candidate.
type Tier int

const (
	TierNone Tier = iota
	TierTaggedFence
	TierAnyFence
	TierBraceSpan
)

func (t Tier) String() string {
	switch t {
	case TierTaggedFence:
		return "tagged-fence"
	case TierAnyFence:
		return "any-fence"
	case TierBraceSpan:
		return "brace-span"
	default:
		return "none"
	}
}

// BookList is the structured part of a search reply.
type BookList struct {
	Books   []types.Book
	Summary string
	Tier    Tier
}

// candidate is a located JSON payload and the region of text it occupies.
type candidate struct {
	payload    string
	start, end int
	tier       Tier
}

// locate runs the three extraction tiers in order and stops at the first hit.
func locate(text string) (candidate, bool) {
	if m := taggedFence.FindStringSubmatchIndex(text); m != nil {
		return candidate{payload: text[m[2]:m[3]], start: m[0], end: m[1], tier: TierTaggedFence}, true
	}
	if m := anyFence.FindStringSubmatchIndex(text); m != nil {
		return candidate{payload: text[m[2]:m[3]], start: m[0], end: m[1], tier: TierAnyFence}, true
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start != -1 && end > start {
		return candidate{payload: text[start : end+1], start: start, end: end + 1, tier: TierBraceSpan}, true
	}
	return candidate{}, false
}

type rawBook struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	Description string `json:"description"`
	Category    string `json:"category"`
	TargetURL   string `json:"targetUrl"`
	SourceURL   string `json:"sourceUrl"`
	URL         string `json:"url"`
}

func (r rawBook) link() string {
	for _, u := range []string{r.TargetURL, r.SourceURL, r.URL} {
		if u != "" {
			return u
		}
	}
	return ""
}

// ExtractBooks pulls the book list and the prose summary out of a search reply.
// now is the call time used to synthesize IDs.
func ExtractBooks(text string, now time.Time) Result[BookList] {
	failed := BookList{Books: []types.Book{}, Summary: text}

	c, ok := locate(text)
	if !ok {
		return fallback(failed, ErrNoJSON)
	}

	var envelope struct {
		Books json.RawMessage `json:"books"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(c.payload)), &envelope); err != nil {
		return fallback(failed, fmt.Errorf("%w: %s: %v", ErrMalformed, c.tier, err))
	}

	var raws []rawBook
	if len(envelope.Books) > 0 && envelope.Books[0] == '[' {
		if err := json.Unmarshal(envelope.Books, &raws); err != nil {
			return fallback(failed, fmt.Errorf("%w: books: %v", ErrMalformed, err))
		}
	}

	books := make([]types.Book, 0, len(raws))
	for i, r := range raws {
		books = append(books, types.Book{
			ID:          searchID(now, i),
			Title:       r.Title,
			Author:      r.Author,
			Category:    types.Category(r.Category),
			Description: r.Description,
			CoverColor:  SearchCoverColor,
			IsPopular:   true,
			SourceURL:   ResolveSourceURL(r.link(), r.Title),
		})
	}

	summary := strings.TrimSpace(text[:c.start] + text[c.end:])
	if summary == "" {
		summary = text
	}
	return parsed(BookList{Books: books, Summary: summary, Tier: c.tier})
}

// searchID is the call timestamp and position, with a ULID suffix so that two
// searches landing in the same millisecond still produce distinct IDs.
// Times outside the ULID range (before the epoch, say) take the current time
// for the suffix.
func searchID(now time.Time, idx int) string {
	id, err := ulid.New(ulid.Timestamp(now), ulid.DefaultEntropy())
	if err != nil {
		id = ulid.Make()
	}
	return fmt.Sprintf("search-%d-%d-%s", now.UnixMilli(), idx, strings.ToLower(id.String()))
}

// ResolveSourceURL keeps link when it looks absolute, otherwise builds a web
// search for title restricted to the trusted source domain.
func ResolveSourceURL(link, title string) string {
	if strings.Contains(link, "http") {
		return link
	}
	q := url.Values{"q": {"site:" + catalog.TrustedSourceDomain + " " + title}}
	return "https://www.bing.com/search?" + q.Encode()
}
