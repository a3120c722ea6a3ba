// Package controller holds the state of one reader's portal session and
// orchestrates the catalog, preferences, daily content and AI gateway.
package controller

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hyperengineering/pavilion/internal/catalog"
	"github.com/hyperengineering/pavilion/internal/gateway"
	"github.com/hyperengineering/pavilion/internal/parser"
	"github.com/hyperengineering/pavilion/internal/prefs"
	"github.com/hyperengineering/pavilion/internal/types"
)

var (
	// ErrEmptyQuery is returned for a search query that is blank after trimming.
	ErrEmptyQuery = errors.New("search query is empty")
	// ErrEmptyMessage is returned for a blank chat message.
	ErrEmptyMessage = errors.New("chat message is empty")
	// ErrEmptyTitle is returned for a blank guide title.
	ErrEmptyTitle = errors.New("book title is empty")
	// ErrBusy is returned when the same flow already has a request in flight.
	ErrBusy = errors.New("request already in progress")
	// ErrBookNotFound is returned when a book ID matches neither the catalog
	// nor the current search results.
	ErrBookNotFound = errors.New("book not found")
	// ErrReaderClosed is returned by reader operations when no book is open.
	ErrReaderClosed = errors.New("reader is not open")
	// ErrNoQuiz is returned when answering before a quiz was loaded.
	ErrNoQuiz = errors.New("no quiz loaded")
	// ErrInvalidOption is returned for a quiz option outside the option list.
	ErrInvalidOption = errors.New("quiz option out of range")
)

// Fixed texts shown in the chat transcript.
const (
	Greeting         = "阁下安好。吾乃智阁守书人，通晓古今。今日有何困惑，不妨道来？"
	PonderingReply   = "老朽正在沉思，请稍候..."
	ChatFailureReply = "思绪受阻（网络错误），请重新提问。"

	// ChatUnavailableReply is shown when no AI credential is configured.
	ChatUnavailableReply = "守书人暂未就位（未配置 AI 密钥），请联系管理员。"
)

// NoSourceNotice is shown in the reader when a book has no online text.
const NoSourceNotice = "此书暂无在线原文，可开启智能助手探讨。"

// ProgressStep is the reading progress added per AdvanceProgress call.
const ProgressStep = 5

// Flow names an AI-backed interaction with its own in-flight guard.
type Flow string

const (
	FlowSearch Flow = "search"
	FlowChat   Flow = "chat"
	FlowQuiz   Flow = "quiz"
	FlowWisdom Flow = "wisdom"
	FlowGuide  Flow = "guide"
)

// Gateway is the AI surface the controller needs.
type Gateway interface {
	SearchTrendingBooks(ctx context.Context, query string) (*gateway.SearchResult, error)
	BookGuide(ctx context.Context, title string) (string, error)
	ChatWithScholar(ctx context.Context, history []types.ConversationTurn, message string) (string, error)
}

// Daily supplies the day's wisdom card and quiz.
type Daily interface {
	Wisdom(ctx context.Context, day time.Time) (parser.Result[types.WisdomQuote], error)
	Quiz(ctx context.Context, day time.Time) (parser.Result[types.QuizItem], error)
}

// Options configures a Controller.
type Options struct {
	Session string
	Prefs   *prefs.Store
	Gateway Gateway
	Daily   Daily
	// Now defaults to time.Now.
	Now func() time.Time
}

// Controller is the view state machine for one session. All methods are
// safe for concurrent use; AI calls run outside the lock and their results
// are applied under it.
type Controller struct {
	session string
	prefs   *prefs.Store
	gw      Gateway
	daily   Daily
	now     func() time.Time

	// checkInMu spans the read and write of one check-in.
	checkInMu sync.Mutex

	mu         sync.Mutex
	view       types.View
	category   string
	reader     *types.ReaderState
	search     types.SearchSession
	transcript []types.ConversationTurn
	quiz       *types.QuizState
	quizDate   string
	busy       map[Flow]bool
}

// New creates a Controller on the home view with the greeting turn in place.
func New(opts Options) *Controller {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Controller{
		session:    opts.Session,
		prefs:      opts.Prefs,
		gw:         opts.Gateway,
		daily:      opts.Daily,
		now:        now,
		view:       types.ViewHome,
		category:   types.CategoryAll,
		transcript: []types.ConversationTurn{{Role: types.RoleModel, Text: Greeting}},
		busy:       make(map[Flow]bool),
	}
}

func (c *Controller) logger() *slog.Logger {
	return slog.With("component", "controller", "session", c.session)
}

func (c *Controller) begin(f Flow) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy[f] {
		return ErrBusy
	}
	c.busy[f] = true
	return nil
}

func (c *Controller) end(f Flow) {
	c.mu.Lock()
	delete(c.busy, f)
	c.mu.Unlock()
}

func (c *Controller) today() string {
	return c.now().Format(types.DateLayout)
}

// State returns a snapshot of the view state.
func (c *Controller) State() types.PortalState {
	c.mu.Lock()
	defer c.mu.Unlock()

	busy := make([]string, 0, len(c.busy))
	for f := range c.busy {
		busy = append(busy, string(f))
	}
	sort.Strings(busy)

	return types.PortalState{
		Session:        c.session,
		View:           c.view,
		ActiveCategory: c.category,
		Reader:         copyReader(c.reader),
		Busy:           busy,
	}
}

// SetView switches the main view. The reader overlay is unaffected.
func (c *Controller) SetView(view string) error {
	v, err := types.ParseView(view)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.view = v
	c.mu.Unlock()
	return nil
}

// SetCategory sets the catalog filter to ALL or one category.
func (c *Controller) SetCategory(category string) error {
	if category != types.CategoryAll {
		if _, err := types.ParseCategory(category); err != nil {
			return err
		}
	}
	c.mu.Lock()
	c.category = category
	c.mu.Unlock()
	return nil
}

// Catalog returns the seed catalog under the active filter.
func (c *Controller) Catalog() []types.Book {
	c.mu.Lock()
	category := c.category
	c.mu.Unlock()
	return catalog.Filter(category)
}

// Frames returns the embedded sites the portal links to.
func (c *Controller) Frames() []types.Frame {
	return []types.Frame{catalog.LibraryFrame(), catalog.CommunityChatFrame()}
}

// DailyMotto returns today's calendar motto.
func (c *Controller) DailyMotto() types.MottoResponse {
	now := c.now()
	return types.MottoResponse{Date: now.Format(types.DateLayout), Motto: catalog.Motto(now)}
}

// OpenBook opens the reader on a catalog entry or a current search result.
func (c *Controller) OpenBook(ctx context.Context, id string) (types.ReaderState, error) {
	if b, ok := catalog.Lookup(id); ok {
		return c.SelectBook(ctx, b)
	}
	c.mu.Lock()
	var found *types.Book
	for i := range c.search.Books {
		if c.search.Books[i].ID == id {
			b := c.search.Books[i]
			found = &b
			break
		}
	}
	c.mu.Unlock()
	if found == nil {
		return types.ReaderState{}, ErrBookNotFound
	}
	return c.SelectBook(ctx, *found)
}

// SelectBook opens the reader overlay on book and records it in the
// reading history. A history write failure is logged, not returned.
func (c *Controller) SelectBook(ctx context.Context, book types.Book) (types.ReaderState, error) {
	state := &types.ReaderState{Book: book, Frame: catalog.BookFrame(book)}
	if state.Frame == nil {
		state.Notice = NoSourceNotice
	}

	c.mu.Lock()
	c.reader = state
	out := *copyReader(state)
	c.mu.Unlock()

	if _, err := c.prefs.RecordReading(ctx, book); err != nil {
		c.logger().Warn("failed to record reading history", "book_id", book.ID, "error", err)
	}
	return out, nil
}

// CloseReader closes the overlay. Closing an already closed reader is a no-op.
func (c *Controller) CloseReader() {
	c.mu.Lock()
	c.reader = nil
	c.mu.Unlock()
}

// AdvanceProgress adds ProgressStep to the reading progress, capped at 100.
func (c *Controller) AdvanceProgress() (types.ReaderState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.reader == nil {
		return types.ReaderState{}, ErrReaderClosed
	}
	c.reader.Progress = min(c.reader.Progress+ProgressStep, 100)
	return *copyReader(c.reader), nil
}

// ToggleAssistant shows or hides the assistant panel beside the text.
func (c *Controller) ToggleAssistant() (types.ReaderState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.reader == nil {
		return types.ReaderState{}, ErrReaderClosed
	}
	c.reader.AssistantOpen = !c.reader.AssistantOpen
	return *copyReader(c.reader), nil
}

// ReadingHistory returns recently opened books, most recent first.
func (c *Controller) ReadingHistory(ctx context.Context) ([]types.Book, error) {
	return c.prefs.ReadingHistory(ctx)
}

// ClearReadingHistory empties the reading history.
func (c *Controller) ClearReadingHistory(ctx context.Context) error {
	return c.prefs.ClearReadingHistory(ctx)
}

// SearchHistory returns recent search terms, most recent first.
func (c *Controller) SearchHistory(ctx context.Context) ([]string, error) {
	return c.prefs.SearchHistory(ctx)
}

// ClearSearchHistory empties the search history.
func (c *Controller) ClearSearchHistory(ctx context.Context) error {
	return c.prefs.ClearSearchHistory(ctx)
}

// Search runs a trending-book search and replaces the search session.
// Previous results are cleared as soon as the search starts.
func (c *Controller) Search(ctx context.Context, query string) (types.SearchSession, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return types.SearchSession{}, ErrEmptyQuery
	}
	if err := c.begin(FlowSearch); err != nil {
		return types.SearchSession{}, err
	}
	defer c.end(FlowSearch)

	c.mu.Lock()
	c.view = types.ViewSearch
	c.search = types.SearchSession{Query: q}
	c.mu.Unlock()

	if _, err := c.prefs.RecordSearch(ctx, q); err != nil {
		c.logger().Warn("failed to record search history", "error", err)
	}

	res, err := c.gw.SearchTrendingBooks(ctx, q)
	if err != nil {
		c.logger().Warn("search failed", "query", q, "error", err)
		return types.SearchSession{Query: q}, err
	}

	books := parser.ExtractBooks(res.Text, c.now())
	session := types.SearchSession{
		Query:     q,
		Summary:   books.Value.Summary,
		Books:     books.Value.Books,
		Citations: res.Citations,
		Fallback:  books.IsFallback(),
	}
	if books.IsFallback() {
		c.logger().Info("search reply had no usable book list",
			"query", q,
			"reason", books.Reason,
		)
	}

	c.mu.Lock()
	c.search = session
	c.mu.Unlock()
	return session, nil
}

// SearchSession returns the most recent search outcome.
func (c *Controller) SearchSession() types.SearchSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.search
}

// Transcript returns the chat so far, starting with the greeting.
func (c *Controller) Transcript() []types.ConversationTurn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]types.ConversationTurn(nil), c.transcript...)
}

// Chat sends message to the scholar. The user turn is appended before the
// call; on failure a fixed apology turn is appended and the error returned.
func (c *Controller) Chat(ctx context.Context, message string) (types.ChatResponse, error) {
	msg := strings.TrimSpace(message)
	if msg == "" {
		return types.ChatResponse{}, ErrEmptyMessage
	}
	if err := c.begin(FlowChat); err != nil {
		return types.ChatResponse{}, err
	}
	defer c.end(FlowChat)

	c.mu.Lock()
	history := append([]types.ConversationTurn(nil), c.transcript...)
	c.transcript = append(c.transcript, types.ConversationTurn{Role: types.RoleUser, Text: msg})
	c.mu.Unlock()

	reply, err := c.gw.ChatWithScholar(ctx, history, msg)
	if err != nil {
		c.logger().Warn("chat failed", "error", err)
		reply = ChatFailureReply
		if errors.Is(err, gateway.ErrMissingCredential) {
			reply = ChatUnavailableReply
		}
	} else if strings.TrimSpace(reply) == "" {
		reply = PonderingReply
	}

	c.mu.Lock()
	c.transcript = append(c.transcript, types.ConversationTurn{Role: types.RoleModel, Text: reply})
	resp := types.ChatResponse{
		Reply:      reply,
		Transcript: append([]types.ConversationTurn(nil), c.transcript...),
	}
	c.mu.Unlock()
	return resp, err
}

// LoadQuiz returns today's quiz. The pick made earlier the same day is kept.
func (c *Controller) LoadQuiz(ctx context.Context) (types.QuizState, error) {
	today := c.today()
	c.mu.Lock()
	if c.quiz != nil && c.quizDate == today {
		out := copyQuiz(c.quiz)
		c.mu.Unlock()
		return out, nil
	}
	c.mu.Unlock()

	if err := c.begin(FlowQuiz); err != nil {
		return types.QuizState{}, err
	}
	defer c.end(FlowQuiz)

	res, err := c.daily.Quiz(ctx, c.now())
	if err != nil {
		c.logger().Warn("quiz unavailable, using fallback", "error", err)
	}

	state := &types.QuizState{Quiz: res.Value, Fallback: res.IsFallback()}
	c.mu.Lock()
	c.quiz = state
	c.quizDate = today
	out := copyQuiz(state)
	c.mu.Unlock()
	return out, nil
}

// AnswerQuiz records the user's pick and reveals the explanation. Only the
// first pick counts; later calls return the state unchanged.
func (c *Controller) AnswerQuiz(option int) (types.QuizState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.quiz == nil {
		return types.QuizState{}, ErrNoQuiz
	}
	if option < 0 || option >= len(c.quiz.Quiz.Options) {
		return types.QuizState{}, ErrInvalidOption
	}
	if c.quiz.Selected == nil {
		correct := option == c.quiz.Quiz.Answer
		c.quiz.Selected = &option
		c.quiz.Correct = &correct
		c.quiz.ShowExplanation = true
	}
	return copyQuiz(c.quiz), nil
}

// LoadWisdom returns today's wisdom card, or the fallback quote.
func (c *Controller) LoadWisdom(ctx context.Context) (types.WisdomResponse, error) {
	if err := c.begin(FlowWisdom); err != nil {
		return types.WisdomResponse{}, err
	}
	defer c.end(FlowWisdom)

	now := c.now()
	res, err := c.daily.Wisdom(ctx, now)
	if err != nil {
		c.logger().Warn("wisdom unavailable, using fallback", "error", err)
	}
	return types.WisdomResponse{
		WisdomQuote: res.Value,
		Fallback:    res.IsFallback(),
		FetchedAt:   now.UTC(),
	}, nil
}

// Guide returns an AI reading guide for title.
func (c *Controller) Guide(ctx context.Context, title string) (types.GuideResponse, error) {
	t := strings.TrimSpace(title)
	if t == "" {
		return types.GuideResponse{}, ErrEmptyTitle
	}
	if err := c.begin(FlowGuide); err != nil {
		return types.GuideResponse{}, err
	}
	defer c.end(FlowGuide)

	text, err := c.gw.BookGuide(ctx, t)
	if err != nil {
		return types.GuideResponse{}, err
	}
	return types.GuideResponse{Title: t, Guide: text}, nil
}

// CheckInStatus reports the streak and whether today is already checked in.
func (c *Controller) CheckInStatus(ctx context.Context) (types.CheckInStatus, error) {
	date, streak, err := c.prefs.CheckIn(ctx)
	if err != nil {
		return types.CheckInStatus{}, err
	}
	return types.CheckInStatus{LastDate: date, Streak: streak, CheckedIn: date == c.today()}, nil
}

// CheckIn records today's check-in and increments the streak. A second
// check-in on the same calendar day changes nothing.
func (c *Controller) CheckIn(ctx context.Context) (types.CheckInStatus, error) {
	c.checkInMu.Lock()
	defer c.checkInMu.Unlock()
	status, err := c.CheckInStatus(ctx)
	if err != nil {
		return types.CheckInStatus{}, err
	}
	if status.CheckedIn {
		return status, nil
	}
	today := c.today()
	streak := status.Streak + 1
	if err := c.prefs.SetCheckIn(ctx, today, streak); err != nil {
		return types.CheckInStatus{}, err
	}
	c.logger().Info("checked in", "date", today, "streak", streak)
	return types.CheckInStatus{LastDate: today, Streak: streak, CheckedIn: true}, nil
}

func copyReader(r *types.ReaderState) *types.ReaderState {
	if r == nil {
		return nil
	}
	out := *r
	if r.Frame != nil {
		f := *r.Frame
		f.Sandbox = append([]string(nil), r.Frame.Sandbox...)
		out.Frame = &f
	}
	return &out
}

func copyQuiz(q *types.QuizState) types.QuizState {
	out := *q
	out.Quiz.Options = append([]string(nil), q.Quiz.Options...)
	if q.Selected != nil {
		v := *q.Selected
		out.Selected = &v
	}
	if q.Correct != nil {
		v := *q.Correct
		out.Correct = &v
	}
	return out
}
