// Package e2e drives the Pavilion API end to end through pkg/client, either
// in-process or against a built binary (build tag e2e).
package e2e

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/hyperengineering/pavilion/internal/api"
	"github.com/hyperengineering/pavilion/internal/daily"
	"github.com/hyperengineering/pavilion/internal/gateway"
	"github.com/hyperengineering/pavilion/internal/session"
	"github.com/hyperengineering/pavilion/internal/store"
	"github.com/hyperengineering/pavilion/internal/types"
	"github.com/hyperengineering/pavilion/pkg/client"
)

const testAPIKey = "e2e-test-api-key"

// Canned model replies. Search replies wrap the list in prose and a fence;
// wisdom and quiz replies are schema-constrained JSON.
const (
	searchReply = "以下是与王阳明相关的典籍：\n```json\n" +
		`{"books":[` +
		`{"title":"传习录","author":"王阳明","description":"心学集大成之作","category":"诸子百家","targetUrl":"https://www.5000yan.com/chuanxilu/"},` +
		`{"title":"大学问","author":"王阳明","description":"阐发大学宗旨","category":"诸子百家"}` +
		`]}` + "\n```\n希望对您有帮助。"
	wisdomReply = `{"text":"知行合一","source":"传习录","interpretation":"知是行之始，行是知之成。"}`
	quizReply   = `{"question":"“上善若水”出自哪部典籍？","options":["论语","道德经","庄子","孟子"],"answer":1,"explanation":"出自《道德经》第八章。"}`
)

// scriptedGateway answers every AI call from fixed replies and counts calls.
type scriptedGateway struct {
	mu     sync.Mutex
	calls  map[string]int
	failOn map[string]error
}

func newScriptedGateway() *scriptedGateway {
	return &scriptedGateway{calls: map[string]int{}, failOn: map[string]error{}}
}

func (g *scriptedGateway) hit(op string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls[op]++
	return g.failOn[op]
}

func (g *scriptedGateway) count(op string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[op]
}

func (g *scriptedGateway) fail(op string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failOn[op] = err
}

func (g *scriptedGateway) SearchTrendingBooks(ctx context.Context, query string) (*gateway.SearchResult, error) {
	if err := g.hit("search"); err != nil {
		return nil, err
	}
	return &gateway.SearchResult{
		Text:      searchReply,
		Citations: []types.Citation{{URL: "https://www.5000yan.com/chuanxilu/", Title: "传习录"}},
	}, nil
}

func (g *scriptedGateway) BookGuide(ctx context.Context, title string) (string, error) {
	return "先读《" + title + "》的序言，再循序渐进。", g.hit("guide")
}

func (g *scriptedGateway) ChatWithScholar(ctx context.Context, history []types.ConversationTurn, message string) (string, error) {
	return "善哉问。", g.hit("chat")
}

func (g *scriptedGateway) DailyWisdom(ctx context.Context) (string, error) {
	return wisdomReply, g.hit("wisdom")
}

func (g *scriptedGateway) DailyQuiz(ctx context.Context) (string, error) {
	return quizReply, g.hit("quiz")
}

func (g *scriptedGateway) Provider() string { return "scripted" }
func (g *scriptedGateway) Model() string    { return "scripted-1" }

// portal is an in-process Pavilion server over a memory store.
type portal struct {
	url string
	gw  *scriptedGateway
	kv  *store.MemoryStore
}

func startPortal(t *testing.T) *portal {
	t.Helper()
	gw := newScriptedGateway()
	kv := store.NewMemoryStore()
	svc := daily.New(kv, gw)
	sessions := session.NewManager(session.Options{KV: kv, Gateway: gw, Daily: svc})

	handler := api.NewHandler(api.Options{
		Sessions: sessions,
		Store:    kv,
		Gateway:  gw,
		APIKey:   testAPIKey,
		Version:  "e2e",
	})
	srv := httptest.NewServer(api.NewRouter(handler))
	t.Cleanup(srv.Close)
	return &portal{url: srv.URL, gw: gw, kv: kv}
}

// client returns an authenticated client for session id.
func (p *portal) client(t *testing.T, id string) *client.Client {
	t.Helper()
	c, err := client.New(p.url, client.WithAPIKey(testAPIKey), client.WithSession(id))
	if err != nil {
		t.Fatalf("client.New: %v", err)
	}
	return c
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}
