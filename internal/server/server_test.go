package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"violet-eightfold/internal/auth"
	"violet-eightfold/internal/integration"
	"violet-eightfold/internal/journal"
	"violet-eightfold/internal/llm"
	"violet-eightfold/internal/prompt"
	"violet-eightfold/internal/session"
)

type fakeLLM struct {
	resp        llm.Response
	err         error
	got         []llm.Message
	hadDeadline bool
}

func (f *fakeLLM) Generate(ctx context.Context, msgs []llm.Message) (llm.Response, error) {
	_, f.hadDeadline = ctx.Deadline()
	f.got = msgs
	return f.resp, f.err
}

type testEnv struct {
	srv   *Server
	http  *httptest.Server
	llm   *fakeLLM
	rec   *journal.FileRecorder
	token string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo, err := auth.NewFileRepository(filepath.Join(t.TempDir(), "users.json"))
	if err != nil {
		t.Fatalf("repo: %v", err)
	}
	authSvc, err := auth.NewWithRepo(repo, nil)
	if err != nil {
		t.Fatalf("auth: %v", err)
	}
	user, err := authSvc.Register("violet", "Violet", "good-secret")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	rec, err := journal.NewFileRecorder(filepath.Join(t.TempDir(), "journal.jsonl"))
	if err != nil {
		t.Fatalf("recorder: %v", err)
	}
	tokens := auth.NewTokens("test-secret", time.Hour)
	fake := &fakeLLM{}
	s := New(authSvc, tokens, fake, rec, prompt.LangEnglish, 30*time.Second, 0)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return &testEnv{srv: s, http: ts, llm: fake, rec: rec, token: tokens.Issue(user.ID)}
}

func (e *testEnv) post(t *testing.T, path, token string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, e.http.URL+path, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	return resp
}

func TestLoginIssuesToken(t *testing.T) {
	e := newTestEnv(t)

	resp := e.post(t, "/api/login", "", loginRequest{Username: "violet", Secret: "good-secret"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.UserID == "" || out.Token == "" {
		t.Fatalf("incomplete login response: %+v", out)
	}

	bad := e.post(t, "/api/login", "", loginRequest{Username: "violet", Secret: "wrong"})
	defer bad.Body.Close()
	if bad.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad secret status = %d", bad.StatusCode)
	}
}

func TestCouncilModeSelectionByProfile(t *testing.T) {
	e := newTestEnv(t)
	e.llm.resp = llm.Response{Content: "[[SPEAKER: SAGE]] Data first."}

	resp := e.post(t, "/api/council", e.token, councilRequest{
		Messages:    []session.Message{{ID: "turn-0", Role: "user", Content: "Should I?"}},
		UserProfile: userProfile{Language: "en"},
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out councilResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Reply != "[[SPEAKER: SAGE]] Data first." {
		t.Fatalf("reply = %q", out.Reply)
	}
	if len(e.llm.got) != 2 || e.llm.got[0].Role != "system" {
		t.Fatalf("system instruction missing: %+v", e.llm.got)
	}
	if !strings.Contains(e.llm.got[0].Content, "[[SPEAKER: ID]]") {
		t.Fatalf("council request must use the council instruction")
	}

	// Direct mode via activeArchetype.
	direct := e.post(t, "/api/council", e.token, councilRequest{
		Messages:    []session.Message{{ID: "turn-0", Role: "user", Content: "Push me."}},
		UserProfile: userProfile{Language: "en", ActiveArchetype: "WARRIOR"},
	})
	defer direct.Body.Close()
	if direct.StatusCode != http.StatusOK {
		t.Fatalf("direct status = %d", direct.StatusCode)
	}
	if !strings.Contains(e.llm.got[0].Content, "The Warrior") {
		t.Fatalf("direct request must use the persona instruction")
	}
	if strings.Contains(e.llm.got[0].Content, "[[SPEAKER: ID]]") {
		t.Fatalf("direct instruction must not teach the tag format")
	}

	unknown := e.post(t, "/api/council", e.token, councilRequest{
		UserProfile: userProfile{ActiveArchetype: "ACCOUNTANT"},
	})
	defer unknown.Body.Close()
	if unknown.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown archetype status = %d", unknown.StatusCode)
	}
}

func TestProviderCallsCarryDeadline(t *testing.T) {
	e := newTestEnv(t)
	e.llm.resp = llm.Response{Content: "[[SPEAKER: SAGE]] Brief."}

	resp := e.post(t, "/api/council", e.token, councilRequest{
		Messages: []session.Message{{Role: "user", Content: "hi"}},
	})
	resp.Body.Close()
	if !e.llm.hadDeadline {
		t.Fatalf("council provider call must be bounded by the request timeout")
	}

	e.llm.hadDeadline = false
	e.llm.resp = llm.Response{Content: "{}"}
	resp = e.post(t, "/api/integrate", e.token, integrateRequest{Topic: "t"})
	resp.Body.Close()
	if !e.llm.hadDeadline {
		t.Fatalf("integrate provider call must be bounded by the request timeout")
	}
}

func TestUnauthorizedReasons(t *testing.T) {
	e := newTestEnv(t)

	cases := []struct {
		name   string
		token  string
		reason string
	}{
		{"missing", "", string(auth.ReasonMissingToken)},
		{"garbage", "not-a-token", string(auth.ReasonMalformed)},
		{"tampered", e.token + "x", string(auth.ReasonInvalidSignature)},
	}
	for _, c := range cases {
		resp := e.post(t, "/api/council", c.token, councilRequest{})
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s: status = %d", c.name, resp.StatusCode)
		}
		var body struct {
			Reason string `json:"reason"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("%s: decode: %v", c.name, err)
		}
		resp.Body.Close()
		if body.Reason != c.reason {
			t.Fatalf("%s: reason = %q, want %q", c.name, body.Reason, c.reason)
		}
	}
}

func TestIntegrateRecordsJournalEvent(t *testing.T) {
	e := newTestEnv(t)
	e.llm.resp = llm.Response{Content: `{"updatedQuest": "Decide on the move"}`}

	resp := e.post(t, "/api/integrate", e.token, integrateRequest{
		SessionHistory: []session.Message{
			{Role: "user", Content: "Should I change careers?"},
			{Role: "assistant", Content: "We must weigh risk."},
		},
		Topic: "careers",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var result integration.Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.UpdatedQuest != "Decide on the move" {
		t.Fatalf("unexpected result: %+v", result)
	}

	events, err := e.rec.LoadEvents()
	if err != nil {
		t.Fatalf("load events: %v", err)
	}
	if len(events) != 1 || events[0].Topic != "careers" || events[0].Turns != 2 {
		t.Fatalf("journal event missing or wrong: %+v", events)
	}
}

func TestIntegrateSoftFailsToEmptyResult(t *testing.T) {
	e := newTestEnv(t)
	e.llm.resp = llm.Response{Content: "nothing structured here"}

	resp := e.post(t, "/api/integrate", e.token, integrateRequest{Topic: "quiet day"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("soft failure must answer 200, got %d", resp.StatusCode)
	}
	var result integration.Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !result.Empty() {
		t.Fatalf("expected empty result, got %+v", result)
	}
}

func TestStatusEndpoint(t *testing.T) {
	e := newTestEnv(t)
	resp, err := http.Get(e.http.URL + "/api/status")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}
