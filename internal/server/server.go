package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"violet-eightfold/internal/archetype"
	"violet-eightfold/internal/auth"
	"violet-eightfold/internal/integration"
	"violet-eightfold/internal/journal"
	"violet-eightfold/internal/llm"
	"violet-eightfold/internal/prompt"
	"violet-eightfold/internal/session"
)

// Server is the HTTP backend the web client talks to: login, council
// completions and transcript integration.
type Server struct {
	authSvc     *auth.Service
	tokens      *auth.Tokens
	llmClient   llm.Client
	extractor   *integration.Extractor
	recorder    journal.Recorder
	defaultLang prompt.Language
	timeout     time.Duration

	server    *http.Server
	port      int
	startTime time.Time
}

func New(authSvc *auth.Service, tokens *auth.Tokens, llmClient llm.Client, recorder journal.Recorder, defaultLang prompt.Language, timeout time.Duration, port int) *Server {
	return &Server{
		authSvc:     authSvc,
		tokens:      tokens,
		llmClient:   llmClient,
		extractor:   integration.NewExtractor(llmClient),
		recorder:    recorder,
		defaultLang: defaultLang,
		timeout:     timeout,
		port:        port,
		startTime:   time.Now(),
	}
}

// requestContext bounds a provider call so a stuck backend cannot hold the
// connection past the configured timeout.
func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return r.Context(), func() {}
	}
	return context.WithTimeout(r.Context(), s.timeout)
}

// Handler builds the route table. Split out from Start for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/login", s.handleLogin)
	mux.HandleFunc("/api/council", s.authenticated(s.handleCouncil))
	mux.HandleFunc("/api/integrate", s.authenticated(s.handleIntegrate))
	mux.HandleFunc("/api/digest", s.authenticated(s.handleDigest))
	mux.HandleFunc("/api/status", s.handleStatus)
	return mux
}

// Start runs the server until Stop or a listener failure.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	log.Printf("🌐 Starting council server on http://localhost:%d", s.port)
	return s.server.ListenAndServe()
}

func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

type loginRequest struct {
	Username string `json:"username"`
	Secret   string `json:"secret"`
}

type loginResponse struct {
	UserID string `json:"userId"`
	Token  string `json:"token"`
}

type userProfile struct {
	Lore            string `json:"lore"`
	Language        string `json:"language"`
	ActiveArchetype string `json:"activeArchetype,omitempty"`
}

type councilRequest struct {
	Messages    []session.Message `json:"messages"`
	UserProfile userProfile       `json:"userProfile"`
}

type councilResponse struct {
	Reply string `json:"reply"`
}

type integrateRequest struct {
	SessionHistory []session.Message `json:"sessionHistory"`
	Topic          string            `json:"topic,omitempty"`
	CurrentQuest   string            `json:"currentQuest,omitempty"`
	CurrentState   string            `json:"currentState,omitempty"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	user, err := s.authSvc.Login(req.Username, req.Secret)
	if err != nil {
		log.Printf("🔒 Login refused for %q", req.Username)
		writeUnauthorized(w, "bad_credentials")
		return
	}
	writeJSON(w, loginResponse{UserID: user.ID, Token: s.tokens.Issue(user.ID)})
}

// authenticated wraps a handler with bearer-token verification. The user id
// is passed through the request context.
func (s *Server) authenticated(next func(w http.ResponseWriter, r *http.Request, userID string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if token == header {
			token = ""
		}
		userID, err := s.tokens.Verify(token)
		if err != nil {
			var te *auth.TokenError
			reason := auth.ReasonMalformed
			if errors.As(err, &te) {
				reason = te.Reason
			}
			writeUnauthorized(w, string(reason))
			return
		}
		if !s.authSvc.Known(userID) {
			writeUnauthorized(w, string(auth.ReasonUnknownUser))
			return
		}
		next(w, r, userID)
	}
}

func (s *Server) handleCouncil(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req councilRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	mode := prompt.ModeCouncil
	var persona *archetype.Archetype
	if req.UserProfile.ActiveArchetype != "" {
		a, ok := archetype.Lookup(archetype.ID(req.UserProfile.ActiveArchetype))
		if !ok {
			http.Error(w, "Unknown archetype", http.StatusBadRequest)
			return
		}
		mode = prompt.ModeDirect
		persona = &a
	}

	instruction := prompt.BuildSystemInstruction(mode, persona, s.language(req.UserProfile.Language), req.UserProfile.Lore)

	messages := make([]llm.Message, 0, len(req.Messages)+1)
	messages = append(messages, llm.Message{Role: "system", Content: instruction})
	for _, m := range req.Messages {
		role := m.Role
		if role != "user" {
			role = "assistant"
		}
		messages = append(messages, llm.Message{Role: role, Content: m.Content})
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()
	resp, err := s.llmClient.Generate(ctx, messages)
	if err != nil {
		log.Printf("❌ Council completion failed for user %s: %v", userID, err)
		http.Error(w, "Completion backend failure", http.StatusBadGateway)
		return
	}
	log.Printf("📜 Council reply for user %s: mode=%s tokens=%d", userID, mode, resp.TotalTokens)
	writeJSON(w, councilResponse{Reply: resp.Content})
}

func (s *Server) handleIntegrate(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req integrateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()
	result, err := s.extractor.Extract(ctx, req.SessionHistory, req.Topic, req.CurrentQuest, req.CurrentState)
	if err != nil {
		// The adjourn action must not fail on a broken enrichment: an
		// extraction error degrades to the empty result.
		log.Printf("⚠️ Integration extraction failed for user %s: %v", userID, err)
		writeJSON(w, integration.Result{})
		return
	}

	if s.recorder != nil {
		ev := journal.Event{
			Timestamp: time.Now().UTC(),
			UserID:    userID,
			Topic:     req.Topic,
			Turns:     len(req.SessionHistory),
			Result:    result,
		}
		if err := s.recorder.AppendEvent(ev); err != nil {
			log.Printf("⚠️ Failed to journal integration for user %s: %v", userID, err)
		}
	}
	writeJSON(w, result)
}

func (s *Server) handleDigest(w http.ResponseWriter, r *http.Request, _ string) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.recorder == nil {
		http.Error(w, "Journal not configured", http.StatusNotFound)
		return
	}
	events, err := s.recorder.LoadEvents()
	if err != nil {
		http.Error(w, "Journal not readable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, journal.DigestDay(events, time.Now().UTC()))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.startTime).Round(time.Second).String(),
	})
}

func (s *Server) language(raw string) prompt.Language {
	switch prompt.Language(raw) {
	case prompt.LangEnglish, prompt.LangRussian:
		return prompt.Language(raw)
	default:
		return s.defaultLang
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("❌ Failed to encode response: %v", err)
	}
}

func writeUnauthorized(w http.ResponseWriter, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":  "unauthorized",
		"reason": reason,
	})
}
