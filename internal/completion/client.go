package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"violet-eightfold/internal/archetype"
	"violet-eightfold/internal/prompt"
	"violet-eightfold/internal/session"
)

// Chunk is one increment of completion text. The current backend answers in
// a single shot, so a stream carries exactly one chunk; the channel shape
// stays so a real streaming backend is a drop-in change.
type Chunk struct {
	Text string
	Err  error
}

// Profile travels with every council request and tells the backend how to
// build the system instruction. A set ActiveArchetype selects direct mode;
// nil means a full council sitting.
type Profile struct {
	Lore            string          `json:"lore"`
	Language        prompt.Language `json:"language"`
	ActiveArchetype *archetype.ID   `json:"activeArchetype,omitempty"`
}

// Credentials is the token cache the client reads from and clears on
// authentication failures.
type Credentials interface {
	Token() string
	Set(token string)
	Clear()
}

// Client talks to the council backend. It never retries on its own; retry
// and backoff are the caller's decision.
type Client struct {
	baseURL string
	httpc   *http.Client
	creds   Credentials
}

func NewClient(baseURL string, timeout time.Duration, creds Credentials) *Client {
	return &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: timeout},
		creds:   creds,
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Secret   string `json:"secret"`
}

type loginResponse struct {
	UserID string `json:"userId"`
	Token  string `json:"token"`
}

type councilRequest struct {
	Messages    []session.Message `json:"messages"`
	UserProfile Profile           `json:"userProfile"`
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

// Login exchanges credentials for a bearer token and caches it.
func (c *Client) Login(ctx context.Context, username, secret string) (string, error) {
	var resp loginResponse
	if err := c.post(ctx, "/api/login", loginRequest{Username: username, Secret: secret}, &resp, false); err != nil {
		return "", err
	}
	c.creds.Set(resp.Token)
	return resp.UserID, nil
}

// Complete sends the conversation to the backend and returns the reply as a
// chunk sequence. The channel is closed after the final chunk.
func (c *Client) Complete(ctx context.Context, messages []session.Message, profile Profile) (<-chan Chunk, error) {
	var resp councilResponse
	if err := c.post(ctx, "/api/council", councilRequest{Messages: messages, UserProfile: profile}, &resp, true); err != nil {
		return nil, err
	}
	out := make(chan Chunk, 1)
	out <- Chunk{Text: resp.Reply}
	close(out)
	return out, nil
}

// Integrate asks the backend to distill a finished transcript. The raw JSON
// comes back unparsed; the analyzer owns interpretation and its soft-fail.
func (c *Client) Integrate(ctx context.Context, history []session.Message, topic, currentQuest, currentState string) (json.RawMessage, error) {
	var raw json.RawMessage
	req := integrateRequest{
		SessionHistory: history,
		Topic:          topic,
		CurrentQuest:   currentQuest,
		CurrentState:   currentState,
	}
	if err := c.post(ctx, "/api/integrate", req, &raw, true); err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any, authed bool) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("Authorization", "Bearer "+c.creds.Token())
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized {
		var body struct {
			Reason string `json:"reason"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		c.creds.Clear()
		return &AuthError{Reason: body.Reason}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &TransportError{Status: resp.StatusCode}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransportError{Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
