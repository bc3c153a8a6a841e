package council

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"violet-eightfold/internal/archetype"
	"violet-eightfold/internal/completion"
	"violet-eightfold/internal/dialogue"
	"violet-eightfold/internal/integration"
	"violet-eightfold/internal/prompt"
	"violet-eightfold/internal/session"
)

// Phase is the single tagged session state. Keeping it one value (instead
// of isStreaming/isIntegrating flags) makes illegal combinations
// unrepresentable.
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseActive      Phase = "active"
	PhaseStreaming   Phase = "streaming"
	PhaseIntegrating Phase = "integrating"
)

var (
	// ErrBusy rejects a call that arrives while a request is in flight.
	// Council calls are never queued: queuing would silently reorder
	// user intent.
	ErrBusy = errors.New("a council request is already in flight")
	// ErrNoSession rejects Reply and Integrate before StartCouncil.
	ErrNoSession = errors.New("no council session in progress")
	// ErrUnknownPersona rejects direct sends to ids outside the roster.
	ErrUnknownPersona = errors.New("unknown archetype")
	// ErrSuperseded reports that a newer direct send cancelled this one.
	ErrSuperseded = errors.New("request superseded by a newer one")
)

// Completer is the slice of the completion client the orchestrator needs.
type Completer interface {
	Complete(ctx context.Context, messages []session.Message, profile completion.Profile) (<-chan completion.Chunk, error)
}

// Analyzer distills an adjourned transcript.
type Analyzer interface {
	Analyze(ctx context.Context, transcript []dialogue.Turn, topic, currentQuest, currentState string) (integration.Result, error)
}

// Config wires one orchestrator instance.
type Config struct {
	Completer Completer
	Analyzer  Analyzer
	Language  prompt.Language
	Lore      string

	// OnResult receives the integration outcome of every adjourned
	// session, including the empty result of a soft-failed extraction.
	OnResult func(integration.Result)
	// OnPartial, when set, receives the re-parsed turn list after every
	// received chunk, for progressive rendering.
	OnPartial func(turns []dialogue.Turn)
}

// Orchestrator is the top-level session controller. One instance per user
// interaction context; it owns the council history and one direct history
// per archetype, and at most one in-flight backend request.
type Orchestrator struct {
	mu sync.Mutex

	completer Completer
	analyzer  Analyzer
	language  prompt.Language
	lore      string
	onResult  func(integration.Result)
	onPartial func(turns []dialogue.Turn)

	phase      Phase
	sessionID  string
	topic      string
	council    *session.State
	councilGen uint64
	retry      *retryRequest

	direct       map[archetype.ID]*session.State
	directCancel context.CancelFunc
	directGen    uint64

	cancel   context.CancelFunc
	lastSeen time.Time

	currentQuest string
	currentState string
}

// retryRequest is the last failed council exchange, kept so the retry
// affordance can re-issue exactly it.
type retryRequest struct {
	payload []session.Message
	offset  int
}

func New(cfg Config) *Orchestrator {
	return &Orchestrator{
		completer: cfg.Completer,
		analyzer:  cfg.Analyzer,
		language:  cfg.Language,
		lore:      cfg.Lore,
		onResult:  cfg.OnResult,
		onPartial: cfg.OnPartial,
		phase:     PhaseIdle,
		council:   session.NewState(),
		direct:    make(map[archetype.ID]*session.State),
		lastSeen:  time.Now(),
	}
}

func (o *Orchestrator) Phase() Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.phase
}

func (o *Orchestrator) Topic() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.topic
}

func (o *Orchestrator) SessionID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sessionID
}

// History returns the council transcript so far.
func (o *Orchestrator) History() []dialogue.Turn {
	return o.council.Snapshot()
}

// DirectHistory returns the direct-chat transcript with one persona.
func (o *Orchestrator) DirectHistory(id archetype.ID) []dialogue.Turn {
	o.mu.Lock()
	st := o.direct[archetype.Normalize(string(id))]
	o.mu.Unlock()
	if st == nil {
		return nil
	}
	return st.Snapshot()
}

// SetQuestState updates the quest context handed to integration.
func (o *Orchestrator) SetQuestState(quest, state string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.currentQuest = quest
	o.currentState = state
}

// LastActivity is when the orchestrator last finished an operation.
func (o *Orchestrator) LastActivity() time.Time {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastSeen
}

// StartCouncil convenes a new sitting on the given topic. Any previous
// council history is discarded. Valid from idle or active; rejected with
// ErrBusy while a request is in flight.
func (o *Orchestrator) StartCouncil(ctx context.Context, topic string) ([]dialogue.Turn, error) {
	o.mu.Lock()
	if o.phase == PhaseStreaming || o.phase == PhaseIntegrating {
		o.mu.Unlock()
		return nil, ErrBusy
	}
	o.council.Clear()
	o.retry = nil
	userTurn, err := o.council.AppendUser(topic)
	if err != nil {
		o.mu.Unlock()
		return nil, err
	}
	o.topic = userTurn.Content
	o.sessionID = uuid.NewString()
	return o.issueCouncilLocked(ctx)
}

// Reply adds the user's message to the sitting and asks the council to
// continue. Valid only in the active phase.
func (o *Orchestrator) Reply(ctx context.Context, message string) ([]dialogue.Turn, error) {
	o.mu.Lock()
	switch o.phase {
	case PhaseStreaming, PhaseIntegrating:
		o.mu.Unlock()
		return nil, ErrBusy
	case PhaseIdle:
		o.mu.Unlock()
		return nil, ErrNoSession
	}
	// The history already carries the turn after this append; the payload
	// is built from the history alone so the message is submitted once.
	if _, err := o.council.AppendUser(message); err != nil {
		o.mu.Unlock()
		return nil, err
	}
	return o.issueCouncilLocked(ctx)
}

// RetryLast re-issues the request that failed last, without appending
// anything new. Valid only in the active phase with a failure recorded.
func (o *Orchestrator) RetryLast(ctx context.Context) ([]dialogue.Turn, error) {
	o.mu.Lock()
	if o.phase == PhaseStreaming || o.phase == PhaseIntegrating {
		o.mu.Unlock()
		return nil, ErrBusy
	}
	if o.retry == nil {
		o.mu.Unlock()
		return nil, errors.New("nothing to retry")
	}
	req := *o.retry
	o.phase = PhaseStreaming
	gen := o.councilGen
	reqCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.mu.Unlock()
	return o.finishCouncil(reqCtx, req, gen)
}

// issueCouncilLocked sends the current history to the backend. The mutex is
// held on entry and released before the network call.
func (o *Orchestrator) issueCouncilLocked(ctx context.Context) ([]dialogue.Turn, error) {
	req := retryRequest{
		payload: o.council.ToConversationPayload(),
		offset:  o.council.NextIndex(),
	}
	o.phase = PhaseStreaming
	gen := o.councilGen
	reqCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.mu.Unlock()
	return o.finishCouncil(reqCtx, req, gen)
}

func (o *Orchestrator) finishCouncil(ctx context.Context, req retryRequest, gen uint64) ([]dialogue.Turn, error) {
	text, err := o.exchange(ctx, req.payload, completion.Profile{
		Lore:     o.lore,
		Language: o.language,
	}, req.offset)

	o.mu.Lock()
	defer o.mu.Unlock()
	if gen != o.councilGen {
		// Shutdown ran while the request was in flight. The session is
		// already terminated; the settling request must not resurrect it,
		// record a retry, or append into the cleared history.
		return nil, ErrSuperseded
	}
	o.cancel = nil
	o.phase = PhaseActive
	o.lastSeen = time.Now()
	if err != nil {
		// The session stays active; the same request can be retried.
		o.retry = &req
		return nil, err
	}
	o.retry = nil
	turns := dialogue.Parse(text, req.offset)
	o.council.Append(turns)
	return turns, nil
}

// exchange runs one completion request and accumulates the chunk stream.
// The growing buffer is re-parsed from scratch after every chunk; turns
// are short conversational text, so quadratic re-parsing is fine.
func (o *Orchestrator) exchange(ctx context.Context, payload []session.Message, profile completion.Profile, offset int) (string, error) {
	stream, err := o.completer.Complete(ctx, payload, profile)
	if err != nil {
		return "", err
	}
	var buf strings.Builder
	for chunk := range stream {
		if chunk.Err != nil {
			return "", chunk.Err
		}
		buf.WriteString(chunk.Text)
		if o.onPartial != nil {
			o.onPartial(dialogue.Parse(buf.String(), offset))
		}
	}
	return buf.String(), nil
}

// Integrate adjourns the sitting: the transcript is distilled into journal
// updates, the result is emitted, and the session is cleared. A transport
// failure aborts back to active with the session intact; an unparseable
// extraction does not, it adjourns with the empty result.
func (o *Orchestrator) Integrate(ctx context.Context) (integration.Result, error) {
	o.mu.Lock()
	switch o.phase {
	case PhaseStreaming, PhaseIntegrating:
		o.mu.Unlock()
		return integration.Result{}, ErrBusy
	case PhaseIdle:
		o.mu.Unlock()
		return integration.Result{}, ErrNoSession
	}
	o.phase = PhaseIntegrating
	topic := o.topic
	quest, state := o.currentQuest, o.currentState
	transcript := o.council.Snapshot()
	o.mu.Unlock()

	result, err := o.analyzer.Analyze(ctx, transcript, topic, quest, state)

	o.mu.Lock()
	defer o.mu.Unlock()
	o.lastSeen = time.Now()
	if err != nil {
		o.phase = PhaseActive
		return integration.Result{}, err
	}
	if o.onResult != nil {
		o.onResult(result)
	}
	o.council.Clear()
	o.topic = ""
	o.sessionID = ""
	o.retry = nil
	o.phase = PhaseIdle
	return result, nil
}

// SendDirect runs one direct-mode exchange with a single persona. Direct
// chat has no explicit session lifecycle: each persona context is always
// active, and a new send supersedes any in-flight one by cancelling it
// before the new history mutation (a stale response must never land in a
// context that has moved on).
func (o *Orchestrator) SendDirect(ctx context.Context, personaID archetype.ID, message string) (dialogue.Turn, error) {
	persona, ok := archetype.Lookup(personaID)
	if !ok {
		return dialogue.Turn{}, ErrUnknownPersona
	}

	o.mu.Lock()
	if o.directCancel != nil {
		o.directCancel()
		o.directCancel = nil
	}
	st := o.direct[persona.ID]
	if st == nil {
		st = session.NewState()
		o.direct[persona.ID] = st
	}
	if _, err := st.AppendUser(message); err != nil {
		o.mu.Unlock()
		return dialogue.Turn{}, err
	}
	o.directGen++
	gen := o.directGen
	payload := st.ToConversationPayload()
	reqCtx, cancel := context.WithCancel(ctx)
	o.directCancel = cancel
	o.mu.Unlock()

	active := persona.ID
	stream, err := o.completer.Complete(reqCtx, payload, completion.Profile{
		Lore:            o.lore,
		Language:        o.language,
		ActiveArchetype: &active,
	})
	var text strings.Builder
	if err == nil {
		for chunk := range stream {
			if chunk.Err != nil {
				err = chunk.Err
				break
			}
			text.WriteString(chunk.Text)
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if gen != o.directGen {
		return dialogue.Turn{}, ErrSuperseded
	}
	o.directCancel = nil
	o.lastSeen = time.Now()
	if err != nil {
		return dialogue.Turn{}, err
	}

	// Direct replies carry no speaker tags: the whole text is one turn
	// attributed to the persona the user addressed.
	content := strings.TrimSpace(text.String())
	if content == "" {
		return dialogue.Turn{}, &completion.TransportError{Err: errors.New("backend returned an empty reply")}
	}
	reply := dialogue.NewTurn(st.NextIndex(), persona.ID, content)
	st.Append([]dialogue.Turn{reply})
	return reply, nil
}

// ClearDirect discards one persona's direct history, used when the host
// application switches the active archetype.
func (o *Orchestrator) ClearDirect(personaID archetype.ID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.directCancel != nil {
		o.directCancel()
		o.directCancel = nil
		o.directGen++
	}
	if st := o.direct[archetype.Normalize(string(personaID))]; st != nil {
		st.Clear()
	}
}

// Shutdown cancels anything in flight and drops all histories.
func (o *Orchestrator) Shutdown() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	if o.directCancel != nil {
		o.directCancel()
		o.directCancel = nil
	}
	o.directGen++
	o.councilGen++
	o.council.Clear()
	for _, st := range o.direct {
		st.Clear()
	}
	o.phase = PhaseIdle
	o.topic = ""
	o.sessionID = ""
	o.retry = nil
}
