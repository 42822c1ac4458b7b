// Package session holds the state of one assistant conversation: the
// example table, the example transcript used to prime requests, and the
// displayed chat log.
package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/google/uuid"

	ctxpkg "github.com/stupiduntilnot/notesassist/internal/context"
	"github.com/stupiduntilnot/notesassist/internal/db"
	modelpkg "github.com/stupiduntilnot/notesassist/internal/model"
	"github.com/stupiduntilnot/notesassist/internal/sampler"
	"github.com/stupiduntilnot/notesassist/internal/transcript"
)

var (
	// ErrEmptyInput is returned by Submit for blank input.
	ErrEmptyInput = errors.New("input is empty")
	// ErrBusy is returned by Submit while another submission is in flight.
	ErrBusy = errors.New("a submission is already in flight")
)

// GenerationServiceError wraps a failed generation call.
type GenerationServiceError struct {
	Provider string
	Err      error
}

func (e *GenerationServiceError) Error() string {
	return fmt.Sprintf("generation service %s failed: %v", e.Provider, e.Err)
}

func (e *GenerationServiceError) Unwrap() error { return e.Err }

// State is the session's position in its lifecycle.
type State string

const (
	StateIdle           State = "idle"
	StateExamplesLoaded State = "examples_loaded"
	StateSubmitting     State = "submitting"
)

// Entry is one line of the displayed chat log. Error is set on a user entry
// whose submission failed; no assistant entry follows it.
type Entry struct {
	Role    transcript.Role `json:"role"`
	Content string          `json:"content"`
	Error   string          `json:"error,omitempty"`
}

// EventRecorder receives lifecycle events. db.Recorder implements it.
type EventRecorder interface {
	Record(parentID *int64, eventType string, payload map[string]any) int64
}

// Options configures a Session. Provider is required.
type Options struct {
	Provider  modelpkg.Provider
	Assembler ctxpkg.Assembler
	Rand      *rand.Rand
	Events    EventRecorder
}

// Session is safe for concurrent use, but allows one submission at a time.
type Session struct {
	id        string
	provider  modelpkg.Provider
	assembler ctxpkg.Assembler
	events    EventRecorder
	rootEvent int64

	mu         sync.Mutex
	rng        *rand.Rand
	table      []transcript.Pair
	blob       string
	log        []Entry
	logGen     int
	submitting bool
}

// New creates an idle session with an empty log and transcript.
func New(opts Options) *Session {
	s := &Session{
		id:        uuid.NewString(),
		provider:  opts.Provider,
		assembler: opts.Assembler,
		events:    opts.Events,
		rng:       opts.Rand,
	}
	if s.assembler == nil {
		s.assembler = &ctxpkg.TranscriptAssembler{}
	}
	if s.rng == nil {
		s.rng = sampler.NewRand(0)
	}
	providerName := ""
	if s.provider != nil {
		providerName = s.provider.Name()
	}
	s.rootEvent = s.record(nil, db.EventSessionStarted, map[string]any{
		"session_id": s.id,
		"provider":   providerName,
	})
	return s
}

// ID returns the session's unique id.
func (s *Session) ID() string { return s.id }

// State reports the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() State {
	switch {
	case s.submitting:
		return StateSubmitting
	case s.blob != "":
		return StateExamplesLoaded
	default:
		return StateIdle
	}
}

// SetTable replaces the example table. The transcript is left as is.
func (s *Session) SetTable(table []transcript.Pair, source string) {
	cp := append([]transcript.Pair(nil), table...)
	s.mu.Lock()
	s.table = cp
	s.mu.Unlock()
	s.record(&s.rootEvent, db.EventDatasetLoaded, map[string]any{
		"source":   source,
		"rows":     len(cp),
		"eligible": len(sampler.Eligible(cp)),
	})
}

// DatasetFailed records a failed table load. The current table is kept.
func (s *Session) DatasetFailed(source string, err error) {
	s.record(&s.rootEvent, db.EventDatasetFailed, map[string]any{
		"source": source,
		"error":  truncate(err.Error(), 1000),
	})
}

// TableSize returns the number of rows in the current example table.
func (s *Session) TableSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.table)
}

// LoadExamples replaces the table and samples n examples from it.
func (s *Session) LoadExamples(table []transcript.Pair, n int) ([]transcript.Pair, error) {
	s.SetTable(table, "")
	return s.SampleExamples(n)
}

// SampleExamples draws n examples from the current table and replaces the
// transcript with their encoding. With no eligible rows the transcript is
// cleared and sampler.ErrEmptyTable is returned.
func (s *Session) SampleExamples(n int) ([]transcript.Pair, error) {
	s.mu.Lock()
	picked, err := sampler.Sample(s.rng, s.table, n)
	if err != nil {
		s.blob = ""
		s.mu.Unlock()
		s.record(&s.rootEvent, db.EventExamplesSampled, map[string]any{
			"requested": n,
			"error":     err.Error(),
		})
		return nil, err
	}
	s.blob = transcript.Encode(picked)
	blobLen := len(s.blob)
	s.mu.Unlock()

	s.record(&s.rootEvent, db.EventExamplesSampled, map[string]any{
		"requested":        n,
		"sampled":          len(picked),
		"transcript_chars": blobLen,
	})
	return picked, nil
}

// Transcript returns the current example transcript.
func (s *Session) Transcript() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blob
}

// Examples returns the complete example pairs in the current transcript.
func (s *Session) Examples() []transcript.Pair {
	return transcript.Pairs(transcript.Decode(s.Transcript()))
}

// Log returns a copy of the displayed chat log.
func (s *Session) Log() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.log...)
}

// ClearLog empties the chat log. The transcript is untouched.
func (s *Session) ClearLog() {
	s.mu.Lock()
	cleared := len(s.log)
	s.log = nil
	s.logGen++
	s.mu.Unlock()
	s.record(&s.rootEvent, db.EventLogCleared, map[string]any{"entries": cleared})
}

// Submit records input in the log, sends it with the example transcript to
// the provider and records the reply. On failure the user entry stays in the
// log with its Error set. A reply arriving after ClearLog is returned but not
// logged.
func (s *Session) Submit(ctx context.Context, input string) (string, error) {
	if strings.TrimSpace(input) == "" {
		return "", ErrEmptyInput
	}
	s.mu.Lock()
	if s.submitting {
		s.mu.Unlock()
		return "", ErrBusy
	}
	s.submitting = true
	s.log = append(s.log, Entry{Role: transcript.RoleUser, Content: input})
	idx, gen := len(s.log)-1, s.logGen
	blob := s.blob
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.submitting = false
		s.mu.Unlock()
	}()

	subEventID := s.record(&s.rootEvent, db.EventSubmissionStarted, map[string]any{
		"input":       truncate(input, 1000),
		"input_chars": len([]rune(input)),
	})

	if s.provider == nil {
		gerr := &GenerationServiceError{Provider: "none", Err: errors.New("no provider configured")}
		s.fail(subEventID, idx, gen, gerr)
		return "", gerr
	}

	messages, err := s.assembler.Assemble(blob, input)
	if err != nil {
		s.fail(subEventID, idx, gen, err)
		return "", err
	}
	s.record(&subEventID, db.EventContextAssembled, map[string]any{
		"message_count":  len(messages),
		"example_pairs":  (len(messages) - 1) / 2,
		"history_tokens": estimateTokensFromMessages(messages[:len(messages)-1]),
		"user_tokens":    estimateTokens(input),
	})

	resp, err := s.provider.ChatCompletion(ctx, messages)
	if err != nil {
		gerr := &GenerationServiceError{Provider: s.provider.Name(), Err: err}
		s.fail(subEventID, idx, gen, gerr)
		return "", gerr
	}
	if strings.TrimSpace(resp.Content) == "" {
		gerr := &GenerationServiceError{Provider: s.provider.Name(), Err: modelpkg.ErrEmptyResponse}
		s.fail(subEventID, idx, gen, gerr)
		return "", gerr
	}
	s.record(&subEventID, db.EventTurnCompleted, map[string]any{
		"provider":      s.provider.Name(),
		"input_tokens":  resp.InputTokens,
		"output_tokens": resp.OutputTokens,
		"reply":         truncate(resp.Content, 1000),
	})

	s.mu.Lock()
	if gen == s.logGen {
		s.log = append(s.log, Entry{Role: transcript.RoleAssistant, Content: resp.Content})
	}
	s.mu.Unlock()

	s.record(&s.rootEvent, db.EventSubmissionCompleted, map[string]any{"submission_event_id": subEventID})
	return resp.Content, nil
}

func (s *Session) fail(subEventID int64, idx, gen int, err error) {
	s.mu.Lock()
	if gen == s.logGen && idx < len(s.log) {
		s.log[idx].Error = err.Error()
	}
	s.mu.Unlock()
	s.record(&subEventID, db.EventSubmissionFailed, map[string]any{
		"error": truncate(err.Error(), 1000),
	})
}

func (s *Session) record(parentID *int64, eventType string, payload map[string]any) int64 {
	if s.events == nil {
		return 0
	}
	return s.events.Record(parentID, eventType, payload)
}

func truncate(s string, maxChars int) string {
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	return string(runes[:maxChars])
}

func estimateTokens(text string) int {
	chars := len([]rune(text))
	if chars <= 0 {
		return 0
	}
	return (chars + 3) / 4
}

func estimateTokensFromMessages(messages []ctxpkg.Message) int {
	totalChars := 0
	for _, msg := range messages {
		totalChars += len([]rune(msg.Content))
	}
	if totalChars <= 0 {
		return 0
	}
	return (totalChars + 3) / 4
}
