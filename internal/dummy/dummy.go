// Package dummy provides a scripted generation provider for tests and
// offline runs.
//
// A script is a comma-separated list of actions consumed one per call; the
// last action repeats once the script is exhausted:
//
//	ok            reply "dummy-ok"
//	msg:<text>    reply <text>
//	msgb64:<b64>  reply with base64-decoded text (for commas and newlines)
//	echo          reply with the last user message
//	empty         fail with model.ErrEmptyResponse
//	err:<class>   fail with an error of the given class
//	sleep:<ms>    wait, then reply "dummy-after-sleep"
package dummy

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	ctxpkg "github.com/stupiduntilnot/notesassist/internal/context"
	modelpkg "github.com/stupiduntilnot/notesassist/internal/model"
)

type action struct {
	kind string
	arg  string
}

var simpleActions = map[string]bool{"ok": true, "echo": true, "empty": true}

var argActions = []string{"err", "sleep", "msgb64", "msg"}

func parseScript(script string) ([]action, error) {
	if strings.TrimSpace(script) == "" {
		return []action{{kind: "ok"}}, nil
	}
	parts := strings.Split(script, ",")
	actions := make([]action, 0, len(parts))
	for _, p := range parts {
		token := strings.TrimSpace(p)
		if token == "" {
			continue
		}
		if simpleActions[token] {
			actions = append(actions, action{kind: token})
			continue
		}
		matched := false
		for _, kind := range argActions {
			if strings.HasPrefix(token, kind+":") {
				actions = append(actions, action{kind: kind, arg: strings.TrimPrefix(token, kind+":")})
				matched = true
				break
			}
		}
		if !matched {
			return nil, fmt.Errorf("invalid dummy action: %s", token)
		}
	}
	if len(actions) == 0 {
		actions = append(actions, action{kind: "ok"})
	}
	return actions, nil
}

type scriptRunner struct {
	actions []action
	index   int
}

func newRunner(script string) (*scriptRunner, error) {
	actions, err := parseScript(script)
	if err != nil {
		return nil, err
	}
	return &scriptRunner{actions: actions}, nil
}

func (r *scriptRunner) next() action {
	if len(r.actions) == 0 {
		return action{kind: "ok"}
	}
	if r.index >= len(r.actions) {
		return r.actions[len(r.actions)-1]
	}
	a := r.actions[r.index]
	r.index++
	return a
}

// Provider replays a script. It records every message list it receives.
type Provider struct {
	mu     sync.Mutex
	script *scriptRunner
	calls  [][]ctxpkg.Message
}

func NewProvider(script string) (*Provider, error) {
	runner, err := newRunner(script)
	if err != nil {
		return nil, err
	}
	return &Provider{script: runner}, nil
}

func (p *Provider) Name() string { return "dummy" }

// Calls returns the message lists received so far.
func (p *Provider) Calls() [][]ctxpkg.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([][]ctxpkg.Message, len(p.calls))
	copy(out, p.calls)
	return out
}

func (p *Provider) ChatCompletion(ctx context.Context, messages []ctxpkg.Message) (modelpkg.CompletionResponse, error) {
	p.mu.Lock()
	p.calls = append(p.calls, append([]ctxpkg.Message(nil), messages...))
	a := p.script.next()
	p.mu.Unlock()

	reply := func(content string) (modelpkg.CompletionResponse, error) {
		return modelpkg.CompletionResponse{
			Content:      content,
			InputTokens:  len(messages),
			OutputTokens: 1,
		}, nil
	}

	switch a.kind {
	case "ok":
		return reply(emptyAs(a.arg, "dummy-ok"))
	case "err":
		return modelpkg.CompletionResponse{}, fmt.Errorf("dummy provider error class=%s", emptyAs(a.arg, "provider_api"))
	case "empty":
		return modelpkg.CompletionResponse{}, fmt.Errorf("dummy: %w", modelpkg.ErrEmptyResponse)
	case "sleep":
		ms, _ := strconv.Atoi(a.arg)
		if ms > 0 {
			select {
			case <-time.After(time.Duration(ms) * time.Millisecond):
			case <-ctx.Done():
				return modelpkg.CompletionResponse{}, ctx.Err()
			}
		}
		return reply("dummy-after-sleep")
	case "msg":
		return reply(a.arg)
	case "msgb64":
		raw, err := base64.StdEncoding.DecodeString(a.arg)
		if err != nil {
			return modelpkg.CompletionResponse{}, fmt.Errorf("dummy provider msgb64 decode failed: %w", err)
		}
		return reply(string(raw))
	case "echo":
		if len(messages) == 0 {
			return reply("")
		}
		return reply(messages[len(messages)-1].Content)
	default:
		return reply("dummy-ok")
	}
}

func emptyAs(v string, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
