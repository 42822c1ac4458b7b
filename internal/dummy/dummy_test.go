package dummy

import (
	"context"
	"errors"
	"testing"
	"time"

	ctxpkg "github.com/stupiduntilnot/notesassist/internal/context"
	modelpkg "github.com/stupiduntilnot/notesassist/internal/model"
)

var hi = []ctxpkg.Message{{Role: "user", Content: "hi"}}

func TestNewProvider_InvalidScript(t *testing.T) {
	_, err := NewProvider("boom")
	if err == nil {
		t.Fatal("expected parse error for invalid script")
	}
}

func TestProvider_ScriptedResponses(t *testing.T) {
	p, err := NewProvider("err:provider_api,msg:hello")
	if err != nil {
		t.Fatal(err)
	}

	_, err = p.ChatCompletion(context.Background(), hi)
	if err == nil {
		t.Fatal("expected first call to error")
	}

	resp, err := p.ChatCompletion(context.Background(), hi)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Content != "hello" {
		t.Fatalf("expected hello, got %q", resp.Content)
	}

	// Last action repeats.
	resp, err = p.ChatCompletion(context.Background(), hi)
	if err != nil || resp.Content != "hello" {
		t.Fatalf("expected repeated hello, got %q err=%v", resp.Content, err)
	}
	if got := len(p.Calls()); got != 3 {
		t.Fatalf("expected 3 recorded calls, got %d", got)
	}
}

func TestProvider_MsgB64Action(t *testing.T) {
	p, err := NewProvider("msgb64:aGVsbG8=") // "hello"
	if err != nil {
		t.Fatal(err)
	}
	resp, err := p.ChatCompletion(context.Background(), hi)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Content != "hello" {
		t.Fatalf("expected hello, got %q", resp.Content)
	}
}

func TestProvider_EchoAndEmpty(t *testing.T) {
	p, err := NewProvider("echo,empty")
	if err != nil {
		t.Fatal(err)
	}
	resp, err := p.ChatCompletion(context.Background(), []ctxpkg.Message{
		{Role: "user", Content: "a"}, {Role: "assistant", Content: "b"}, {Role: "user", Content: "c"},
	})
	if err != nil || resp.Content != "c" {
		t.Fatalf("expected echo of last message, got %q err=%v", resp.Content, err)
	}
	_, err = p.ChatCompletion(context.Background(), hi)
	if !errors.Is(err, modelpkg.ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestProvider_SleepHonorsContext(t *testing.T) {
	p, err := NewProvider("sleep:5000")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = p.ChatCompletion(ctx, hi)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
