package context

import (
	"fmt"

	"github.com/stupiduntilnot/notesassist/internal/transcript"
)

// TranscriptAssembler decodes the example transcript into alternating
// user/assistant messages and appends the new user message.
type TranscriptAssembler struct{}

// Assemble builds the final message list: decoded history + user.
// It performs no truncation; callers bound the history by sampling fewer
// examples.
func (a *TranscriptAssembler) Assemble(history string, userMsg string) ([]Message, error) {
	turns, err := transcript.CheckAlternation(transcript.Decode(history))
	if err != nil {
		return nil, err
	}

	messages := make([]Message, 0, len(turns)+1)
	for _, t := range turns {
		messages = append(messages, FromTurn(t))
	}
	messages = append(messages, Message{Role: string(transcript.RoleUser), Content: userMsg})

	if err := CheckAlternation(messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// CheckAlternation reports whether messages strictly alternate
// user/assistant and end with a user message.
func CheckAlternation(messages []Message) error {
	if len(messages) == 0 {
		return fmt.Errorf("empty message list")
	}
	for i, m := range messages {
		want := string(transcript.RoleUser)
		if i%2 == 1 {
			want = string(transcript.RoleAssistant)
		}
		if m.Role != want {
			return fmt.Errorf("message %d has role=%s, want %s", i, m.Role, want)
		}
	}
	if messages[len(messages)-1].Role != string(transcript.RoleUser) {
		return fmt.Errorf("message list must end with a user message")
	}
	return nil
}
