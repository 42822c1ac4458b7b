package context

import "github.com/stupiduntilnot/notesassist/internal/transcript"

// Message is a model-agnostic chat message handed to a generation provider.
type Message struct {
	Role    string
	Content string
}

// FromTurn converts a decoded transcript turn into a Message.
func FromTurn(t transcript.Turn) Message {
	return Message{Role: string(t.Role), Content: t.Content}
}
