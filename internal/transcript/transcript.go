// Package transcript encodes example exchanges into the flat delimited
// transcript used to prime a generation request, and decodes it back into
// role-tagged turns.
//
// Each pair is written as three lines:
//
//	User: <input>
//	Assistant: <response>
//	--------------------------------------------------------------------------------
//
// Content that itself contains a line starting with "User: " or
// "Assistant: ", or a separator line, does not survive a round trip. Any
// line starting with 80 dashes is read as a separator, so such lines are
// reserved even when longer.
package transcript

import (
	"strings"
)

const (
	UserPrefix      = "User: "
	AssistantPrefix = "Assistant: "
	separatorWidth  = 80
)

// Separator terminates every encoded pair.
var Separator = strings.Repeat("-", separatorWidth)

// Role identifies the author of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Pair is one example exchange: a post and the expected response to it.
type Pair struct {
	Input    string `json:"input"`
	Response string `json:"response"`
}

// Eligible reports whether both sides are non-empty after trimming.
func (p Pair) Eligible() bool {
	return strings.TrimSpace(p.Input) != "" && strings.TrimSpace(p.Response) != ""
}

// Turn is one role-tagged unit of conversation.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Encode renders pairs into a transcript blob. Ineligible pairs are skipped.
func Encode(pairs []Pair) string {
	var b strings.Builder
	for _, p := range pairs {
		if !p.Eligible() {
			continue
		}
		b.WriteString(UserPrefix)
		b.WriteString(p.Input)
		b.WriteByte('\n')
		b.WriteString(AssistantPrefix)
		b.WriteString(p.Response)
		b.WriteByte('\n')
		b.WriteString(Separator)
		b.WriteByte('\n')
	}
	return b.String()
}

// Pairs groups decoded turns into complete exchanges for display. A user
// turn not directly followed by an assistant turn is dropped, as is a stray
// assistant turn.
func Pairs(turns []Turn) []Pair {
	var pairs []Pair
	for i := 0; i < len(turns); i++ {
		if turns[i].Role != RoleUser {
			continue
		}
		if i+1 < len(turns) && turns[i+1].Role == RoleAssistant {
			pairs = append(pairs, Pair{Input: turns[i].Content, Response: turns[i+1].Content})
			i++
		}
	}
	return pairs
}
