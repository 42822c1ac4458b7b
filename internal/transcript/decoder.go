package transcript

import "strings"

// decodeState is the role currently being accumulated.
type decodeState int

const (
	stateNoRole decodeState = iota
	stateUser
	stateAssistant
)

func (s decodeState) role() Role {
	if s == stateAssistant {
		return RoleAssistant
	}
	return RoleUser
}

// Decoder reconstructs turns from transcript lines. It is exported so the
// flush rules can be driven line by line; most callers want Decode.
type Decoder struct {
	state decodeState
	lines []string
	turns []Turn
}

// Line feeds one line, without its terminator.
func (d *Decoder) Line(line string) {
	line = strings.TrimSuffix(line, "\r")
	switch {
	case strings.HasPrefix(line, UserPrefix):
		d.flush()
		d.state = stateUser
		d.lines = append(d.lines, line[len(UserPrefix):])
	case strings.HasPrefix(line, AssistantPrefix):
		d.flush()
		d.state = stateAssistant
		d.lines = append(d.lines, line[len(AssistantPrefix):])
	case strings.HasPrefix(line, Separator):
		// Separators carry no content and do not end the current turn.
	default:
		if d.state != stateNoRole {
			d.lines = append(d.lines, line)
		}
	}
}

// Finish flushes any pending turn and returns everything decoded so far.
func (d *Decoder) Finish() []Turn {
	d.flush()
	d.state = stateNoRole
	return d.turns
}

func (d *Decoder) flush() {
	if d.state == stateNoRole || len(d.lines) == 0 {
		return
	}
	d.turns = append(d.turns, Turn{Role: d.state.role(), Content: strings.Join(d.lines, "\n")})
	d.lines = d.lines[:0]
}

// Decode splits a transcript blob into turns. A trailing user turn with no
// reply is returned as is; Pairs and CheckAlternation decide what to do with it.
func Decode(blob string) []Turn {
	blob = strings.TrimSpace(blob)
	if blob == "" {
		return nil
	}
	var d Decoder
	for _, line := range strings.Split(blob, "\n") {
		d.Line(line)
	}
	return d.Finish()
}
