package transcript

import "fmt"

// MalformedTranscriptError reports a decoded transcript that does not
// alternate user/assistant starting with user.
type MalformedTranscriptError struct {
	Index int
	Got   Role
	Want  Role
}

func (e *MalformedTranscriptError) Error() string {
	return fmt.Sprintf("malformed transcript: turn %d has role=%s, want %s", e.Index, e.Got, e.Want)
}

// CheckAlternation verifies that turns alternate user, assistant, user, ...
// and returns the complete exchanges. A single unpaired user turn at the end
// is tolerated and dropped from the result.
func CheckAlternation(turns []Turn) ([]Turn, error) {
	for i, t := range turns {
		want := RoleUser
		if i%2 == 1 {
			want = RoleAssistant
		}
		if t.Role != want {
			return nil, &MalformedTranscriptError{Index: i, Got: t.Role, Want: want}
		}
	}
	if len(turns)%2 == 1 {
		return turns[:len(turns)-1], nil
	}
	return turns, nil
}
