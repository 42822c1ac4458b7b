package context

// Assembler combines a transcript of example exchanges and a new user
// submission into a final message list.
type Assembler interface {
	Assemble(history string, userMsg string) ([]Message, error)
}
