// Package tokenizer counts prompt tokens for rate-limit cost estimation.
package tokenizer

// Tokenizer is the unified token-counting interface.
type Tokenizer interface {
	// CountTokens returns the token count of the given text.
	CountTokens(text string) (int, error)

	// CountMessages returns the total token count of a message list,
	// including per-message overhead (role markers, separators).
	CountMessages(messages []Message) (int, error)

	// Name returns the tokenizer name.
	Name() string
}

// Message is a lightweight message struct used by this package to avoid a
// dependency on the llm package.
type Message struct {
	Role    string
	Content string
}
