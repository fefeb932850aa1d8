package port

// Tokenizer normalizes raw text into an ordered token sequence. The same
// tokenizer must be used at index time and at query time.
type Tokenizer interface {
	Tokenize(text string) []string
}
