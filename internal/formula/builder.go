package formula

// Builder accumulates a formula token by token, mirroring the incremental
// append/remove interaction of the metric builder. It is not safe for
// concurrent use; all mutation happens on the single user-action path.
type Builder struct {
	tokens Tokens
}

// NewBuilder starts a builder, optionally seeded with an existing
// sequence (editing a saved calculated field).
func NewBuilder(existing ...Token) *Builder {
	b := &Builder{}
	b.tokens = append(b.tokens, existing...)
	return b
}

// Append adds a token to the end of the sequence.
func (b *Builder) Append(t Token) {
	b.tokens = append(b.tokens, t)
}

// Remove deletes the token with the given id. It reports whether a token
// was removed.
func (b *Builder) Remove(id string) bool {
	for i, t := range b.tokens {
		if t.ID() == id {
			b.tokens = append(b.tokens[:i], b.tokens[i+1:]...)
			return true
		}
	}
	return false
}

// Clear resets the builder to an empty sequence.
func (b *Builder) Clear() {
	b.tokens = nil
}

// Len returns the current number of tokens.
func (b *Builder) Len() int {
	return len(b.tokens)
}

// Tokens returns a copy of the current sequence.
func (b *Builder) Tokens() Tokens {
	out := make(Tokens, len(b.tokens))
	copy(out, b.tokens)
	return out
}

// String returns the display form of the current sequence.
func (b *Builder) String() string {
	return b.tokens.String()
}

// Validate checks the current sequence.
func (b *Builder) Validate() Result {
	return Validate(b.tokens)
}
