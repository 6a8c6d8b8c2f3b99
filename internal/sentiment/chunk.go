package sentiment

import "strings"

// Tokenize splits text into tokens: maximal runs of non-whitespace.
func Tokenize(text string) []string {
	return strings.Fields(text)
}

// Chunk splits tokens into consecutive slices of at most size tokens. The
// last chunk may be shorter. A size below 1 yields a single chunk.
func Chunk(tokens []string, size int) [][]string {
	if len(tokens) == 0 {
		return nil
	}
	if size < 1 {
		size = len(tokens)
	}
	chunks := make([][]string, 0, (len(tokens)+size-1)/size)
	for start := 0; start < len(tokens); start += size {
		end := min(start+size, len(tokens))
		chunks = append(chunks, tokens[start:end])
	}
	return chunks
}

// ChunkText tokenizes text and returns each chunk rejoined with single
// spaces.
func ChunkText(text string, size int) []string {
	chunks := Chunk(Tokenize(text), size)
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = strings.Join(c, " ")
	}
	return out
}
