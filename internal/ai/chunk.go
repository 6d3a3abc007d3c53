package ai

import "strings"

// EstimateTokens is the usual four-characters-per-token approximation.
func EstimateTokens(text string) int {
	return len(text) / 4
}

// Chunk splits text on line boundaries into pieces of at most maxTokens
// estimated tokens. Each chunk after the first starts with the last
// overlap lines of the previous one, so a transaction cut at a boundary
// is seen whole at least once; the duplicates this creates are removed by
// Dedupe. A single line longer than maxTokens becomes its own chunk.
func Chunk(text string, maxTokens, overlap int) []string {
	if EstimateTokens(text) <= maxTokens {
		return []string{text}
	}

	var (
		chunks  []string
		current []string
		tokens  int
	)
	for _, line := range strings.Split(text, "\n") {
		n := EstimateTokens(line + "\n")
		if tokens+n > maxTokens && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, "\n"))
			if len(current) > overlap {
				current = append([]string(nil), current[len(current)-overlap:]...)
			} else {
				current = nil
			}
			tokens = 0
			for _, l := range current {
				tokens += EstimateTokens(l + "\n")
			}
		}
		current = append(current, line)
		tokens += n
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, "\n"))
	}
	return chunks
}
