package extract

import "fmt"

// SplitText splits text into overlapping windows of width chunkSize, sliding
// forward by chunkSize-overlapSize each step. The final chunk always ends at
// the end of the text, and no chunk starts past the last byte, so the chunks
// cover the whole input with no gap. Overlap keeps facts that straddle a
// boundary intact; duplicates are resolved later by the cross-chunk merge.
func SplitText(text string, chunkSize, overlapSize int) ([]string, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if overlapSize < 0 || overlapSize >= chunkSize {
		return nil, fmt.Errorf("overlap size %d must be in [0, chunk size %d)", overlapSize, chunkSize)
	}

	if len(text) <= chunkSize {
		return []string{text}, nil
	}

	step := chunkSize - overlapSize
	var chunks []string
	for start := 0; ; start += step {
		end := start + chunkSize
		if end >= len(text) {
			chunks = append(chunks, text[start:])
			return chunks, nil
		}
		chunks = append(chunks, text[start:end])
	}
}
