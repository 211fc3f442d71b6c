package service

import (
	"github.com/vortex-hue/forgeai/internal/domain"
)

// ChunkConfig controls how document content is split for embedding.
type ChunkConfig struct {
	Size    int
	Overlap int
}

// DefaultChunkConfig provides sane defaults for chunking.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		Size:    1000,
		Overlap: 200,
	}
}

// Validate checks the chunking parameters. A non-positive step
// (Overlap >= Size) would never terminate.
func (c ChunkConfig) Validate() error {
	if c.Size <= 0 {
		return domain.ErrInvalidChunkConfig
	}
	if c.Overlap < 0 || c.Overlap >= c.Size {
		return domain.ErrInvalidChunkConfig
	}
	return nil
}

// Chunk is one fixed-size window of a document's content. Offsets are
// rune offsets into the source text.
type Chunk struct {
	Index     int
	Content   string
	StartChar int
	EndChar   int
}

// ChunkText splits text into overlapping fixed-size windows. Boundaries are
// a pure function of (text, cfg); the final chunk may be shorter than Size.
// Empty input yields no chunks.
func ChunkText(text string, cfg ChunkConfig) ([]Chunk, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if text == "" {
		return nil, nil
	}

	runes := []rune(text)
	step := cfg.Size - cfg.Overlap

	chunks := make([]Chunk, 0, (len(runes)+step-1)/step)
	for start := 0; start < len(runes); start += step {
		end := start + cfg.Size
		if end > len(runes) {
			end = len(runes)
		}

		chunks = append(chunks, Chunk{
			Index:     len(chunks),
			Content:   string(runes[start:end]),
			StartChar: start,
			EndChar:   end,
		})
	}

	return chunks, nil
}
