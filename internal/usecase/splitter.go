package usecase

import (
	"fmt"
	"unicode/utf8"

	"github.com/tmc/langchaingo/textsplitter"
)

// defaultSeparators are tried in order; the empty separator splits into single characters
var defaultSeparators = []string{"\n\n", "\n", " ", ""}

// TextSplitter splits text into overlapping chunks, preferring the coarsest
// separator that occurs in the text and recursing into pieces that are still too long.
// Lengths are counted in runes. Separators stay attached to the start of the piece
// that follows them.
type TextSplitter struct {
	chunkSize    int
	chunkOverlap int
	splitter     textsplitter.RecursiveCharacter
}

// NewTextSplitter creates a splitter. Overlap is clamped to [0, chunkSize).
func NewTextSplitter(chunkSize, chunkOverlap int) *TextSplitter {
	if chunkSize <= 0 {
		chunkSize = 500
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}
	if chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize - 1
	}
	return &TextSplitter{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
			textsplitter.WithSeparators(defaultSeparators),
			textsplitter.WithKeepSeparator(true),
			textsplitter.WithLenFunc(utf8.RuneCountInString),
		),
	}
}

// Split splits a single text
func (s *TextSplitter) Split(text string) ([]string, error) {
	chunks, err := s.splitter.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("split text: %w", err)
	}
	return chunks, nil
}

// SplitAll splits each text independently and concatenates the chunks in order
func (s *TextSplitter) SplitAll(texts []string) ([]string, error) {
	var chunks []string
	for _, t := range texts {
		c, err := s.Split(t)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, c...)
	}
	return chunks, nil
}
