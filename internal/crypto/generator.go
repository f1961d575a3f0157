package crypto

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyAlphabet = errors.New("alphabet is empty: at least one character type must be selected")
	ErrInvalidLength = errors.New("password length must be a positive integer")
)

// Generator samples passwords from an alphabet using its Source.
type Generator struct {
	src Source
}

// NewGenerator returns a Generator drawing from src. A nil src means
// CryptoSource.
func NewGenerator(src Source) *Generator {
	if src == nil {
		src = CryptoSource{}
	}
	return &Generator{src: src}
}

var defaultGenerator = NewGenerator(nil)

// Generate draws a password from alphabet with the default crypto/rand source.
func Generate(alphabet string, length int) (string, error) {
	return defaultGenerator.Generate(alphabet, length)
}

// Generate returns a string of exactly length characters, each drawn
// independently and uniformly (with replacement) from alphabet.
func (g *Generator) Generate(alphabet string, length int) (string, error) {
	if length < 1 {
		return "", ErrInvalidLength
	}
	if alphabet == "" {
		return "", ErrEmptyAlphabet
	}

	var sb strings.Builder
	sb.Grow(length)

	for i := 0; i < length; i++ {
		idx, err := g.src.Intn(len(alphabet))
		if err != nil {
			return "", fmt.Errorf("generating password: %w", err)
		}
		sb.WriteByte(alphabet[idx])
	}

	return sb.String(), nil
}

// GenerateFor resolves sel and generates a password from it. An empty
// selection returns ErrEmptyAlphabet without touching the source.
func (g *Generator) GenerateFor(sel Selection, length int) (string, error) {
	return g.Generate(ResolveAlphabet(sel), length)
}
