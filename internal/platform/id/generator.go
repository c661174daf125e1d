// Package id produces the opaque identifiers handed out in API responses.
package id

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
)

// Generator creates opaque IDs suitable for external references.
type Generator interface {
	NewID() (string, error)
}

// RandomGenerator issues 128-bit random IDs rendered as lowercase hex.
type RandomGenerator struct{}

func NewRandomGenerator() *RandomGenerator {
	return &RandomGenerator{}
}

func (g *RandomGenerator) NewID() (string, error) {
	var raw [16]byte
	if _, err := io.ReadFull(rand.Reader, raw[:]); err != nil {
		return "", fmt.Errorf("draw random id: %w", err)
	}

	return hex.EncodeToString(raw[:]), nil
}
