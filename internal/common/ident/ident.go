package ident

import "github.com/google/uuid"

// Generator produces unique identifiers for connections and matches.
type Generator interface {
	NewID() string
}

// UUID implements Generator with random UUIDs.
type UUID struct{}

func New() *UUID {
	return &UUID{}
}

// NewID returns a new random identifier.
func (u *UUID) NewID() string {
	return uuid.New().String()
}
