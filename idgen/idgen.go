// Package idgen generates short, URL-safe identifiers for instances and
// archived runs.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

const (
	InstancePrefix = "inst-"
	RunPrefix      = "run-"
	JourneyPrefix  = "journey-"
)

// Alphabet is the character set of the random part.
var Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length is the number of random characters, prefix excluded.
var Length = 10

// New returns prefix followed by a random nanoid.
func New(prefix string) (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}

// Instance returns a new instance id.
func Instance() (string, error) { return New(InstancePrefix) }

// Run returns a new archived run id.
func Run() (string, error) { return New(RunPrefix) }

// Journey returns a new id for a saved journey that arrived without one.
func Journey() (string, error) { return New(JourneyPrefix) }
