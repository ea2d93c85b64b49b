// Package passgen generates random passwords from configurable character classes.
package passgen

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
)

const (
	Lowercase = "abcdefghijklmnopqrstuvwxyz"
	Uppercase = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	Digits    = "0123456789"
	Symbols   = "!@#$%^&*()_+-=[]{}|;:,.<>?"

	// MinLength and MaxLength bound the length offered by the interactive generator.
	MinLength = 8
	MaxLength = 32

	DefaultLength = 16
)

var ErrInvalidLength = errors.New("password length must be at least 1")

// Options selects the character classes. Lowercase letters are always in the pool.
type Options struct {
	Length       int
	UseNumbers   bool
	UseSymbols   bool
	UseUppercase bool
}

// DefaultOptions returns the generator defaults: every class enabled, DefaultLength.
func DefaultOptions() Options {
	return Options{
		Length:       DefaultLength,
		UseNumbers:   true,
		UseSymbols:   true,
		UseUppercase: true,
	}
}

// Generator produces passwords using a cryptographically secure source.
type Generator struct {
	rand io.Reader
}

// New returns a generator reading from r. A nil r uses crypto/rand.
func New(r io.Reader) *Generator {
	if r == nil {
		r = rand.Reader
	}
	return &Generator{rand: r}
}

// Generate is a shortcut for New(nil).Generate.
func Generate(length int, useNumbers, useSymbols, useUppercase bool) (string, error) {
	return New(nil).Generate(Options{
		Length:       length,
		UseNumbers:   useNumbers,
		UseSymbols:   useSymbols,
		UseUppercase: useUppercase,
	})
}

// Generate returns a password of exactly opts.Length characters.
//
// One character of each enabled class is reserved first, in the order uppercase, digits,
// symbols, lowercase, for as many classes as fit in the length. The remaining positions
// are drawn uniformly from the combined pool and the result is shuffled.
func (g *Generator) Generate(opts Options) (string, error) {
	if opts.Length < 1 {
		return "", ErrInvalidLength
	}

	classes := opts.classes()

	pool := Lowercase
	for _, c := range classes {
		if c != Lowercase {
			pool += c
		}
	}

	out := make([]byte, 0, opts.Length)
	for _, c := range classes {
		if len(out) == opts.Length {
			break
		}
		ch, err := g.pick(c)
		if err != nil {
			return "", err
		}
		out = append(out, ch)
	}

	for len(out) < opts.Length {
		ch, err := g.pick(pool)
		if err != nil {
			return "", err
		}
		out = append(out, ch)
	}

	if err := g.shuffle(out); err != nil {
		return "", err
	}

	return string(out), nil
}

// classes returns the guaranteed classes in reservation order.
func (o Options) classes() []string {
	classes := make([]string, 0, 4)
	if o.UseUppercase {
		classes = append(classes, Uppercase)
	}
	if o.UseNumbers {
		classes = append(classes, Digits)
	}
	if o.UseSymbols {
		classes = append(classes, Symbols)
	}
	return append(classes, Lowercase)
}

func (g *Generator) pick(set string) (byte, error) {
	i, err := g.intn(len(set))
	if err != nil {
		return 0, err
	}
	return set[i], nil
}

// shuffle is a Fisher-Yates permutation.
func (g *Generator) shuffle(b []byte) error {
	for i := len(b) - 1; i > 0; i-- {
		j, err := g.intn(i + 1)
		if err != nil {
			return err
		}
		b[i], b[j] = b[j], b[i]
	}
	return nil
}

func (g *Generator) intn(n int) (int, error) {
	v, err := rand.Int(g.rand, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("failed to read random source: %w", err)
	}
	return int(v.Int64()), nil
}

// ClampLength bounds n to [MinLength, MaxLength].
func ClampLength(n int) int {
	switch {
	case n < MinLength:
		return MinLength
	case n > MaxLength:
		return MaxLength
	default:
		return n
	}
}
