package crypto

import (
	"errors"
	"fmt"
	"strings"
)

const (
	uppercaseChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowercaseChars = "abcdefghijklmnopqrstuvwxyz"
	digitChars     = "0123456789"
	symbolChars    = "!@#$%^&*"
)

var ErrUnknownClass = errors.New("unknown character class")

// CharacterClass names one of the fixed character groups a password can draw from.
type CharacterClass uint8

const (
	Uppercase CharacterClass = iota
	Lowercase
	Digits
	Symbols

	numClasses
)

var classAlphabets = [numClasses]string{
	Uppercase: uppercaseChars,
	Lowercase: lowercaseChars,
	Digits:    digitChars,
	Symbols:   symbolChars,
}

var classNames = [numClasses]string{
	Uppercase: "uppercase",
	Lowercase: "lowercase",
	Digits:    "digits",
	Symbols:   "symbols",
}

// AllClasses returns every character class in canonical order.
func AllClasses() []CharacterClass {
	return []CharacterClass{Uppercase, Lowercase, Digits, Symbols}
}

// Alphabet returns the fixed characters of the class.
func (c CharacterClass) Alphabet() string {
	if c >= numClasses {
		return ""
	}
	return classAlphabets[c]
}

func (c CharacterClass) String() string {
	if c >= numClasses {
		return fmt.Sprintf("CharacterClass(%d)", uint8(c))
	}
	return classNames[c]
}

// ParseClass maps a class name to its CharacterClass. Matching is
// case-insensitive and "numbers" is accepted for Digits.
func ParseClass(name string) (CharacterClass, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "uppercase", "upper":
		return Uppercase, nil
	case "lowercase", "lower":
		return Lowercase, nil
	case "digits", "numbers":
		return Digits, nil
	case "symbols":
		return Symbols, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownClass, name)
}

// Selection is a set of character classes. The zero value is the empty set.
type Selection uint8

// NewSelection builds a selection from the given classes. Repeated classes
// collapse into one.
func NewSelection(classes ...CharacterClass) Selection {
	var s Selection
	for _, c := range classes {
		s = s.With(c)
	}
	return s
}

// ParseSelection builds a selection from class names. Each name may itself
// be a comma separated list; blank entries are ignored.
func ParseSelection(names ...string) (Selection, error) {
	var s Selection
	for _, n := range names {
		for _, part := range strings.Split(n, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			c, err := ParseClass(part)
			if err != nil {
				return 0, err
			}
			s = s.With(c)
		}
	}
	return s, nil
}

func (s Selection) Has(c CharacterClass) bool {
	return c < numClasses && s&(1<<c) != 0
}

func (s Selection) With(c CharacterClass) Selection {
	if c >= numClasses {
		return s
	}
	return s | 1<<c
}

func (s Selection) Without(c CharacterClass) Selection {
	if c >= numClasses {
		return s
	}
	return s &^ (1 << c)
}

// Set returns s with c added when on is true and removed otherwise.
func (s Selection) Set(c CharacterClass, on bool) Selection {
	if on {
		return s.With(c)
	}
	return s.Without(c)
}

// Classes lists the members of s in canonical order.
func (s Selection) Classes() []CharacterClass {
	classes := make([]CharacterClass, 0, numClasses)
	for c := CharacterClass(0); c < numClasses; c++ {
		if s.Has(c) {
			classes = append(classes, c)
		}
	}
	return classes
}

// Names lists the canonical names of the members of s.
func (s Selection) Names() []string {
	classes := s.Classes()
	names := make([]string, len(classes))
	for i, c := range classes {
		names[i] = c.String()
	}
	return names
}

func (s Selection) String() string {
	return strings.Join(s.Names(), ",")
}

// IsValid reports whether the selection contains at least one class, i.e.
// whether generation may proceed.
func IsValid(s Selection) bool {
	return len(s.Classes()) > 0
}

// ResolveAlphabet concatenates the alphabets of the selected classes in the
// order Uppercase, Lowercase, Digits, Symbols. An empty selection yields "".
func ResolveAlphabet(s Selection) string {
	var sb strings.Builder
	for _, c := range s.Classes() {
		sb.WriteString(c.Alphabet())
	}
	return sb.String()
}
