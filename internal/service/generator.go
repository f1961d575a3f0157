package service

import (
	"errors"
	"fmt"

	"github.com/vaultpass/passgen-go/internal/crypto"
	"github.com/vaultpass/passgen-go/internal/model"
)

// Placeholder is shown instead of a password when no character class is selected.
const Placeholder = "please select at least one character type"

var (
	ErrLengthTooShort   = errors.New("password length is below the minimum")
	ErrLengthTooLong    = errors.New("password length is above the maximum")
	ErrTooManyPasswords = errors.New("too many passwords requested")
)

// Limits are the host-side bounds applied before the generator is called.
type Limits struct {
	DefaultLength int
	MinLength     int
	MaxLength     int
	MaxCount      int
}

// DefaultLimits mirrors the length slider of the control page.
func DefaultLimits() Limits {
	return Limits{
		DefaultLength: 16,
		MinLength:     1,
		MaxLength:     128,
		MaxCount:      20,
	}
}

// GeneratorService handles password generation business logic.
type GeneratorService struct {
	gen    *crypto.Generator
	limits Limits
}

// NewGeneratorService creates a new GeneratorService. A nil gen uses the
// crypto/rand backed generator.
func NewGeneratorService(gen *crypto.Generator, limits Limits) *GeneratorService {
	if gen == nil {
		gen = crypto.NewGenerator(nil)
	}
	return &GeneratorService{gen: gen, limits: limits}
}

func (s *GeneratorService) Limits() Limits {
	return s.limits
}

// Generate produces one or more passwords for the given request.
func (s *GeneratorService) Generate(req model.GenerateRequest) (model.GenerateResponse, error) {
	sel := selectionFromRequest(req)

	length := req.Length
	if length == 0 {
		length = s.limits.DefaultLength
	}
	if err := s.checkLength(length); err != nil {
		return model.GenerateResponse{}, err
	}

	count := req.Count
	if count == 0 {
		count = 1
	}
	if count < 0 || count > s.limits.MaxCount {
		return model.GenerateResponse{}, fmt.Errorf("%w: %d (max %d)", ErrTooManyPasswords, count, s.limits.MaxCount)
	}

	alphabet := crypto.ResolveAlphabet(sel)
	passwords := make([]string, 0, count)
	for i := 0; i < count; i++ {
		password, err := s.gen.Generate(alphabet, length)
		if err != nil {
			return model.GenerateResponse{}, err
		}
		passwords = append(passwords, password)
	}

	return model.GenerateResponse{
		Password:     passwords[0],
		Passwords:    passwords,
		Length:       length,
		AlphabetSize: len(alphabet),
	}, nil
}

// GenerateOne resolves sel and generates a single password of the given
// length. Length bounds are the caller's concern.
func (s *GeneratorService) GenerateOne(sel crypto.Selection, length int) (string, error) {
	return s.gen.GenerateFor(sel, length)
}

// checkLength enforces the host range. Non-positive lengths are passed
// through so the generator reports them as ErrInvalidLength.
func (s *GeneratorService) checkLength(length int) error {
	if length < 1 {
		return nil
	}
	if length < s.limits.MinLength {
		return fmt.Errorf("%w: %d < %d", ErrLengthTooShort, length, s.limits.MinLength)
	}
	if length > s.limits.MaxLength {
		return fmt.Errorf("%w: %d > %d", ErrLengthTooLong, length, s.limits.MaxLength)
	}
	return nil
}

// Classes describes every character class and the accepted length range.
func (s *GeneratorService) Classes(defaults crypto.Selection) model.ClassesResponse {
	all := crypto.AllClasses()
	classes := make([]model.ClassInfo, 0, len(all))
	for _, c := range all {
		classes = append(classes, model.ClassInfo{
			Name:     c.String(),
			Alphabet: c.Alphabet(),
			Size:     len(c.Alphabet()),
		})
	}

	return model.ClassesResponse{
		Classes:        classes,
		DefaultClasses: defaults.Names(),
		MinLength:      s.limits.MinLength,
		MaxLength:      s.limits.MaxLength,
		DefaultLength:  s.limits.DefaultLength,
	}
}

// IsValidationError reports whether err was caused by the request rather
// than by the server.
func IsValidationError(err error) bool {
	return errors.Is(err, crypto.ErrEmptyAlphabet) ||
		errors.Is(err, crypto.ErrInvalidLength) ||
		errors.Is(err, ErrLengthTooShort) ||
		errors.Is(err, ErrLengthTooLong) ||
		errors.Is(err, ErrTooManyPasswords)
}

func selectionFromRequest(req model.GenerateRequest) crypto.Selection {
	var sel crypto.Selection
	sel = sel.Set(crypto.Uppercase, req.Uppercase)
	sel = sel.Set(crypto.Lowercase, req.Lowercase)
	sel = sel.Set(crypto.Digits, req.Numbers)
	sel = sel.Set(crypto.Symbols, req.Symbols)
	return sel
}
