// Package cli implements the pwgen command line front end.
package cli

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/vaultpass/passgen-go/internal/crypto"
	"github.com/vaultpass/passgen-go/internal/service"
)

const (
	defaultLength = 16
	maxLength     = 128
	maxCount      = 100
)

// Config holds the parsed CLI options.
type Config struct {
	Length    int
	Selection crypto.Selection
	Count     int
	Copy      bool
	Source    string
}

// ParseFlags registers and parses command-line flags on fs. When no class
// flag is given all four classes are used.
func ParseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Config{}
	var upper, lower, digits, symbols bool
	var classes string

	fs.IntVar(&cfg.Length, "length", defaultLength, "Password length")
	fs.IntVar(&cfg.Length, "l", defaultLength, "Password length (shorthand)")

	fs.BoolVar(&upper, "upper", false, "Include uppercase letters (A-Z)")
	fs.BoolVar(&upper, "u", false, "Include uppercase (shorthand)")
	fs.BoolVar(&lower, "lower", false, "Include lowercase letters (a-z)")
	fs.BoolVar(&lower, "w", false, "Include lowercase (shorthand)")
	fs.BoolVar(&digits, "digits", false, "Include digits (0-9)")
	fs.BoolVar(&digits, "numbers", false, "Include digits (alias)")
	fs.BoolVar(&digits, "n", false, "Include digits (shorthand)")
	fs.BoolVar(&symbols, "symbols", false, "Include symbols (!@#$%^&*)")
	fs.BoolVar(&symbols, "s", false, "Include symbols (shorthand)")
	fs.StringVar(&classes, "classes", "", "Comma separated classes, overrides the individual toggles")

	fs.IntVar(&cfg.Count, "count", 1, "Number of passwords to generate")
	fs.IntVar(&cfg.Count, "c", 1, "Number of passwords (shorthand)")
	fs.BoolVar(&cfg.Copy, "copy", false, "Copy the first password to the clipboard")
	fs.StringVar(&cfg.Source, "source", "crypto", "Random source: crypto or chacha20")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	toggled := false
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "upper", "u", "lower", "w", "digits", "numbers", "n", "symbols", "s":
			toggled = true
		}
	})

	switch {
	case classes != "":
		sel, err := crypto.ParseSelection(classes)
		if err != nil {
			return Config{}, err
		}
		cfg.Selection = sel
	case toggled:
		cfg.Selection = cfg.Selection.
			Set(crypto.Uppercase, upper).
			Set(crypto.Lowercase, lower).
			Set(crypto.Digits, digits).
			Set(crypto.Symbols, symbols)
	default:
		cfg.Selection = crypto.NewSelection(crypto.AllClasses()...)
	}

	return cfg, nil
}

// RunInteractive prompts the user for options via r and returns a Config.
// Invalid answers keep the default shown in brackets.
func RunInteractive(r io.Reader, w io.Writer) Config {
	scanner := bufio.NewScanner(r)
	cfg := Config{Length: defaultLength, Count: 1, Source: "crypto"}

	fmt.Fprintln(w, "=== Password Generator (interactive mode) ===")
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Password length [%d]: ", defaultLength)
	if scanner.Scan() {
		if v, err := strconv.Atoi(strings.TrimSpace(scanner.Text())); err == nil && v > 0 {
			cfg.Length = v
		}
	}

	prompts := []classPrompt{
		{crypto.Uppercase, "Include uppercase letters (A-Z)?"},
		{crypto.Lowercase, "Include lowercase letters (a-z)?"},
		{crypto.Digits, "Include digits (0-9)?"},
		{crypto.Symbols, "Include symbols (!@#$%^&*)?"},
	}
	for _, p := range prompts {
		fmt.Fprintf(w, "%s [Y/n]: ", p.question)
		include := true
		if scanner.Scan() {
			include = parseYesNo(scanner.Text(), true)
		}
		cfg.Selection = cfg.Selection.Set(p.class, include)
	}

	fmt.Fprintf(w, "How many passwords? [1]: ")
	if scanner.Scan() {
		if v, err := strconv.Atoi(strings.TrimSpace(scanner.Text())); err == nil && v > 0 {
			cfg.Count = v
		}
	}

	fmt.Fprintln(w)
	return cfg
}

type classPrompt struct {
	class    crypto.CharacterClass
	question string
}

// parseYesNo returns true for "y"/"yes" and false for "n"/"no"
// (case-insensitive); anything else yields def.
func parseYesNo(s string, def bool) bool {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "y", "yes":
		return true
	case "n", "no":
		return false
	}
	return def
}

// Run generates cfg.Count passwords. An empty selection returns
// crypto.ErrEmptyAlphabet without calling the generator.
func Run(cfg Config, gen *crypto.Generator) ([]string, error) {
	if !crypto.IsValid(cfg.Selection) {
		return nil, crypto.ErrEmptyAlphabet
	}
	if cfg.Length > maxLength {
		return nil, fmt.Errorf("%w: %d > %d", service.ErrLengthTooLong, cfg.Length, maxLength)
	}
	if cfg.Count < 1 {
		cfg.Count = 1
	}
	if cfg.Count > maxCount {
		return nil, fmt.Errorf("%w: %d (max %d)", service.ErrTooManyPasswords, cfg.Count, maxCount)
	}

	alphabet := crypto.ResolveAlphabet(cfg.Selection)
	passwords := make([]string, 0, cfg.Count)
	for i := 0; i < cfg.Count; i++ {
		pw, err := gen.Generate(alphabet, cfg.Length)
		if err != nil {
			return nil, err
		}
		passwords = append(passwords, pw)
	}
	return passwords, nil
}

// Execute runs the command and returns the process exit code. Without
// arguments and with a terminal on stdin it switches to interactive mode.
func Execute(args []string, stdin io.Reader, stdout, stderr io.Writer, clip Clipboard) int {
	var cfg Config
	if len(args) == 0 && isTerminal(stdin) {
		cfg = RunInteractive(stdin, stdout)
	} else {
		fs := flag.NewFlagSet("pwgen", flag.ContinueOnError)
		fs.SetOutput(stderr)
		parsed, err := ParseFlags(fs, args)
		if err != nil {
			if errors.Is(err, flag.ErrHelp) {
				return 0
			}
			fmt.Fprintf(stderr, "error: %v\n", err)
			return 2
		}
		cfg = parsed
	}

	src, err := crypto.NewSource(cfg.Source)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 2
	}

	passwords, err := Run(cfg, crypto.NewGenerator(src))
	if err != nil {
		if errors.Is(err, crypto.ErrEmptyAlphabet) {
			fmt.Fprintln(stderr, service.Placeholder)
			return 1
		}
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	for _, pw := range passwords {
		fmt.Fprintln(stdout, pw)
	}

	if cfg.Copy {
		if clip == nil {
			clip = SelectClipboard(stderr)
		}
		if err := CopyWithFallback(clip, ManualClipboard{W: stderr}, passwords[0]); err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return 1
		}
	}
	return 0
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
