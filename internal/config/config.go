package config

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/vaultpass/passgen-go/internal/crypto"
)

type Config struct {
	Port string
	Env  string

	DefaultLength int
	MinLength     int
	MaxLength     int
	MaxCount      int

	DefaultClasses crypto.Selection
	RandomSource   string

	RateLimitRPS   float64
	RateLimitBurst int

	LoadingDelay    time.Duration
	FeedbackTimeout time.Duration
	AutoRegenerate  bool
}

// Load reads the configuration from the process environment. An unusable
// configuration is fatal in production and logged otherwise.
func Load() Config {
	cfg, err := Parse(os.Getenv)
	if err != nil {
		if cfg.Env == "production" {
			slog.Error("invalid configuration", "error", err)
			os.Exit(1)
		}
		slog.Warn("invalid configuration, using defaults where needed", "error", err)
	}
	return cfg
}

// Parse builds a Config from getenv. Malformed values fall back to their
// defaults; the returned error reports problems that cannot be repaired,
// currently only an unknown random source.
func Parse(getenv func(string) string) (Config, error) {
	e := env{getenv: getenv}

	cfg := Config{
		Port:            e.str("PORT", "8080"),
		Env:             e.str("ENV", "development"),
		DefaultLength:   e.intVal("DEFAULT_LENGTH", 16),
		MinLength:       e.intVal("MIN_LENGTH", 1),
		MaxLength:       e.intVal("MAX_LENGTH", 128),
		MaxCount:        e.intVal("MAX_COUNT", 20),
		DefaultClasses:  e.selectionVal("DEFAULT_CLASSES", crypto.NewSelection(crypto.AllClasses()...)),
		RandomSource:    strings.ToLower(e.str("RANDOM_SOURCE", "crypto")),
		RateLimitRPS:    5,
		RateLimitBurst:  10,
		LoadingDelay:    e.durationVal("LOADING_DELAY", 300*time.Millisecond),
		FeedbackTimeout: e.durationVal("FEEDBACK_TIMEOUT", 2*time.Second),
		AutoRegenerate:  e.boolVal("AUTO_REGENERATE", true),
	}

	if rl := e.str("RATE_LIMIT", ""); rl != "" {
		rps, burst, ok := parseRateLimit(rl)
		if ok {
			cfg.RateLimitRPS = rps
			cfg.RateLimitBurst = burst
		} else {
			slog.Warn("ignoring malformed RATE_LIMIT", "value", rl)
		}
	}

	cfg.normalize()

	if _, err := crypto.NewSource(cfg.RandomSource); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// normalize repairs inconsistent length and limit settings.
func (c *Config) normalize() {
	if c.MinLength < 1 {
		c.MinLength = 1
	}
	if c.MaxLength < c.MinLength {
		c.MaxLength = c.MinLength
	}
	c.DefaultLength = c.ClampLength(c.DefaultLength)
	if c.MaxCount < 1 {
		c.MaxCount = 1
	}
	if c.RateLimitBurst < 1 {
		c.RateLimitBurst = 1
	}
	if c.LoadingDelay < 0 {
		c.LoadingDelay = 0
	}
	if c.FeedbackTimeout <= 0 {
		c.FeedbackTimeout = 2 * time.Second
	}
}

// ClampLength forces n into [MinLength, MaxLength].
func (c Config) ClampLength(n int) int {
	if n < c.MinLength {
		return c.MinLength
	}
	if n > c.MaxLength {
		return c.MaxLength
	}
	return n
}

type env struct {
	getenv func(string) string
}

func (e env) str(key, fallback string) string {
	if v := strings.TrimSpace(e.getenv(key)); v != "" {
		return v
	}
	return fallback
}

func (e env) intVal(key string, fallback int) int {
	v := e.str(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("ignoring malformed integer", "key", key, "value", v)
		return fallback
	}
	return n
}

func (e env) boolVal(key string, fallback bool) bool {
	v := e.str(key, "")
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("ignoring malformed boolean", "key", key, "value", v)
		return fallback
	}
	return b
}

func (e env) durationVal(key string, fallback time.Duration) time.Duration {
	v := e.str(key, "")
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("ignoring malformed duration", "key", key, "value", v)
		return fallback
	}
	return d
}

func (e env) selectionVal(key string, fallback crypto.Selection) crypto.Selection {
	v := e.str(key, "")
	if v == "" {
		return fallback
	}
	if strings.EqualFold(v, "none") {
		return crypto.NewSelection()
	}
	sel, err := crypto.ParseSelection(v)
	if err != nil {
		slog.Warn("ignoring malformed class list", "key", key, "value", v, "error", err)
		return fallback
	}
	return sel
}

var rateRe = regexp.MustCompile(`^\s*(\d+(?:\.\d+)?)\s*(?:rps)?\s*(?::\s*(\d+)\s*)?$`)

// parseRateLimit accepts "5", "5rps", "0.5" or "5:10" (rps:burst).
func parseRateLimit(s string) (rps float64, burst int, ok bool) {
	m := rateRe.FindStringSubmatch(strings.ToLower(s))
	if m == nil {
		return 0, 0, false
	}
	rps, err := strconv.ParseFloat(m[1], 64)
	if err != nil || rps <= 0 {
		return 0, 0, false
	}
	burst = int(rps)
	if m[2] != "" {
		burst, _ = strconv.Atoi(m[2])
	}
	if burst < 1 {
		burst = 1
	}
	return rps, burst, true
}

func (c Config) String() string {
	return fmt.Sprintf("env=%s port=%s length=%d[%d,%d] classes=%s source=%s",
		c.Env, c.Port, c.DefaultLength, c.MinLength, c.MaxLength, c.DefaultClasses, c.RandomSource)
}
