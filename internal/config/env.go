package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// getenv returns the value of key or def when it is unset or empty.
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// parser reads typed values and collects the errors instead of exiting, so
// Load can report every problem at once.
type parser struct {
	errs *[]error
}

func (p *parser) fail(format string, args ...any) {
	*p.errs = append(*p.errs, fmt.Errorf(format, args...))
}

func (p *parser) must(key string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		p.fail("missing required env var: %s", key)
	}
	return v
}

func (p *parser) integer(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		p.fail("invalid int for %s: %q", key, s)
		return def
	}
	return n
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil || d <= 0 {
		p.fail("invalid duration for %s: %q", key, s)
		return def
	}
	return d
}

func (p *parser) boolean(key string, def bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		p.fail("invalid bool for %s: %q", key, s)
		return def
	}
	return b
}
