// Package config reads the animation limit from its INI file.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/pboyd/animlimit/limit"
)

const (
	// DefaultPath is where the host looks for the file, relative to its
	// working directory.
	DefaultPath = "data/skse/plugins/DynamicAnimationReplacer.ini"

	Section           = "Main"
	KeyAnimationLimit = "AnimationLimit"
)

// ErrInvalidValue means a key is present but cannot be parsed.
var ErrInvalidValue = errors.New("invalid value")

// Settings are the values read from the file.
type Settings struct {
	// AnimationLimit is the configured limit, or -1 if there is none.
	AnimationLimit int

	// Raw is the value as written in the file.
	Raw string
}

// State returns the limit override the settings describe.
func (s Settings) State() *limit.State {
	return limit.New(s.AnimationLimit)
}

// Load reads the file at path. A missing file is the same as an empty one.
func Load(path string) (Settings, error) {
	return load(path)
}

// Parse reads settings from the contents of a file.
func Parse(data []byte) (Settings, error) {
	return load(data)
}

func load(source any) (Settings, error) {
	settings := Settings{AnimationLimit: -1}

	f, err := ini.LoadSources(ini.LoadOptions{Loose: true, Insensitive: true}, source)
	if err != nil {
		return settings, fmt.Errorf("error reading config: %w", err)
	}

	settings.Raw = strings.TrimSpace(f.Section(Section).Key(KeyAnimationLimit).String())
	if settings.Raw == "" {
		return settings, nil
	}

	v, err := parseInt(settings.Raw)
	if err != nil {
		return settings, fmt.Errorf("%w for %s: %q: %w", ErrInvalidValue, KeyAnimationLimit, settings.Raw, err)
	}
	if v >= 0 {
		settings.AnimationLimit = int(v)
	}

	return settings, nil
}

// parseInt reads the integer at the start of s. A 0x prefix means hex and a
// leading 0 means octal, so 0x10 and 020 are both 16. Parsing stops at the
// first character that is not a digit in the base, so "200abc" is 200 and
// "1_000" is 1. It is an error if there are no digits or the value does not
// fit in 32 bits.
func parseInt(s string) (int, error) {
	s = strings.TrimLeft(s, " \t\n\v\f\r")

	var sign string
	if s != "" && (s[0] == '+' || s[0] == '-') {
		sign, s = s[:1], s[1:]
	}

	base := 10
	switch {
	case len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') && isDigit(s[2], 16):
		base, s = 16, s[2:]
	case strings.HasPrefix(s, "0"):
		base = 8
	}

	n := 0
	for n < len(s) && isDigit(s[n], base) {
		n++
	}
	if n == 0 {
		return 0, strconv.ErrSyntax
	}

	v, err := strconv.ParseInt(sign+s[:n], base, 32)
	if err != nil {
		return 0, err.(*strconv.NumError).Err
	}
	return int(v), nil
}

func isDigit(c byte, base int) bool {
	var d int
	switch {
	case '0' <= c && c <= '9':
		d = int(c - '0')
	case 'a' <= c && c <= 'z':
		d = int(c-'a') + 10
	case 'A' <= c && c <= 'Z':
		d = int(c-'A') + 10
	default:
		return false
	}
	return d < base
}
