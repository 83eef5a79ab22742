// Package inputval holds the format checks applied to sign-up, profile and
// onboarding input before it reaches a store.
package inputval

import (
	"net/mail"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dalemusser/opshub/internal/domain/errs"
)

// Username and password limits.
const (
	MinUsernameLen = 3
	MaxUsernameLen = 32
	MinPasswordLen = 8
	MaxPasswordLen = 72 // bcrypt ignores bytes past 72
)

// IsValidEmail reports whether s is a bare addr-spec (no display name) with
// a dot-atom local part and domain.
func IsValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, " \t<>") {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s || addr.Name != "" {
		return false
	}
	at := strings.LastIndexByte(s, '@')
	return dotAtom(s[:at]) && dotAtom(s[at+1:])
}

func dotAtom(s string) bool {
	if s == "" || s[0] == '.' || s[len(s)-1] == '.' {
		return false
	}
	return !strings.Contains(s, "..")
}

// IsValidHTTPURL reports whether s is an absolute http or https URL with a host.
func IsValidHTTPURL(s string) bool {
	u, err := url.ParseRequestURI(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// IsValidUsername reports whether s is 3-32 letters, digits, '_', '-' or '.',
// starting with a letter or digit.
func IsValidUsername(s string) bool {
	n := utf8.RuneCountInString(s)
	if n < MinUsernameLen || n > MaxUsernameLen {
		return false
	}
	for i, r := range s {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
		case i > 0 && (r == '_' || r == '-' || r == '.'):
		default:
			return false
		}
	}
	return true
}

// Password returns a validation error when pw is too short, too long, or
// lacks either a letter or a digit.
func Password(pw string) error {
	switch {
	case len(pw) < MinPasswordLen:
		return errs.Invalid("password", "must be at least 8 characters")
	case len(pw) > MaxPasswordLen:
		return errs.Invalid("password", "must be at most 72 bytes")
	}
	var letter, digit bool
	for _, r := range pw {
		letter = letter || unicode.IsLetter(r)
		digit = digit || unicode.IsDigit(r)
	}
	if !letter || !digit {
		return errs.Invalid("password", "must contain a letter and a digit")
	}
	return nil
}

// Socials drops entries whose value is not an http(s) URL and returns the
// rejected names.
func Socials(in map[string]string) (map[string]string, []string) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(in))
	var rejected []string
	for name, link := range in {
		name = strings.ToLower(strings.TrimSpace(name))
		link = strings.TrimSpace(link)
		if name == "" || link == "" {
			continue
		}
		if !IsValidHTTPURL(link) {
			rejected = append(rejected, name)
			continue
		}
		out[name] = link
	}
	return out, rejected
}
