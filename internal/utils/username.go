package utils

import (
	"regexp"
	"strings"

	"github.com/gosimple/slug"
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9_]{3,30}$`)

const maxUsernameBase = 20

// IsValidUsername reports whether s is 3-30 lowercase letters, digits or underscores.
func IsValidUsername(s string) bool {
	return usernamePattern.MatchString(s)
}

// NormalizeUsername lower-cases and trims user input before validation.
func NormalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// UsernameBase derives the stem of a generated username from a first name,
// transliterating to ASCII ("José" -> "jose").
func UsernameBase(firstName string) string {
	base := strings.ReplaceAll(slug.Make(firstName), "-", "")
	if len(base) > maxUsernameBase {
		base = base[:maxUsernameBase]
	}
	if len(base) < 2 {
		base = "user" + base
	}
	return base
}

// GenerateUsername appends a random numeric suffix to the first-name stem.
func GenerateUsername(firstName string) (string, error) {
	suffix, err := GenerateNumericCode(4)
	if err != nil {
		return "", err
	}
	return UsernameBase(firstName) + suffix, nil
}
