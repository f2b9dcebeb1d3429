package member

import (
	"context"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

const maxShortNameAttempts = 10000

// Initials returns the upper-cased first letter of every non-blank part.
func Initials(parts ...string) string {
	var builder strings.Builder
	builder.Grow(len(parts))

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		r, _ := utf8.DecodeRuneInString(part)
		builder.WriteRune(unicode.ToUpper(r))
	}

	return builder.String()
}

// GenerateShortName picks the initials of firstName, middleName, lastName and
// town, then appends 1, 2, ... until the repository reports the code as free.
// Callers run it inside the same transaction as the insert.
func GenerateShortName(ctx context.Context, repo Repository, firstName, middleName, lastName, town string) (string, error) {
	base := Initials(firstName, middleName, lastName, town)
	if base == "" {
		return "", ErrFirstNameRequired
	}

	taken, err := repo.IsShortNameTaken(ctx, base)
	if err != nil {
		return "", err
	}
	if !taken {
		return base, nil
	}

	for suffix := 1; suffix < maxShortNameAttempts; suffix++ {
		candidate := base + strconv.Itoa(suffix)
		taken, err := repo.IsShortNameTaken(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}

	return "", ErrShortNameExhausted
}
