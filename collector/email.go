package collector

import "regexp"

// EmailNotFound is recorded when a channel description carries no address.
const EmailNotFound = "not found"

var emailRegex = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

// ExtractEmail returns the first email address in text, verbatim, or
// EmailNotFound.
func ExtractEmail(text string) string {
	if text == "" {
		return EmailNotFound
	}
	if m := emailRegex.FindString(text); m != "" {
		return m
	}
	return EmailNotFound
}
