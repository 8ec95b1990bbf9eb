// Package redact scrubs credentials and patient identifiers from protocol
// text and reference documents before they leave the machine.
package redact

import (
	"os"
	"regexp"
	"strings"
)

const redacted = "[REDACTED]"

// pemPattern matches PEM key blocks across multiple lines.
var pemPattern = regexp.MustCompile(`(?s)-----BEGIN [A-Z ]+KEY-----.*?-----END [A-Z ]+KEY-----`)

// secretPatterns holds single-line credential regexes in priority order.
var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
	regexp.MustCompile(`(?:^|\s|["'])sk-[a-zA-Z0-9]{20,}`),
	regexp.MustCompile(`AIza[0-9A-Za-z\-_]{35}`),
	regexp.MustCompile(`eyJ[A-Za-z0-9\-_]+\.[A-Za-z0-9\-_]+\.[A-Za-z0-9\-_]+`),
	regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9\-._~+/]{20,}=*`),
	regexp.MustCompile(`(?i)password\s*[:=]\s*\S+`),
}

// identifierPatterns match participant identifiers that occasionally leak
// into protocol appendices.
var identifierPatterns = []*regexp.Regexp{
	// US social security numbers
	regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
	// Medical record numbers written as "MRN: 1234567" or "MRN 1234567"
	regexp.MustCompile(`(?i)\bMRN\s*[:#]?\s*[A-Z0-9-]{5,}`),
	// Dates of birth written as "DOB: 1980-01-31" or "DOB 01/31/1980"
	regexp.MustCompile(`(?i)\bDOB\s*[:=]?\s*[0-9/.-]{8,10}`),
	// E-mail addresses
	regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`),
}

// Redact replaces known secret and identifier patterns in input with
// [REDACTED]. Line structure is preserved: the number of newlines in the
// output always equals the number of newlines in the input.
func Redact(input string) string {
	// PEM blocks are replaced line by line so that line count is preserved.
	input = pemPattern.ReplaceAllStringFunc(input, func(match string) string {
		lines := strings.Split(match, "\n")
		for i := range lines {
			lines[i] = redacted
		}
		return strings.Join(lines, "\n")
	})

	for _, re := range secretPatterns {
		input = re.ReplaceAllString(input, redacted)
	}
	for _, re := range identifierPatterns {
		input = re.ReplaceAllString(input, redacted)
	}
	return input
}

// RedactFile reads a file, redacts its content, and returns the result.
func RedactFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return Redact(string(data)), nil
}
