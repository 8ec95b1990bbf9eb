package protocol

import (
	"crypto/sha256"
	"fmt"
	"os"
	"strings"
)

// SamplePath is the Path reported for the built-in sample protocol.
const SamplePath = "<sample>"

// sampleText is the protocol summary audited when no protocol file is given.
const sampleText = "Phase III randomized trial for new respiratory vaccine. Participant age: 18-65. Expected cohort size: 5000."

// Protocol holds a loaded trial protocol with derived metadata.
type Protocol struct {
	Path      string
	Hash      string // "sha256:<hex>"
	Raw       string // original content
	Numbered  string // content with "L1: …" prefixes
	LineCount int
}

// Load reads a protocol file from disk, computes its hash, and line-numbers its content.
func Load(path string) (*Protocol, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading protocol file: %w", err)
	}
	return fromBytes(path, data), nil
}

// Sample returns the built-in sample protocol summary.
func Sample() *Protocol {
	return fromBytes(SamplePath, []byte(sampleText))
}

func fromBytes(path string, data []byte) *Protocol {
	raw := string(data)
	sum := sha256.Sum256(data)
	numbered, lineCount := addLineNumbers(raw)

	return &Protocol{
		Path:      path,
		Hash:      fmt.Sprintf("sha256:%x", sum),
		Raw:       raw,
		Numbered:  numbered,
		LineCount: lineCount,
	}
}

// addLineNumbers prefixes every line with "L{n}: " and returns the result
// along with the total line count.
func addLineNumbers(content string) (string, int) {
	lines := strings.Split(content, "\n")
	out := make([]string, 0, len(lines))
	lineCount := 0
	for i, line := range lines {
		// Don't number the trailing empty string after a final newline
		if i == len(lines)-1 && line == "" {
			break
		}
		lineCount++
		out = append(out, fmt.Sprintf("L%d: %s", lineCount, line))
	}
	return strings.Join(out, "\n"), lineCount
}
