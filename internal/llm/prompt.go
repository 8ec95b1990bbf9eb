package llm

import (
	"fmt"
	"strings"

	"github.com/dshills/protoaudit/internal/protocol"
	"github.com/dshills/protoaudit/internal/reference"
	"github.com/dshills/protoaudit/internal/schema"
)

const systemPromptBase = `You are a clinical trial protocol auditor. Your job is to judge whether a
trial protocol satisfies one regulatory requirement at a time.

Status values:
- Compliant: the protocol explicitly addresses the requirement
- Partial: the requirement is mentioned but a mandatory element is missing
  (for example a reporting timeline, a responsible party, or a citation)
- Non-Compliant: the requirement is not addressed, or the protocol contradicts it

Evidence rules:
- Cite protocol lines by their prefix (L1:, L2:, ...) in the justification
- Do not invent protocol content that is not present
- Judge only the requirement you are given

Output rules:
- Return JSON only: {"status": "...", "justification": "..."}
- No prose, no markdown fences, no extra fields`

const strictModeText = `
STRICT MODE ENABLED: A requirement that is only implied, never stated, is
Non-Compliant. Partial is reserved for requirements stated without a mandatory element.`

// BuildSystemPrompt constructs the system prompt with optional strict mode injection.
func BuildSystemPrompt(strict bool) string {
	if !strict {
		return systemPromptBase
	}
	return systemPromptBase + strictModeText
}

// BuildUserPrompt constructs the prompt asking for a verdict on a single rule.
// The protocol is sent line-numbered; callers redact it beforehand.
func BuildUserPrompt(p *protocol.Protocol, rule schema.Rule, refs []reference.Document) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Regulation %s (%s, risk %s).\n", rule.ID, rule.Category, rule.RiskLevel)
	sb.WriteString("Judge whether the protocol below satisfies this regulation.\n\n")

	fmt.Fprintf(&sb, "<protocol file=%q>\n", p.Path)
	sb.WriteString(p.Numbered)
	if !strings.HasSuffix(p.Numbered, "\n") {
		sb.WriteString("\n")
	}
	sb.WriteString("</protocol>\n")

	if len(refs) > 0 {
		sb.WriteString("\n")
		sb.WriteString(reference.FormatForPrompt(refs))
	}

	sb.WriteString("\nReturn your verdict as JSON with this structure:\n")
	sb.WriteString(`{"status": "Compliant | Partial | Non-Compliant", "justification": "one or two sentences citing L-prefixed lines"}`)

	return sb.String()
}
