package authoring

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are a curriculum author creating reusable math question templates for German primary and secondary school children.

Rules:
- Write all learner-facing text in German, plain ASCII plus umlauts and the € sign.
- Use {name} placeholders for every value that should vary between renderings, and declare each placeholder in "parameters".
- Numeric parameters must respect the given curriculum number range; for two-operand arithmetic their sum (and product, when multiplication is permitted) must also stay inside the range.
- The solution must be mathematically correct for every permitted parameter combination.
- For multiple_choice provide exactly 3 distractors reflecting common mistakes; none may equal the solution.
- For ordering provide at least 3 items with no two mathematically equal values, even across units.
- For matching provide at least 2 left=right pairs.
- The explanation walks through the solution step by step, age-appropriate for the grade.
- Do not duplicate any template from the "existing prompts" list.`

// buildUserMessage constructs the authoring request message.
func buildUserMessage(req Request, cfg Config) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Grade: %d\n", req.Grade)
	fmt.Fprintf(&b, "Quarter: %s\n", req.Quarter)
	fmt.Fprintf(&b, "Domain: %s\n", req.Domain)
	if req.Subcategory != "" {
		fmt.Fprintf(&b, "Subcategory: %s\n", req.Subcategory)
	}
	if req.Type != "" {
		fmt.Fprintf(&b, "Question type: %s\n", req.Type)
	}
	if req.Difficulty != "" {
		fmt.Fprintf(&b, "Difficulty: %s\n", req.Difficulty)
	}
	if req.Rule != nil {
		fmt.Fprintf(&b, "Number range: %d to %d\n", req.Rule.MinNumber, req.Rule.MaxNumber)
		fmt.Fprintf(&b, "Permitted operations: %s\n", strings.Join(req.Rule.Operations, " "))
	}

	b.WriteString("\nExisting prompts in this cell:\n")
	b.WriteString(buildExclusions(req.Existing, cfg.MaxExclusions))

	return b.String()
}

// buildExclusions formats existing prompts for the message, keeping only
// the most recent max entries. Returns "None" when the list is empty.
func buildExclusions(existing []string, max int) string {
	if len(existing) == 0 {
		return "None"
	}

	if max > 0 && len(existing) > max {
		existing = existing[len(existing)-max:]
	}

	var b strings.Builder
	for i, p := range existing {
		fmt.Fprintf(&b, "%d. %s\n", i+1, p)
	}
	return strings.TrimRight(b.String(), "\n")
}
