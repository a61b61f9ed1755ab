package ai

import (
	"fmt"
	"strings"
)

// domSnippetLimit caps the markup prefix embedded in the prompt so the
// request stays inside the reasoning service's context window. The
// truncation is silent and lossy.
const domSnippetLimit = 30000

func buildPrompt(goal, currentURL, domSnippet string, history []string) string {
	if len(domSnippet) > domSnippetLimit {
		domSnippet = domSnippet[:domSnippetLimit]
	}

	var sb strings.Builder

	sb.WriteString("You are a web automation agent.\n\n")
	sb.WriteString(fmt.Sprintf("GOAL: %s\n", goal))
	sb.WriteString(fmt.Sprintf("PAST ACTIONS: [%s]\n", strings.Join(history, "; ")))
	sb.WriteString(fmt.Sprintf("CURRENT URL: %s\n\n", currentURL))
	sb.WriteString("HTML SNIPPET (Current Page State):\n")
	sb.WriteString(domSnippet)
	sb.WriteString("\n\n")
	sb.WriteString(`INSTRUCTIONS:
Analyze the HTML and determine the next logical step to achieve the goal.
Return a single JSON object with these keys:
- "thought": A short explanation of your reasoning.
- "action": One of ["type", "click", "scrape", "finish"].
- "selector": The precise CSS selector to interact with.
- "value": The text to type (if action is 'type') or the instruction for scraping.

IMPORTANT SELECTOR RULES:
1. Do NOT use the ':contains()' pseudo-class. It is invalid in standard CSS.
2. To match text, use XPath (e.g., "//span[contains(text(), 'Boys')]") or simple CSS classes.
3. If you see search results, prioritize scraping them immediately rather than trying complex filtering.`)

	return sb.String()
}
