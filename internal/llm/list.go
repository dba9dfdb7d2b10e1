package llm

import "strings"

// ParseList parses a comma-separated LLM response into trimmed items,
// stripping markdown fences and list bullets. Returns nil for responses
// that carry no usable items (e.g. "none").
func ParseList(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	// Strip markdown code fences
	if strings.HasPrefix(text, "```") {
		lines := strings.Split(text, "\n")
		endIdx := len(lines) - 1
		for i := len(lines) - 1; i > 0; i-- {
			if strings.TrimSpace(lines[i]) == "```" {
				endIdx = i
				break
			}
		}
		text = strings.Join(lines[1:endIdx], "\n")
	}

	// Models sometimes answer one item per line instead of a comma list.
	text = strings.ReplaceAll(text, "\n", ",")

	var items []string
	for _, part := range strings.Split(text, ",") {
		item := strings.TrimSpace(part)
		item = strings.TrimPrefix(item, "-")
		item = strings.TrimPrefix(item, "*")
		item = strings.TrimSpace(item)
		if item == "" || strings.EqualFold(item, "none") {
			continue
		}
		items = append(items, item)
	}
	return items
}
