package vision

import (
	"strings"
)

// ParseResponse parses vision model output in the format
// name | quantity | unit | category, one item per line.
func ParseResponse(raw string) []DetectedItem {
	items := make([]DetectedItem, 0)
	for _, line := range strings.Split(raw, "\n") {
		if item := ParseLine(line); item != nil {
			items = append(items, *item)
		}
	}
	return items
}

// ParseLine parses a single output line. Lines without a "|" separator are
// treated as preamble and yield nil.
func ParseLine(line string) *DetectedItem {
	line = strings.TrimSpace(line)
	if line == "" || !strings.Contains(line, "|") {
		return nil
	}

	// Markdown tables wrap rows in pipes.
	line = strings.Trim(line, "|")
	parts := strings.Split(line, "|")
	item := &DetectedItem{Name: strings.Trim(strings.TrimSpace(parts[0]), "-*• ")}
	if item.Name == "" || isTableRule(item.Name) || strings.EqualFold(item.Name, "name") {
		return nil
	}

	if len(parts) >= 2 {
		item.Quantity = strings.TrimSpace(parts[1])
	}
	if len(parts) >= 3 {
		item.Unit = strings.TrimSpace(parts[2])
	}
	if len(parts) >= 4 {
		item.Category = strings.TrimSpace(parts[3])
	}
	return item
}

func isTableRule(s string) bool {
	return strings.Trim(s, "-: ") == ""
}
