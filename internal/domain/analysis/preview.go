package analysis

import "strings"

// DefaultTitle is used when the analysis has no heading to show.
const DefaultTitle = "Patient Report"

// Title extracts the first markdown heading from the analysis for list
// views, stripped of its # markers.
func Title(markdown string) string {
	for _, line := range strings.Split(markdown, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "##") {
			return strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
		}
	}
	return DefaultTitle
}

// Preview flattens the analysis into plain text for the report card:
// headings, code fences and empty lines are skipped, list markers and
// bold/backtick syntax are stripped, and the remainder joins into one line.
// This is a rendering transform only; ParseSections keeps items verbatim.
func Preview(markdown string) string {
	var parts []string
	for _, line := range strings.Split(markdown, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" ||
			strings.HasPrefix(trimmed, "##") ||
			strings.HasPrefix(trimmed, "```") ||
			strings.HasPrefix(trimmed, "~~~") {
			continue
		}
		clean := trimmed
		clean = strings.TrimLeft(clean, "-* ")
		clean = strings.ReplaceAll(clean, "**", "")
		clean = strings.ReplaceAll(clean, "`", "")
		parts = append(parts, clean)
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}
