package analysis

import (
	"regexp"
	"strings"
)

// UnknownField is the sentinel used when the patient line is absent.
const UnknownField = "Unknown"

// PatientInfo is extracted from the report heading.
type PatientInfo struct {
	Age    string `json:"age"`
	Gender string `json:"gender"`
}

// Section is a named, ordered group of content items from the analysis
// markdown. Differentials is populated only when a regroup rule fired; it
// renders as a sub-list attached to the section's first item.
type Section struct {
	Title         string   `json:"title"`
	Items         []string `json:"items"`
	Differentials []string `json:"differentials,omitempty"`
}

// ParsedReport is the structured view of one analysis document. It is
// recomputed on every render and never persisted.
type ParsedReport struct {
	Patient  PatientInfo `json:"patient"`
	Sections []Section   `json:"sections"`
}

var (
	patientRe  = regexp.MustCompile(`## Patient of (\d+) years old, (\w+)`)
	listMarker = regexp.MustCompile(`^\s*-\s*`)
)

// regroupRule re-groups the dash-items following a marker item into a
// separate sub-list. Keyed by section title so new rules are one literal away.
type regroupRule struct {
	Section string
	Marker  string
}

var regroupRules = []regroupRule{
	{Section: "Assumption based upon past cases", Marker: "Differential diagnoses:"},
}

// ParseSections converts the analysis markdown into patient info plus named
// sections. Best-effort and total: arbitrary input never fails, unmatched
// text is dropped, and a document without the patient heading yields the
// Unknown sentinels.
func ParseSections(markdown string) ParsedReport {
	patient := PatientInfo{Age: UnknownField, Gender: UnknownField}
	if m := patientRe.FindStringSubmatch(markdown); m != nil {
		patient.Age = m[1]
		patient.Gender = m[2]
	}

	var sections []*Section
	index := make(map[string]*Section)
	var current *Section

	for _, line := range strings.Split(markdown, "\n") {
		// Patient heading was handled above
		if strings.HasPrefix(line, "## Patient") {
			continue
		}

		// Section header: - **Title:**
		if strings.HasPrefix(line, "- **") && strings.HasSuffix(line, ":**") {
			title := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(line, "- **"), ":**"))
			if sec, ok := index[title]; ok {
				// Reopening a title resets its items
				sec.Items = nil
				current = sec
				continue
			}
			sec := &Section{Title: title}
			index[title] = sec
			sections = append(sections, sec)
			current = sec
			continue
		}

		// Content item inside an open section
		if current != nil && strings.HasPrefix(strings.TrimSpace(line), "-") {
			item := strings.TrimSpace(listMarker.ReplaceAllString(line, ""))
			if item != "" {
				current.Items = append(current.Items, item)
			}
		}
	}

	out := ParsedReport{Patient: patient, Sections: make([]Section, 0, len(sections))}
	for _, sec := range sections {
		applyRegroupRules(sec)
		out.Sections = append(out.Sections, *sec)
	}
	return out
}

// applyRegroupRules splits a section's items at the marker item: everything
// before it stays a normal item, everything after becomes the sub-list, and
// the marker itself appears in neither.
func applyRegroupRules(sec *Section) {
	for _, rule := range regroupRules {
		if sec.Title != rule.Section {
			continue
		}
		for i, item := range sec.Items {
			if strings.Contains(item, rule.Marker) {
				for _, d := range sec.Items[i+1:] {
					d = strings.TrimSpace(listMarker.ReplaceAllString(d, ""))
					if d != "" {
						sec.Differentials = append(sec.Differentials, d)
					}
				}
				sec.Items = sec.Items[:i]
				break
			}
		}
	}
}
