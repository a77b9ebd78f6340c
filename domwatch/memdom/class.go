package memdom

import "strings"

func fieldsOf(classAttr string) []string {
	return strings.Fields(classAttr)
}

func toggleClass(classAttr, class string, on bool) string {
	var out []string
	present := false
	for _, c := range fieldsOf(classAttr) {
		if c == class {
			present = true
			if !on {
				continue
			}
		}
		out = append(out, c)
	}
	if on && !present {
		out = append(out, class)
	}
	return strings.Join(out, " ")
}
