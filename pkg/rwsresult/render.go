package rwsresult

import (
	"strings"
)

// Separator used between fields in the single line form.
const summarySeparator = " | "

// Helper used to build result text representations.
type renderer struct {
	sb      strings.Builder
	verbose bool
	indent  string
	fields  int
}

func newRenderer(verbose bool, indent int) *renderer {
	if indent < 0 {
		indent = 0
	}
	return &renderer{
		verbose: verbose,
		indent:  strings.Repeat(" ", indent),
	}
}

// Add a single line field.
func (r *renderer) field(label string, value string) {
	if r.verbose {
		if r.fields > 0 {
			r.sb.WriteString("\n")
		}
		r.sb.WriteString(r.indent)
	} else if r.fields > 0 {
		r.sb.WriteString(summarySeparator)
	}
	r.sb.WriteString(label)
	r.sb.WriteString(": ")
	r.sb.WriteString(value)
	r.fields++
}

// Add a multi line field. Blocks are only part of the verbose form.
func (r *renderer) block(label string, value string) {
	if !r.verbose {
		return
	}
	if r.fields > 0 {
		r.sb.WriteString("\n")
	}
	r.sb.WriteString(r.indent)
	r.sb.WriteString(label)
	r.sb.WriteString(":")
	r.fields++
	value = strings.TrimRight(strings.ReplaceAll(value, "\r\n", "\n"), "\n")
	if value == "" {
		return
	}
	for _, line := range strings.Split(value, "\n") {
		r.sb.WriteString("\n")
		r.sb.WriteString(r.indent)
		r.sb.WriteString("  ")
		r.sb.WriteString(line)
	}
}

func (r *renderer) String() string {
	return r.sb.String()
}
