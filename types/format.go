package types

import (
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
)

const notYet = "NOT YET"

// FormatStatus renders the collected/needed block given to the reply generator.
func FormatStatus(f Fields) string {
	var buf strings.Builder
	buf.WriteString("# Already collected:\n")
	table := tablewriter.NewTable(&buf, tablewriter.WithRenderer(renderer.NewMarkdown()))
	table.Header("Field", "Value")
	for _, name := range AllFields {
		value, ok := f.Get(name)
		if !ok {
			value = notYet
		}
		_ = table.Append(Info(name).DisplayName, value)
	}
	_ = table.Render()

	missing := f.Missing()
	buf.WriteString("\n# Still need: ")
	if len(missing) == 0 {
		buf.WriteString("nothing")
		return buf.String()
	}
	names := make([]string, 0, len(missing))
	for _, name := range missing {
		names = append(names, strings.ToLower(Info(name).DisplayName))
	}
	buf.WriteString(strings.Join(names, ", "))
	return buf.String()
}
