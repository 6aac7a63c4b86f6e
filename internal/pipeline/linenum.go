package pipeline

import (
	"fmt"
	"strings"
)

// NumberLines prefixes every line of text with "L###:", padding the number
// width to fit the total line count, per spec.md §4.2 step 1.
func NumberLines(text string) string {
	lines := strings.Split(text, "\n")
	width := len(fmt.Sprintf("%d", len(lines)))
	if width < 3 {
		width = 3
	}

	var b strings.Builder
	for i, line := range lines {
		fmt.Fprintf(&b, "L%0*d:%s", width, i+1, line)
		if i < len(lines)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
