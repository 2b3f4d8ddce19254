package retriever

import (
	"fmt"
	"strings"

	"github.com/bookbinderco/stacks/pkg/vector"
)

// contextDelimiter separates passages in the assembled context string.
const contextDelimiter = "\n\n---\n\n"

// FormatContext renders selected passages into the context block handed to
// the prompt builder. Each passage renders its source, optional page number,
// and content. An empty selection renders as an empty string; the caller
// decides how to phrase "no context found".
func FormatContext(candidates []vector.Candidate) string {
	if len(candidates) == 0 {
		return ""
	}

	parts := make([]string, 0, len(candidates))
	for _, c := range candidates {
		var b strings.Builder
		fmt.Fprintf(&b, "Source: %s\n", c.Source)
		if c.Page != nil {
			fmt.Fprintf(&b, "Page: %d\n", *c.Page)
		}
		fmt.Fprintf(&b, "Content:\n%s", c.Text)
		parts = append(parts, b.String())
	}

	return strings.Join(parts, contextDelimiter)
}
