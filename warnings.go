package gridform

import (
	"fmt"
	"strings"
)

// Warning reports a non-fatal issue encountered during processing. The
// pipeline degrades gracefully and keeps going; warnings tell the caller the
// result may be imperfect.
type Warning struct {
	// Stage names the pipeline stage that raised the warning.
	Stage string

	// Message describes the issue.
	Message string
}

// String returns the warning as "stage: message".
func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Stage, w.Message)
}

// FormatWarnings joins warnings into a single human-readable string.
func FormatWarnings(warnings []Warning) string {
	if len(warnings) == 0 {
		return ""
	}
	parts := make([]string, len(warnings))
	for i, w := range warnings {
		parts[i] = w.String()
	}
	return strings.Join(parts, "; ")
}
