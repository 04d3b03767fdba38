package recognition

import "strings"

// DefaultAdvisory are the known harmless worker messages,
// mostly Python library warnings.
var DefaultAdvisory = []string{"UserWarning", "pkg_resources is deprecated", "Warning:"}

// Classifier sorts worker diagnostics into advisories and failures.
// Anything that doesn't match an advisory pattern is a failure.
type Classifier struct {
	advisory []string
}

func NewClassifier(patterns []string) Classifier {
	if len(patterns) == 0 {
		patterns = DefaultAdvisory
	}
	return Classifier{advisory: patterns}
}

func (c Classifier) IsAdvisory(text string) bool {
	for _, p := range c.advisory {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

// DiagnosticError is a worker failure message.
type DiagnosticError struct {
	Text string
}

func (e *DiagnosticError) Error() string { return e.Text }
