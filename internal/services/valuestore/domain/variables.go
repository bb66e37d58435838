package domain

import "strings"

// Process variable names exchanged with callers.
const (
	// VarValueStore carries the logical value store name.
	VarValueStore = "valueStore"
	// VarStandalone marks a direct invocation; its value is ignored.
	VarStandalone = "_STANDALONE"
	// VarValues carries the resolved ValueTable on success.
	VarValues = "values"
	// VarError carries a human-readable failure message.
	VarError = "_DIGIT_ERROR"
)

// Mode selects how failures are presented to the caller.
type Mode int

const (
	// ModeOrchestrated is the workflow-engine path: failures become task
	// failures with a retry budget.
	ModeOrchestrated Mode = iota
	// ModeStandalone is the direct path: failures become an error field in
	// an otherwise normal result.
	ModeStandalone
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	switch m {
	case ModeStandalone:
		return "standalone"
	case ModeOrchestrated:
		return "orchestrated"
	default:
		return "unknown"
	}
}

// ModeFromVariables reports ModeStandalone when the standalone marker is
// present in vars, whatever its value.
func ModeFromVariables(vars map[string]any) Mode {
	if _, ok := vars[VarStandalone]; ok {
		return ModeStandalone
	}
	return ModeOrchestrated
}

// LogicalName extracts the value store name from vars. Only a non-blank
// string counts as present.
func LogicalName(vars map[string]any) (string, bool) {
	raw, ok := vars[VarValueStore]
	if !ok {
		return "", false
	}
	name, ok := raw.(string)
	if !ok {
		return "", false
	}
	name = strings.TrimSpace(name)
	return name, name != ""
}

// SuccessResult is the result variable set for a resolved table.
func SuccessResult(table ValueTable) map[string]any {
	return map[string]any{VarValues: table}
}

// ErrorResult is the result variable set for a failure presented in-band.
func ErrorResult(message string) map[string]any {
	return map[string]any{VarError: message}
}
