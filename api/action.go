package api

// Action declares a user-triggerable operation. Params values are dynamic
// (literal or {path} ref) and are resolved exactly once, when the action is
// dispatched — not when it executes — so a confirmation dialog always shows
// the values the user acted on.
type Action struct {
	Name    string         `json:"name"`
	Params  map[string]any `json:"params,omitempty"`
	Confirm *ConfirmSpec   `json:"confirm,omitempty"`

	// OnSuccess and OnError map data-model paths to values written after the
	// handler finishes. A value of {"path": "/result"} writes the handler's
	// return value; {"path": "/error/message"} writes the failure message.
	OnSuccess map[string]any `json:"onSuccess,omitempty"`
	OnError   map[string]any `json:"onError,omitempty"`
}

// ConfirmSpec describes the confirmation dialog shown before execution.
type ConfirmSpec struct {
	Title        string `json:"title"`
	Message      string `json:"message,omitempty"`
	ConfirmLabel string `json:"confirmLabel,omitempty"`
	CancelLabel  string `json:"cancelLabel,omitempty"`
}

// ResolvedAction is an Action whose params have been evaluated against a
// specific data-model snapshot.
type ResolvedAction struct {
	Action *Action
	Params map[string]any
}

// CheckSpec is one validation check: a function name, optional args, and the
// message reported when the check fails.
type CheckSpec struct {
	Fn      string         `json:"fn"`
	Args    map[string]any `json:"args,omitempty"`
	Message string         `json:"message,omitempty"`
}

// ValidationResult is a normal value, not an error: Valid is false when any
// check failed, and Errors collects every failing check's message in
// declaration order.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}
