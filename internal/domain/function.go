package domain

// FunctionCall is one structured action request extracted from model output:
// an action name from the fixed registry plus its raw argument record. The
// arguments are validated against the action's schema before execution.
type FunctionCall struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// FunctionResult is the outcome of executing a single FunctionCall. Failed
// validation or execution is reported in-band through Success and Message,
// never as an error that aborts the batch.
type FunctionResult struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Action  string      `json:"action,omitempty"`
}
