package domain

import "strings"

// Command is an external engine command.
// Stdin and Env may carry secrets and must never be logged.
type Command struct {
	Name  string
	Args  []string
	Dir   string
	Stdin string
	Env   []string
}

// String renders the command line without stdin or environment.
func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// ExecutionResult is the uniform outcome of an external command.
// Callers branch on Success.
type ExecutionResult struct {
	Success bool
	Output  string
}
