// ABOUTME: Configuration errors raised by the dispatcher before any rule runs.
// ABOUTME: Both are fatal to a run so that an incomplete report is never returned as complete.
package lint

import "fmt"

// UnknownRuleError reports a subrule name with no built-in or plugin implementation.
type UnknownRuleError struct {
	Name  string
	Index int
}

func (e *UnknownRuleError) Error() string {
	return fmt.Sprintf("unknown rule %q (subrule %d)", e.Name, e.Index)
}

// InvalidParamsError reports subrule parameters rejected by the rule.
type InvalidParamsError struct {
	Name  string
	Index int
	Err   error
}

func (e *InvalidParamsError) Error() string {
	return fmt.Sprintf("invalid params for rule %q (subrule %d): %v", e.Name, e.Index, e.Err)
}

func (e *InvalidParamsError) Unwrap() error {
	return e.Err
}
