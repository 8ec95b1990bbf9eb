package schema

import "fmt"

// ValidationError reports malformed or missing rule or protocol input.
// Index is the position of the offending rule, or -1 when the error is not
// tied to a single rule.
type ValidationError struct {
	Stage  string
	RuleID string
	Index  int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	loc := e.Stage
	if e.Index >= 0 {
		loc = fmt.Sprintf("%s: rule[%d]", loc, e.Index)
		if e.RuleID != "" {
			loc = fmt.Sprintf("%s (%s)", loc, e.RuleID)
		}
	}
	if e.Field != "" {
		return fmt.Sprintf("%s: %s %s", loc, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: %s", loc, e.Reason)
}

// EmptyInputError reports that a stage received nothing to work on, e.g. an
// empty rule list or an empty finding list.
type EmptyInputError struct {
	Stage string
	What  string
}

func (e *EmptyInputError) Error() string {
	return fmt.Sprintf("%s: no %s supplied", e.Stage, e.What)
}
