package jqfilter

import (
	"fmt"

	"github.com/itchyny/gojq"
)

type Error struct {
	Program string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("filter %q: %v", e.Program, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Filter reshapes an outgoing payload with a jq program.
type Filter struct {
	program string
	query   *gojq.Query
}

func Parse(program string) (*Filter, error) {
	q, err := gojq.Parse(program)
	if err != nil {
		return nil, &Error{Program: program, Err: err}
	}
	return &Filter{program: program, query: q}, nil
}

// Apply runs the program against in and returns its first output, which
// must be an object.
func (f *Filter) Apply(in map[string]interface{}) (map[string]interface{}, error) {
	iter := f.query.Run(in)
	v, ok := iter.Next()
	if !ok {
		return nil, &Error{Program: f.program, Err: fmt.Errorf("no output")}
	}
	if err, ok := v.(error); ok {
		return nil, &Error{Program: f.program, Err: err}
	}

	obj, ok := v.(map[string]interface{})
	if !ok {
		return nil, &Error{Program: f.program, Err: fmt.Errorf("output must be an object, got %T", v)}
	}
	return obj, nil
}

func (f *Filter) String() string {
	return f.program
}
