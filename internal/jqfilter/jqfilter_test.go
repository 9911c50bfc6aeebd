package jqfilter

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestApply(t *testing.T) {
	f, err := Parse(`{text: .message, priority: (.priority + 1), source: "emissary"}`)
	if err != nil {
		t.Fatal(err)
	}

	out, err := f.Apply(map[string]interface{}{
		"message":  "hello",
		"webhook":  "https://example.test/hook",
		"priority": 4,
	})
	if err != nil {
		t.Fatal(err)
	}

	expect := map[string]interface{}{
		"text":     "hello",
		"priority": 5,
		"source":   "emissary",
	}
	if !cmp.Equal(out, expect) {
		t.Fatal(cmp.Diff(out, expect))
	}
}

func TestApplyDelete(t *testing.T) {
	f, err := Parse(`del(.webhook)`)
	if err != nil {
		t.Fatal(err)
	}

	out, err := f.Apply(map[string]interface{}{
		"message": "hello",
		"webhook": "https://example.test/hook",
	})
	if err != nil {
		t.Fatal(err)
	}

	expect := map[string]interface{}{
		"message": "hello",
	}
	if !cmp.Equal(out, expect) {
		t.Fatal(cmp.Diff(out, expect))
	}
}

func TestParseError(t *testing.T) {
	_, err := Parse(`{text: `)
	var filterErr *Error
	if !errors.As(err, &filterErr) {
		t.Fatalf("expected filter Error, got %v", err)
	}
	if filterErr.Program != `{text: ` {
		t.Errorf("unexpected program %q", filterErr.Program)
	}
}

func TestApplyErrors(t *testing.T) {
	tests := []string{
		`.message`,
		`empty`,
		`error("boom")`,
		`[.message]`,
	}

	in := map[string]interface{}{"message": "hello"}
	for _, program := range tests {
		f, err := Parse(program)
		if err != nil {
			t.Errorf("parse %q: %s", program, err)
			continue
		}
		out, err := f.Apply(in)
		if out != nil {
			t.Errorf("%q: expected no output, got %v", program, out)
		}
		var filterErr *Error
		if !errors.As(err, &filterErr) {
			t.Errorf("%q: expected filter Error, got %v", program, err)
		}
	}
}
