package diagnostics

import (
	"strings"
	"testing"
)

func TestSpanContains(t *testing.T) {
	span := NewSpan(4, 9)
	if !span.Contains(4) {
		t.Error("Expected the start boundary to be inside the span")
	}
	if !span.Contains(9) {
		t.Error("Expected the end boundary to be inside the span")
	}
	if !span.Contains(6) {
		t.Error("Expected an interior position to be inside the span")
	}
	if span.Contains(3) || span.Contains(10) {
		t.Error("Expected positions outside the range to be excluded")
	}
}

func TestCollect(t *testing.T) {
	d := New()
	if d.HasErrors() {
		t.Error("Expected a fresh collection to have no errors")
	}

	d.PushError(NewError("first", NewSpan(0, 1)))
	d.Errorf(NewSpan(2, 3), "second %s", "error")
	d.Warnf(NewSpan(4, 5), "only a warning")

	if !d.HasErrors() {
		t.Error("Expected HasErrors after pushing errors")
	}
	errs := d.Errors()
	if len(errs) != 2 {
		t.Fatalf("Expected 2 errors, got %d", len(errs))
	}
	if errs[0].Message() != "first" || errs[1].Message() != "second error" {
		t.Errorf("Errors out of order: %q, %q", errs[0].Message(), errs[1].Message())
	}
	if errs[1].Span() != NewSpan(2, 3) {
		t.Errorf("Unexpected span: %+v", errs[1].Span())
	}

	warns := d.Warnings()
	if len(warns) != 1 {
		t.Fatalf("Expected 1 warning, got %d", len(warns))
	}
	if warns[0].Message() != "only a warning" {
		t.Errorf("Unexpected warning: %q", warns[0].Message())
	}
}

func TestToResult(t *testing.T) {
	d := New()
	if err := d.ToResult(); err != nil {
		t.Errorf("Expected nil for an empty collection, got %v", err)
	}

	d.Errorf(NewSpan(0, 1), "boom")
	if err := d.ToResult(); err == nil || err.Error() != "validation failed with 1 error" {
		t.Errorf("Expected singular message, got %v", err)
	}

	d.Errorf(NewSpan(1, 2), "boom")
	d.Errorf(NewSpan(2, 3), "boom")
	if err := d.ToResult(); err == nil || err.Error() != "validation failed with 3 errors" {
		t.Errorf("Expected plural message, got %v", err)
	}
}

func TestToPrettyString(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	source := "model user {\n  id Int\n}\n"
	d := New()
	d.Errorf(NewSpan(6, 10), `model name "user" must be UpperCamelCase`)

	got := d.ToPrettyString("schema.quarry", source)
	want := "error: model name \"user\" must be UpperCamelCase\n" +
		"  --> schema.quarry:1\n" +
		"   | \n" +
		" 1 | model user {\n" +
		"   |       ^^^^\n" +
		"   | \n"
	if got != want {
		t.Errorf("Unexpected rendering:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestToPrettyStringEmptySpan(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	source := "model user {\n"
	d := New()
	d.Errorf(NewSpan(6, 6), "unexpected token")

	got := d.ToPrettyString("schema.quarry", source)
	if !strings.Contains(got, "^ Unexpected token.") {
		t.Errorf("Expected a caret marker for an empty span, got:\n%s", got)
	}
}

func TestWarningsToPrettyString(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	source := "author_id BigInt?\n"
	d := New()
	d.Warnf(NewSpan(0, 9), "foreign key author_id is nullable")

	got := d.WarningsToPrettyString("schema.quarry", source)
	if !strings.HasPrefix(got, "warning: foreign key author_id is nullable\n") {
		t.Errorf("Expected a warning header, got:\n%s", got)
	}
	if !strings.Contains(got, "^^^^^^^^^") {
		t.Errorf("Expected the offending range underlined, got:\n%s", got)
	}
}

func TestMultiLineSpan(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	source := "model User {\n  id Int\n}\n"
	d := New()
	d.Errorf(NewSpan(0, len(source)-1), "whole model")

	got := d.ToPrettyString("schema.quarry", source)
	if !strings.Contains(got, " 1 | model User {") {
		t.Errorf("Expected the first line in the rendering, got:\n%s", got)
	}
	if !strings.Contains(got, " 2 |   id Int") {
		t.Errorf("Expected continuation lines in the rendering, got:\n%s", got)
	}
}

func TestFromError(t *testing.T) {
	d := FromError(NewError("boom", NewSpan(1, 2)))
	if !d.HasErrors() {
		t.Fatal("Expected errors")
	}
	if len(d.Errors()) != 1 {
		t.Fatalf("Expected 1 error, got %d", len(d.Errors()))
	}
	if d.Errors()[0].Message() != "boom" {
		t.Errorf("Unexpected message: %q", d.Errors()[0].Message())
	}
}
