package annotation

import (
	"errors"
	"math"
	"testing"

	"labelstation/internal/model"
)

func TestValidate_AcceptsInRangeRecords(t *testing.T) {
	tests := [][]model.Annotation{
		nil,
		{{ClassID: 0, X: 0.5, Y: 0.5, W: 0.2, H: 0.2}},
		{{ClassID: 1, X: 0, Y: 0, W: 0, H: 0}},
		{{ClassID: 1, X: 1, Y: 1, W: 1, H: 1}},
		{
			{ClassID: 0, X: 0.1, Y: 0.9, W: 0.05, H: 0.3},
			{ClassID: 3, X: 0.75, Y: 0.25, W: 0.5, H: 0.5},
		},
	}

	for i, record := range tests {
		if err := Validate(record, 640, 480); err != nil {
			t.Errorf("case %d: expected valid record, got %v", i, err)
		}
	}
}

func TestValidate_RejectsWholeRecord(t *testing.T) {
	good := model.Annotation{ClassID: 0, X: 0.5, Y: 0.5, W: 0.2, H: 0.2}

	tests := []struct {
		name   string
		bad    model.Annotation
		reason Reason
	}{
		{"x above one", model.Annotation{X: 1.5, Y: 0.5, W: 0.2, H: 0.2}, OutOfRange},
		{"negative width", model.Annotation{X: 0.5, Y: 0.5, W: -0.1, H: 0.2}, OutOfRange},
		{"negative class", model.Annotation{ClassID: -1, X: 0.5, Y: 0.5, W: 0.2, H: 0.2}, OutOfRange},
		{"nan height", model.Annotation{X: 0.5, Y: 0.5, W: 0.2, H: math.NaN()}, OutOfRange},
		{"infinite y", model.Annotation{X: 0.5, Y: math.Inf(1), W: 0.2, H: 0.2}, OutOfRange},
	}

	for _, tt := range tests {
		err := Validate([]model.Annotation{good, tt.bad}, 640, 480)
		if err == nil {
			t.Errorf("%s: expected rejection", tt.name)
			continue
		}
		if !errors.Is(err, model.ErrInvalidLabel) {
			t.Errorf("%s: expected ErrInvalidLabel, got %v", tt.name, err)
		}
		var invalid *InvalidError
		if !errors.As(err, &invalid) {
			t.Fatalf("%s: expected *InvalidError, got %T", tt.name, err)
		}
		if invalid.Reason != tt.reason {
			t.Errorf("%s: expected reason %s, got %s", tt.name, tt.reason, invalid.Reason)
		}
		if invalid.Line != 2 {
			t.Errorf("%s: expected line 2, got %d", tt.name, invalid.Line)
		}
	}
}

func TestValidate_RejectsBadDimensions(t *testing.T) {
	err := Validate([]model.Annotation{{X: 0.5, Y: 0.5, W: 0.2, H: 0.2}}, 0, 480)
	if !errors.Is(err, model.ErrMalformedPayload) {
		t.Errorf("Expected ErrMalformedPayload, got %v", err)
	}
}

func TestValidateLine(t *testing.T) {
	tests := []struct {
		line   string
		reason Reason
	}{
		{"0 0.5 0.5 0.2 0.2", 0},
		{"1 1 0 1 0", 0},
		{"0 0.5 0.5 0.2", WrongFieldCount},
		{"0 0.5 0.5 0.2 0.2 0.1", WrongFieldCount},
		{"", WrongFieldCount},
		{"a 0.5 0.5 0.2 0.2", NotNumeric},
		{"0.0 0.5 0.5 0.2 0.2", NotNumeric},
		{"0 0.5 abc 0.2 0.2", NotNumeric},
		{"0 -0.5 0.5 0.2 0.2", OutOfRange},
		{"0 0.5 0.5 1.0001 0.2", OutOfRange},
	}

	for _, tt := range tests {
		err := ValidateLine(tt.line)
		if tt.reason == 0 {
			if err != nil {
				t.Errorf("ValidateLine(%q) = %v, expected nil", tt.line, err)
			}
			continue
		}
		var invalid *InvalidError
		if !errors.As(err, &invalid) {
			t.Errorf("ValidateLine(%q) = %v, expected *InvalidError", tt.line, err)
			continue
		}
		if invalid.Reason != tt.reason {
			t.Errorf("ValidateLine(%q) reason = %s, expected %s", tt.line, invalid.Reason, tt.reason)
		}
	}
}

func TestValidateText_AnyBadLineRejects(t *testing.T) {
	if err := ValidateText([]byte("0 0.5 0.5 0.2 0.2\n1 0.1 0.1 0.1 0.1\n")); err != nil {
		t.Errorf("Expected valid text, got %v", err)
	}
	if err := ValidateText(nil); err != nil {
		t.Errorf("Expected empty label file to be valid, got %v", err)
	}

	err := ValidateText([]byte("0 0.5 0.5 0.2 0.2\n1 0.1 -0.1 0.1 0.1\n"))
	var invalid *InvalidError
	if !errors.As(err, &invalid) {
		t.Fatalf("Expected *InvalidError, got %v", err)
	}
	if invalid.Line != 2 {
		t.Errorf("Expected line 2, got %d", invalid.Line)
	}
}

func TestFormat(t *testing.T) {
	got := string(Format([]model.Annotation{{ClassID: 0, X: 0.5, Y: 0.5, W: 0.2, H: 0.2}}))
	if got != "0 0.5 0.5 0.2 0.2\n" {
		t.Errorf("Format = %q", got)
	}

	got = string(Format([]model.Annotation{
		{ClassID: 1, X: 0.125, Y: 1, W: 0, H: 0.333},
		{ClassID: 0, X: 0.5, Y: 0.5, W: 0.2, H: 0.2},
	}))
	if got != "1 0.125 1 0 0.333\n0 0.5 0.5 0.2 0.2\n" {
		t.Errorf("Format = %q", got)
	}
}

func TestParse(t *testing.T) {
	record, err := Parse([]byte("1 0.25 0.75 0.5 0.1\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(record) != 1 {
		t.Fatalf("Expected 1 annotation, got %d", len(record))
	}
	want := model.Annotation{ClassID: 1, X: 0.25, Y: 0.75, W: 0.5, H: 0.1}
	if record[0] != want {
		t.Errorf("Parse = %+v, expected %+v", record[0], want)
	}

	if _, err := Parse([]byte("1 0.25 0.75\n")); !errors.Is(err, model.ErrInvalidLabel) {
		t.Errorf("Expected ErrInvalidLabel, got %v", err)
	}
}

func TestPixelRect_Clamps(t *testing.T) {
	a := model.Annotation{X: 0.05, Y: 0.5, W: 0.2, H: 0.5}
	r := a.PixelRect(100, 100)
	if r.Min.X != 0 || r.Min.Y != 25 || r.Max.X != 15 || r.Max.Y != 75 {
		t.Errorf("PixelRect = %v", r)
	}
}
