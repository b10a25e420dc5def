// Package annotation validates YOLO label records and converts them to and
// from their stored text form.
package annotation

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"labelstation/internal/model"
)

// FieldCount is the number of tokens in one stored label line.
const FieldCount = 5

// Reason says why a label record was rejected.
type Reason int

const (
	WrongFieldCount Reason = iota + 1
	NotNumeric
	OutOfRange
)

func (r Reason) String() string {
	switch r {
	case WrongFieldCount:
		return "wrong field count"
	case NotNumeric:
		return "not numeric"
	case OutOfRange:
		return "out of range"
	}
	return "unknown"
}

// InvalidError describes the first offending line of a rejected record.
// Line is 1-based.
type InvalidError struct {
	Line   int
	Reason Reason
	Text   string
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("invalid label line %d (%s): %q", e.Line, e.Reason, e.Text)
}

func (e *InvalidError) Unwrap() error {
	return model.ErrInvalidLabel
}

// Validate accepts or rejects a whole record. A single bad box rejects the
// record; there is no partial acceptance.
func Validate(record []model.Annotation, width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("image dimensions %dx%d: %w", width, height, model.ErrMalformedPayload)
	}

	for i, a := range record {
		if err := checkLine(FormatLine(a)); err != nil {
			err.Line = i + 1
			return err
		}
	}
	return nil
}

// ValidateLine checks one stored line: five fields, numeric, geometry in [0,1].
func ValidateLine(line string) error {
	if err := checkLine(line); err != nil {
		err.Line = 1
		return err
	}
	return nil
}

// ValidateText checks every line of a stored label file.
func ValidateText(data []byte) error {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	n := 0
	for scanner.Scan() {
		n++
		if err := checkLine(scanner.Text()); err != nil {
			err.Line = n
			return err
		}
	}
	return scanner.Err()
}

func checkLine(line string) *InvalidError {
	fields := strings.Fields(line)
	if len(fields) != FieldCount {
		return &InvalidError{Reason: WrongFieldCount, Text: line}
	}

	class, err := strconv.Atoi(fields[0])
	if err != nil {
		return &InvalidError{Reason: NotNumeric, Text: line}
	}
	if class < 0 {
		return &InvalidError{Reason: OutOfRange, Text: line}
	}

	for _, f := range fields[1:] {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return &InvalidError{Reason: NotNumeric, Text: line}
		}
		// NaN fails both comparisons.
		if !(v >= 0 && v <= 1) {
			return &InvalidError{Reason: OutOfRange, Text: line}
		}
	}
	return nil
}

// FormatLine renders an annotation as "class x y w h".
func FormatLine(a model.Annotation) string {
	return fmt.Sprintf("%d %s %s %s %s", a.ClassID,
		formatFloat(a.X), formatFloat(a.Y), formatFloat(a.W), formatFloat(a.H))
}

// Format renders a record in stored form, one newline-terminated line per box.
func Format(record []model.Annotation) []byte {
	var buf bytes.Buffer
	for _, a := range record {
		buf.WriteString(FormatLine(a))
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// Parse reads a stored label file back into annotations. The text must
// already be valid.
func Parse(data []byte) ([]model.Annotation, error) {
	if err := ValidateText(data); err != nil {
		return nil, err
	}

	var record []model.Annotation
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		var a model.Annotation
		a.ClassID, _ = strconv.Atoi(fields[0])
		a.X, _ = strconv.ParseFloat(fields[1], 64)
		a.Y, _ = strconv.ParseFloat(fields[2], 64)
		a.W, _ = strconv.ParseFloat(fields[3], 64)
		a.H, _ = strconv.ParseFloat(fields[4], 64)
		record = append(record, a)
	}
	return record, scanner.Err()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
