package validation

import (
	"errors"
	"path/filepath"
	"runtime"
	"testing"
)

func schemasDir(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot determine test file path")
	}
	return filepath.Join(filepath.Dir(file), "..", "..", "schemas")
}

func newTestValidator(t *testing.T) *Validator {
	t.Helper()
	v, err := NewValidator(schemasDir(t))
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}
	return v
}

func TestValidate_JobCreate_Valid(t *testing.T) {
	v := newTestValidator(t)

	body := []byte(`{"title":"Mow the lawn","description":"Front and back","property_latitude":40.7128,"property_longitude":-74.006,"fee":"100.00"}`)
	if err := v.Validate(SchemaJobCreate, body); err != nil {
		t.Fatalf("expected valid job payload, got: %v", err)
	}

	// Coordinates are optional as a pair.
	noCoords := []byte(`{"title":"Mow the lawn","fee":"45"}`)
	if err := v.Validate(SchemaJobCreate, noCoords); err != nil {
		t.Fatalf("expected coordinate-free payload to validate, got: %v", err)
	}
}

func TestValidate_JobCreate_Invalid(t *testing.T) {
	v := newTestValidator(t)

	cases := []struct {
		name string
		body string
	}{
		{
			name: "missing title",
			body: `{"fee":"100.00"}`,
		},
		{
			name: "missing fee",
			body: `{"title":"Mow the lawn"}`,
		},
		{
			name: "fee with too many decimal places",
			body: `{"title":"Mow the lawn","fee":"100.001"}`,
		},
		{
			name: "negative fee",
			body: `{"title":"Mow the lawn","fee":"-5.00"}`,
		},
		{
			name: "latitude without longitude",
			body: `{"title":"Mow the lawn","fee":"100.00","property_latitude":40.7}`,
		},
		{
			name: "latitude out of range",
			body: `{"title":"Mow the lawn","fee":"100.00","property_latitude":91,"property_longitude":0}`,
		},
		{
			name: "unknown field",
			body: `{"title":"Mow the lawn","fee":"100.00","bonus":"yes"}`,
		},
		{
			name: "not JSON at all",
			body: `title=Mow`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := v.Validate(SchemaJobCreate, []byte(tc.body))
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got: %v", err)
			}
		})
	}
}

func TestValidate_Check(t *testing.T) {
	v := newTestValidator(t)

	if err := v.Validate(SchemaCheck, []byte(`{"latitude":40.7,"longitude":-74.0}`)); err != nil {
		t.Fatalf("expected valid check payload, got: %v", err)
	}
	if err := v.Validate(SchemaCheck, []byte(`{"latitude":40.7}`)); err == nil {
		t.Fatal("missing longitude should fail")
	}
}

func TestValidate_UnknownSchema(t *testing.T) {
	v := newTestValidator(t)

	if err := v.Validate("no_such_schema", []byte(`{}`)); err == nil {
		t.Fatal("expected error for unknown schema name")
	}
}
