// Package uuid provides unit tests for UUID generation and validation.
package uuid

import "testing"

// TestNewProducesValidV4 tests that generated IDs pass validation.
func TestNewProducesValidV4(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := New()
		if !IsValid(id) {
			t.Fatalf("generated UUID failed validation: %s", id)
		}
		if seen[id] {
			t.Fatalf("duplicate UUID generated: %s", id)
		}
		seen[id] = true
	}
}

// TestIsValidRejectsMalformed tests rejection of non-v4 strings.
func TestIsValidRejectsMalformed(t *testing.T) {
	invalid := []string{
		"",
		"not-a-uuid",
		"123e4567-e89b-12d3-a456-426614174000",  // v1, not v4
		"123e4567e89b42d3a456426614174000",      // missing dashes
		"123e4567-e89b-42d3-c456-426614174000",  // bad variant
		"123e4567-e89b-42d3-a456-42661417400",   // too short
		"123e4567-e89b-42d3-a456-4266141740000", // too long
	}
	for _, s := range invalid {
		if IsValid(s) {
			t.Errorf("expected %q to be invalid", s)
		}
	}
}

// TestValidate tests the error-returning wrapper.
func TestValidate(t *testing.T) {
	if err := Validate(New()); err != nil {
		t.Errorf("expected generated UUID to validate, got %v", err)
	}
	if err := Validate("nope"); err == nil {
		t.Error("expected error for malformed UUID")
	}
}
