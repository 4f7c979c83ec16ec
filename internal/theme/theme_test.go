package theme

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestValidate_Minimal(t *testing.T) {
	if err := ValidateBytes(readFixture(t, "minimal.json")); err != nil {
		t.Errorf("minimal theme should validate: %v", err)
	}
}

func TestValidate_AllOptionalFields(t *testing.T) {
	if err := ValidateBytes(readFixture(t, "full.json")); err != nil {
		t.Errorf("full theme should validate: %v", err)
	}
}

func TestValidate_ExtraFieldsAllowed(t *testing.T) {
	doc := `{"name": "X", "author": "Y", "themes": [], "homepage": "https://example.com"}`
	if err := ValidateBytes([]byte(doc)); err != nil {
		t.Errorf("unlisted fields should be accepted: %v", err)
	}
}

func TestValidate_MissingRequiredField(t *testing.T) {
	doc := `{"name": "No Author", "themes": []}`

	err := ValidateBytes([]byte(doc))
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if len(verr.Errors) == 0 {
		t.Fatal("expected at least one diagnostic")
	}
	if !strings.Contains(strings.Join(verr.Errors, "\n"), "author") {
		t.Errorf("diagnostics should mention author: %v", verr.Errors)
	}
}

func TestValidate_ReportsEveryViolation(t *testing.T) {
	doc := `{
		"name": "Broken",
		"author": "Ada",
		"themes": [
			{"name": "One", "appearance": "sepia", "style": {}},
			{"name": "Two", "appearance": "dark"}
		]
	}`

	err := ValidateBytes([]byte(doc))
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if len(verr.Errors) < 2 {
		t.Fatalf("expected a diagnostic per violation, got %v", verr.Errors)
	}

	joined := strings.Join(verr.Errors, "\n")
	if !strings.Contains(joined, "/themes/0/appearance") {
		t.Errorf("missing appearance diagnostic: %v", verr.Errors)
	}
	if !strings.Contains(joined, "style") {
		t.Errorf("missing style diagnostic: %v", verr.Errors)
	}
}

func TestParse_RelaxedSyntax(t *testing.T) {
	doc := `{
		// comment
		"name": "Relaxed", "author": "Ada", "themes": [],
	}`
	if err := ValidateBytes([]byte(doc)); err != nil {
		t.Errorf("relaxed JSON should parse: %v", err)
	}
}

func TestParse_Invalid(t *testing.T) {
	err := ValidateBytes([]byte(`{"name": `))
	if err == nil {
		t.Fatal("expected parse error")
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		t.Error("parse errors should not be reported as schema violations")
	}
}
