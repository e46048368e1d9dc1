package recipients

import (
	"errors"
	"reflect"
	"testing"
)

func TestIsValidAddress(t *testing.T) {
	valid := []string{
		"a@b.com",
		"first.last@example.co.uk",
		"ops+east@bottler.io",
		"  padded@example.com  ",
	}
	for _, addr := range valid {
		if !IsValidAddress(addr) {
			t.Errorf("IsValidAddress(%q) = false, want true", addr)
		}
	}

	invalid := []string{
		"",
		"not-an-email",
		"missing-domain@",
		"@missing-local.com",
		"no-tld@host",
		"two words@example.com",
		"a@@b.com",
	}
	for _, addr := range invalid {
		if IsValidAddress(addr) {
			t.Errorf("IsValidAddress(%q) = true, want false", addr)
		}
	}
}

func TestParseDropsInvalid(t *testing.T) {
	got := Parse("a@b.com, not-an-email, c@d.com")
	want := []string{"a@b.com", "c@d.com"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Parse = %v, want %v", got, want)
	}
}

func TestParseEmptyAndWhitespace(t *testing.T) {
	if got := Parse(""); got != nil {
		t.Errorf("Parse(\"\") = %v, want nil", got)
	}
	if got := Parse(" , ,, "); got != nil {
		t.Errorf("Parse(blanks) = %v, want nil", got)
	}
}

func TestValidateRejectsWholeEdit(t *testing.T) {
	_, err := Validate("a@b.com, not-an-email, c@d.com")
	var valErr *ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if !reflect.DeepEqual(valErr.Invalid, []string{"not-an-email"}) {
		t.Errorf("Invalid = %v", valErr.Invalid)
	}
}

func TestValidateAccepts(t *testing.T) {
	got, err := Validate(" a@b.com ,c@d.com ")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	want := []string{"a@b.com", "c@d.com"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Validate = %v, want %v", got, want)
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize([]string{"a@b.com", "c@d.com"}); got != "a@b.com, c@d.com" {
		t.Errorf("Normalize = %q", got)
	}
}
