package models

import (
	"strings"
	"testing"
)

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"valid@example.com", true},
		{"  Mixed.Case@Example.COM ", true},
		{"first+tag@sub.example.org", true},
		{"invalid-email", false},
		{"missing@tld", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			if got := IsValidEmail(tt.email); got != tt.want {
				t.Errorf("IsValidEmail(%q) = %v, want %v", tt.email, got, tt.want)
			}
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Jane@Example.COM\n"); got != "jane@example.com" {
		t.Errorf("NormalizeEmail() = %q", got)
	}
}

func TestValidateStruct(t *testing.T) {
	type form struct {
		Email string `validate:"required"`
		Name  string `validate:"max=3"`
	}

	if err := ValidateStruct(form{Email: "a@b.co", Name: "Jo"}); err != nil {
		t.Errorf("Expected valid struct, got %v", err)
	}

	err := ValidateStruct(form{Name: "Johnny"})
	if err == nil {
		t.Fatal("Expected validation error")
	}
	for _, want := range []string{"email failed on 'required'", "name failed on 'max'"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Expected %q in %q", want, err.Error())
		}
	}
}
