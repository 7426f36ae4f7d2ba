package fieldcrypt

import (
	"errors"
	"testing"
)

func TestCipher_RoundTrip(t *testing.T) {
	c, err := New("field-secret")
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	sealed, err := c.SealString("jane@example.com")
	if err != nil {
		t.Fatalf("SealString() failed: %v", err)
	}
	if sealed == "jane@example.com" {
		t.Fatal("Expected ciphertext to differ from plaintext")
	}

	again, _ := c.SealString("jane@example.com")
	if again == sealed {
		t.Error("Expected a fresh nonce per seal")
	}

	plain, err := c.OpenString(sealed)
	if err != nil {
		t.Fatalf("OpenString() failed: %v", err)
	}
	if plain != "jane@example.com" {
		t.Errorf("Expected round trip, got %q", plain)
	}

	empty, _ := c.SealString("")
	if empty != "" {
		t.Errorf("Expected empty field to stay empty, got %q", empty)
	}
}

func TestCipher_OpenFailures(t *testing.T) {
	c, _ := New("field-secret")
	other, _ := New("other-secret")

	sealed, _ := c.SealString("value")

	tests := []struct {
		name  string
		input string
	}{
		{"WrongKey", sealed},
		{"NotBase64", "***"},
		{"TooShort", "YWJj"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opener := c
			if tt.name == "WrongKey" {
				opener = other
			}
			if _, err := opener.Open(tt.input); !errors.Is(err, ErrDecrypt) {
				t.Errorf("Expected ErrDecrypt, got %v", err)
			}
		})
	}
}

func TestCipher_Digest(t *testing.T) {
	c, _ := New("field-secret")
	other, _ := New("other-secret")

	if c.Digest("a@b.com") != c.Digest("a@b.com") {
		t.Error("Expected deterministic digest")
	}
	if c.Digest("a@b.com") == c.Digest("c@d.com") {
		t.Error("Expected different values to differ")
	}
	if c.Digest("a@b.com") == other.Digest("a@b.com") {
		t.Error("Expected digest to depend on the key")
	}
	if len(c.Digest("x")) != 64 {
		t.Errorf("Expected hex sha256 digest, got %d chars", len(c.Digest("x")))
	}
}

func TestNew_EmptySecret(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Error("Expected error for empty secret")
	}
}
