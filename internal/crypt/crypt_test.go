package crypt

import (
	"strings"
	"testing"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func TestNew_BadKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
	}{
		{"not hex", "zzzz"},
		{"too short", "00ff"},
		{"too long", testKey + "00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.key); err == nil {
				t.Error("New() should reject invalid key")
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	c, err := New(testKey)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	for _, plain := range []string{"hi", "привіт", strings.Repeat("x", 500)} {
		enc, err := c.Encrypt(plain)
		if err != nil {
			t.Fatalf("Encrypt() error = %v", err)
		}
		if enc == plain {
			t.Error("Encrypt() returned plaintext")
		}
		dec, err := c.Decrypt(enc)
		if err != nil {
			t.Fatalf("Decrypt() error = %v", err)
		}
		if dec != plain {
			t.Errorf("Decrypt() = %q, want %q", dec, plain)
		}
	}
}

func TestEmptyContent_ShortCircuits(t *testing.T) {
	c, err := New(testKey)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	enc, err := c.Encrypt("")
	if err != nil || enc != "" {
		t.Errorf("Encrypt(\"\") = %q, %v, want empty and nil", enc, err)
	}
	dec, err := c.Decrypt("")
	if err != nil || dec != "" {
		t.Errorf("Decrypt(\"\") = %q, %v, want empty and nil", dec, err)
	}
}

func TestPassthroughWithoutKey(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	enc, err := c.Encrypt("hello")
	if err != nil || enc != "hello" {
		t.Errorf("Encrypt() = %q, %v, want passthrough", enc, err)
	}
}

func TestDecrypt_Garbage(t *testing.T) {
	c, err := New(testKey)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := c.Decrypt("not-base64!!!"); err == nil {
		t.Error("Decrypt() should fail on invalid base64")
	}
	if _, err := c.Decrypt("AAAA"); err == nil {
		t.Error("Decrypt() should fail on truncated ciphertext")
	}
}
