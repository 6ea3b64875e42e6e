package crypto

import (
	"encoding/hex"
	"testing"
)

func testCipher(t *testing.T) *Cipher {
	t.Helper()
	key := hex.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))
	c, err := NewCipher(key)
	if err != nil {
		t.Fatalf("NewCipher: %v", err)
	}
	return c
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	c := testCipher(t)

	original := "dirsvc_api_token_3f9a"
	encrypted, err := c.Encrypt(original)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if encrypted == original {
		t.Fatal("ciphertext equals plaintext")
	}

	decrypted, err := c.Decrypt(encrypted)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if decrypted != original {
		t.Errorf("round trip: got %q, want %q", decrypted, original)
	}
}

func TestNonceMakesCiphertextsDiffer(t *testing.T) {
	c := testCipher(t)

	enc1, err := c.Encrypt("same credential")
	if err != nil {
		t.Fatal(err)
	}
	enc2, err := c.Encrypt("same credential")
	if err != nil {
		t.Fatal(err)
	}
	if enc1 == enc2 {
		t.Error("two encryptions produced identical ciphertexts")
	}
}

func TestNilCipherPassesThrough(t *testing.T) {
	var c *Cipher

	out, err := c.Encrypt("plain")
	if err != nil || out != "plain" {
		t.Errorf("nil Encrypt = (%q, %v)", out, err)
	}
	out, err = c.Decrypt("plain")
	if err != nil || out != "plain" {
		t.Errorf("nil Decrypt = (%q, %v)", out, err)
	}
}

func TestNewCipherKeyValidation(t *testing.T) {
	if c, err := NewCipher(""); err != nil || c != nil {
		t.Errorf("empty key should yield nil cipher, got (%v, %v)", c, err)
	}
	if _, err := NewCipher("not-hex"); err == nil {
		t.Error("expected error for non-hex key")
	}
	short := hex.EncodeToString([]byte("0123456789abcdef"))
	if _, err := NewCipher(short); err == nil {
		t.Error("expected error for 16-byte key")
	}
}

func TestDecryptRejectsGarbage(t *testing.T) {
	c := testCipher(t)

	if _, err := c.Decrypt("!!!not-base64!!!"); err == nil {
		t.Error("expected error for invalid base64")
	}
	if _, err := c.Decrypt("YQ=="); err == nil {
		t.Error("expected error for too-short ciphertext")
	}

	encrypted, _ := c.Encrypt("hello")
	tampered := []byte(encrypted)
	if tampered[len(tampered)/2] == 'A' {
		tampered[len(tampered)/2] = 'B'
	} else {
		tampered[len(tampered)/2] = 'A'
	}
	if _, err := c.Decrypt(string(tampered)); err == nil {
		t.Error("expected error for tampered ciphertext")
	}
}
