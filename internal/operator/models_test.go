package operator

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestCheckPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	op := &Operator{PasswordHash: string(hash)}

	if !CheckPassword(op, "correct-horse") {
		t.Error("correct password rejected")
	}
	if CheckPassword(op, "wrong-horse") {
		t.Error("wrong password accepted")
	}
	if CheckPassword(op, "") {
		t.Error("empty password accepted")
	}
}

func TestIsAdmin(t *testing.T) {
	if !(&Operator{Role: "admin"}).IsAdmin() {
		t.Error("admin role should be admin")
	}
	if (&Operator{Role: "operator"}).IsAdmin() {
		t.Error("operator role should not be admin")
	}
}

func TestHashTokenStable(t *testing.T) {
	a := hashToken("some-session-token")
	b := hashToken("some-session-token")
	if a != b {
		t.Error("hashToken should be deterministic")
	}
	if a == hashToken("other-token") {
		t.Error("different tokens should hash differently")
	}
	if a == "some-session-token" {
		t.Error("hash should not equal the plaintext")
	}
}
