package auth

import "testing"

func TestPasswordHashRoundTrip(t *testing.T) {
	ph, err := HashPassword("correct horse", "pepper")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !VerifyPassword("correct horse", "pepper", ph.Hash, ph.Salt) {
		t.Fatal("valid password rejected")
	}
	if VerifyPassword("wrong horse", "pepper", ph.Hash, ph.Salt) {
		t.Fatal("wrong password accepted")
	}
	if VerifyPassword("correct horse", "other-pepper", ph.Hash, ph.Salt) {
		t.Fatal("wrong pepper accepted")
	}
}

func TestHashPasswordSaltsDiffer(t *testing.T) {
	a, _ := HashPassword("secret", "")
	b, _ := HashPassword("secret", "")
	if a.Salt == b.Salt || a.Hash == b.Hash {
		t.Fatal("two hashes of the same password must differ")
	}
}

func TestCSRFRoundTrip(t *testing.T) {
	token, err := GenerateCSRF("key", "session-1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !VerifyCSRF("key", "session-1", token) {
		t.Fatal("valid token rejected")
	}
	if VerifyCSRF("key", "session-2", token) {
		t.Fatal("token bound to wrong session accepted")
	}
	if VerifyCSRF("other", "session-1", token) {
		t.Fatal("token with wrong key accepted")
	}
	if _, err := GenerateCSRF("", "session-1"); err == nil {
		t.Fatal("empty key must error")
	}
}
