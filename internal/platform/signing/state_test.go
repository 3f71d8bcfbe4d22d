package signing

import (
	"strings"
	"testing"
	"time"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	s := New("test-secret")
	raw := s.Encode("nonce-1", "/watch/abc", time.Now().Add(10*time.Minute))

	st, err := s.Decode(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.Nonce != "nonce-1" {
		t.Fatalf("expected nonce 'nonce-1', got %q", st.Nonce)
	}
	if st.Redirect != "/watch/abc" {
		t.Fatalf("expected redirect '/watch/abc', got %q", st.Redirect)
	}
}

func TestDecode_Expired(t *testing.T) {
	s := New("test-secret")
	raw := s.Encode("n", "/", time.Now().Add(-time.Minute))
	if _, err := s.Decode(raw); err == nil {
		t.Fatal("expected error for expired state")
	}
}

func TestDecode_TamperedRedirect(t *testing.T) {
	s := New("test-secret")
	raw := s.Encode("n", "/safe", time.Now().Add(time.Minute))
	parts := strings.Split(raw, ".")
	parts[2] = "Ly9ldmls" // //evil
	if _, err := s.Decode(strings.Join(parts, ".")); err == nil {
		t.Fatal("expected error for tampered redirect")
	}
}

func TestDecode_WrongSecret(t *testing.T) {
	raw := New("secret-a").Encode("n", "/", time.Now().Add(time.Minute))
	if _, err := New("secret-b").Decode(raw); err == nil {
		t.Fatal("expected error for wrong secret")
	}
}

func TestDecode_Malformed(t *testing.T) {
	s := New("test-secret")
	for _, raw := range []string{"", "a.b", "a.b.c.d.e", "nonce.notanumber.cGF0aA.sig"} {
		if _, err := s.Decode(raw); err == nil {
			t.Fatalf("expected error for malformed state %q", raw)
		}
	}
}
