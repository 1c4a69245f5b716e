package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestIssueAndParseToken(t *testing.T) {
	signer := NewSigner("secret", time.Hour)
	issued, claims, err := signer.Issue("Avery", "editor")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	parsed, err := signer.Parse(issued)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if parsed != claims {
		t.Fatalf("parsed claims %+v, want %+v", parsed, claims)
	}
	if parsed.Name != "Avery" || parsed.Role != "editor" || !strings.HasPrefix(parsed.Sub, "usr_") {
		t.Fatalf("unexpected claims: %+v", parsed)
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	signer := NewSigner("secret", time.Hour)
	signer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	issued, _, err := signer.Issue("Avery", "editor")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	signer.now = time.Now
	if _, err := signer.Parse(issued); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("Parse() error = %v, want ErrExpiredToken", err)
	}
}

func TestParseTokenRejectsForeignSignature(t *testing.T) {
	issued, _, err := NewSigner("secret", time.Hour).Issue("Avery", "admin")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	for _, token := range []string{issued, "garbage", issued + ".extra", ""} {
		if _, err := NewSigner("other", time.Hour).Parse(token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("Parse(%q) error = %v, want ErrInvalidToken", token, err)
		}
	}
}

func TestIssueRequiresName(t *testing.T) {
	if _, _, err := NewSigner("secret", time.Hour).Issue("  ", "viewer"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Issue() error = %v, want ErrInvalidToken", err)
	}
}

func TestSubjectIsStablePerName(t *testing.T) {
	if SubjectFor("Avery") != SubjectFor(" avery ") {
		t.Fatal("expected case-insensitive subject")
	}
	if SubjectFor("Avery") == SubjectFor("Sam") {
		t.Fatal("expected distinct subjects")
	}
}
