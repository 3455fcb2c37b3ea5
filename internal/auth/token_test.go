package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/HaronZ/cdrrmo-file-manager/internal/domain"
	"github.com/HaronZ/cdrrmo-file-manager/internal/domain/models"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestIssueAndVerify(t *testing.T) {
	tm := NewTokenManager(testSecret)
	user := &models.User{ID: 42, Username: "maria", IsAdmin: true}

	token, err := tm.Issue(user)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := tm.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.UserID != 42 {
		t.Errorf("UserID = %d, want 42", claims.UserID)
	}
	if claims.Subject != "maria" {
		t.Errorf("Subject = %q, want maria", claims.Subject)
	}
	if !claims.IsAdmin {
		t.Error("IsAdmin not carried through")
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := NewTokenManager(testSecret).Issue(&models.User{ID: 1, Username: "a"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	other := NewTokenManager("another-secret-another-secret-xx")
	if _, err := other.Verify(token); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("error = %v, want ErrUnauthorized", err)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	tm := NewTokenManager(testSecret)
	tm.ttl = -time.Minute

	token, err := tm.Issue(&models.User{ID: 1, Username: "a"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := tm.Verify(token); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("error = %v, want ErrUnauthorized", err)
	}
}

func TestVerifyRejectsTampered(t *testing.T) {
	tm := NewTokenManager(testSecret)
	token, err := tm.Issue(&models.User{ID: 1, Username: "a"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	tampered := token[:len(token)-2] + "xx"
	if _, err := tm.Verify(tampered); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("error = %v, want ErrUnauthorized", err)
	}
}

func TestVerifyRejectsNoneAlgorithm(t *testing.T) {
	tm := NewTokenManager(testSecret)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "a"},
		UserID:           1,
	})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := tm.Verify(token); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("error = %v, want ErrUnauthorized", err)
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse battery")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if strings.Contains(hash, "correct horse") {
		t.Error("hash contains plaintext")
	}
	if !VerifyPassword("correct horse battery", hash) {
		t.Error("correct password rejected")
	}
	if VerifyPassword("wrong password", hash) {
		t.Error("wrong password accepted")
	}
}
