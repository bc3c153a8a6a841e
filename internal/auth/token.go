package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Reason classifies why a token was refused. Values travel in the 401
// response body so clients can tell an expired session from a broken one.
type Reason string

const (
	ReasonMissingToken     Reason = "missing_token"
	ReasonMalformed        Reason = "malformed"
	ReasonInvalidSignature Reason = "invalid_signature"
	ReasonExpired          Reason = "expired"
	ReasonUnknownUser      Reason = "unknown_user"
)

// TokenError carries the refusal reason alongside the error.
type TokenError struct {
	Reason Reason
}

func (e *TokenError) Error() string {
	return fmt.Sprintf("token rejected: %s", e.Reason)
}

// Tokens issues and verifies HMAC-SHA256 signed bearer tokens of the form
// base64(userID).expiryUnix.base64(signature).
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (t *Tokens) Issue(userID string) string {
	expiry := t.now().Add(t.ttl).Unix()
	payload := fmt.Sprintf("%s.%d", base64.RawURLEncoding.EncodeToString([]byte(userID)), expiry)
	return payload + "." + t.sign(payload)
}

// Verify returns the user id a token was issued for, or a *TokenError.
func (t *Tokens) Verify(token string) (string, error) {
	if strings.TrimSpace(token) == "" {
		return "", &TokenError{Reason: ReasonMissingToken}
	}
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", &TokenError{Reason: ReasonMalformed}
	}
	payload := parts[0] + "." + parts[1]
	if !hmac.Equal([]byte(t.sign(payload)), []byte(parts[2])) {
		return "", &TokenError{Reason: ReasonInvalidSignature}
	}
	expiry, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", &TokenError{Reason: ReasonMalformed}
	}
	if t.now().Unix() > expiry {
		return "", &TokenError{Reason: ReasonExpired}
	}
	userID, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return "", &TokenError{Reason: ReasonMalformed}
	}
	return string(userID), nil
}

func (t *Tokens) sign(payload string) string {
	mac := hmac.New(sha256.New, t.secret)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
