package moderation

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CanonicalJSON serializes fields with sorted keys and without escaping
// non-ASCII or HTML characters, so the payload hash is reproducible by the
// proxy. encoding/json sorts map keys.
func CanonicalJSON(fields map[string]string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(fields); err != nil {
		return nil, err
	}
	return unescapeLineSeparators(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}

// unescapeLineSeparators writes U+2028 and U+2029 back as raw UTF-8.
// encoding/json escapes them even with HTML escaping off. Escape pairs are
// consumed two bytes at a time so an escaped backslash followed by literal
// "u2028" text is left alone.
func unescapeLineSeparators(b []byte) []byte {
	if !bytes.Contains(b, []byte(`\u202`)) {
		return b
	}
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		if b[i] != '\\' || i+1 >= len(b) {
			out = append(out, b[i])
			continue
		}
		if b[i+1] == 'u' && i+6 <= len(b) {
			switch string(b[i+2 : i+6]) {
			case "2028":
				out = append(out, "\u2028"...)
				i += 5
				continue
			case "2029":
				out = append(out, "\u2029"...)
				i += 5
				continue
			}
		}
		out = append(out, b[i], b[i+1])
		i++
	}
	return out
}

// PayloadHash returns the hex-encoded SHA-256 digest of body.
func PayloadHash(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// PayloadClaims are the claims of the per-request service token.
type PayloadClaims struct {
	Hash string `json:"hash"`
	jwt.RegisteredClaims
}

// SignPayload issues an HS256 token binding the payload digest to the issuer.
func SignPayload(body []byte, issuer string, key []byte, ttl time.Duration, now time.Time) (string, error) {
	claims := PayloadClaims{
		Hash: PayloadHash(body),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(key)
}
