package chatauth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

const (
	// FreshnessWindowMillis is the maximum token age, inclusive.
	FreshnessWindowMillis int64 = 300000
	// FreshnessWindow is FreshnessWindowMillis as a duration.
	FreshnessWindow = time.Duration(FreshnessWindowMillis) * time.Millisecond

	fieldDelimiter = ":"
)

var tokenEncoding = base64.StdEncoding.Strict()

// tokenParts is a decoded, not yet verified, chat token.
type tokenParts struct {
	identity       string
	issuedAtMillis int64
	signatureHex   string
}

func signaturePayload(identity string, issuedAtMillis int64) string {
	return identity + fieldDelimiter + strconv.FormatInt(issuedAtMillis, 10)
}

func computeSignature(secret []byte, identity string, issuedAtMillis int64) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(signaturePayload(identity, issuedAtMillis)))
	return hex.EncodeToString(mac.Sum(nil))
}

func signatureMatches(secret []byte, parts tokenParts) bool {
	expected := computeSignature(secret, parts.identity, parts.issuedAtMillis)
	return hmac.Equal([]byte(expected), []byte(parts.signatureHex))
}

func encodeToken(identity string, issuedAtMillis int64, signatureHex string) string {
	raw := signaturePayload(identity, issuedAtMillis) + fieldDelimiter + signatureHex
	return tokenEncoding.EncodeToString([]byte(raw))
}

// decodeToken never fails loudly: any structural problem is reported with
// ok == false and the caller maps it to malformed_token.
func decodeToken(token string) (tokenParts, bool) {
	if token == "" || strings.ContainsAny(token, "\r\n") {
		return tokenParts{}, false
	}

	decoded, err := tokenEncoding.DecodeString(token)
	if err != nil {
		return tokenParts{}, false
	}

	fields := strings.Split(string(decoded), fieldDelimiter)
	if len(fields) != 3 {
		return tokenParts{}, false
	}

	identity, timestampStr, signatureHex := fields[0], fields[1], fields[2]
	if identity == "" {
		return tokenParts{}, false
	}

	issuedAt, err := strconv.ParseInt(timestampStr, 10, 64)
	if err != nil || issuedAt < 0 {
		return tokenParts{}, false
	}

	// only the canonical rendering is signed, "+12" or "012" never verify
	if strconv.FormatInt(issuedAt, 10) != timestampStr {
		return tokenParts{}, false
	}

	return tokenParts{
		identity:       identity,
		issuedAtMillis: issuedAt,
		signatureHex:   signatureHex,
	}, true
}

func validateIdentity(identity string) error {
	if identity == "" || strings.Contains(identity, fieldDelimiter) {
		return ErrInvalidIdentity
	}
	return nil
}

func millisToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
