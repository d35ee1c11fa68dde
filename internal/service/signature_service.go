package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

// HMACSignatureService implements ports.SignatureService using HMAC-SHA256
// over the literal string "<timestamp>.<body>".
type HMACSignatureService struct {
	tolerance time.Duration
	now       func() time.Time
}

// NewHMACSignatureService creates a signature service with the given
// timestamp freshness tolerance.
func NewHMACSignatureService(tolerance time.Duration) *HMACSignatureService {
	return &HMACSignatureService{tolerance: tolerance, now: time.Now}
}

// Sign computes HMAC-SHA256 of "<timestamp>.<body>" with secret.
// Returns lowercase hex.
func (s *HMACSignatureService) Sign(secret []byte, timestamp int64, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks timestamp freshness and the signature. The comparison is
// constant-time; length mismatches also fail.
func (s *HMACSignatureService) Verify(secret []byte, timestamp string, body []byte, signature string) error {
	if timestamp == "" || signature == "" {
		return fmt.Errorf("missing signature or timestamp")
	}
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("malformed timestamp")
	}
	skew := s.now().Unix() - ts
	if skew < 0 {
		skew = -skew
	}
	if time.Duration(skew)*time.Second > s.tolerance {
		return fmt.Errorf("timestamp outside tolerance")
	}
	expected := s.Sign(secret, ts, body)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return fmt.Errorf("signature mismatch")
	}
	return nil
}
