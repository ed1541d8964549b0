package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"
)

const (
	HeaderEvent     = "X-Usely-Event"
	HeaderDelivery  = "X-Usely-Delivery"
	HeaderSignature = "X-Usely-Signature"
)

var ErrBadSignature = errors.New("webhook signature mismatch")

// Sign returns the X-Usely-Signature value for body sent at t.
func Sign(secret string, t time.Time, body []byte) string {
	ts := strconv.FormatInt(t.Unix(), 10)
	return "t=" + ts + ",v1=" + digest(secret, ts, body)
}

func digest(secret, ts string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a signature header as a receiver would. tolerance <= 0 skips
// the timestamp age check.
func Verify(secret, header string, body []byte, now time.Time, tolerance time.Duration) error {
	var ts, sig string
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			ts = v
		case "v1":
			sig = v
		}
	}
	if ts == "" || sig == "" {
		return ErrBadSignature
	}
	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return ErrBadSignature
	}
	if tolerance > 0 {
		age := now.Sub(time.Unix(unix, 0))
		if age < -tolerance || age > tolerance {
			return ErrBadSignature
		}
	}
	if !hmac.Equal([]byte(sig), []byte(digest(secret, ts, body))) {
		return ErrBadSignature
	}
	return nil
}
