// Package redeem implements the offline extra-time code protocol shared
// by the monitor and the parent-side generator. A code is
// "date:extra_seconds:signature" where the signature is an HMAC-SHA256
// over "date:extra_seconds", truncated to 4 hex characters.
//
// The 16-bit signature space is a deliberate usability trade-off: codes
// are short enough to read over the phone, and the verifier's once-a-
// minute polling plus the per-day used-code set keeps online guessing
// impractical for the threat model (a supervised user with file access,
// not code execution).
package redeem

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goodtune/kwatch/internal/secret"
)

const (
	// SignatureChars is the truncated signature length in hex characters.
	SignatureChars = 4

	// MaxFileSize caps the redeem input file to keep a hostile writer
	// from feeding the parser arbitrary amounts of data.
	MaxFileSize = 128

	// DateFormat is the ISO calendar date carried in every code.
	DateFormat = "2006-01-02"
)

// Status classifies the outcome of reading and verifying a redeem file.
type Status string

const (
	StatusNoSecret         Status = "no_secret"
	StatusNoFile           Status = "no_file"
	StatusFileTooLarge     Status = "file_too_large"
	StatusUnreadable       Status = "unreadable"
	StatusEmpty            Status = "empty"
	StatusInvalidFormat    Status = "invalid_format"
	StatusInvalidDate      Status = "invalid_date"
	StatusInvalidSignature Status = "invalid_signature"
	StatusValid            Status = "valid"
)

// Result is the outcome of parsing and verifying one code submission.
// Code carries the raw submitted string for every status past the file
// checks so the caller can record it; ExtraSeconds is non-zero only when
// Status is StatusValid.
type Result struct {
	Status       Status
	Code         string
	ExtraSeconds int64
}

// Sign computes the truncated signature for a payload.
func Sign(payload []byte, key secret.Secret) string {
	mac := hmac.New(sha256.New, key)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))[:SignatureChars]
}

// Verify recomputes the signature and compares it against the submitted
// one. The comparison leaks nothing useful; the scheme's margin is the
// signature length, not timing.
func Verify(payload []byte, sig string, key secret.Secret) bool {
	return hmac.Equal([]byte(Sign(payload, key)), []byte(sig))
}

// Generate builds a complete redeem code for a date and duration. The
// payload layout must match Parse exactly: "{date}:{extra_seconds}",
// no spaces.
func Generate(date string, extraSeconds int64, key secret.Secret) string {
	payload := fmt.Sprintf("%s:%d", date, extraSeconds)
	return payload + ":" + Sign([]byte(payload), key)
}

// CheckFile reads the redeem input file and verifies its content against
// today's date. It is a pure read: consuming a valid code (and rejecting
// replays) is the caller's job via the ledger's used-code set.
func CheckFile(path string, today time.Time, key secret.Secret) Result {
	if key.Empty() {
		return Result{Status: StatusNoSecret}
	}

	info, err := os.Stat(path)
	if err != nil {
		return Result{Status: StatusNoFile}
	}
	if info.Size() > MaxFileSize {
		return Result{Status: StatusFileTooLarge}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Result{Status: StatusUnreadable}
	}

	return Parse(string(data), today, key)
}

// Parse validates a raw code string. Each rule short-circuits, in order:
// empty, format, date, signature.
func Parse(raw string, today time.Time, key secret.Secret) Result {
	if key.Empty() {
		return Result{Status: StatusNoSecret}
	}

	code := strings.TrimSpace(raw)
	if code == "" {
		return Result{Status: StatusEmpty}
	}

	parts := strings.Split(code, ":")
	if len(parts) != 3 {
		return Result{Status: StatusInvalidFormat, Code: code}
	}

	date := parts[0]
	extraSeconds, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return Result{Status: StatusInvalidFormat, Code: code}
	}

	if date != today.Format(DateFormat) {
		return Result{Status: StatusInvalidDate, Code: code}
	}

	payload := fmt.Sprintf("%s:%d", date, extraSeconds)
	if !Verify([]byte(payload), parts[2], key) {
		return Result{Status: StatusInvalidSignature, Code: code}
	}

	return Result{Status: StatusValid, Code: code, ExtraSeconds: extraSeconds}
}
