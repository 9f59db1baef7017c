package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// Domain prefixes for content hashes. The version suffix allows the
// algorithm to change without colliding with stored values.
const (
	DomainSource = "stepwise/source/v1"
	DomainTrace  = "stepwise/trace/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SourceHash identifies a script by its NFC-normalized text. Two
// submissions of the same program share a hash.
func SourceHash(source string) string {
	return hashWithDomain(DomainSource, norm.NFC.Bytes([]byte(source)))
}

// TraceHash fingerprints the observable content of a trace: its steps and
// terminal state. Trace ID, duration and seed are excluded so that a replay
// of the same program yields the same hash.
func TraceHash(r *TraceResult) (string, error) {
	view := struct {
		Steps     []Step          `json:"steps"`
		Completed bool            `json:"completed"`
		Truncated bool            `json:"truncated"`
		Error     *ExecutionError `json:"error"`
		Stdout    string          `json:"stdout"`
	}{r.Steps, r.Completed, r.Truncated, r.Error, r.Stdout}

	canonical, err := MarshalCanonical(view)
	if err != nil {
		return "", fmt.Errorf("TraceHash: %w", err)
	}
	return hashWithDomain(DomainTrace, canonical), nil
}
