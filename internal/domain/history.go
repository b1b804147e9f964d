package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// HistoryEntry is appended once per run invocation.
type HistoryEntry struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Instruction string    `json:"instruction"`
	Command     string    `json:"command"`
	Risk        RiskLevel `json:"risk"`
	Executed    bool      `json:"executed"`
	DryRun      bool      `json:"dry_run"`
	OK          bool      `json:"ok"`
	RC          *int      `json:"rc"`
}

// CacheEntry stores raw backend text.
type CacheEntry struct {
	Key       string    `json:"key"`
	Provider  string    `json:"provider"`
	Raw       string    `json:"raw"`
	CreatedAt time.Time `json:"created_at"`
}

// CacheKey fingerprints a generation request. Every input that changes the
// backend's answer is part of it.
func CacheKey(provider, model string, os TargetOS, instruction string) string {
	sum := sha256.Sum256([]byte(strings.Join([]string{
		strings.ToLower(strings.TrimSpace(provider)),
		model,
		string(os),
		strings.TrimSpace(instruction),
	}, "\x00")))
	return hex.EncodeToString(sum[:])
}
