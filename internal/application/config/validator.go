package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/doeshing/gensh/internal/domain"
)

// Validate checks a loaded configuration for values that would silently fall
// back to defaults at runtime. All problems are reported together.
func Validate(cfg domain.Config) error {
	return errors.Join(
		validateOS(cfg.OS),
		validateSafety(cfg.Safety),
		validateGeneral(cfg.General),
		validateBackend(cfg.Backend),
		validateHistory(cfg.History),
		validateCache(cfg.Cache),
	)
}

func validateOS(os domain.TargetOS) error {
	if !os.Valid() {
		return fmt.Errorf("os must be windows|linux|mac, got %q", os)
	}
	return nil
}

func validateGeneral(general domain.GeneralSettings) error {
	if strings.TrimSpace(general.SafeWorkdir) == "" {
		return fmt.Errorf("general.safe_workdir must be set")
	}
	return nil
}

func validateSafety(sec domain.SafetySettings) error {
	if sec.MaxTimeoutSeconds <= 0 {
		return fmt.Errorf("safety.max_timeout_seconds must be > 0")
	}
	if c := sec.MinConfidenceToAutoRun; math.IsNaN(c) || c < 0 || c > 1 {
		return fmt.Errorf("safety.min_confidence_to_auto_run must be within [0,1], got %v", c)
	}
	if strings.TrimSpace(sec.RulesFile) == "" {
		return fmt.Errorf("safety.rules_file must be set")
	}
	return nil
}

func validateBackend(backend domain.BackendSettings) error {
	if strings.TrimSpace(backend.Provider) == "" {
		return fmt.Errorf("backend.provider must be set")
	}
	if backend.TimeoutSeconds <= 0 {
		return fmt.Errorf("backend.timeout_seconds must be > 0")
	}
	if backend.Temperature < 0 || backend.Temperature > 2 {
		return fmt.Errorf("backend.temperature must be within [0,2], got %v", backend.Temperature)
	}
	return nil
}

func validateHistory(history domain.HistorySettings) error {
	switch strings.ToLower(history.Store) {
	case domain.HistoryStoreSQLite, domain.HistoryStoreJSONL:
		return nil
	default:
		return fmt.Errorf("history.store must be sqlite|jsonl, got %q", history.Store)
	}
}

func validateCache(cache domain.CacheSettings) error {
	ttl, err := time.ParseDuration(cache.TTL)
	if err != nil {
		return fmt.Errorf("cache.ttl invalid: %w", err)
	}
	if ttl <= 0 {
		return fmt.Errorf("cache.ttl must be positive")
	}
	if cache.MaxEntries <= 0 {
		return fmt.Errorf("cache.max_entries must be > 0")
	}
	return nil
}
