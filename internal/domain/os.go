package domain

import (
	"fmt"
	"strings"
)

// TargetOS selects the command dialect the backend is asked to produce.
type TargetOS string

const (
	OSWindows TargetOS = "windows"
	OSLinux   TargetOS = "linux"
	OSMac     TargetOS = "mac"
)

// SupportedOS lists the accepted dialects in display order.
var SupportedOS = []TargetOS{OSWindows, OSLinux, OSMac}

// ParseTargetOS normalizes user input such as "macOS" or "Win" into a TargetOS.
func ParseTargetOS(value string) (TargetOS, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "windows", "win", "cmd":
		return OSWindows, nil
	case "linux":
		return OSLinux, nil
	case "mac", "macos", "darwin", "osx":
		return OSMac, nil
	default:
		return "", fmt.Errorf("%w: os must be one of windows|linux|mac, got %q", ErrInvalidConfigValue, value)
	}
}

// Valid reports whether the value is one of the supported dialects.
func (o TargetOS) Valid() bool {
	for _, candidate := range SupportedOS {
		if o == candidate {
			return true
		}
	}
	return false
}

// DisplayName is used in prompts and rendering.
func (o TargetOS) DisplayName() string {
	switch o {
	case OSWindows:
		return "Windows (cmd)"
	case OSMac:
		return "macOS (BSD)"
	default:
		return "Linux"
	}
}
