package commands

import "github.com/doeshing/gensh/internal/domain"

const (
	// DefaultEditorCommand is the default editor command
	DefaultEditorCommand = "vi"
	// DefaultHistoryLimit is the default number of history entries shown
	DefaultHistoryLimit = domain.DefaultHistoryLimit
	// DefaultTopCommands is the number of commands listed by history stats
	DefaultTopCommands = 5
)

// Error messages
const (
	ErrHistoryStoreUnavailable = "history store unavailable (history.enabled is false?)"
	ErrCacheStoreUnavailable   = "cache store unavailable"
	ErrDoctorUnavailable       = "doctor service unavailable"
)

// Success messages
const (
	MsgConfigurationValid       = "Configuration valid"
	MsgNoDifferencesFromDefault = "No differences from default configuration."
	MsgNoHistoryRecorded        = "No history recorded yet."
	MsgNoCachedResponses        = "No cached responses."
	MsgOfflineProvider          = "Note: this provider currently answers offline with simulated output."
)
