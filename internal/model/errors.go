package model

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors used across the registry and the orchestrator
var (
	// Auth errors
	ErrAuthRequired   = errors.New("authentication required")
	ErrSessionExpired = errors.New("session replaced by a newer login")
	ErrUserExists     = errors.New("user already exists")
	ErrNoSuchUser     = errors.New("no such user")
	ErrBadCredentials = errors.New("bad credentials")
	ErrAuthFailed     = errors.New("authentication failed")
	ErrNotOwner       = errors.New("game belongs to another developer")
	ErrNotHost        = errors.New("player is not the host")

	// Validation errors
	ErrBadScore   = errors.New("score must be between 1 and 5")
	ErrNoArchive  = errors.New("no archive supplied")
	ErrBadArchive = errors.New("archive is not valid base64")
	ErrUnpackFail = errors.New("archive could not be unpacked")

	// State conflicts
	ErrVersionExists     = errors.New("version already exists")
	ErrRoomExists        = errors.New("room already exists")
	ErrRoomFull          = errors.New("room is full")
	ErrInGame            = errors.New("room is playing")
	ErrNeedTwoPlayers    = errors.New("at least two players are required")
	ErrEmptyRoom         = errors.New("room has no members")
	ErrStartInProgress   = errors.New("room is already being started")
	ErrNeedDownloadFirst = errors.New("game must be downloaded before rating")

	// Missing resources
	ErrNoSuchGame    = errors.New("no such game")
	ErrNoVersion     = errors.New("game has no versions")
	ErrNoSuchVersion = errors.New("no such version")
	ErrNoSuchRoom    = errors.New("no such room")
	ErrFileMissing   = errors.New("archive file missing")

	// Launch errors
	ErrLaunchFail = errors.New("launch info unavailable")
)

// FieldError reports a missing or malformed request field.
type FieldError struct {
	Field string
}

func (e *FieldError) Error() string {
	if e.Field == "" {
		return "bad field"
	}
	return fmt.Sprintf("bad field %q", e.Field)
}

// Bundle validation codes
const (
	BundleConfigMissing       = "CONFIG_MISSING"
	BundleConfigInvalidJSON   = "CONFIG_INVALID_JSON"
	BundleConfigFieldsMissing = "CONFIG_FIELDS_MISSING"
	BundleEntryNotFound       = "ENTRY_NOT_FOUND"
)

// BundleError reports why an uploaded bundle was rejected.
type BundleError struct {
	Code         string
	Missing      []string
	MissingFiles []string
}

func (e *BundleError) Error() string {
	switch {
	case len(e.Missing) > 0:
		return fmt.Sprintf("invalid bundle (%s): missing %s", e.Code, strings.Join(e.Missing, ", "))
	case len(e.MissingFiles) > 0:
		return fmt.Sprintf("invalid bundle (%s): missing files %s", e.Code, strings.Join(e.MissingFiles, ", "))
	default:
		return fmt.Sprintf("invalid bundle (%s)", e.Code)
	}
}

// MinPlayersError is returned when a room has fewer members than the game needs.
type MinPlayersError struct {
	Required int
}

func (e *MinPlayersError) Error() string {
	return fmt.Sprintf("game needs at least %d players", e.Required)
}

// SpawnError wraps an OS failure to start a game server.
type SpawnError struct {
	Err error
}

func (e *SpawnError) Error() string { return "spawn game server: " + e.Err.Error() }

func (e *SpawnError) Unwrap() error { return e.Err }

// NotReadyError is returned when a game server exits during its readiness window.
type NotReadyError struct {
	ExitCode int
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("game server exited early with code %d", e.ExitCode)
}

// RemoteError carries a failure code returned by the registry over RPC.
type RemoteError struct {
	Code string
}

func (e *RemoteError) Error() string { return "registry: " + e.Code }
