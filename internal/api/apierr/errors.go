// Package apierr maps errors to the wire error codes returned to clients.
package apierr

import (
	"errors"
	"net/http"

	"github.com/mcoot/gamehub/internal/api/response"
	"github.com/mcoot/gamehub/internal/framing"
	"github.com/mcoot/gamehub/internal/model"
)

// Error codes
const (
	CodeAuthRequired      = "AUTH_REQUIRED"
	CodeSessionExpired    = "SESSION_EXPIRED"
	CodeUserExists        = "USER_EXISTS"
	CodeNoSuchUser        = "NO_SUCH_USER"
	CodeBadCredentials    = "BAD_CREDENTIALS"
	CodeAuthFailed        = "AUTH_FAILED"
	CodeNotOwner          = "NOT_OWNER"
	CodeNotHost           = "NOT_HOST"
	CodeBadField          = "BAD_FIELD"
	CodeBadScore          = "BAD_SCORE"
	CodeNoArchive         = "NO_ARCHIVE"
	CodeBadArchive        = "BAD_ARCHIVE"
	CodeUnpackFail        = "UNPACK_FAIL"
	CodeVersionExists     = "VERSION_EXISTS"
	CodeRoomExists        = "ROOM_EXISTS"
	CodeRoomFull          = "ROOM_FULL"
	CodeInGame            = "IN_GAME"
	CodeNeedTwoPlayers    = "NEED_TWO_PLAYERS"
	CodeNeedMinPlayers    = "NEED_MIN_PLAYERS"
	CodeEmptyRoom         = "EMPTY_ROOM"
	CodeStartInProgress   = "START_IN_PROGRESS"
	CodeNeedDownloadFirst = "NEED_DOWNLOAD_FIRST"
	CodeNoSuchGame        = "NO_SUCH_GAME"
	CodeNoVersion         = "NO_VERSION"
	CodeNoSuchVersion     = "NO_SUCH_VERSION"
	CodeNoSuchRoom        = "NO_SUCH_ROOM"
	CodeFileMissing       = "FILE_MISSING"
	CodeSpawnFail         = "SPAWN_FAIL"
	CodeGameNotReady      = "GAME_NOT_READY"
	CodeLaunchFail        = "LAUNCH_FAIL"
	CodeUnknownOp         = "UNKNOWN_OP"
	CodeMessageTooLarge   = "MESSAGE_TOO_LARGE"
	CodeInternalError     = "INTERNAL_ERROR"
)

// ErrUnknownOp is returned for a request whose op no handler serves
var ErrUnknownOp = errors.New("unknown op")

var sentinels = []struct {
	err  error
	code string
}{
	{model.ErrAuthRequired, CodeAuthRequired},
	{model.ErrSessionExpired, CodeSessionExpired},
	{model.ErrUserExists, CodeUserExists},
	{model.ErrNoSuchUser, CodeNoSuchUser},
	{model.ErrBadCredentials, CodeBadCredentials},
	{model.ErrAuthFailed, CodeAuthFailed},
	{model.ErrNotOwner, CodeNotOwner},
	{model.ErrNotHost, CodeNotHost},
	{model.ErrBadScore, CodeBadScore},
	{model.ErrNoArchive, CodeNoArchive},
	{model.ErrBadArchive, CodeBadArchive},
	{model.ErrUnpackFail, CodeUnpackFail},
	{model.ErrVersionExists, CodeVersionExists},
	{model.ErrRoomExists, CodeRoomExists},
	{model.ErrRoomFull, CodeRoomFull},
	{model.ErrInGame, CodeInGame},
	{model.ErrNeedTwoPlayers, CodeNeedTwoPlayers},
	{model.ErrEmptyRoom, CodeEmptyRoom},
	{model.ErrStartInProgress, CodeStartInProgress},
	{model.ErrNeedDownloadFirst, CodeNeedDownloadFirst},
	{model.ErrNoSuchGame, CodeNoSuchGame},
	{model.ErrNoVersion, CodeNoVersion},
	{model.ErrNoSuchVersion, CodeNoSuchVersion},
	{model.ErrNoSuchRoom, CodeNoSuchRoom},
	{model.ErrFileMissing, CodeFileMissing},
	{model.ErrLaunchFail, CodeLaunchFail},
	{ErrUnknownOp, CodeUnknownOp},
	{framing.ErrMessageTooLarge, CodeMessageTooLarge},
}

// Failure converts an error into the failed response sent to the client.
// Unrecognised errors become INTERNAL_ERROR.
func Failure(err error) response.Failure {
	f := response.Failure{Status: response.Status{Code: CodeInternalError}}

	var (
		fieldErr    *model.FieldError
		bundleErr   *model.BundleError
		minErr      *model.MinPlayersError
		notReadyErr *model.NotReadyError
		spawnErr    *model.SpawnError
		remoteErr   *model.RemoteError
	)
	switch {
	case errors.As(err, &fieldErr):
		f.Code = CodeBadField
		f.Field = fieldErr.Field
	case errors.As(err, &bundleErr):
		f.Code = bundleErr.Code
		f.Missing = bundleErr.Missing
		f.MissingFiles = bundleErr.MissingFiles
	case errors.As(err, &minErr):
		f.Code = CodeNeedMinPlayers
		f.Required = minErr.Required
	case errors.As(err, &notReadyErr):
		f.Code = CodeGameNotReady
		rc := notReadyErr.ExitCode
		f.ReturnCode = &rc
	case errors.As(err, &spawnErr):
		f.Code = CodeSpawnFail
		f.Msg = spawnErr.Err.Error()
	case errors.As(err, &remoteErr):
		f.Code = remoteErr.Code
	default:
		for _, s := range sentinels {
			if errors.Is(err, s.err) {
				f.Code = s.code
				break
			}
		}
	}
	return f
}

// Code returns the wire code for err
func Code(err error) string {
	return Failure(err).Code
}

// IsInternal reports whether err has no more specific code than
// INTERNAL_ERROR
func IsInternal(err error) bool {
	return Code(err) == CodeInternalError
}

var httpStatus = map[string]int{
	CodeAuthRequired:   http.StatusUnauthorized,
	CodeSessionExpired: http.StatusUnauthorized,
	CodeNotOwner:       http.StatusForbidden,
	CodeNotHost:        http.StatusForbidden,
	CodeBadField:       http.StatusBadRequest,
	CodeNoSuchGame:     http.StatusNotFound,
	CodeNoVersion:      http.StatusNotFound,
	CodeNoSuchVersion:  http.StatusNotFound,
	CodeNoSuchRoom:     http.StatusNotFound,
	CodeFileMissing:    http.StatusNotFound,
}

// WriteError writes err as a JSON failure body with a matching HTTP status
func WriteError(w http.ResponseWriter, err error) {
	f := Failure(err)
	status, ok := httpStatus[f.Code]
	if !ok {
		status = http.StatusInternalServerError
	}
	response.JSON(w, status, f)
}
