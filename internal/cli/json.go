package cli

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"io/fs"

	"github.com/rileyhilliard/rmon/internal/errors"
)

// JSONEnvelope wraps command output in a consistent structure for machine parsing.
// All -o json output uses this envelope.
type JSONEnvelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *JSONError  `json:"error,omitempty"`
}

// JSONError provides structured error information for machine parsing.
type JSONError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
	ExitCode   int    `json:"exit_code"`
}

// Error codes for machine-readable output.
const (
	ErrCodeConfigNotFound    = "CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid     = "CONFIG_INVALID"
	ErrCodeSSHAuthFailed     = "SSH_AUTH_FAILED"
	ErrCodeSSHConnectionFail = "SSH_CONNECTION_FAILED"
	ErrCodeNetwork           = "NETWORK_UNREACHABLE"
	ErrCodeCommandFailed     = "COMMAND_FAILED"
	ErrCodeParseFailed       = "PARSE_FAILED"
	ErrCodeTerminal          = "TERMINAL"
	ErrCodeUnknown           = "UNKNOWN"
)

// WriteJSONSuccess writes a successful response with data to the writer.
func WriteJSONSuccess(w io.Writer, data interface{}) error {
	return writeJSONEnvelope(w, JSONEnvelope{
		Success: true,
		Data:    data,
	})
}

// WriteJSONFromError converts a Go error to a JSON error response.
func WriteJSONFromError(w io.Writer, err error) error {
	return writeJSONEnvelope(w, JSONEnvelope{
		Success: false,
		Error:   ErrorToJSON(err),
	})
}

// writeJSONEnvelope writes the envelope with consistent formatting.
func writeJSONEnvelope(w io.Writer, env JSONEnvelope) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(env)
}

// ErrorToJSON converts a Go error to a JSONError with appropriate code mapping.
func ErrorToJSON(err error) *JSONError {
	if err == nil {
		return nil
	}

	var rmErr *errors.Error
	if stderrors.As(err, &rmErr) {
		return &JSONError{
			Code:       mapErrorCode(rmErr),
			Message:    rmErr.Message,
			Suggestion: rmErr.Suggestion,
			ExitCode:   errors.ExitCode(err),
		}
	}

	return &JSONError{
		Code:     ErrCodeUnknown,
		Message:  err.Error(),
		ExitCode: errors.ExitCode(err),
	}
}

// mapErrorCode maps internal error codes to machine-readable codes.
func mapErrorCode(e *errors.Error) string {
	switch e.Code {
	case errors.ErrConfig:
		if stderrors.Is(e, fs.ErrNotExist) {
			return ErrCodeConfigNotFound
		}
		return ErrCodeConfigInvalid
	case errors.ErrAuth:
		return ErrCodeSSHAuthFailed
	case errors.ErrSSH:
		return ErrCodeSSHConnectionFail
	case errors.ErrNetwork:
		return ErrCodeNetwork
	case errors.ErrExec:
		return ErrCodeCommandFailed
	case errors.ErrParse:
		return ErrCodeParseFailed
	case errors.ErrTerminal:
		return ErrCodeTerminal
	}
	return ErrCodeUnknown
}
