package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/iliyamo/loyalty-rewards/internal/client"
	"github.com/iliyamo/loyalty-rewards/internal/validate"
)

// Exit codes for CLI commands.
const (
	ExitSuccess   = 0
	ExitFailure   = 1 // the gateway refused or failed the request
	ExitUsage     = 2 // bad flags or form input, nothing was sent
	ExitSignedOut = 3 // the command needs a session and there is none
)

// ExitError carries an exit code and optional per-field details.
type ExitError struct {
	Code    int
	Message string
	Fields  map[string]string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error { return e.Err }

func usageError(msg string) *ExitError { return &ExitError{Code: ExitUsage, Message: msg} }

// invalid reports form validation failures found before calling the gateway.
func invalid(errs validate.Errors) *ExitError {
	return &ExitError{Code: ExitUsage, Message: "validation failed", Fields: errs}
}

var errSignedOut = &ExitError{Code: ExitSignedOut, Message: "not signed in, run `loyalty login` or set LOYALTY_REFRESH_TOKEN"}

// ExitCode extracts the exit code from an error.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
		return ExitSignedOut
	}
	return ExitFailure
}

// OutputFormatter writes results as text or as a JSON envelope.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// Response is the JSON envelope.
type Response struct {
	Status string      `json:"status"` // "ok" or "error"
	Data   interface{} `json:"data,omitempty"`
	Error  *ErrorBody  `json:"error,omitempty"`
}

type ErrorBody struct {
	Message string            `json:"message"`
	Status  int               `json:"status,omitempty"` // gateway HTTP status
	Fields  map[string]string `json:"fields,omitempty"`
}

// Success writes data.  In text mode text renders it.
func (f *OutputFormatter) Success(data interface{}, text func(w io.Writer)) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(Response{Status: "ok", Data: data})
	}
	text(f.Writer)
	return nil
}

// Error writes err, including field messages from local validation or
// from the gateway.
func (f *OutputFormatter) Error(err error) error {
	body := &ErrorBody{Message: err.Error()}
	var exitErr *ExitError
	var apiErr *client.APIError
	switch {
	case errors.As(err, &exitErr):
		body.Fields = exitErr.Fields
	case errors.As(err, &apiErr):
		body.Status = apiErr.Status
		body.Fields = apiErr.Fields
		if apiErr.Message != "" {
			body.Message = apiErr.Message
		}
	}
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(Response{Status: "error", Error: body})
	}
	fmt.Fprintf(f.Writer, "Error: %s\n", body.Message)
	keys := make([]string, 0, len(body.Fields))
	for k := range body.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(f.Writer, "  %s: %s\n", k, body.Fields[k])
	}
	return nil
}
