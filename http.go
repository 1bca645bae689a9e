package chatauth

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// ErrorResponse is the JSON body written for rejected requests.
type ErrorResponse struct {
	Error   string `json:"error"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message"`
}

var reasonByTextCode = map[string]Reason{
	TextCodeMalformedToken:   ReasonMalformedToken,
	TextCodeTokenMissing:     ReasonMalformedToken,
	TextCodeTokenExpired:     ReasonExpired,
	TextCodeInvalidSignature: ReasonInvalidSignature,
	TextCodeTokenFromFuture:  ReasonIssuedInFuture,
	TextCodeConfiguration:    ReasonConfiguration,
}

var messageByTextCode = map[string]string{
	TextCodeTokenExpired:      "Your chat session expired, please retry.",
	TextCodeTokenFromFuture:   "Your chat session is not valid yet, please retry.",
	TextCodeMalformedToken:    "Please sign in to continue.",
	TextCodeTokenMissing:      "Please sign in to continue.",
	TextCodeInvalidSignature:  "Please sign in to continue.",
	TextCodeSessionRequired:   "Please sign in to continue.",
	TextCodeSessionExpired:    "Your session expired, please sign in again.",
	TextCodeAnonymousRejected: "Sign in with an account to use this feature.",
	TextCodeConfiguration:     "Chat is temporarily unavailable.",
	TextCodeInvalidIdentity:   "The signed in account cannot be used for chat.",
}

// ErrorResponseFor maps err to an HTTP status and response body. Errors that
// are not go-errors become a 500.
func ErrorResponseFor(err error) (int, ErrorResponse) {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "An unexpected server error occurred").
			WithCode(goerrors.CodeInternal)
	}

	status := richErr.Code
	if status == 0 {
		status = statusForError(richErr)
	}

	textCode := richErr.TextCode
	if textCode == "" {
		textCode = http.StatusText(status)
	}

	message, ok := messageByTextCode[richErr.TextCode]
	if !ok {
		message = richErr.Message
	}

	return status, ErrorResponse{
		Error:   textCode,
		Reason:  string(reasonByTextCode[richErr.TextCode]),
		Message: message,
	}
}

func statusForError(richErr *goerrors.Error) int {
	switch richErr.Category {
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponder renders authentication and authorization failures as JSON.
type ErrorResponder struct {
	Logger Logger
}

func NewErrorResponder(logger Logger) *ErrorResponder {
	return &ErrorResponder{Logger: normalizeLogger(logger)}
}

// Handle satisfies router.ErrorHandler.
func (r *ErrorResponder) Handle(c router.Context, err error) error {
	status, body := ErrorResponseFor(err)

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && len(richErr.Metadata) > 0 {
		r.logger().Info(
			"Request rejected",
			"error", body.Error,
			"status", status,
			"details", print.MaybePrettyJSON(richErr.Metadata),
		)
	} else {
		r.logger().Info("Request rejected", "error", body.Error, "status", status)
	}

	if status >= http.StatusInternalServerError {
		r.logger().Error("Request failed with server error", "error", err)
	}

	c.SetHeader("Cache-Control", "no-store")
	return c.JSON(status, body)
}

func (r *ErrorResponder) logger() Logger {
	if r == nil {
		return defLogger{}
	}
	return normalizeLogger(r.Logger)
}

// DefaultErrorHandler renders errors with a stdout logger.
func DefaultErrorHandler(c router.Context, err error) error {
	return NewErrorResponder(nil).Handle(c, err)
}
