package httpx

import (
	"fmt"
	"net/http"

	"github.com/go-chi/render"
	"github.com/mbolis/brand-survey/log"
)

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Error string `json:"error"`
}

// WriteError sends an HTTP response with status and a JSON error message.
func WriteError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: msg})
}

// Will log an error, and send an HTTP response with status 500 and default text
func LogInternalError(w http.ResponseWriter, r *http.Request, code string, err error) {
	log.Errorf("%s: %s", code, err)
	WriteError(w, r, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
}

// Will log a debug message, and send an HTTP response with status 404 and default text
func LogNotFound(w http.ResponseWriter, r *http.Request, code string, id any) {
	log.Debugf("%s: not found (%v)", code, id)
	WriteError(w, r, http.StatusNotFound, http.StatusText(http.StatusNotFound))
}

// Will log an error code at the given level, and send
// an HTTP response with status and default text
func LogStatus(w http.ResponseWriter, r *http.Request, status int, level log.Level, code string) {
	log.Log(level, code)
	WriteError(w, r, status, http.StatusText(status))
}

// Will log an error code and message at the given level,
// and send an HTTP response with the given status and formatted message
func LogStatusMsg(w http.ResponseWriter, r *http.Request, status int, level log.Level, code string, msg string, args ...any) {
	errMsg := fmt.Sprintf(msg, args...)
	log.Log(level, code+":", errMsg)
	WriteError(w, r, status, errMsg)
}

// Will log an error at the given level, and send an HTTP response with
// the given status and a message meant for the user
func LogError(w http.ResponseWriter, r *http.Request, status int, level log.Level, code string, err error, userMsg string) {
	log.Logf(level, "%s: %s", code, err)
	WriteError(w, r, status, userMsg)
}
