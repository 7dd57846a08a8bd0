package airtable

import (
	"fmt"
	"net/http"

	api "github.com/mehanizm/airtable"
	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("record not found")

// Error is a non-2xx answer from the tables API.
type Error struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("airtable: %d %s", e.StatusCode, e.Type)
	}
	return fmt.Sprintf("airtable: %d %s: %s", e.StatusCode, e.Type, e.Message)
}

func (e *Error) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// translateError turns the library's status errors into *Error and wraps
// transport failures with the call they belong to.
func translateError(method, table string, err error) error {
	var httpErr *api.HTTPClientError
	if errors.As(err, &httpErr) {
		apiErr := &Error{StatusCode: httpErr.StatusCode, Type: http.StatusText(httpErr.StatusCode)}
		if httpErr.Err != nil {
			apiErr.Message = httpErr.Err.Error()
		}
		return apiErr
	}
	return errors.Wrapf(err, "airtable: %s %s", method, table)
}
