package airtable

import (
	"strings"

	"github.com/pkg/errors"
)

var ErrUnsupportedFormula = errors.New("unsupported filter formula")

// Equals renders the formula matching records whose field equals value.
func Equals(field, value string) string {
	return "{" + field + "}=" + Quote(value)
}

// ParseEquals is the inverse of Equals. It only understands the
// {field}='value' form; local backends use it to evaluate filters.
func ParseEquals(formula string) (field, value string, err error) {
	f := strings.TrimSpace(formula)
	if !strings.HasPrefix(f, "{") {
		return "", "", errors.Wrap(ErrUnsupportedFormula, formula)
	}
	end := strings.Index(f, "}")
	if end < 2 {
		return "", "", errors.Wrap(ErrUnsupportedFormula, formula)
	}
	field = f[1:end]

	rest := strings.TrimSpace(f[end+1:])
	if !strings.HasPrefix(rest, "=") {
		return "", "", errors.Wrap(ErrUnsupportedFormula, formula)
	}
	lit := strings.TrimSpace(rest[1:])
	if len(lit) < 2 || lit[0] != '\'' || lit[len(lit)-1] != '\'' {
		return "", "", errors.Wrap(ErrUnsupportedFormula, formula)
	}

	var sb strings.Builder
	body := lit[1 : len(lit)-1]
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c == '\\' && i+1 < len(body) {
			i++
			sb.WriteByte(body[i])
			continue
		}
		if c == '\'' {
			return "", "", errors.Wrap(ErrUnsupportedFormula, formula)
		}
		sb.WriteByte(c)
	}
	return field, sb.String(), nil
}
