package render

import (
	"strings"
	"time"

	"github.com/aretw0/metabind/pkg/core"
)

// DateLayout is the human readable pattern dates are projected with.
const DateLayout = "January 02, 2006"

var dateInputs = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"January 2, 2006",
}

// FormatDate parses a stored date string and formats it with DateLayout.
func FormatDate(key, raw string) (string, error) {
	s := strings.TrimSpace(raw)
	for _, layout := range dateInputs {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(DateLayout), nil
		}
	}
	_, err := time.Parse(time.RFC3339, s)
	return "", &core.DateFormatError{Key: key, Value: raw, Err: err}
}
