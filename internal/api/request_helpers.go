package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/phrazzld/feedcore/internal/domain"
)

// getQueryLimit parses an optional positive integer query parameter. A
// missing value yields def; values above max are clamped to max.
func getQueryLimit(r *http.Request, name string, def, max int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", domain.ErrValidation, name)
	}
	if n > max {
		return max, nil
	}
	return n, nil
}
