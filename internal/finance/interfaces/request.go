package interfaces

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/finvault/FinVault/internal/identity"
)

var (
	errInvalidStartDate = errors.New("Invalid startDate")
	errInvalidEndDate   = errors.New("Invalid endDate")
)

// requestUserID reads the authenticated user injected by the auth middleware.
// Routes are always registered behind it, so a missing ID is a wiring bug.
func requestUserID(r *http.Request) string {
	userID, _ := identity.UserIDFromContext(r.Context())
	return userID
}

// parseDate accepts RFC3339 or a bare calendar date.
func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}

func queryDate(r *http.Request, key string) (*time.Time, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return nil, nil
	}
	t, err := parseDate(value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func queryInt(r *http.Request, key string) int {
	value, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return value
}

func queryFloat(r *http.Request, key string) *float64 {
	value, err := strconv.ParseFloat(r.URL.Query().Get(key), 64)
	if err != nil {
		return nil
	}
	return &value
}

func queryList(r *http.Request, key string) []string {
	value := r.URL.Query().Get(key)
	if value == "" {
		return nil
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
