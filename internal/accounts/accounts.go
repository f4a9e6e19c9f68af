// Package accounts parses the portal credential list supplied through the
// environment. The list is the whole point of a run; a missing or malformed
// list is fatal before any browser work starts.
package accounts

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Account is one set of portal credentials. The password is held in memory
// only for the duration of the account's browser session and is never
// logged.
type Account struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Parse decodes a JSON array of {username,password} objects. Input order is
// preserved. An empty input, malformed JSON, a non-array document, or an
// entry with a blank username or password is an error.
func Parse(raw string) ([]Account, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("account list is empty; set BL_ACCOUNTS")
	}

	// json.Unmarshal quietly accepts "null" for a slice; only an actual
	// array is a valid account list.
	if !strings.HasPrefix(trimmed, "[") {
		return nil, fmt.Errorf("account list is not a JSON array")
	}

	var accts []Account
	if err := json.Unmarshal([]byte(raw), &accts); err != nil {
		return nil, fmt.Errorf("failed to parse account list: %w", err)
	}

	for i, ac := range accts {
		if ac.Username == "" {
			return nil, fmt.Errorf("account %d has no username", i)
		}
		if ac.Password == "" {
			return nil, fmt.Errorf("account %q has no password", ac.Username)
		}
	}

	return accts, nil
}
