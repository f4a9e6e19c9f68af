// Package gate decides whether an unattended run should proceed. The
// reservation window on the portal opens at midnight Eastern on Sundays, so
// scheduled runs outside Sunday 00:00 US-Eastern exit without doing any
// browser work. A manual run bypasses the check entirely.
package gate

import (
	"fmt"
	"time"
)

const easternZone = "America/New_York"

// Gate checks wall-clock time against the weekly reservation window.
type Gate struct {
	loc *time.Location
}

// New loads the Eastern time zone and returns a Gate.
func New() (*Gate, error) {
	loc, err := time.LoadLocation(easternZone)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", easternZone, err)
	}
	return &Gate{loc: loc}, nil
}

// Open reports whether a run at now should proceed. Manual runs always
// proceed. Scheduled runs proceed only when now, projected into Eastern
// civil time, is a Sunday at clock time 00:00. The comparison is at minute
// granularity, so any second within 00:00:00–00:00:59 matches.
func (g *Gate) Open(now time.Time, manual bool) bool {
	if manual {
		return true
	}
	local := now.In(g.loc)
	return local.Weekday() == time.Sunday && local.Format("15:04") == "00:00"
}

// Location returns the gate's civil time zone, for logging the local time
// alongside a skip decision.
func (g *Gate) Location() *time.Location {
	return g.loc
}
