// Package invalidation consumes table change events and drops the cached
// categorical values of the changed tables.
package invalidation

import (
	"fmt"
	"strings"
	"time"
)

// Event announces that a warehouse table changed.
type Event struct {
	Version int       `json:"version"`
	Op      string    `json:"op"`
	Table   string    `json:"table"`
	TS      time.Time `json:"ts"`
	Source  string    `json:"source,omitempty"`
}

func (e Event) Validate() error {
	if e.Version != 1 {
		return fmt.Errorf("version must be 1")
	}
	switch e.Op {
	case "insert", "update", "delete", "truncate", "replace":
	default:
		return fmt.Errorf("op must be insert|update|delete|truncate|replace")
	}
	if strings.TrimSpace(e.Table) == "" {
		return fmt.Errorf("table is required")
	}
	if e.TS.IsZero() {
		return fmt.Errorf("ts is required")
	}
	return nil
}
