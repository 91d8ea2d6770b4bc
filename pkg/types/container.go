package types

import "time"

// Container lifecycle states. Informational only: resolution logic never
// consults them.
const (
	ContainerStateNew       = "new"
	ContainerStateImporting = "importing"
	ContainerStateReady     = "ready"
	ContainerStateError     = "error"
)

// validContainerStates is the set of recognized lifecycle values.
var validContainerStates = map[string]bool{
	ContainerStateNew:       true,
	ContainerStateImporting: true,
	ContainerStateReady:     true,
	ContainerStateError:     true,
}

// IsValidContainerState reports whether s is a recognized lifecycle state.
func IsValidContainerState(s string) bool {
	return validContainerStates[s]
}

// PeriodContainer holds all snapshots for one handle at one business date.
// Exactly one container exists per (handle, period date); the pair is
// enforced unique at creation. Containers are never deleted by this core.
type PeriodContainer struct {
	ContainerID string    // UUID v7, generated on creation.
	Handle      string    // Logical dataset family (owned by an external catalog).
	PeriodDate  time.Time // Business date, date precision.
	State       string    // Lifecycle state (one of the ContainerState constants).
	Label       string    // Free-form display label (e.g. source filename).
	CreatedAt   time.Time // Timestamp of creation.
}
