package asset

import (
	"crypto/rand"
	"encoding/binary"
)

// UUID identifies an asset registry entry. The spec calls for a nonzero
// 64-bit random identifier rather than an RFC4122 UUID, so this is a plain
// uint64 minted from crypto/rand rather than github.com/google/uuid (which
// would force a 128-bit wire format the persistence grammar doesn't allow).
// See DESIGN.md for the full rationale.
type UUID uint64

// InvalidUUID is the zero value, matching the original Asset_Handle{uuid: 0}
// sentinel for "no handle".
const InvalidUUID UUID = 0

// NewUUID mints a nonzero random UUID.
func NewUUID() UUID {
	for {
		var buf [8]byte
		if _, err := rand.Read(buf[:]); err != nil {
			continue
		}
		id := UUID(binary.LittleEndian.Uint64(buf[:]))
		if id != InvalidUUID {
			return id
		}
	}
}

// Handle references a registry entry by UUID. It carries no direct pointer
// so a Handle is safe to copy, store, and compare across goroutines; every
// dereference goes back through the Registry under its own locking.
type Handle struct {
	UUID UUID
}

// Invalid is the zero-value Handle.
var Invalid = Handle{}

// IsValid reports whether h carries a nonzero UUID. It does not, by itself,
// guarantee the handle still resolves to a live entry — callers that need
// that guarantee should call Registry.IsValid.
func (h Handle) IsValid() bool {
	return h.UUID != InvalidUUID
}

// State is the load-state machine for a single registry entry (spec §4.4).
type State int

const (
	StateUnloaded State = iota
	StatePending
	StateLoaded
	StateFailedToLoad
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StatePending:
		return "pending"
	case StateLoaded:
		return "loaded"
	case StateFailedToLoad:
		return "failed_to_load"
	default:
		return "unknown"
	}
}
