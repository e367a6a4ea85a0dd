package cart

import "time"

// SyncState says which store is authoritative for a session's cart.
type SyncState string

const (
	// StateGuestLocal: unauthenticated, the local mirror is the cart.
	StateGuestLocal SyncState = "guest-local"
	// StateSynced: authenticated and the last backend call succeeded.
	StateSynced SyncState = "authenticated-synced"
	// StateDegraded: authenticated but the last backend call failed. The local
	// mirror is the source of truth until a backend call succeeds again.
	StateDegraded SyncState = "authenticated-degraded"
)

type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeFailure
	outcomeEmptyFetch
)

// next is the whole reconciliation policy.
func next(from SyncState, authenticated bool, o outcome) SyncState {
	if !authenticated {
		return StateGuestLocal
	}
	switch o {
	case outcomeFailure:
		return StateDegraded
	case outcomeEmptyFetch:
		// an empty backend cart right after a failure is not trusted
		if from == StateDegraded {
			return StateDegraded
		}
		return StateSynced
	default:
		return StateSynced
	}
}

// syncRecord is persisted under the cart_sync_state session key.
type syncRecord struct {
	State     SyncState `json:"state" validate:"required,oneof=guest-local authenticated-synced authenticated-degraded"`
	LastError string    `json:"last_error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}
