package identity

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// ErrStaleUpdate is returned when an identity update targets a height at or
// below the oldest height still retained in the history.
var ErrStaleUpdate = errors.New("identity update is stale")

const (
	// HistoryVersionCurrent is the version written to newly created
	// histories.
	HistoryVersionCurrent uint32 = 1

	// maxSnapshots bounds the number of snapshots a history retains:
	// the earliest known one and the most recent one. Deeper version
	// history belongs to the ledger, not the custody layer; two entries
	// are enough to answer what changed across the reorg depth of
	// interest.
	maxSnapshots = 2
)

// Snapshot is one retained version of an identity, pinned to the
// transaction and block height that produced it.
type Snapshot struct {
	// Height is the block height the identity state was observed at.
	Height uint32

	// TxID is the transaction that defined or updated the identity.
	TxID chainhash.Hash

	// Identity is the identity state as of Height.
	Identity Identity
}

// History is the bounded, height-ordered version history of a single
// identity. It retains at most two snapshots, conceptually "earliest known"
// and "most recent", with an explicit eviction policy applied on updates.
type History struct {
	// Version is the history record version.
	Version uint32

	// Valid indicates the record holds usable snapshots. Bulk-imported
	// records that fail validation are dropped by their consumers.
	Valid bool

	snaps [maxSnapshots]Snapshot
	count int
}

// NewHistory creates a single-entry history from the identity's first
// observed state.
func NewHistory(ident Identity, txid chainhash.Hash, height uint32) *History {
	return &History{
		Version: HistoryVersionCurrent,
		Valid:   true,
		snaps: [maxSnapshots]Snapshot{{
			Height:   height,
			TxID:     txid,
			Identity: ident,
		}},
		count: 1,
	}
}

// NumEntries returns the number of snapshots currently retained.
func (h *History) NumEntries() int {
	return h.count
}

// IsValid returns true if the history is marked valid and holds at least
// one snapshot.
func (h *History) IsValid() bool {
	return h.Valid && h.count > 0
}

// Earliest returns the oldest retained snapshot.
func (h *History) Earliest() (Snapshot, error) {
	if h.count == 0 {
		return Snapshot{}, errors.New("empty history")
	}

	return h.snaps[0], nil
}

// Latest returns the most recent retained snapshot.
func (h *History) Latest() (Snapshot, error) {
	if h.count == 0 {
		return Snapshot{}, errors.New("empty history")
	}

	return h.snaps[h.count-1], nil
}

// Heights returns the heights of the retained snapshots in ascending
// order.
func (h *History) Heights() []uint32 {
	heights := make([]uint32, h.count)
	for i := 0; i < h.count; i++ {
		heights[i] = h.snaps[i].Height
	}

	return heights
}

// Apply records a new version of the identity at the given height.
//
// With a single retained snapshot, re-recording the same height is a
// no-op and any other height is inserted alongside it. With two retained
// snapshots, a height equal to the most recent one is an idempotent
// reapplication, a height above the earliest one evicts the earliest
// snapshot, and a height at or below the earliest one is rejected as
// stale, leaving the history unchanged.
func (h *History) Apply(ident Identity, txid chainhash.Hash,
	height uint32) error {

	snap := Snapshot{
		Height:   height,
		TxID:     txid,
		Identity: ident,
	}

	switch {
	case h.count == 0:
		h.snaps[0] = snap
		h.count = 1

	case h.count == 1:
		if height == h.snaps[0].Height {
			return nil
		}
		h.insert(snap)

	case height > h.snaps[0].Height:
		if height == h.snaps[1].Height {
			return nil
		}

		// Evict the earliest snapshot to make room.
		h.snaps[0] = h.snaps[1]
		h.count = 1
		h.insert(snap)

	default:
		return fmt.Errorf("height %d at or below retained height "+
			"%d: %w", height, h.snaps[0].Height, ErrStaleUpdate)
	}

	return nil
}

// insert places snap into a one-entry history, keeping the pair ordered by
// height.
func (h *History) insert(snap Snapshot) {
	if snap.Height < h.snaps[0].Height {
		h.snaps[1] = h.snaps[0]
		h.snaps[0] = snap
	} else {
		h.snaps[1] = snap
	}
	h.count = 2
}
