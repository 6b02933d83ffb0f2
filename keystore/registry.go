package keystore

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/davecgh/go-spew/spew"
	"github.com/nameledger/custody/identity"
)

// HaveIdentity returns true if an identity with the given identifier is
// registered.
func (s *Store) HaveIdentity(id identity.ID) bool {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	_, ok := s.identities[id]
	return ok
}

// AddIdentity registers a newly defined identity, creating a single-entry
// history pinned to the transaction and height that defined it. Adding an
// identity whose identifier is already registered fails with
// ErrAlreadyExists.
func (s *Store) AddIdentity(ident identity.Identity, txid chainhash.Hash,
	height uint32) error {

	nameID := ident.NameID()

	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.identities[nameID]; ok {
		return fmt.Errorf("identity %v: %w", nameID, ErrAlreadyExists)
	}

	s.identities[nameID] = identity.NewHistory(ident, txid, height)

	log.Debugf("Registered identity %v (%s) at height %d", nameID,
		ident.Name, height)

	return nil
}

// UpdateIdentity records a new version of a registered identity, applying
// the bounded history policy: the two most recent heights are retained and
// updates at or below the oldest retained height fail with
// identity.ErrStaleUpdate. Updating an unregistered identity fails with
// ErrNotFound.
func (s *Store) UpdateIdentity(ident identity.Identity, txid chainhash.Hash,
	height uint32) error {

	nameID := ident.NameID()

	s.mtx.Lock()
	defer s.mtx.Unlock()

	hist, ok := s.identities[nameID]
	if !ok {
		return fmt.Errorf("identity %v: %w", nameID, ErrNotFound)
	}

	if err := hist.Apply(ident, txid, height); err != nil {
		return fmt.Errorf("identity %v: %w", nameID, err)
	}

	log.Debugf("Updated identity %v (%s) at height %d", nameID,
		ident.Name, height)

	return nil
}

// RemoveIdentity drops an identity and its history from the registry.
// Removing an identity that is not registered is a no-op.
func (s *Store) RemoveIdentity(id identity.ID) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	delete(s.identities, id)
}

// GetIdentityAndHistory returns a copy of the registered identity's
// bounded history.
func (s *Store) GetIdentityAndHistory(id identity.ID) (identity.History,
	error) {

	s.mtx.RLock()
	defer s.mtx.RUnlock()

	hist, ok := s.identities[id]
	if !ok {
		return identity.History{}, fmt.Errorf("identity %v: %w", id,
			ErrNotFound)
	}

	return *hist, nil
}

// AddUpdateIdentityAndHistory installs a pre-built history record,
// replacing any registered history for the same identity. The record is
// keyed by the identifier of its earliest snapshot. Invalid or empty
// records are ignored.
func (s *Store) AddUpdateIdentityAndHistory(hist *identity.History) {
	if hist == nil || !hist.IsValid() {
		return
	}

	earliest, err := hist.Earliest()
	if err != nil {
		return
	}
	nameID := earliest.Identity.NameID()

	s.mtx.Lock()
	defer s.mtx.Unlock()

	histCopy := *hist
	s.identities[nameID] = &histCopy

	log.Tracef("Installed identity history %v: %v", nameID,
		spew.Sdump(hist))
}
