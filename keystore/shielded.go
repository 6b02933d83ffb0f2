package keystore

import (
	"fmt"
)

// Sizes in bytes of the opaque shielded key material custodied here. The
// key algebra itself lives in the shielded protocol library; this store
// only moves the resulting values around.
const (
	// SproutSpendingKeySize is the size of an older generation spending
	// key.
	SproutSpendingKeySize = 32

	// SproutViewingKeySize is the size of an older generation viewing
	// key, the paying key followed by the transmission secret.
	SproutViewingKeySize = 64

	// SproutPaymentAddressSize is the size of an older generation
	// payment address.
	SproutPaymentAddressSize = 64

	// SproutReceivingKeySize is the size of an older generation
	// receiving key.
	SproutReceivingKeySize = 32

	// SaplingExtendedSpendingKeySize is the size of a newer generation
	// extended spending key.
	SaplingExtendedSpendingKeySize = 169

	// SaplingFullViewingKeySize is the size of a newer generation full
	// viewing key.
	SaplingFullViewingKeySize = 96

	// SaplingIncomingViewingKeySize is the size of a newer generation
	// incoming viewing key.
	SaplingIncomingViewingKeySize = 32

	// SaplingPaymentAddressSize is the size of a newer generation
	// payment address, an 11-byte diversifier followed by the
	// diversified transmission key.
	SaplingPaymentAddressSize = 43
)

// SproutSpendingKey is an older generation shielded spending key.
type SproutSpendingKey [SproutSpendingKeySize]byte

// SproutViewingKey is an older generation shielded viewing key.
type SproutViewingKey [SproutViewingKeySize]byte

// SproutPaymentAddress is an older generation shielded payment address.
type SproutPaymentAddress [SproutPaymentAddressSize]byte

// SproutReceivingKey is the note decryption secret of an older generation
// key.
type SproutReceivingKey [SproutReceivingKeySize]byte

// SaplingExtendedSpendingKey is a newer generation extended spending key.
type SaplingExtendedSpendingKey [SaplingExtendedSpendingKeySize]byte

// SaplingFullViewingKey is a newer generation full viewing key.
type SaplingFullViewingKey [SaplingFullViewingKeySize]byte

// SaplingIncomingViewingKey is a newer generation incoming viewing key.
type SaplingIncomingViewingKey [SaplingIncomingViewingKeySize]byte

// SaplingPaymentAddress is a newer generation shielded payment address.
type SaplingPaymentAddress [SaplingPaymentAddressSize]byte

// NoteDecryptor can detect and decrypt shielded notes addressed to a
// single receiving key. Construction is delegated to the shielded protocol
// library through the SproutKeyDeriver.
type NoteDecryptor interface {
	// ReceivingKey returns the receiving key the decryptor was built
	// for.
	ReceivingKey() SproutReceivingKey
}

// SproutKeyDeriver derives the dependent key material of the older
// shielded generation. All methods are pure.
type SproutKeyDeriver interface {
	// PaymentAddress returns the payment address of a spending key.
	PaymentAddress(sk SproutSpendingKey) SproutPaymentAddress

	// ReceivingKey returns the receiving key of a spending key.
	ReceivingKey(sk SproutSpendingKey) SproutReceivingKey

	// ViewingKeyAddress returns the payment address of a viewing key.
	ViewingKeyAddress(vk SproutViewingKey) SproutPaymentAddress

	// TransmissionKey returns the receiving key embedded in a viewing
	// key.
	TransmissionKey(vk SproutViewingKey) SproutReceivingKey

	// NoteDecryptor builds a note decryptor for a receiving key.
	NoteDecryptor(rk SproutReceivingKey) NoteDecryptor
}

// SaplingKeyDeriver derives the dependent key material of the newer
// shielded generation. All methods are pure.
type SaplingKeyDeriver interface {
	// FullViewingKey returns the full viewing key of an extended
	// spending key.
	FullViewingKey(sk SaplingExtendedSpendingKey) SaplingFullViewingKey

	// IncomingViewingKey returns the incoming viewing key of a full
	// viewing key.
	IncomingViewingKey(
		fvk SaplingFullViewingKey) SaplingIncomingViewingKey
}

// AddSproutSpendingKey stores an older generation spending key under its
// derived payment address, along with a note decryptor for its receiving
// key. The first decryptor associated with an address stands.
func (s *Store) AddSproutSpendingKey(sk SproutSpendingKey) error {
	deriver := s.cfg.SproutDeriver
	if deriver == nil {
		return fmt.Errorf("sprout: %w", ErrNoDeriver)
	}

	addr := deriver.PaymentAddress(sk)
	decryptor := deriver.NoteDecryptor(deriver.ReceivingKey(sk))

	s.shieldedMtx.Lock()
	defer s.shieldedMtx.Unlock()

	s.sproutSpendingKeys[addr] = sk
	if _, ok := s.noteDecryptors[addr]; !ok {
		s.noteDecryptors[addr] = decryptor
	}

	return nil
}

// HaveSproutSpendingKey returns true if the store holds the spending key
// for the given address.
func (s *Store) HaveSproutSpendingKey(addr SproutPaymentAddress) bool {
	s.shieldedMtx.RLock()
	defer s.shieldedMtx.RUnlock()

	_, ok := s.sproutSpendingKeys[addr]
	return ok
}

// GetSproutSpendingKey returns the spending key stored for the given
// address.
func (s *Store) GetSproutSpendingKey(
	addr SproutPaymentAddress) (SproutSpendingKey, error) {

	s.shieldedMtx.RLock()
	defer s.shieldedMtx.RUnlock()

	sk, ok := s.sproutSpendingKeys[addr]
	if !ok {
		return SproutSpendingKey{}, fmt.Errorf("sprout spending "+
			"key: %w", ErrNotFound)
	}

	return sk, nil
}

// AddSproutViewingKey stores an older generation viewing key under its
// derived payment address, along with a note decryptor for its
// transmission key.
func (s *Store) AddSproutViewingKey(vk SproutViewingKey) error {
	deriver := s.cfg.SproutDeriver
	if deriver == nil {
		return fmt.Errorf("sprout: %w", ErrNoDeriver)
	}

	addr := deriver.ViewingKeyAddress(vk)
	decryptor := deriver.NoteDecryptor(deriver.TransmissionKey(vk))

	s.shieldedMtx.Lock()
	defer s.shieldedMtx.Unlock()

	s.sproutViewingKeys[addr] = vk
	if _, ok := s.noteDecryptors[addr]; !ok {
		s.noteDecryptors[addr] = decryptor
	}

	return nil
}

// RemoveSproutViewingKey drops the viewing key from the store. Removing a
// key that is not stored is a no-op.
func (s *Store) RemoveSproutViewingKey(vk SproutViewingKey) error {
	deriver := s.cfg.SproutDeriver
	if deriver == nil {
		return fmt.Errorf("sprout: %w", ErrNoDeriver)
	}

	addr := deriver.ViewingKeyAddress(vk)

	s.shieldedMtx.Lock()
	defer s.shieldedMtx.Unlock()

	delete(s.sproutViewingKeys, addr)

	return nil
}

// HaveSproutViewingKey returns true if the store holds a viewing key for
// the given address.
func (s *Store) HaveSproutViewingKey(addr SproutPaymentAddress) bool {
	s.shieldedMtx.RLock()
	defer s.shieldedMtx.RUnlock()

	_, ok := s.sproutViewingKeys[addr]
	return ok
}

// GetSproutViewingKey returns the viewing key stored for the given
// address.
func (s *Store) GetSproutViewingKey(
	addr SproutPaymentAddress) (SproutViewingKey, error) {

	s.shieldedMtx.RLock()
	defer s.shieldedMtx.RUnlock()

	vk, ok := s.sproutViewingKeys[addr]
	if !ok {
		return SproutViewingKey{}, fmt.Errorf("sprout viewing "+
			"key: %w", ErrNotFound)
	}

	return vk, nil
}

// GetNoteDecryptor returns the note decryptor stored for the given
// address.
func (s *Store) GetNoteDecryptor(
	addr SproutPaymentAddress) (NoteDecryptor, error) {

	s.shieldedMtx.RLock()
	defer s.shieldedMtx.RUnlock()

	decryptor, ok := s.noteDecryptors[addr]
	if !ok {
		return nil, fmt.Errorf("note decryptor: %w", ErrNotFound)
	}

	return decryptor, nil
}

// AddSaplingSpendingKey stores a newer generation extended spending key.
// The key's full viewing key and incoming viewing key are derived and
// stored first, binding the default address to the chain, then the
// spending key itself is stored under the full viewing key.
func (s *Store) AddSaplingSpendingKey(sk SaplingExtendedSpendingKey,
	defaultAddr SaplingPaymentAddress) error {

	deriver := s.cfg.SaplingDeriver
	if deriver == nil {
		return fmt.Errorf("sapling: %w", ErrNoDeriver)
	}

	fvk := deriver.FullViewingKey(sk)

	s.shieldedMtx.Lock()
	defer s.shieldedMtx.Unlock()

	s.addSaplingFullViewingKey(deriver, fvk, defaultAddr)
	s.saplingSpendingKeys[fvk] = sk

	return nil
}

// AddSaplingFullViewingKey stores a newer generation full viewing key
// under its derived incoming viewing key and binds the default address to
// that incoming viewing key.
func (s *Store) AddSaplingFullViewingKey(fvk SaplingFullViewingKey,
	defaultAddr SaplingPaymentAddress) error {

	deriver := s.cfg.SaplingDeriver
	if deriver == nil {
		return fmt.Errorf("sapling: %w", ErrNoDeriver)
	}

	s.shieldedMtx.Lock()
	defer s.shieldedMtx.Unlock()

	s.addSaplingFullViewingKey(deriver, fvk, defaultAddr)

	return nil
}

// addSaplingFullViewingKey stores fvk and its address binding.
//
// NOTE: The shielded lock must be held when calling this method.
func (s *Store) addSaplingFullViewingKey(deriver SaplingKeyDeriver,
	fvk SaplingFullViewingKey, defaultAddr SaplingPaymentAddress) {

	ivk := deriver.IncomingViewingKey(fvk)
	s.saplingFullViewingKeys[ivk] = fvk
	s.saplingIncomingViewingKeys[defaultAddr] = ivk
}

// AddSaplingIncomingViewingKey binds an address to its incoming viewing
// key. Each address has exactly one incoming viewing key, so re-adding the
// binding for an address is idempotent; callers must not derive a
// different key for an address that already has one.
func (s *Store) AddSaplingIncomingViewingKey(ivk SaplingIncomingViewingKey,
	addr SaplingPaymentAddress) {

	s.shieldedMtx.Lock()
	defer s.shieldedMtx.Unlock()

	s.saplingIncomingViewingKeys[addr] = ivk
}

// HaveSaplingSpendingKey returns true if the store holds the spending key
// for the given full viewing key.
func (s *Store) HaveSaplingSpendingKey(fvk SaplingFullViewingKey) bool {
	s.shieldedMtx.RLock()
	defer s.shieldedMtx.RUnlock()

	_, ok := s.saplingSpendingKeys[fvk]
	return ok
}

// GetSaplingSpendingKey returns the extended spending key stored for the
// given full viewing key.
func (s *Store) GetSaplingSpendingKey(
	fvk SaplingFullViewingKey) (SaplingExtendedSpendingKey, error) {

	s.shieldedMtx.RLock()
	defer s.shieldedMtx.RUnlock()

	sk, ok := s.saplingSpendingKeys[fvk]
	if !ok {
		return SaplingExtendedSpendingKey{}, fmt.Errorf("sapling "+
			"spending key: %w", ErrNotFound)
	}

	return sk, nil
}

// HaveSaplingFullViewingKey returns true if the store holds the full
// viewing key for the given incoming viewing key.
func (s *Store) HaveSaplingFullViewingKey(
	ivk SaplingIncomingViewingKey) bool {

	s.shieldedMtx.RLock()
	defer s.shieldedMtx.RUnlock()

	_, ok := s.saplingFullViewingKeys[ivk]
	return ok
}

// GetSaplingFullViewingKey returns the full viewing key stored for the
// given incoming viewing key.
func (s *Store) GetSaplingFullViewingKey(
	ivk SaplingIncomingViewingKey) (SaplingFullViewingKey, error) {

	s.shieldedMtx.RLock()
	defer s.shieldedMtx.RUnlock()

	fvk, ok := s.saplingFullViewingKeys[ivk]
	if !ok {
		return SaplingFullViewingKey{}, fmt.Errorf("sapling full "+
			"viewing key: %w", ErrNotFound)
	}

	return fvk, nil
}

// HaveSaplingIncomingViewingKey returns true if the store holds an
// incoming viewing key for the given address.
func (s *Store) HaveSaplingIncomingViewingKey(
	addr SaplingPaymentAddress) bool {

	s.shieldedMtx.RLock()
	defer s.shieldedMtx.RUnlock()

	_, ok := s.saplingIncomingViewingKeys[addr]
	return ok
}

// GetSaplingIncomingViewingKey returns the incoming viewing key stored
// for the given address.
func (s *Store) GetSaplingIncomingViewingKey(
	addr SaplingPaymentAddress) (SaplingIncomingViewingKey, error) {

	s.shieldedMtx.RLock()
	defer s.shieldedMtx.RUnlock()

	ivk, ok := s.saplingIncomingViewingKeys[addr]
	if !ok {
		return SaplingIncomingViewingKey{}, fmt.Errorf("sapling "+
			"incoming viewing key: %w", ErrNotFound)
	}

	return ivk, nil
}

// GetSaplingExtendedSpendingKey resolves a payment address all the way
// back to its extended spending key, walking address to incoming viewing
// key to full viewing key to spending key. The lookup fails with
// ErrChainBroken at the first missing hop and never returns partial
// results.
func (s *Store) GetSaplingExtendedSpendingKey(
	addr SaplingPaymentAddress) (SaplingExtendedSpendingKey, error) {

	s.shieldedMtx.RLock()
	defer s.shieldedMtx.RUnlock()

	ivk, ok := s.saplingIncomingViewingKeys[addr]
	if !ok {
		return SaplingExtendedSpendingKey{}, fmt.Errorf("no "+
			"incoming viewing key for address: %w", ErrChainBroken)
	}

	fvk, ok := s.saplingFullViewingKeys[ivk]
	if !ok {
		return SaplingExtendedSpendingKey{}, fmt.Errorf("no full "+
			"viewing key for incoming viewing key: %w",
			ErrChainBroken)
	}

	sk, ok := s.saplingSpendingKeys[fvk]
	if !ok {
		return SaplingExtendedSpendingKey{}, fmt.Errorf("no "+
			"spending key for full viewing key: %w", ErrChainBroken)
	}

	return sk, nil
}
