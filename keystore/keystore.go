package keystore

import (
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/nameledger/custody/identity"
)

var (
	// ErrAlreadyExists is returned when an add would clobber state that
	// may only be written once, such as the wallet seed or a registered
	// identity.
	ErrAlreadyExists = errors.New("entry already exists")

	// ErrNotFound is returned when a requested key, script, viewing key
	// or identity is not present in the store.
	ErrNotFound = errors.New("entry not found")

	// ErrOversizedScript is returned when a script larger than
	// MaxScriptSize is added to the store.
	ErrOversizedScript = fmt.Errorf("script exceeds %d bytes",
		MaxScriptSize)

	// ErrChainBroken is returned by the chained address to spending key
	// lookup when any hop of the viewing key chain is missing.
	ErrChainBroken = errors.New("viewing key chain broken")

	// ErrNoDeriver is returned by operations that need a shielded key
	// deriver when none was configured.
	ErrNoDeriver = errors.New("no key deriver configured")
)

// KeyIDSize is the size in bytes of a transparent key identifier.
const KeyIDSize = 20

// KeyID identifies a transparent keypair by the 160-bit hash of its
// compressed public key.
type KeyID [KeyIDSize]byte

// NewKeyID derives the identifier of the given public key.
func NewKeyID(pub *btcec.PublicKey) KeyID {
	var keyID KeyID
	copy(keyID[:], btcutil.Hash160(pub.SerializeCompressed()))
	return keyID
}

// String returns the key identifier as a hexadecimal string.
func (k KeyID) String() string {
	return hex.EncodeToString(k[:])
}

// ScriptID identifies a stored script. It is either the 160-bit hash of
// the script itself or, for identity-bearing spend-conditions, the
// identifier of the encoded identity. The two key spaces are binary
// compatible and deliberately shared.
type ScriptID [identity.IDSize]byte

// NewScriptID derives the plain hash identifier of a script, ignoring any
// identity it may encode. Most callers want Store.ScriptOrIdentityID
// instead.
func NewScriptID(script []byte) ScriptID {
	var scriptID ScriptID
	copy(scriptID[:], btcutil.Hash160(script))
	return scriptID
}

// String returns the script identifier as a hexadecimal string.
func (s ScriptID) String() string {
	return hex.EncodeToString(s[:])
}

// HDSeed is the wallet's hierarchical-deterministic master seed. A store
// holds at most one, and once set it can never be replaced.
type HDSeed []byte

// Config packages the external collaborators a Store needs: the structured
// spend-condition decoder and the two shielded key derivers. A nil Decoder
// falls back to the default envelope decoder; a nil deriver disables the
// corresponding shielded add operations.
type Config struct {
	// Decoder decodes scripts into structured spend-conditions.
	Decoder ConditionDecoder

	// SproutDeriver derives dependent key material for the older
	// shielded generation.
	SproutDeriver SproutKeyDeriver

	// SaplingDeriver derives dependent key material for the newer
	// shielded generation.
	SaplingDeriver SaplingKeyDeriver
}

// Store is an in-memory custody store for transparent keys and scripts,
// watch-only scripts, the wallet seed, on-chain identities and two
// generations of shielded keys.
//
// The store is safe for concurrent use. It carries two independent lock
// domains: one for the transparent state (keys, scripts, watch-only set,
// seed and identity registry) and one for all shielded key state.
// Operations within a domain are linearizable; operations across domains
// may interleave freely.
type Store struct {
	cfg Config

	// mtx guards the transparent custody state below it, including the
	// identity registry.
	mtx        sync.RWMutex
	keys       map[KeyID]*btcec.PrivateKey
	scripts    map[ScriptID][]byte
	watchOnly  fn.Set[string]
	hdSeed     fn.Option[HDSeed]
	identities map[identity.ID]*identity.History

	// shieldedMtx guards all shielded key state across both protocol
	// generations.
	shieldedMtx                sync.RWMutex
	sproutSpendingKeys         map[SproutPaymentAddress]SproutSpendingKey
	sproutViewingKeys          map[SproutPaymentAddress]SproutViewingKey
	noteDecryptors             map[SproutPaymentAddress]NoteDecryptor
	saplingSpendingKeys        map[SaplingFullViewingKey]SaplingExtendedSpendingKey
	saplingFullViewingKeys     map[SaplingIncomingViewingKey]SaplingFullViewingKey
	saplingIncomingViewingKeys map[SaplingPaymentAddress]SaplingIncomingViewingKey
}

// NewStore creates an empty custody store wired to the collaborators in
// cfg. A nil cfg is treated as the zero Config.
func NewStore(cfg *Config) *Store {
	var config Config
	if cfg != nil {
		config = *cfg
	}
	if config.Decoder == nil {
		config.Decoder = envelopeDecoder{}
	}

	return &Store{
		cfg:        config,
		keys:       make(map[KeyID]*btcec.PrivateKey),
		scripts:    make(map[ScriptID][]byte),
		watchOnly:  fn.NewSet[string](),
		hdSeed:     fn.None[HDSeed](),
		identities: make(map[identity.ID]*identity.History),

		sproutSpendingKeys: make(
			map[SproutPaymentAddress]SproutSpendingKey,
		),
		sproutViewingKeys: make(
			map[SproutPaymentAddress]SproutViewingKey,
		),
		noteDecryptors: make(map[SproutPaymentAddress]NoteDecryptor),
		saplingSpendingKeys: make(
			map[SaplingFullViewingKey]SaplingExtendedSpendingKey,
		),
		saplingFullViewingKeys: make(
			map[SaplingIncomingViewingKey]SaplingFullViewingKey,
		),
		saplingIncomingViewingKeys: make(
			map[SaplingPaymentAddress]SaplingIncomingViewingKey,
		),
	}
}

// AddKey stores a transparent keypair under the hash of its public key and
// returns that identifier. Adding a key that hashes to an existing entry
// overwrites it.
func (s *Store) AddKey(priv *btcec.PrivateKey) KeyID {
	keyID := NewKeyID(priv.PubKey())

	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.keys[keyID] = priv

	return keyID
}

// HaveKey returns true if the store holds the keypair with the given
// identifier.
func (s *Store) HaveKey(keyID KeyID) bool {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	_, ok := s.keys[keyID]
	return ok
}

// GetKey returns the keypair stored under the given identifier.
func (s *Store) GetKey(keyID KeyID) (*btcec.PrivateKey, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	priv, ok := s.keys[keyID]
	if !ok {
		return nil, fmt.Errorf("key %v: %w", keyID, ErrNotFound)
	}

	return priv, nil
}

// GetPubKey returns the public half of the keypair stored under the given
// identifier.
func (s *Store) GetPubKey(keyID KeyID) (*btcec.PublicKey, error) {
	priv, err := s.GetKey(keyID)
	if err != nil {
		return nil, err
	}

	return priv.PubKey(), nil
}

// AddScript stores a script under its resolved identifier and returns
// that identifier: identity-bearing spend-conditions are keyed by the
// identifier of the identity they define, all other scripts by their own
// hash. Scripts above MaxScriptSize are rejected. Adding a script that
// resolves to an existing entry overwrites it.
func (s *Store) AddScript(script []byte) (ScriptID, error) {
	if len(script) > MaxScriptSize {
		return ScriptID{}, ErrOversizedScript
	}

	scriptID := s.ScriptOrIdentityID(script)

	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.scripts[scriptID] = append([]byte(nil), script...)

	log.Tracef("Stored script %v (%d bytes)", scriptID, len(script))

	return scriptID, nil
}

// HaveScript returns true if a script is stored under the given
// identifier.
func (s *Store) HaveScript(scriptID ScriptID) bool {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	_, ok := s.scripts[scriptID]
	return ok
}

// GetScript returns the script stored under the given identifier.
func (s *Store) GetScript(scriptID ScriptID) ([]byte, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	script, ok := s.scripts[scriptID]
	if !ok {
		return nil, fmt.Errorf("script %v: %w", scriptID, ErrNotFound)
	}

	return append([]byte(nil), script...), nil
}

// AddWatchOnly marks a script as watched. Re-adding a watched script is a
// no-op.
func (s *Store) AddWatchOnly(script []byte) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.watchOnly.Add(string(script))
}

// RemoveWatchOnly removes a script from the watched set. Removing a script
// that is not watched is a no-op.
func (s *Store) RemoveWatchOnly(script []byte) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.watchOnly.Remove(string(script))
}

// HaveWatchOnly returns true if the given script is watched.
func (s *Store) HaveWatchOnly(script []byte) bool {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	return s.watchOnly.Contains(string(script))
}

// HaveAnyWatchOnly returns true if at least one script is watched.
func (s *Store) HaveAnyWatchOnly() bool {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	return !s.watchOnly.IsEmpty()
}

// SetHDSeed stores the wallet seed. An existing seed is never replaced:
// once set, the call fails with ErrAlreadyExists and the stored seed is
// left as is.
func (s *Store) SetHDSeed(seed HDSeed) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.hdSeed.IsSome() {
		return fmt.Errorf("hd seed: %w", ErrAlreadyExists)
	}

	s.hdSeed = fn.Some(append(HDSeed{}, seed...))

	log.Debug("Wallet seed set")

	return nil
}

// HaveHDSeed returns true if a wallet seed has been set.
func (s *Store) HaveHDSeed() bool {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	return s.hdSeed.IsSome()
}

// GetHDSeed returns a copy of the wallet seed. Presence is judged by the
// seed slot itself, so a seed that was set is always retrievable, even an
// empty one.
func (s *Store) GetHDSeed() (HDSeed, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	if s.hdSeed.IsNone() {
		return nil, fmt.Errorf("hd seed: %w", ErrNotFound)
	}

	seed := s.hdSeed.UnwrapOr(nil)

	return append(HDSeed{}, seed...), nil
}
