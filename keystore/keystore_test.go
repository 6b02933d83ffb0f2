package keystore

import (
	"bytes"
	"sync"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"
)

// TestKeyStorage asserts that keypairs are stored and retrieved under the
// hash of their public key.
func TestKeyStorage(t *testing.T) {
	t.Parallel()

	store := NewStore(nil)

	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	keyID := store.AddKey(priv)
	require.Equal(t, NewKeyID(priv.PubKey()), keyID)
	require.True(t, store.HaveKey(keyID))

	got, err := store.GetKey(keyID)
	require.NoError(t, err)
	require.Equal(t, priv.Serialize(), got.Serialize())

	pub, err := store.GetPubKey(keyID)
	require.NoError(t, err)
	require.True(t, priv.PubKey().IsEqual(pub))

	// Re-adding the same key overwrites in place.
	require.Equal(t, keyID, store.AddKey(priv))

	// Unknown identifiers are not found.
	require.False(t, store.HaveKey(KeyID{0x01}))
	_, err = store.GetKey(KeyID{0x01})
	require.ErrorIs(t, err, ErrNotFound)
}

// TestScriptStorage asserts plain script storage semantics, including the
// size limit.
func TestScriptStorage(t *testing.T) {
	t.Parallel()

	store := NewStore(nil)

	script := []byte{0x76, 0xa9, 0x14, 0x00, 0x88, 0xac}
	scriptID, err := store.AddScript(script)
	require.NoError(t, err)
	require.Equal(t, NewScriptID(script), scriptID)
	require.True(t, store.HaveScript(scriptID))

	got, err := store.GetScript(scriptID)
	require.NoError(t, err)
	require.Equal(t, script, got)

	// Duplicate adds overwrite silently.
	again, err := store.AddScript(script)
	require.NoError(t, err)
	require.Equal(t, scriptID, again)

	// Oversized scripts are rejected without mutation.
	oversized := bytes.Repeat([]byte{0x00}, MaxScriptSize+1)
	_, err = store.AddScript(oversized)
	require.ErrorIs(t, err, ErrOversizedScript)
	require.False(t, store.HaveScript(NewScriptID(oversized)))

	_, err = store.GetScript(ScriptID{0x01})
	require.ErrorIs(t, err, ErrNotFound)
}

// TestWatchOnlySet asserts the plain set semantics of the watch-only
// script set.
func TestWatchOnlySet(t *testing.T) {
	t.Parallel()

	store := NewStore(nil)
	script := []byte{0x51}

	require.False(t, store.HaveAnyWatchOnly())
	require.False(t, store.HaveWatchOnly(script))

	// Adding twice leaves a single membership.
	store.AddWatchOnly(script)
	store.AddWatchOnly(script)
	require.True(t, store.HaveWatchOnly(script))
	require.Len(t, store.watchOnly.ToSlice(), 1)
	require.True(t, store.HaveAnyWatchOnly())

	// Removing a non-member is a no-op.
	store.RemoveWatchOnly([]byte{0x52})
	require.True(t, store.HaveWatchOnly(script))

	store.RemoveWatchOnly(script)
	require.False(t, store.HaveWatchOnly(script))
	require.False(t, store.HaveAnyWatchOnly())
}

// TestHDSeedWriteOnce asserts that the wallet seed can be set exactly
// once.
func TestHDSeedWriteOnce(t *testing.T) {
	t.Parallel()

	store := NewStore(nil)

	require.False(t, store.HaveHDSeed())
	_, err := store.GetHDSeed()
	require.ErrorIs(t, err, ErrNotFound)

	seed1 := HDSeed(bytes.Repeat([]byte{0x01}, 32))
	seed2 := HDSeed(bytes.Repeat([]byte{0x02}, 32))

	require.NoError(t, store.SetHDSeed(seed1))
	require.True(t, store.HaveHDSeed())

	// A second seed is rejected and the first one stands.
	err = store.SetHDSeed(seed2)
	require.ErrorIs(t, err, ErrAlreadyExists)

	got, err := store.GetHDSeed()
	require.NoError(t, err)
	require.Equal(t, seed1, got)

	// The returned seed is a copy, mutating it does not affect the
	// stored one.
	got[0] = 0xff
	again, err := store.GetHDSeed()
	require.NoError(t, err)
	require.Equal(t, seed1, again)
}

// TestHDSeedEmpty asserts that a zero-length seed still honors the
// presence and write-once contracts: once set it reports present, reads
// back, and blocks any replacement.
func TestHDSeedEmpty(t *testing.T) {
	t.Parallel()

	store := NewStore(nil)

	require.NoError(t, store.SetHDSeed(HDSeed{}))
	require.True(t, store.HaveHDSeed())

	got, err := store.GetHDSeed()
	require.NoError(t, err)
	require.Empty(t, got)

	err = store.SetHDSeed(HDSeed(bytes.Repeat([]byte{0x03}, 32)))
	require.ErrorIs(t, err, ErrAlreadyExists)
}

// TestLockDomainsInterleave hammers the transparent and shielded domains
// from concurrent goroutines. The two domains are guarded independently,
// so the operations must interleave freely without racing; run with the
// race detector to get the full benefit.
func TestLockDomainsInterleave(t *testing.T) {
	t.Parallel()

	store := newShieldedStore()

	const numOps = 100

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()

		for i := 0; i < numOps; i++ {
			script := []byte{0x51, byte(i)}
			store.AddWatchOnly(script)
			store.HaveWatchOnly(script)
			store.RemoveWatchOnly(script)
		}
	}()
	go func() {
		defer wg.Done()

		for i := 0; i < numOps; i++ {
			ivk := SaplingIncomingViewingKey{byte(i)}
			addr := SaplingPaymentAddress{byte(i)}
			store.AddSaplingIncomingViewingKey(ivk, addr)
			store.HaveSaplingIncomingViewingKey(addr)
		}
	}()

	wg.Wait()

	require.False(t, store.HaveAnyWatchOnly())
	require.True(t, store.HaveSaplingIncomingViewingKey(
		SaplingPaymentAddress{0x00},
	))
}
