package keystore

import (
	"bytes"
	"testing"

	"github.com/nameledger/custody/identity"
	"github.com/stretchr/testify/require"
)

// identityScript builds a spend-condition script whose payload defines the
// passed identity.
func identityScript(t *testing.T, ident *identity.Identity) []byte {
	t.Helper()

	var payload bytes.Buffer
	require.NoError(t, ident.Encode(&payload))

	script, err := EncodeCondition(&Condition{
		Version:  ConditionVersionFirst,
		EvalCode: EvalIdentityPrimary,
		M:        1,
		N:        1,
		Data:     [][]byte{payload.Bytes()},
	})
	require.NoError(t, err)

	return script
}

// TestConditionRoundTrip asserts that spend-conditions survive the
// envelope codec.
func TestConditionRoundTrip(t *testing.T) {
	t.Parallel()

	cond := &Condition{
		Version:  ConditionVersionCurrent,
		EvalCode: EvalIdentityCommitment,
		M:        2,
		N:        3,
		Data:     [][]byte{{0x01, 0x02}, {0x03}},
	}

	script, err := EncodeCondition(cond)
	require.NoError(t, err)

	var dec envelopeDecoder
	decoded, err := dec.Decode(script)
	require.NoError(t, err)
	require.Equal(t, cond, decoded)
	require.True(t, decoded.IsValid())
}

// TestConditionDecodeRejects asserts that scripts which are not structured
// spend-conditions fail to decode.
func TestConditionDecodeRejects(t *testing.T) {
	t.Parallel()

	var dec envelopeDecoder

	testCases := []struct {
		name   string
		script []byte
	}{
		{
			name:   "empty script",
			script: nil,
		},
		{
			name:   "missing terminator",
			script: []byte{0x02, 0x01, 0x02, 0x03},
		},
		{
			name: "truncated params",
			script: []byte{
				0x10, 0x01, OpCheckCryptoCondition,
			},
		},
		{
			name: "trailing bytes",
			script: []byte{
				0x01, 0x01, 0xff, OpCheckCryptoCondition,
			},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := dec.Decode(tc.script)
			require.Error(t, err)
		})
	}
}

// TestConditionValidity asserts the version and threshold rules.
func TestConditionValidity(t *testing.T) {
	t.Parallel()

	valid := Condition{
		Version: ConditionVersionFirst,
		M:       1,
		N:       1,
	}
	require.True(t, valid.IsValid())

	badVersion := valid
	badVersion.Version = 0
	require.False(t, badVersion.IsValid())

	badThreshold := valid
	badThreshold.M = 2
	require.False(t, badThreshold.IsValid())
}

// TestScriptOrIdentityID asserts that identity-bearing scripts are keyed
// by the identifier of the identity they define rather than their own
// hash, and that everything else falls back to the script hash.
func TestScriptOrIdentityID(t *testing.T) {
	t.Parallel()

	store := NewStore(nil)

	ident := &identity.Identity{
		Version: identity.VersionCurrent,
		Name:    "alice",
	}
	script := identityScript(t, ident)

	scriptID, err := store.AddScript(script)
	require.NoError(t, err)

	// The script is retrievable by the identity's identifier, not by
	// its own hash.
	require.Equal(t, ScriptID(ident.NameID()), scriptID)
	require.False(t, store.HaveScript(NewScriptID(script)))

	got, err := store.GetScript(scriptID)
	require.NoError(t, err)
	require.Equal(t, script, got)

	// A condition with a different eval code keys by script hash.
	commitScript, err := EncodeCondition(&Condition{
		Version:  ConditionVersionFirst,
		EvalCode: EvalIdentityCommitment,
		M:        1,
		N:        1,
		Data:     [][]byte{{0xaa}},
	})
	require.NoError(t, err)
	require.Equal(
		t, NewScriptID(commitScript),
		store.ScriptOrIdentityID(commitScript),
	)

	// An identity-primary condition with an invalid identity payload
	// keys by script hash as well.
	invalid := &identity.Identity{Version: identity.VersionInvalid}
	invalidScript := identityScript(t, invalid)
	require.Equal(
		t, NewScriptID(invalidScript),
		store.ScriptOrIdentityID(invalidScript),
	)

	// So does a plain, unstructured script.
	plain := []byte{0x76, 0xa9}
	require.Equal(t, NewScriptID(plain), store.ScriptOrIdentityID(plain))
}
