package identity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestParseSubNames asserts that hierarchical names are sanitized, split
// and truncated into ordered sub-name components.
func TestParseSubNames(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "leaf first ancestors after",
			input:    "Alice.Bob@Eve",
			expected: []string{"Alice", "Bob", "Eve"},
		},
		{
			name:     "forbidden chars replaced",
			input:    "A/B.C",
			expected: []string{"A_B", "C"},
		},
		{
			name:     "all forbidden chars replaced",
			input:    `a\b/c:d*e?f"g<h>i|j`,
			expected: []string{"a_b_c_d_e_f_g_h_i_j"},
		},
		{
			name:     "single component",
			input:    "alice",
			expected: []string{"alice"},
		},
		{
			name:     "empty name",
			input:    "",
			expected: []string{""},
		},
		{
			name:     "trailing separator yields empty ancestor",
			input:    "alice.",
			expected: []string{"alice", ""},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			require.Equal(t, tc.expected, ParseSubNames(tc.input))
		})
	}
}

// TestParseSubNamesTruncation asserts that over-long sub-names are cut to
// the protocol bound.
func TestParseSubNamesTruncation(t *testing.T) {
	t.Parallel()

	longName := strings.Repeat("a", MaxSubNameLen+10)
	subNames := ParseSubNames(longName)

	require.Len(t, subNames, 1)
	require.Len(t, subNames[0], MaxSubNameLen-1)
}

// TestCleanName asserts that ancestor components are folded into the
// parent identifier while the leaf keeps its original casing.
func TestCleanName(t *testing.T) {
	t.Parallel()

	// A single-component name leaves the parent untouched.
	parent := ZeroID
	leaf := CleanName("Alice", &parent)
	require.Equal(t, "Alice", leaf)
	require.Equal(t, ZeroID, parent)

	// The immediate ancestor chains into the parent. Folding a single
	// ancestor from a null parent is the same derivation as computing
	// that ancestor's own identifier.
	parent = ZeroID
	leaf = CleanName("Alice.Bob", &parent)
	require.Equal(t, "Alice", leaf)
	require.Equal(t, NameID("bob", ZeroID), parent)

	// Casing of ancestors does not matter, the leaf's casing survives.
	other := ZeroID
	leaf = CleanName("ALICE.BOB", &other)
	require.Equal(t, "ALICE", leaf)
	require.Equal(t, parent, other)

	// An empty name yields an empty leaf and no parent mutation.
	parent = ZeroID
	require.Equal(t, "", CleanName("", &parent))
	require.Equal(t, ZeroID, parent)

	// A nil parent stands in for ZeroID, so multipart names still parse
	// when the caller has no chain to update.
	require.Equal(t, "Alice", CleanName("Alice.Bob", nil))
	require.Equal(t, "", CleanName("", nil))
}

// TestNameIDDeterminism asserts that repeated derivations of the same name
// and parent always produce the same identifier.
func TestNameIDDeterminism(t *testing.T) {
	t.Parallel()

	parent := NameID("root", ZeroID)

	first := NameID("alice.root", parent)
	for i := 0; i < 10; i++ {
		require.Equal(t, first, NameID("alice.root", parent))
	}
}

// TestNameIDProperties pins down the observable derivation behavior:
// case-insensitivity, parent chaining, and the fact that the identifier is
// bound to the unsplit name rather than the canonicalized components.
func TestNameIDProperties(t *testing.T) {
	t.Parallel()

	// The whole name is lowercased before hashing.
	require.Equal(t, NameID("Alice", ZeroID), NameID("alice", ZeroID))

	// A different parent produces a different identifier.
	parent := NameID("root", ZeroID)
	require.NotEqual(t, NameID("alice", ZeroID), NameID("alice", parent))

	// The identifier of a multipart name is derived from the full
	// lowercased string combined with the caller's parent, not from the
	// leaf chained through its ancestors. Both forms are committed on
	// chain as distinct values.
	chained := NameID("alice", NameID("bob", ZeroID))
	require.NotEqual(t, chained, NameID("alice.bob", ZeroID))
}

// TestIDRoundTrip asserts that identifiers survive the address encoding.
func TestIDRoundTrip(t *testing.T) {
	t.Parallel()

	id := NameID("alice", ZeroID)

	parsed, err := ParseID(id.String())
	require.NoError(t, err)
	require.Equal(t, id, parsed)

	_, err = ParseID("not an address")
	require.Error(t, err)
}
