package identity

import (
	"bytes"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

const (
	// MaxSubNameLen is the protocol bound on a single sub-name within a
	// hierarchical name. Components longer than MaxSubNameLen-1 bytes are
	// truncated to MaxSubNameLen-1 bytes during parsing.
	MaxSubNameLen = 65

	// invalidNameChars is the set of filesystem-unsafe characters that are
	// mapped to underscores before a name is split into sub-names.
	invalidNameChars = `\/:*?"<>|`
)

// Hasher supplies the two hash primitives used for identifier derivation.
// Hash produces a 256-bit digest over the concatenation of its arguments,
// and Hash160 folds arbitrary input down to the 160-bit identifier space.
// Both must be pure functions: identifiers derived through them are
// committed network-wide, so every participant has to arrive at the exact
// same values for the same inputs.
type Hasher interface {
	// Hash returns the 256-bit digest of the concatenation of data.
	Hash(data ...[]byte) chainhash.Hash

	// Hash160 returns the 160-bit digest of data.
	Hash160(data []byte) [IDSize]byte
}

// chainHasher is the default Hasher, backed by the standard double-SHA256
// and HASH160 constructions.
type chainHasher struct{}

func (chainHasher) Hash(data ...[]byte) chainhash.Hash {
	if len(data) == 1 {
		return chainhash.DoubleHashH(data[0])
	}

	var buf bytes.Buffer
	for _, d := range data {
		buf.Write(d)
	}

	return chainhash.DoubleHashH(buf.Bytes())
}

func (chainHasher) Hash160(data []byte) [IDSize]byte {
	var id [IDSize]byte
	copy(id[:], btcutil.Hash160(data))
	return id
}

// hasher is the Hasher used by all derivation functions in this package.
var hasher Hasher = chainHasher{}

// UseHasher swaps out the hash primitives used for identifier derivation.
// This exists for callers that inject their own consensus hash functions and
// must be called before any identifiers are derived. It is not safe to call
// concurrently with the derivation functions.
func UseHasher(h Hasher) {
	hasher = h
}

// ParseSubNames splits a hierarchical name into its ordered sub-name
// components. Filesystem-unsafe characters are first replaced with
// underscores, the result is split on '.' and '@', and each component is
// truncated to MaxSubNameLen-1 bytes. Order is preserved from the input:
// the leaf component comes first and the outermost ancestor last.
func ParseSubNames(name string) []string {
	sanitized := []byte(name)
	for i := range sanitized {
		if strings.IndexByte(invalidNameChars, sanitized[i]) != -1 {
			sanitized[i] = '_'
		}
	}

	var subNames []string
	clean := string(sanitized)
	start := 0
	for i := 0; i <= len(clean); i++ {
		if i != len(clean) && clean[i] != '.' && clean[i] != '@' {
			continue
		}

		subName := clean[start:i]
		if len(subName) > MaxSubNameLen-1 {
			subName = subName[:MaxSubNameLen-1]
		}
		subNames = append(subNames, subName)

		start = i + 1
	}

	return subNames
}

// CleanName parses a multipart name and chains all of its ancestor
// components into parent, leaving parent set to the identifier of the
// leaf's immediate ancestor. The leaf sub-name is returned with its
// original casing intact. Ancestors are folded in from the outermost one
// down: each is lowercased and hashed, combined with the running parent if
// one is set, and the 160-bit fold of the result becomes the new parent. A
// name that parses to nothing yields an empty leaf and leaves parent
// untouched. A nil parent is treated as ZeroID, with the chained result
// discarded.
func CleanName(name string, parent *ID) string {
	subNames := ParseSubNames(name)
	if len(subNames) == 0 {
		return ""
	}

	if parent == nil {
		parent = new(ID)
	}

	for i := len(subNames) - 1; i > 0; i-- {
		subName := strings.ToLower(subNames[i])

		idHash := hasher.Hash([]byte(subName))
		if *parent != ZeroID {
			idHash = hasher.Hash(parent[:], idHash[:])
		}

		*parent = hasher.Hash160(idHash[:])
	}

	return subNames[0]
}

// NameID derives the canonical 160-bit identifier for name relative to
// parent. The canonicalization pass runs against a scratch copy of parent
// and its results are intentionally discarded: the identifier is bound to
// the lowercased, unsplit name combined with the parent the caller
// supplied. Identifiers computed this way are already committed on chain,
// so the derivation must never change, including the discarded pass.
func NameID(name string, parent ID) ID {
	scratch := parent
	CleanName(name, &scratch)

	idHash := hasher.Hash([]byte(strings.ToLower(name)))
	if parent != ZeroID {
		idHash = hasher.Hash(parent[:], idHash[:])
	}

	return hasher.Hash160(idHash[:])
}
