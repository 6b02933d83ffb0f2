package identity

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/base58"
)

// IDSize is the size in bytes of an identity identifier.
const IDSize = 20

// idAddrVersion is the base58-check version byte used when rendering an
// identity identifier as an address.
const idAddrVersion = 102

// ZeroID is the all-zero identifier. It is used to express "no parent" in
// derivation contexts.
var ZeroID ID

// ID is the 160-bit identifier of an identity. It is deterministically
// derived from the identity's name and parent and is binary-compatible with
// any other public-key-hash style identifier, so it can stand in for one in
// script and address contexts.
type ID [IDSize]byte

// String returns the base58-check address form of the identifier.
func (id ID) String() string {
	return base58.CheckEncode(id[:], idAddrVersion)
}

// Hex returns the identifier as a hexadecimal string.
func (id ID) Hex() string {
	return hex.EncodeToString(id[:])
}

// NewIDFromBytes returns an ID from a byte slice. An error is returned if
// the number of bytes passed in is not IDSize.
func NewIDFromBytes(b []byte) (ID, error) {
	if len(b) != IDSize {
		return ID{}, fmt.Errorf("invalid id length of %v, want %v",
			len(b), IDSize)
	}

	var id ID
	copy(id[:], b)

	return id, nil
}

// ParseID decodes an identifier from its base58-check address form.
func ParseID(addr string) (ID, error) {
	decoded, version, err := base58.CheckDecode(addr)
	if err != nil {
		return ID{}, err
	}
	if version != idAddrVersion {
		return ID{}, fmt.Errorf("invalid id address version %d, "+
			"want %d", version, idAddrVersion)
	}

	return NewIDFromBytes(decoded)
}

const (
	// VersionInvalid marks an identity that carries no usable version.
	VersionInvalid uint32 = 0

	// VersionFirst is the lowest identity version considered valid.
	VersionFirst uint32 = 1

	// VersionCurrent is the version assigned to newly defined identities.
	VersionCurrent uint32 = 1
)

// FlagRevoked is set on an identity whose primary authority has been
// revoked. Such an identity can only be recovered by its recovery
// authority.
const FlagRevoked uint32 = 0x8000

// Identity is an on-chain identity record. The protocol defines more
// fields than are custodied here; this core only retains what it needs to
// derive identifiers and track revocation, and treats the rest as opaque.
type Identity struct {
	// Version is the identity record version.
	Version uint32

	// Flags holds the identity state bits, such as FlagRevoked.
	Flags uint32

	// Parent is the identifier of the namespace this identity was
	// defined under, or ZeroID for a root identity.
	Parent ID

	// Name is the leaf name of the identity within its parent
	// namespace.
	Name string

	// RevocationAuthority identifies the identity that may revoke this
	// one.
	RevocationAuthority ID

	// RecoveryAuthority identifies the identity that may recover this
	// one once revoked.
	RecoveryAuthority ID
}

// IsValid returns true if the identity carries a known version and a
// non-empty name.
func (i *Identity) IsValid() bool {
	return i.Version >= VersionFirst && i.Version <= VersionCurrent &&
		len(i.Name) > 0
}

// IsRevoked returns true if the identity has been revoked.
func (i *Identity) IsRevoked() bool {
	return i.Flags&FlagRevoked == FlagRevoked
}

// NameID derives the identity's canonical identifier from its own name and
// parent.
func (i *Identity) NameID() ID {
	return NameID(i.Name, i.Parent)
}
