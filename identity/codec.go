package identity

import (
	"bytes"
	"fmt"
	"io"

	"github.com/lightningnetwork/lnd/tlv"
)

// TLV types of the identity-definition payload carried inside structured
// spend-conditions. All records are optional at the codec level: a payload
// missing any of them still decodes, and validity is judged afterwards via
// Identity.IsValid.
const (
	typeVersion    tlv.Type = 0
	typeFlags      tlv.Type = 2
	typeParent     tlv.Type = 4
	typeName       tlv.Type = 6
	typeRevocation tlv.Type = 8
	typeRecovery   tlv.Type = 10
)

// Encode serializes the identity as a TLV stream to the passed writer.
func (i *Identity) Encode(w io.Writer) error {
	parent := i.Parent[:]
	name := []byte(i.Name)
	revocation := i.RevocationAuthority[:]
	recovery := i.RecoveryAuthority[:]

	stream, err := tlv.NewStream(
		tlv.MakePrimitiveRecord(typeVersion, &i.Version),
		tlv.MakePrimitiveRecord(typeFlags, &i.Flags),
		tlv.MakePrimitiveRecord(typeParent, &parent),
		tlv.MakePrimitiveRecord(typeName, &name),
		tlv.MakePrimitiveRecord(typeRevocation, &revocation),
		tlv.MakePrimitiveRecord(typeRecovery, &recovery),
	)
	if err != nil {
		return err
	}

	return stream.Encode(w)
}

// Decode deserializes an identity from the TLV stream in the passed
// reader, replacing the receiver's contents.
func (i *Identity) Decode(r io.Reader) error {
	var (
		parent     []byte
		name       []byte
		revocation []byte
		recovery   []byte
	)

	stream, err := tlv.NewStream(
		tlv.MakePrimitiveRecord(typeVersion, &i.Version),
		tlv.MakePrimitiveRecord(typeFlags, &i.Flags),
		tlv.MakePrimitiveRecord(typeParent, &parent),
		tlv.MakePrimitiveRecord(typeName, &name),
		tlv.MakePrimitiveRecord(typeRevocation, &revocation),
		tlv.MakePrimitiveRecord(typeRecovery, &recovery),
	)
	if err != nil {
		return err
	}

	if err := stream.Decode(r); err != nil {
		return err
	}

	if i.Parent, err = decodeOptionalID(parent); err != nil {
		return fmt.Errorf("parent: %w", err)
	}
	if i.RevocationAuthority, err = decodeOptionalID(revocation); err != nil {
		return fmt.Errorf("revocation authority: %w", err)
	}
	if i.RecoveryAuthority, err = decodeOptionalID(recovery); err != nil {
		return fmt.Errorf("recovery authority: %w", err)
	}
	i.Name = string(name)

	return nil
}

// ParseIdentity decodes an identity-definition payload, such as the one
// carried in an identity-bearing spend-condition.
func ParseIdentity(payload []byte) (*Identity, error) {
	var ident Identity
	if err := ident.Decode(bytes.NewReader(payload)); err != nil {
		return nil, err
	}

	return &ident, nil
}

// decodeOptionalID interprets an ID field that may have been omitted from
// the stream. An absent field decodes as ZeroID.
func decodeOptionalID(b []byte) (ID, error) {
	if len(b) == 0 {
		return ZeroID, nil
	}

	return NewIDFromBytes(b)
}
