package keystore

import (
	"bytes"
	"errors"
	"io"

	"github.com/btcsuite/btcd/wire"
	"github.com/nameledger/custody/identity"
)

const (
	// MaxScriptSize is the largest script the store will custody, in
	// bytes, matching the script element limit of the surrounding
	// system.
	MaxScriptSize = 520

	// OpCheckCryptoCondition is the opcode that terminates a structured
	// spend-condition envelope.
	OpCheckCryptoCondition = 0xcc

	// ConditionVersionFirst is the lowest structured spend-condition
	// version considered valid.
	ConditionVersionFirst = 1

	// ConditionVersionCurrent is the highest structured spend-condition
	// version considered valid.
	ConditionVersionCurrent = 3
)

// EvalCode selects the protocol evaluation applied to a structured
// spend-condition when it is spent.
type EvalCode uint8

const (
	// EvalNone marks a condition with no protocol evaluation attached.
	EvalNone EvalCode = 0x00

	// EvalIdentityPrimary marks a condition whose payload defines an
	// identity under its primary authority.
	EvalIdentityPrimary EvalCode = 0x1e

	// EvalIdentityRevoke marks a condition that revokes an identity.
	EvalIdentityRevoke EvalCode = 0x1f

	// EvalIdentityRecover marks a condition that recovers a revoked
	// identity.
	EvalIdentityRecover EvalCode = 0x20

	// EvalIdentityCommitment marks a condition that commits to a name
	// ahead of its registration.
	EvalIdentityCommitment EvalCode = 0x21
)

// Condition is a decoded structured spend-condition: an m-of-n spend
// clause with an evaluation code and optional protocol payload data.
type Condition struct {
	// Version is the condition format version.
	Version uint8

	// EvalCode is the protocol evaluation attached to the condition.
	EvalCode EvalCode

	// M is the number of sub-condition satisfactions required.
	M uint8

	// N is the total number of sub-conditions.
	N uint8

	// Data holds the protocol payloads carried by the condition, such
	// as an identity definition.
	Data [][]byte
}

// IsValid returns true if the condition carries a known version and a
// satisfiable threshold.
func (c *Condition) IsValid() bool {
	return c.Version >= ConditionVersionFirst &&
		c.Version <= ConditionVersionCurrent &&
		c.M <= c.N
}

// ConditionDecoder decodes a raw script into a structured spend-condition.
// Implementations return an error for scripts that are not structured
// conditions at all; well-formedness of the decoded condition is judged
// separately via Condition.IsValid.
type ConditionDecoder interface {
	// Decode returns the condition encoded in script.
	Decode(script []byte) (*Condition, error)
}

// envelopeDecoder is the default ConditionDecoder. It parses the native
// envelope format: a var-bytes wrapped parameter block terminated by
// OpCheckCryptoCondition, where the block is version, eval code, m, n,
// followed by a var-int counted list of var-bytes payloads.
type envelopeDecoder struct{}

// A compile time check to ensure envelopeDecoder implements the
// ConditionDecoder interface.
var _ ConditionDecoder = (*envelopeDecoder)(nil)

// Decode returns the condition encoded in script.
//
// NOTE: This function is part of the ConditionDecoder interface.
func (envelopeDecoder) Decode(script []byte) (*Condition, error) {
	if len(script) < 2 ||
		script[len(script)-1] != OpCheckCryptoCondition {

		return nil, errors.New("not a structured spend condition")
	}

	r := bytes.NewReader(script[:len(script)-1])
	params, err := wire.ReadVarBytes(r, 0, MaxScriptSize, "condition")
	if err != nil {
		return nil, err
	}
	if r.Len() != 0 {
		return nil, errors.New("trailing bytes after condition")
	}

	pr := bytes.NewReader(params)
	var hdr [4]byte
	if _, err := io.ReadFull(pr, hdr[:]); err != nil {
		return nil, err
	}

	cond := &Condition{
		Version:  hdr[0],
		EvalCode: EvalCode(hdr[1]),
		M:        hdr[2],
		N:        hdr[3],
	}

	numData, err := wire.ReadVarInt(pr, 0)
	if err != nil {
		return nil, err
	}
	for i := uint64(0); i < numData; i++ {
		data, err := wire.ReadVarBytes(
			pr, 0, MaxScriptSize, "condition data",
		)
		if err != nil {
			return nil, err
		}
		cond.Data = append(cond.Data, data)
	}
	if pr.Len() != 0 {
		return nil, errors.New("trailing bytes after condition data")
	}

	return cond, nil
}

// EncodeCondition serializes a structured spend-condition into its script
// envelope form, the inverse of the default decoder.
func EncodeCondition(cond *Condition) ([]byte, error) {
	var params bytes.Buffer
	params.Write([]byte{
		cond.Version, byte(cond.EvalCode), cond.M, cond.N,
	})

	err := wire.WriteVarInt(&params, 0, uint64(len(cond.Data)))
	if err != nil {
		return nil, err
	}
	for _, data := range cond.Data {
		if err := wire.WriteVarBytes(&params, 0, data); err != nil {
			return nil, err
		}
	}

	var script bytes.Buffer
	if err := wire.WriteVarBytes(&script, 0, params.Bytes()); err != nil {
		return nil, err
	}
	if err := script.WriteByte(OpCheckCryptoCondition); err != nil {
		return nil, err
	}

	return script.Bytes(), nil
}

// ScriptOrIdentityID resolves the storage identifier for a script. A
// well-formed spend-condition that carries the identity-primary eval code
// with a payload that parses as a valid identity definition is keyed by
// that identity's identifier. Every other script is keyed by its own
// hash.
func (s *Store) ScriptOrIdentityID(script []byte) ScriptID {
	cond, err := s.cfg.Decoder.Decode(script)
	if err == nil && cond.IsValid() &&
		cond.EvalCode == EvalIdentityPrimary && len(cond.Data) > 0 {

		ident, err := identity.ParseIdentity(cond.Data[0])
		if err == nil && ident.IsValid() {
			return ScriptID(ident.NameID())
		}
	}

	return NewScriptID(script)
}
