// Package bitcoin decodes and encodes the Bitcoin transaction wire format
// consumed by stamp verification.
//
// Only the legacy (non-segwit) serialization is supported, which is what the
// relay protocol commits to: stamp transactions are carried verbatim inside
// messages and their P2PKH outputs are matched against derived keys.
//
// Layout:
//
//	version (4, LE) | n_in (varint) | inputs | n_out (varint) | outputs | lock_time (4, LE)
//	input:  prev_txid (32) | prev_vout (4, LE) | script_len (varint) | script | sequence (4, LE)
//	output: value (8, LE) | script_len (varint) | script
package bitcoin

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

const (
	outpointSize = 32 + 4

	// Smallest possible encodings, used to bound counts before allocating.
	minInputSize  = outpointSize + 1 + 4
	minOutputSize = 8 + 1
)

// ErrTrailingBytes is returned when bytes remain after the lock time.
var ErrTrailingBytes = errors.New("trailing bytes after transaction")

// Outpoint references an output of a previous transaction.
type Outpoint struct {
	TxID [32]byte
	Vout uint32
}

// Input is a transaction input.
type Input struct {
	Outpoint Outpoint
	Script   Script
	Sequence uint32
}

// Output is a transaction output.
type Output struct {
	Value  uint64
	Script Script
}

// Transaction is a decoded Bitcoin transaction.
type Transaction struct {
	Version  uint32
	Inputs   []Input
	Outputs  []Output
	LockTime uint32
}

// DecodeTransaction parses raw transaction bytes.
// Returns an error if the bytes are truncated, malformed, or followed by
// anything other than the end of input.
func DecodeTransaction(data []byte) (*Transaction, error) {
	r := bytes.NewReader(data)
	tx := &Transaction{}

	if err := binary.Read(r, binary.LittleEndian, &tx.Version); err != nil {
		return nil, fmt.Errorf("reading version: %w", err)
	}

	numInputs, err := ReadVarInt(r)
	if err != nil {
		return nil, fmt.Errorf("reading input count: %w", err)
	}
	if numInputs > uint64(r.Len()/minInputSize) {
		return nil, fmt.Errorf("input count %d exceeds remaining %d bytes", numInputs, r.Len())
	}
	tx.Inputs = make([]Input, numInputs)
	for i := range tx.Inputs {
		if err := readInput(r, &tx.Inputs[i]); err != nil {
			return nil, fmt.Errorf("parsing input %d: %w", i, err)
		}
	}

	numOutputs, err := ReadVarInt(r)
	if err != nil {
		return nil, fmt.Errorf("reading output count: %w", err)
	}
	if numOutputs > uint64(r.Len()/minOutputSize) {
		return nil, fmt.Errorf("output count %d exceeds remaining %d bytes", numOutputs, r.Len())
	}
	tx.Outputs = make([]Output, numOutputs)
	for i := range tx.Outputs {
		if err := readOutput(r, &tx.Outputs[i]); err != nil {
			return nil, fmt.Errorf("parsing output %d: %w", i, err)
		}
	}

	if err := binary.Read(r, binary.LittleEndian, &tx.LockTime); err != nil {
		return nil, fmt.Errorf("reading lock_time: %w", err)
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("%w: %d", ErrTrailingBytes, r.Len())
	}

	return tx, nil
}

// readInput reads a single input.
func readInput(r *bytes.Reader, in *Input) error {
	if _, err := io.ReadFull(r, in.Outpoint.TxID[:]); err != nil {
		return fmt.Errorf("reading prevout txid: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &in.Outpoint.Vout); err != nil {
		return fmt.Errorf("reading prevout index: %w", err)
	}

	script, err := readScript(r)
	if err != nil {
		return fmt.Errorf("reading scriptSig: %w", err)
	}
	in.Script = script

	if err := binary.Read(r, binary.LittleEndian, &in.Sequence); err != nil {
		return fmt.Errorf("reading sequence: %w", err)
	}
	return nil
}

// readOutput reads a single output.
func readOutput(r *bytes.Reader, out *Output) error {
	if err := binary.Read(r, binary.LittleEndian, &out.Value); err != nil {
		return fmt.Errorf("reading value: %w", err)
	}

	script, err := readScript(r)
	if err != nil {
		return fmt.Errorf("reading scriptPubKey: %w", err)
	}
	out.Script = script
	return nil
}

func readScript(r *bytes.Reader) (Script, error) {
	scriptLen, err := ReadVarInt(r)
	if err != nil {
		return nil, fmt.Errorf("length: %w", err)
	}
	if scriptLen > uint64(r.Len()) {
		return nil, fmt.Errorf("script length %d exceeds remaining %d bytes: %w",
			scriptLen, r.Len(), io.ErrUnexpectedEOF)
	}
	script := make(Script, scriptLen)
	if _, err := io.ReadFull(r, script); err != nil {
		return nil, err
	}
	return script, nil
}

// Encode serializes the transaction to the wire format.
func (tx *Transaction) Encode() []byte {
	b := make([]byte, 0, tx.SerializeSize())
	b = binary.LittleEndian.AppendUint32(b, tx.Version)

	b = AppendVarInt(b, uint64(len(tx.Inputs)))
	for _, in := range tx.Inputs {
		b = append(b, in.Outpoint.TxID[:]...)
		b = binary.LittleEndian.AppendUint32(b, in.Outpoint.Vout)
		b = AppendVarInt(b, uint64(len(in.Script)))
		b = append(b, in.Script...)
		b = binary.LittleEndian.AppendUint32(b, in.Sequence)
	}

	b = AppendVarInt(b, uint64(len(tx.Outputs)))
	for _, out := range tx.Outputs {
		b = binary.LittleEndian.AppendUint64(b, out.Value)
		b = AppendVarInt(b, uint64(len(out.Script)))
		b = append(b, out.Script...)
	}

	return binary.LittleEndian.AppendUint32(b, tx.LockTime)
}

// SerializeSize returns the number of bytes Encode produces.
func (tx *Transaction) SerializeSize() int {
	n := 4 + VarIntSize(uint64(len(tx.Inputs))) + VarIntSize(uint64(len(tx.Outputs))) + 4
	for _, in := range tx.Inputs {
		n += outpointSize + VarIntSize(uint64(len(in.Script))) + len(in.Script) + 4
	}
	for _, out := range tx.Outputs {
		n += 8 + VarIntSize(uint64(len(out.Script))) + len(out.Script)
	}
	return n
}

// TxID returns the double SHA-256 of the encoding in internal byte order.
func (tx *Transaction) TxID() [32]byte {
	first := sha256.Sum256(tx.Encode())
	return sha256.Sum256(first[:])
}

// TxIDString returns the transaction id in the conventional reversed hex form.
func (tx *Transaction) TxIDString() string {
	id := tx.TxID()
	for i, j := 0, len(id)-1; i < j; i, j = i+1, j-1 {
		id[i], id[j] = id[j], id[i]
	}
	return hex.EncodeToString(id[:])
}

// TotalOutput returns the sum of all output values.
func (tx *Transaction) TotalOutput() uint64 {
	var total uint64
	for _, out := range tx.Outputs {
		total += out.Value
	}
	return total
}
