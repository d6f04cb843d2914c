package bitcoin

import "encoding/hex"

// Opcodes recognised by the stamp verifier.
const (
	OpReturn      byte = 0x6a
	OpDup         byte = 0x76
	OpHash160     byte = 0xa9
	OpPushBytes20 byte = 0x14
	OpEqualVerify byte = 0x88
	OpCheckSig    byte = 0xac
)

const p2pkhScriptLen = 25

// Script is a raw output or input script.
type Script []byte

// NewP2PKHScript creates a P2PKH (Pay-to-Public-Key-Hash) script
// Format: OP_DUP OP_HASH160 <pubkey_hash> OP_EQUALVERIFY OP_CHECKSIG
func NewP2PKHScript(pubKeyHash [20]byte) Script {
	script := make(Script, 0, p2pkhScriptLen)
	script = append(script, OpDup, OpHash160, OpPushBytes20)
	script = append(script, pubKeyHash[:]...)
	script = append(script, OpEqualVerify, OpCheckSig)
	return script
}

// NewOpReturnScript creates a data-carrier script. Data up to 75 bytes is
// pushed with a single direct push opcode.
func NewOpReturnScript(data []byte) Script {
	script := make(Script, 0, 2+len(data))
	script = append(script, OpReturn)
	if len(data) > 0 && len(data) <= 75 {
		script = append(script, byte(len(data)))
	}
	return append(script, data...)
}

// IsP2PKH checks the script against the P2PKH pattern by fixed opcode
// positions.
func (s Script) IsP2PKH() bool {
	return len(s) == p2pkhScriptLen &&
		s[0] == OpDup &&
		s[1] == OpHash160 &&
		s[2] == OpPushBytes20 &&
		s[23] == OpEqualVerify &&
		s[24] == OpCheckSig
}

// IsOpReturn checks whether the script starts with OP_RETURN.
func (s Script) IsOpReturn() bool {
	return len(s) > 0 && s[0] == OpReturn
}

// PubKeyHash returns the 20-byte hash embedded in a P2PKH script. The second
// return value is false for any other script.
func (s Script) PubKeyHash() ([20]byte, bool) {
	var hash [20]byte
	if !s.IsP2PKH() {
		return hash, false
	}
	copy(hash[:], s[3:23])
	return hash, true
}

// Bytes returns the underlying bytes.
func (s Script) Bytes() []byte {
	return s
}

func (s Script) String() string {
	return hex.EncodeToString(s)
}
