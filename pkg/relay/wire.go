package relay

import (
	"fmt"

	"github.com/suffix-labs/cashweb-relay/internal/wire"
	"github.com/suffix-labs/cashweb-relay/pkg/stamp"
)

// EncryptionScheme selects how the payload is protected.
type EncryptionScheme int32

const (
	// SchemeNone carries the payload in the clear. The HMAC is still checked.
	SchemeNone EncryptionScheme = 0

	// SchemeEphemeralDH encrypts the payload with AES-128-CBC under the
	// shared key.
	SchemeEphemeralDH EncryptionScheme = 1
)

func (s EncryptionScheme) String() string {
	switch s {
	case SchemeNone:
		return "NONE"
	case SchemeEphemeralDH:
		return "EPHEMERALDH"
	default:
		return fmt.Sprintf("EncryptionScheme(%d)", int32(s))
	}
}

// Message is the wire form of a relay message.
//
// Field comments give the protobuf field numbers. PayloadDigest may be left
// empty when Payload is present and is then computed from it. Salt keys both
// the shared key and, through it, PayloadHmac = HMAC(shared key, digest).
// ReceivedTime is set by the relay server and is not authenticated.
type Message struct {
	SourcePublicKey      []byte           // 1
	DestinationPublicKey []byte           // 2
	ReceivedTime         int64            // 3
	PayloadDigest        []byte           // 4
	Stamp                *Stamp           // 5
	Scheme               EncryptionScheme // 6
	Salt                 []byte           // 7
	PayloadHmac          []byte           // 8
	PayloadSize          uint64           // 9
	Payload              []byte           // 10
}

// Stamp is the wire form of stamp.Stamp. StampType is kept as the raw wire
// value so an unknown type survives decoding and is rejected by Parse.
type Stamp struct {
	StampType      int32             // 1
	StampOutpoints []*StampOutpoints // 2
}

// StampOutpoints is the wire form of stamp.Outpoints.
type StampOutpoints struct {
	StampTx []byte   // 1
	Vouts   []uint32 // 2, packed
}

// Payload is the plaintext content of a message.
type Payload struct {
	Timestamp int64           // 1
	Entries   []*PayloadEntry // 2
}

// PayloadEntry is one typed item of a payload.
type PayloadEntry struct {
	Kind      string    // 1
	Headers   []*Header // 2
	EntryData []byte    // 3
}

// Header is a name/value pair attached to a payload entry.
type Header struct {
	Name  string // 1
	Value string // 2
}

// Marshal encodes m.
func (m *Message) Marshal() []byte {
	var b []byte
	b = wire.AppendBytes(b, 1, m.SourcePublicKey)
	b = wire.AppendBytes(b, 2, m.DestinationPublicKey)
	b = wire.AppendVarint(b, 3, uint64(m.ReceivedTime))
	b = wire.AppendBytes(b, 4, m.PayloadDigest)
	if m.Stamp != nil {
		b = wire.AppendMessage(b, 5, m.Stamp.Marshal())
	}
	b = wire.AppendVarint(b, 6, uint64(int64(m.Scheme)))
	b = wire.AppendBytes(b, 7, m.Salt)
	b = wire.AppendBytes(b, 8, m.PayloadHmac)
	b = wire.AppendVarint(b, 9, m.PayloadSize)
	b = wire.AppendBytes(b, 10, m.Payload)
	return b
}

// Unmarshal decodes b into m, replacing its contents.
func (m *Message) Unmarshal(b []byte) error {
	*m = Message{}
	r := wire.NewReader(b)
	for r.More() {
		num, typ, err := r.Next()
		if err != nil {
			return fmt.Errorf("decoding message: %w", err)
		}

		var v uint64
		switch num {
		case 1:
			m.SourcePublicKey, err = r.Bytes(typ)
		case 2:
			m.DestinationPublicKey, err = r.Bytes(typ)
		case 3:
			v, err = r.Varint(typ)
			m.ReceivedTime = int64(v)
		case 4:
			m.PayloadDigest, err = r.Bytes(typ)
		case 5:
			var raw []byte
			if raw, err = r.Bytes(typ); err == nil {
				m.Stamp = &Stamp{}
				err = m.Stamp.Unmarshal(raw)
			}
		case 6:
			v, err = r.Varint(typ)
			m.Scheme = EncryptionScheme(int32(v))
		case 7:
			m.Salt, err = r.Bytes(typ)
		case 8:
			m.PayloadHmac, err = r.Bytes(typ)
		case 9:
			m.PayloadSize, err = r.Varint(typ)
		case 10:
			m.Payload, err = r.Bytes(typ)
		default:
			err = r.Skip(num, typ)
		}
		if err != nil {
			return fmt.Errorf("decoding message field %d: %w", num, err)
		}
	}
	return nil
}

// Marshal encodes s.
func (s *Stamp) Marshal() []byte {
	var b []byte
	b = wire.AppendVarint(b, 1, uint64(int64(s.StampType)))
	for _, o := range s.StampOutpoints {
		b = wire.AppendMessage(b, 2, o.Marshal())
	}
	return b
}

// Unmarshal decodes b into s.
func (s *Stamp) Unmarshal(b []byte) error {
	*s = Stamp{}
	r := wire.NewReader(b)
	for r.More() {
		num, typ, err := r.Next()
		if err != nil {
			return err
		}

		switch num {
		case 1:
			var v uint64
			v, err = r.Varint(typ)
			s.StampType = int32(v)
		case 2:
			var raw []byte
			if raw, err = r.Bytes(typ); err == nil {
				o := &StampOutpoints{}
				if err = o.Unmarshal(raw); err == nil {
					s.StampOutpoints = append(s.StampOutpoints, o)
				}
			}
		default:
			err = r.Skip(num, typ)
		}
		if err != nil {
			return fmt.Errorf("stamp field %d: %w", num, err)
		}
	}
	return nil
}

// Marshal encodes o.
func (o *StampOutpoints) Marshal() []byte {
	var b []byte
	b = wire.AppendBytes(b, 1, o.StampTx)
	return wire.AppendPackedUint32s(b, 2, o.Vouts)
}

// Unmarshal decodes b into o.
func (o *StampOutpoints) Unmarshal(b []byte) error {
	*o = StampOutpoints{}
	r := wire.NewReader(b)
	for r.More() {
		num, typ, err := r.Next()
		if err != nil {
			return err
		}

		switch num {
		case 1:
			o.StampTx, err = r.Bytes(typ)
		case 2:
			o.Vouts, err = r.Uint32s(typ, o.Vouts)
		default:
			err = r.Skip(num, typ)
		}
		if err != nil {
			return fmt.Errorf("stamp outpoints field %d: %w", num, err)
		}
	}
	return nil
}

// Parse converts the wire stamp into a stamp.Stamp, validating its type.
func (s *Stamp) Parse() (*stamp.Stamp, error) {
	t, err := stamp.ParseType(s.StampType)
	if err != nil {
		return nil, err
	}

	parsed := &stamp.Stamp{Type: t, Outpoints: make([]stamp.Outpoints, len(s.StampOutpoints))}
	for i, o := range s.StampOutpoints {
		parsed.Outpoints[i] = stamp.Outpoints{StampTx: o.StampTx, Vouts: o.Vouts}
	}
	return parsed, nil
}

// NewStamp converts a stamp.Stamp to its wire form.
func NewStamp(s *stamp.Stamp) *Stamp {
	w := &Stamp{StampType: int32(s.Type), StampOutpoints: make([]*StampOutpoints, len(s.Outpoints))}
	for i, o := range s.Outpoints {
		w.StampOutpoints[i] = &StampOutpoints{StampTx: o.StampTx, Vouts: o.Vouts}
	}
	return w
}

// Marshal encodes p.
func (p *Payload) Marshal() []byte {
	var b []byte
	b = wire.AppendVarint(b, 1, uint64(p.Timestamp))
	for _, e := range p.Entries {
		b = wire.AppendMessage(b, 2, e.Marshal())
	}
	return b
}

// Unmarshal decodes b into p.
func (p *Payload) Unmarshal(b []byte) error {
	*p = Payload{}
	r := wire.NewReader(b)
	for r.More() {
		num, typ, err := r.Next()
		if err != nil {
			return fmt.Errorf("decoding payload: %w", err)
		}

		switch num {
		case 1:
			var v uint64
			v, err = r.Varint(typ)
			p.Timestamp = int64(v)
		case 2:
			var raw []byte
			if raw, err = r.Bytes(typ); err == nil {
				e := &PayloadEntry{}
				if err = e.Unmarshal(raw); err == nil {
					p.Entries = append(p.Entries, e)
				}
			}
		default:
			err = r.Skip(num, typ)
		}
		if err != nil {
			return fmt.Errorf("decoding payload field %d: %w", num, err)
		}
	}
	return nil
}

// Marshal encodes e.
func (e *PayloadEntry) Marshal() []byte {
	var b []byte
	b = wire.AppendString(b, 1, e.Kind)
	for _, h := range e.Headers {
		b = wire.AppendMessage(b, 2, h.Marshal())
	}
	return wire.AppendBytes(b, 3, e.EntryData)
}

// Unmarshal decodes b into e.
func (e *PayloadEntry) Unmarshal(b []byte) error {
	*e = PayloadEntry{}
	r := wire.NewReader(b)
	for r.More() {
		num, typ, err := r.Next()
		if err != nil {
			return err
		}

		switch num {
		case 1:
			e.Kind, err = r.String(typ)
		case 2:
			var raw []byte
			if raw, err = r.Bytes(typ); err == nil {
				h := &Header{}
				if err = h.Unmarshal(raw); err == nil {
					e.Headers = append(e.Headers, h)
				}
			}
		case 3:
			e.EntryData, err = r.Bytes(typ)
		default:
			err = r.Skip(num, typ)
		}
		if err != nil {
			return fmt.Errorf("entry field %d: %w", num, err)
		}
	}
	return nil
}

// Marshal encodes h.
func (h *Header) Marshal() []byte {
	var b []byte
	b = wire.AppendString(b, 1, h.Name)
	return wire.AppendString(b, 2, h.Value)
}

// Unmarshal decodes b into h.
func (h *Header) Unmarshal(b []byte) error {
	*h = Header{}
	r := wire.NewReader(b)
	for r.More() {
		num, typ, err := r.Next()
		if err != nil {
			return err
		}

		switch num {
		case 1:
			h.Name, err = r.String(typ)
		case 2:
			h.Value, err = r.String(typ)
		default:
			err = r.Skip(num, typ)
		}
		if err != nil {
			return fmt.Errorf("header field %d: %w", num, err)
		}
	}
	return nil
}
