package relay

import (
	"fmt"

	"github.com/suffix-labs/cashweb-relay/internal/wire"
	"github.com/suffix-labs/cashweb-relay/pkg/crypto"
)

// MessagePage is a time-ordered slice of a mailbox.
type MessagePage struct {
	Messages    []*Message // 1
	StartTime   int64      // 2
	EndTime     int64      // 3
	StartDigest []byte     // 4
	EndDigest   []byte     // 5
}

// PayloadPage is a MessagePage reduced to the raw payload of each message.
// Payloads stay in the form they were sent in, so an encrypted message keeps
// its ciphertext.
type PayloadPage struct {
	Payloads    [][]byte // 1
	StartTime   int64    // 2
	EndTime     int64    // 3
	StartDigest []byte   // 4
	EndDigest   []byte   // 5
}

// PayloadPage projects mp onto its payloads, keeping the page bounds. No key
// is needed and nothing is verified.
func (mp *MessagePage) PayloadPage() *PayloadPage {
	page := &PayloadPage{
		Payloads:    make([][]byte, 0, len(mp.Messages)),
		StartTime:   mp.StartTime,
		EndTime:     mp.EndTime,
		StartDigest: mp.StartDigest,
		EndDigest:   mp.EndDigest,
	}
	for _, msg := range mp.Messages {
		page.Payloads = append(page.Payloads, msg.Payload)
	}
	return page
}

// OpenPage opens every message on the page with priv, in page order. It stops
// at the first message that fails to parse or open.
func (mp *MessagePage) OpenPage(priv *crypto.PrivateKey) ([]*Opened, error) {
	opened := make([]*Opened, 0, len(mp.Messages))
	for i, msg := range mp.Messages {
		o, err := openOne(msg, priv)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		opened = append(opened, o)
	}
	return opened, nil
}

// Marshal encodes mp.
func (mp *MessagePage) Marshal() []byte {
	var b []byte
	for _, m := range mp.Messages {
		b = wire.AppendMessage(b, 1, m.Marshal())
	}
	return appendPageBounds(b, mp.StartTime, mp.EndTime, mp.StartDigest, mp.EndDigest)
}

// Unmarshal decodes b into mp.
func (mp *MessagePage) Unmarshal(b []byte) error {
	*mp = MessagePage{}
	return unmarshalPage(b, func(raw []byte) error {
		m := &Message{}
		if err := m.Unmarshal(raw); err != nil {
			return err
		}
		mp.Messages = append(mp.Messages, m)
		return nil
	}, &mp.StartTime, &mp.EndTime, &mp.StartDigest, &mp.EndDigest)
}

// Marshal encodes pp.
func (pp *PayloadPage) Marshal() []byte {
	var b []byte
	for _, p := range pp.Payloads {
		b = wire.AppendMessage(b, 1, p)
	}
	return appendPageBounds(b, pp.StartTime, pp.EndTime, pp.StartDigest, pp.EndDigest)
}

// Unmarshal decodes b into pp.
func (pp *PayloadPage) Unmarshal(b []byte) error {
	*pp = PayloadPage{}
	return unmarshalPage(b, func(raw []byte) error {
		pp.Payloads = append(pp.Payloads, raw)
		return nil
	}, &pp.StartTime, &pp.EndTime, &pp.StartDigest, &pp.EndDigest)
}

func appendPageBounds(b []byte, startTime, endTime int64, startDigest, endDigest []byte) []byte {
	b = wire.AppendVarint(b, 2, uint64(startTime))
	b = wire.AppendVarint(b, 3, uint64(endTime))
	b = wire.AppendBytes(b, 4, startDigest)
	return wire.AppendBytes(b, 5, endDigest)
}

func unmarshalPage(b []byte, item func([]byte) error, startTime, endTime *int64, startDigest, endDigest *[]byte) error {
	r := wire.NewReader(b)
	for r.More() {
		num, typ, err := r.Next()
		if err != nil {
			return fmt.Errorf("decoding page: %w", err)
		}

		var v uint64
		switch num {
		case 1:
			var raw []byte
			if raw, err = r.Bytes(typ); err == nil {
				err = item(raw)
			}
		case 2:
			v, err = r.Varint(typ)
			*startTime = int64(v)
		case 3:
			v, err = r.Varint(typ)
			*endTime = int64(v)
		case 4:
			*startDigest, err = r.Bytes(typ)
		case 5:
			*endDigest, err = r.Bytes(typ)
		default:
			err = r.Skip(num, typ)
		}
		if err != nil {
			return fmt.Errorf("decoding page field %d: %w", num, err)
		}
	}
	return nil
}
