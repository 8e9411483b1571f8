package noise

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/dep2p/go-kadugu/pkg/types"
)

// payload 字段编号
const (
	fieldIdentityKey protowire.Number = 1
	fieldIdentitySig protowire.Number = 2
	fieldPeerID      protowire.Number = 3
	fieldAgent       protowire.Number = 4
)

// handshakePayload 握手 payload
type handshakePayload struct {
	IdentityKey []byte
	IdentitySig []byte
	PeerID      types.PeerID
	Agent       string
}

// marshal 编码 payload
func (p *handshakePayload) marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldIdentityKey, protowire.BytesType)
	b = protowire.AppendBytes(b, p.IdentityKey)
	b = protowire.AppendTag(b, fieldIdentitySig, protowire.BytesType)
	b = protowire.AppendBytes(b, p.IdentitySig)
	if p.PeerID != "" {
		b = protowire.AppendTag(b, fieldPeerID, protowire.BytesType)
		b = protowire.AppendString(b, string(p.PeerID))
	}
	if p.Agent != "" {
		b = protowire.AppendTag(b, fieldAgent, protowire.BytesType)
		b = protowire.AppendString(b, p.Agent)
	}
	return b
}

// unmarshal 解码 payload，未知字段被跳过
func (p *handshakePayload) unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrInvalidPayload, protowire.ParseError(n))
		}
		b = b[n:]

		if typ != protowire.BytesType {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return fmt.Errorf("%w: %v", ErrInvalidPayload, protowire.ParseError(n))
			}
			b = b[n:]
			continue
		}

		v, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrInvalidPayload, protowire.ParseError(n))
		}
		b = b[n:]

		switch num {
		case fieldIdentityKey:
			p.IdentityKey = append([]byte(nil), v...)
		case fieldIdentitySig:
			p.IdentitySig = append([]byte(nil), v...)
		case fieldPeerID:
			p.PeerID = types.PeerID(v)
		case fieldAgent:
			p.Agent = string(v)
		}
	}

	if len(p.IdentityKey) == 0 || len(p.IdentitySig) == 0 {
		return fmt.Errorf("%w: missing identity", ErrInvalidPayload)
	}
	return nil
}
