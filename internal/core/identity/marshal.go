package identity

import (
	"crypto/ed25519"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/dep2p/go-kadugu/pkg/types"
)

// ============================================================================
//                              密钥编码
// ============================================================================
//
// 编码与 libp2p crypto.proto 保持一致：
//
//	message PublicKey  { KeyType Type = 1; bytes Data = 2; }
//	message PrivateKey { KeyType Type = 1; bytes Data = 2; }
//
// 仅支持 KeyType_Ed25519 = 1。私钥 Data 为 64 字节（seed || pub）。

const (
	// keyTypeEd25519 libp2p KeyType 枚举中的 Ed25519
	keyTypeEd25519 = 1

	fieldKeyType protowire.Number = 1
	fieldKeyData protowire.Number = 2
)

// MarshalPublicKey 将公钥编码为 protobuf PublicKey 消息
func MarshalPublicKey(pub ed25519.PublicKey) []byte {
	return marshalKey(pub)
}

// UnmarshalPublicKey 从 protobuf PublicKey 消息解码公钥
func UnmarshalPublicKey(b []byte) (ed25519.PublicKey, error) {
	data, err := unmarshalKey(b)
	if err != nil {
		return nil, err
	}
	if len(data) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: public key length %d", types.ErrIdentity, len(data))
	}
	return ed25519.PublicKey(data), nil
}

// MarshalPrivateKey 将私钥编码为 protobuf PrivateKey 消息
func MarshalPrivateKey(priv ed25519.PrivateKey) []byte {
	return marshalKey(priv)
}

// UnmarshalPrivateKey 从 protobuf PrivateKey 消息解码私钥
//
// 兼容旧版 libp2p 写出的 96 字节格式（seed || pub || pub）。
func UnmarshalPrivateKey(b []byte) (ed25519.PrivateKey, error) {
	data, err := unmarshalKey(b)
	if err != nil {
		return nil, err
	}

	switch len(data) {
	case ed25519.PrivateKeySize:
	case ed25519.PrivateKeySize + ed25519.PublicKeySize:
		data = data[:ed25519.PrivateKeySize]
	default:
		return nil, fmt.Errorf("%w: private key length %d", types.ErrIdentity, len(data))
	}

	priv := ed25519.NewKeyFromSeed(data[:ed25519.SeedSize])
	if !priv.Public().(ed25519.PublicKey).Equal(ed25519.PublicKey(data[ed25519.SeedSize:])) {
		return nil, fmt.Errorf("%w: private key does not match embedded public key", types.ErrIdentity)
	}
	return priv, nil
}

func marshalKey(data []byte) []byte {
	b := make([]byte, 0, len(data)+4)
	b = protowire.AppendTag(b, fieldKeyType, protowire.VarintType)
	b = protowire.AppendVarint(b, keyTypeEd25519)
	b = protowire.AppendTag(b, fieldKeyData, protowire.BytesType)
	b = protowire.AppendBytes(b, data)
	return b
}

func unmarshalKey(b []byte) ([]byte, error) {
	var (
		keyType uint64
		hasType bool
		data    []byte
	)

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: malformed key: %v", types.ErrIdentity, protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == fieldKeyType && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return nil, fmt.Errorf("%w: malformed key type: %v", types.ErrIdentity, protowire.ParseError(m))
			}
			keyType, hasType = v, true
			b = b[m:]
		case num == fieldKeyData && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return nil, fmt.Errorf("%w: malformed key data: %v", types.ErrIdentity, protowire.ParseError(m))
			}
			data = append([]byte(nil), v...)
			b = b[m:]
		default:
			m := protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return nil, fmt.Errorf("%w: malformed key field %d: %v", types.ErrIdentity, num, protowire.ParseError(m))
			}
			b = b[m:]
		}
	}

	if !hasType || keyType != keyTypeEd25519 {
		return nil, fmt.Errorf("%w: unsupported key type %d", types.ErrIdentity, keyType)
	}
	if data == nil {
		return nil, fmt.Errorf("%w: missing key data", types.ErrIdentity)
	}
	return data, nil
}
