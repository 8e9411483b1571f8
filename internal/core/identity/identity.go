package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/dep2p/go-kadugu/pkg/types"
)

// ============================================================================
//                              Identity 实现
// ============================================================================

// Identity 节点身份
//
// 进程启动时创建一次，之后只读，可在多个 goroutine 间共享。
type Identity struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
	peerID     types.PeerID
}

// New 从私钥创建身份
func New(priv ed25519.PrivateKey) (*Identity, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: invalid ed25519 private key length %d", types.ErrIdentity, len(priv))
	}

	pub := priv.Public().(ed25519.PublicKey)
	peerID, err := PeerIDFromPublicKey(pub)
	if err != nil {
		return nil, err
	}

	return &Identity{
		privateKey: priv,
		publicKey:  pub,
		peerID:     peerID,
	}, nil
}

// Generate 生成新的 Ed25519 身份
func Generate() (*Identity, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("%w: generate ed25519 key: %v", types.ErrIdentity, err)
	}
	return New(priv)
}

// PeerID 返回节点 ID
func (i *Identity) PeerID() types.PeerID {
	return i.peerID
}

// PublicKey 返回公钥
func (i *Identity) PublicKey() ed25519.PublicKey {
	return i.publicKey
}

// PrivateKey 返回私钥
func (i *Identity) PrivateKey() ed25519.PrivateKey {
	return i.privateKey
}

// Sign 签名数据
func (i *Identity) Sign(data []byte) []byte {
	return ed25519.Sign(i.privateKey, data)
}
