package identity

import (
	"crypto/ed25519"
	"fmt"

	"github.com/minio/sha256-simd"

	"github.com/dep2p/go-kadugu/pkg/types"
)

// PeerIDFromPublicKey 从公钥派生 PeerID
//
// 派生规则：PeerID = Base58(SHA256(MarshalPublicKey(pub)))
//
// 纯函数：相同公钥总是得到相同 PeerID，不同公钥以压倒性概率得到不同 PeerID。
func PeerIDFromPublicKey(pub ed25519.PublicKey) (types.PeerID, error) {
	if len(pub) != ed25519.PublicKeySize {
		return types.EmptyPeerID, fmt.Errorf("%w: invalid ed25519 public key length %d", types.ErrIdentity, len(pub))
	}

	digest := sha256.Sum256(MarshalPublicKey(pub))
	return types.PeerIDFromDigest(digest[:])
}

// MatchesPublicKey 检查 PeerID 是否由该公钥派生
func MatchesPublicKey(id types.PeerID, pub ed25519.PublicKey) bool {
	derived, err := PeerIDFromPublicKey(pub)
	if err != nil {
		return false
	}
	return derived == id
}
