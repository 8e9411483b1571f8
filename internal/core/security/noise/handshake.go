package noise

import (
	"crypto/ed25519"
	"crypto/sha512"
	"encoding/binary"
	"fmt"
	"io"
	"net"

	"filippo.io/edwards25519"
	"github.com/flynn/noise"
	pool "github.com/libp2p/go-buffer-pool"

	"github.com/dep2p/go-kadugu/internal/core/identity"
)

// payloadSigPrefix 是签名 payload 的前缀
const payloadSigPrefix = "noise-libp2p-static-key:"

// maxFrameLen 单帧最大长度（2 字节长度前缀）
const maxFrameLen = 65535

var cipherSuite = noise.NewCipherSuite(noise.DH25519, noise.CipherChaChaPoly, noise.HashSHA256)

// ============================================================================
// Noise XX 握手实现
// ============================================================================

// performHandshake 执行 Noise XX 握手
//
// 参数：
//   - conn: 底层网络连接
//   - id: 本地身份
//   - agent: 本地代理字符串
//   - isInitiator: true = 客户端，false = 服务器
func performHandshake(conn net.Conn, id *identity.Identity, agent string, isInitiator bool) (*SecureConn, error) {
	// 1. 密钥转换：Ed25519 -> Curve25519
	curvePriv, err := ed25519ToCurve25519Private(id.PrivateKey())
	if err != nil {
		return nil, err
	}
	curvePub, err := ed25519ToCurve25519Public(id.PublicKey())
	if err != nil {
		return nil, err
	}

	// 2. 创建 Noise 状态
	hs, err := noise.NewHandshakeState(noise.Config{
		CipherSuite:   cipherSuite,
		Pattern:       noise.HandshakeXX,
		Initiator:     isInitiator,
		StaticKeypair: noise.DHKey{Private: curvePriv, Public: curvePub},
	})
	if err != nil {
		return nil, fmt.Errorf("create handshake state: %w", err)
	}

	// 3. 本地 payload
	local := &handshakePayload{
		IdentityKey: identity.MarshalPublicKey(id.PublicKey()),
		IdentitySig: id.Sign(append([]byte(payloadSigPrefix), curvePub...)),
		PeerID:      id.PeerID(),
		Agent:       agent,
	}

	// 4. 执行握手
	var (
		sendCS, recvCS *noise.CipherState
		remoteRaw      []byte
	)
	if isInitiator {
		sendCS, recvCS, remoteRaw, err = clientHandshake(conn, hs, local.marshal())
	} else {
		sendCS, recvCS, remoteRaw, err = serverHandshake(conn, hs, local.marshal())
	}
	if err != nil {
		return nil, err
	}

	// 5. 校验远程 payload
	remoteStatic := hs.PeerStatic()
	if len(remoteStatic) != 32 {
		return nil, fmt.Errorf("invalid remote static key length: %d", len(remoteStatic))
	}
	remote, remoteKey, err := handleRemotePayload(remoteRaw, remoteStatic)
	if err != nil {
		return nil, err
	}

	return &SecureConn{
		Conn:            conn,
		sendCS:          sendCS,
		recvCS:          recvCS,
		localPeer:       id.PeerID(),
		claimedPeer:     remote.PeerID,
		remotePublicKey: remoteKey,
		remoteAgent:     remote.Agent,
	}, nil
}

// handleRemotePayload 解析远程 payload 并验证静态公钥签名
func handleRemotePayload(raw []byte, remoteStatic []byte) (*handshakePayload, ed25519.PublicKey, error) {
	p := &handshakePayload{}
	if err := p.unmarshal(raw); err != nil {
		return nil, nil, err
	}

	pub, err := identity.UnmarshalPublicKey(p.IdentityKey)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	if !ed25519.Verify(pub, append([]byte(payloadSigPrefix), remoteStatic...), p.IdentitySig) {
		return nil, nil, ErrInvalidSignature
	}
	return p, pub, nil
}

// ============================================================================
// 握手流程
// ============================================================================

// clientHandshake 客户端握手（发起者）
func clientHandshake(conn net.Conn, hs *noise.HandshakeState, payload []byte) (*noise.CipherState, *noise.CipherState, []byte, error) {
	// -> e
	msg1, _, _, err := hs.WriteMessage(nil, nil)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("write message 1: %w", err)
	}
	if err := writeFrame(conn, msg1); err != nil {
		return nil, nil, nil, fmt.Errorf("send message 1: %w", err)
	}

	// <- e, ee, s, es, payload
	msg2, err := readFrame(conn)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("receive message 2: %w", err)
	}
	remotePayload, _, _, err := hs.ReadMessage(nil, msg2)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("read message 2: %w", err)
	}

	// -> s, se, payload
	msg3, cs1, cs2, err := hs.WriteMessage(nil, payload)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("write message 3: %w", err)
	}
	if err := writeFrame(conn, msg3); err != nil {
		return nil, nil, nil, fmt.Errorf("send message 3: %w", err)
	}

	// 发起者：cs1 发送，cs2 接收
	return cs1, cs2, remotePayload, nil
}

// serverHandshake 服务器握手（响应者）
func serverHandshake(conn net.Conn, hs *noise.HandshakeState, payload []byte) (*noise.CipherState, *noise.CipherState, []byte, error) {
	// <- e
	msg1, err := readFrame(conn)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("receive message 1: %w", err)
	}
	if _, _, _, err := hs.ReadMessage(nil, msg1); err != nil {
		return nil, nil, nil, fmt.Errorf("read message 1: %w", err)
	}

	// -> e, ee, s, es, payload
	msg2, _, _, err := hs.WriteMessage(nil, payload)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("write message 2: %w", err)
	}
	if err := writeFrame(conn, msg2); err != nil {
		return nil, nil, nil, fmt.Errorf("send message 2: %w", err)
	}

	// <- s, se, payload
	msg3, err := readFrame(conn)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("receive message 3: %w", err)
	}
	remotePayload, cs1, cs2, err := hs.ReadMessage(nil, msg3)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("read message 3: %w", err)
	}

	// 响应者与发起者相反
	return cs2, cs1, remotePayload, nil
}

// ============================================================================
// 密钥转换
// ============================================================================

// ed25519ToCurve25519Private 将 Ed25519 私钥转换为 Curve25519 私钥
//
// SHA-512(seed) 取前 32 字节并做 clamping（RFC 7748）。
func ed25519ToCurve25519Private(priv ed25519.PrivateKey) ([]byte, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid ed25519 private key length: %d", len(priv))
	}
	h := sha512.Sum512(priv.Seed())
	h[0] &= 248
	h[31] &= 127
	h[31] |= 64
	return h[:32], nil
}

// ed25519ToCurve25519Public 将 Ed25519 公钥转换为 Curve25519 公钥
//
// Edwards -> Montgomery：u = (1 + y) / (1 - y)  (mod p)
func ed25519ToCurve25519Public(pub ed25519.PublicKey) ([]byte, error) {
	if len(pub) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("invalid ed25519 public key length: %d", len(pub))
	}
	point, err := new(edwards25519.Point).SetBytes(pub)
	if err != nil {
		return nil, fmt.Errorf("invalid ed25519 public key: %w", err)
	}
	return point.BytesMontgomery(), nil
}

// ============================================================================
// 帧读写
// ============================================================================

// writeFrame 写入帧（2 字节长度 + 数据）
func writeFrame(w io.Writer, data []byte) error {
	if len(data) > maxFrameLen {
		return fmt.Errorf("frame too large: %d", len(data))
	}
	buf := pool.Get(2 + len(data))
	defer pool.Put(buf)

	binary.BigEndian.PutUint16(buf, uint16(len(data)))
	copy(buf[2:], data)
	_, err := w.Write(buf)
	return err
}

// readFrame 读取帧（2 字节长度 + 数据）
func readFrame(r io.Reader) ([]byte, error) {
	var lenBuf [2]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	data := make([]byte, binary.BigEndian.Uint16(lenBuf[:]))
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, err
	}
	return data, nil
}
