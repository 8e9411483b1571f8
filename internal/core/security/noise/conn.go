package noise

import (
	"crypto/ed25519"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/flynn/noise"
	pool "github.com/libp2p/go-buffer-pool"

	"github.com/dep2p/go-kadugu/pkg/types"
)

// maxPlaintext 单帧可承载的最大明文（扣除 Poly1305 标签）
const maxPlaintext = maxFrameLen - 16

// ============================================================================
// SecureConn 实现
// ============================================================================

// SecureConn Noise 加密连接
//
// 实现 net.Conn，可直接交给 yamux 使用。
type SecureConn struct {
	net.Conn

	sendCS *noise.CipherState
	recvCS *noise.CipherState

	localPeer       types.PeerID
	claimedPeer     types.PeerID
	remotePublicKey ed25519.PublicKey
	remoteAgent     string

	readMu  sync.Mutex
	writeMu sync.Mutex

	// 未读完的明文及其所属的池化缓冲区
	pending    []byte
	pendingBuf []byte
}

// Read 从连接读取数据（解密）
func (c *SecureConn) Read(p []byte) (int, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	if len(c.pending) > 0 {
		return c.drain(p), nil
	}

	for {
		var lenBuf [2]byte
		if _, err := io.ReadFull(c.Conn, lenBuf[:]); err != nil {
			return 0, err
		}
		frameLen := int(binary.BigEndian.Uint16(lenBuf[:]))

		buf := pool.Get(frameLen)
		if _, err := io.ReadFull(c.Conn, buf); err != nil {
			pool.Put(buf)
			return 0, err
		}

		// 原地解密
		plain, err := c.recvCS.Decrypt(buf[:0], nil, buf)
		if err != nil {
			pool.Put(buf)
			return 0, fmt.Errorf("decrypt: %w", err)
		}
		if len(plain) == 0 {
			pool.Put(buf)
			continue
		}

		c.pending, c.pendingBuf = plain, buf
		return c.drain(p), nil
	}
}

func (c *SecureConn) drain(p []byte) int {
	n := copy(p, c.pending)
	c.pending = c.pending[n:]
	if len(c.pending) == 0 {
		pool.Put(c.pendingBuf)
		c.pending, c.pendingBuf = nil, nil
	}
	return n
}

// Write 向连接写入数据（加密），超过单帧容量时拆分
func (c *SecureConn) Write(p []byte) (int, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	written := 0
	for written < len(p) {
		chunk := p[written:]
		if len(chunk) > maxPlaintext {
			chunk = chunk[:maxPlaintext]
		}

		buf := pool.Get(2 + len(chunk) + 16)
		ciphertext, err := c.sendCS.Encrypt(buf[2:2], nil, chunk)
		if err != nil {
			pool.Put(buf)
			return written, fmt.Errorf("encrypt: %w", err)
		}
		binary.BigEndian.PutUint16(buf, uint16(len(ciphertext)))

		_, err = c.Conn.Write(buf[:2+len(ciphertext)])
		pool.Put(buf)
		if err != nil {
			return written, err
		}
		written += len(chunk)
	}
	return written, nil
}

// LocalPeer 返回本地节点 ID
func (c *SecureConn) LocalPeer() types.PeerID {
	return c.localPeer
}

// ClaimedPeer 返回对端在 payload 中声明的 PeerID
func (c *SecureConn) ClaimedPeer() types.PeerID {
	return c.claimedPeer
}

// RemotePublicKey 返回对端身份公钥（签名已验证）
func (c *SecureConn) RemotePublicKey() ed25519.PublicKey {
	return c.remotePublicKey
}

// RemoteAgent 返回对端代理字符串
func (c *SecureConn) RemoteAgent() string {
	return c.remoteAgent
}
