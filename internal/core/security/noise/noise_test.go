package noise

import (
	"bytes"
	"context"
	"crypto/rand"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/dep2p/go-kadugu/internal/core/identity"
	"github.com/dep2p/go-kadugu/pkg/types"
)

// ============================================================================
//                              测试辅助
// ============================================================================

func tcpPair(t *testing.T) (net.Conn, net.Conn) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			close(accepted)
			return
		}
		accepted <- c
	}()

	client, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	server, ok := <-accepted
	require.True(t, ok)

	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	return client, server
}

func newTransport(t *testing.T, agent string) (*Transport, *identity.Identity) {
	t.Helper()
	id, err := identity.Generate()
	require.NoError(t, err)
	tr, err := New(id, agent)
	require.NoError(t, err)
	return tr, id
}

// handshakePair 在回环连接上完成握手
func handshakePair(t *testing.T) (client, server *SecureConn, clientID, serverID *identity.Identity) {
	t.Helper()

	ct, cid := newTransport(t, "kadugu/client")
	st, sid := newTransport(t, "kadugu/server")
	cc, sc := tcpPair(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var g errgroup.Group
	g.Go(func() error {
		var err error
		server, err = st.SecureInbound(ctx, sc)
		return err
	})
	g.Go(func() error {
		var err error
		client, err = ct.SecureOutbound(ctx, cc, sid.PeerID())
		return err
	})
	require.NoError(t, g.Wait())

	return client, server, cid, sid
}

// ============================================================================
//                              握手测试
// ============================================================================

// TestHandshake_Identities 握手后双方得到对端身份公钥与声明的 PeerID
func TestHandshake_Identities(t *testing.T) {
	client, server, cid, sid := handshakePair(t)

	assert.Equal(t, cid.PeerID(), client.LocalPeer())
	assert.Equal(t, sid.PeerID(), client.ClaimedPeer())
	assert.True(t, client.RemotePublicKey().Equal(sid.PublicKey()))
	assert.Equal(t, "kadugu/server", client.RemoteAgent())

	assert.Equal(t, cid.PeerID(), server.ClaimedPeer())
	assert.True(t, server.RemotePublicKey().Equal(cid.PublicKey()))
	assert.Equal(t, "kadugu/client", server.RemoteAgent())

	assert.NoError(t, identity.VerifyHandshake(server.ClaimedPeer(), server.RemotePublicKey()))

	t.Log("✅ Noise 握手身份测试通过")
}

// TestSecureConn_LargeTransfer 超过单帧容量的数据被拆帧并完整还原
func TestSecureConn_LargeTransfer(t *testing.T) {
	client, server, _, _ := handshakePair(t)

	payload := make([]byte, 3*maxFrameLen+123)
	_, err := rand.Read(payload)
	require.NoError(t, err)

	var g errgroup.Group
	g.Go(func() error {
		_, err := client.Write(payload)
		return err
	})

	got := make([]byte, len(payload))
	_, err = io.ReadFull(server, got)
	require.NoError(t, err)
	require.NoError(t, g.Wait())

	assert.True(t, bytes.Equal(payload, got))
	t.Log("✅ Noise 大块数据传输测试通过")
}

// TestSecureConn_SmallReads 小缓冲区分多次读出同一帧
func TestSecureConn_SmallReads(t *testing.T) {
	client, server, _, _ := handshakePair(t)

	go func() { _, _ = server.Write([]byte("hello world")) }()

	var out []byte
	buf := make([]byte, 3)
	for len(out) < len("hello world") {
		n, err := client.Read(buf)
		require.NoError(t, err)
		out = append(out, buf[:n]...)
	}
	assert.Equal(t, "hello world", string(out))
}

// TestHandshake_Cancelled 对端不响应时 ctx 取消打断握手
func TestHandshake_Cancelled(t *testing.T) {
	ct, _ := newTransport(t, "")
	cc, _ := tcpPair(t)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	_, err := ct.SecureOutbound(ctx, cc, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrHandshake)
	assert.ErrorIs(t, err, context.Canceled)
}

// TestHandshake_Garbage 对端发送非 Noise 数据
func TestHandshake_Garbage(t *testing.T) {
	st, _ := newTransport(t, "")
	cc, sc := tcpPair(t)

	go func() {
		_, _ = cc.Write([]byte{0x00, 0x04, 'j', 'u', 'n', 'k'})
		_ = cc.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := st.SecureInbound(ctx, sc)
	assert.ErrorIs(t, err, types.ErrHandshake)
}

// ============================================================================
//                              Payload 测试
// ============================================================================

// TestHandleRemotePayload_BadSignature 签名与静态公钥不匹配
func TestHandleRemotePayload_BadSignature(t *testing.T) {
	id, err := identity.Generate()
	require.NoError(t, err)

	static := make([]byte, 32)
	_, _ = rand.Read(static)
	other := make([]byte, 32)
	_, _ = rand.Read(other)

	p := &handshakePayload{
		IdentityKey: identity.MarshalPublicKey(id.PublicKey()),
		IdentitySig: id.Sign(append([]byte(payloadSigPrefix), static...)),
		PeerID:      id.PeerID(),
	}

	_, pub, err := handleRemotePayload(p.marshal(), static)
	require.NoError(t, err)
	assert.True(t, pub.Equal(id.PublicKey()))

	_, _, err = handleRemotePayload(p.marshal(), other)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

// TestPayload_Unmarshal 字段解析与缺失字段
func TestPayload_Unmarshal(t *testing.T) {
	in := &handshakePayload{
		IdentityKey: []byte{1, 2, 3},
		IdentitySig: []byte{4, 5},
		PeerID:      "peer",
		Agent:       "kadugu/test",
	}

	var out handshakePayload
	require.NoError(t, out.unmarshal(in.marshal()))
	assert.Equal(t, *in, out)

	var empty handshakePayload
	assert.ErrorIs(t, empty.unmarshal(nil), ErrInvalidPayload)
	assert.ErrorIs(t, empty.unmarshal([]byte{0xff}), ErrInvalidPayload)
}

// TestKeyConversion 转换后的 Curve25519 公私钥成对
func TestKeyConversion(t *testing.T) {
	id, err := identity.Generate()
	require.NoError(t, err)

	priv, err := ed25519ToCurve25519Private(id.PrivateKey())
	require.NoError(t, err)
	pub, err := ed25519ToCurve25519Public(id.PublicKey())
	require.NoError(t, err)

	kp, err := cipherSuite.GenerateKeypair(bytes.NewReader(priv))
	require.NoError(t, err)
	assert.Equal(t, pub, kp.Public)
}
