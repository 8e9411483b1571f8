package peerstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-kadugu/config"
	"github.com/dep2p/go-kadugu/internal/core/identity"
	"github.com/dep2p/go-kadugu/pkg/types"
)

func newPeerID(t *testing.T) types.PeerID {
	t.Helper()
	id, err := identity.Generate()
	require.NoError(t, err)
	return id.PeerID()
}

// TestAddrBook_Resolve 解析首选地址，未知节点返回 ErrNoAddress
func TestAddrBook_Resolve(t *testing.T) {
	a, b := newPeerID(t), newPeerID(t)

	book, err := New(map[string]string{string(a): "127.0.0.1:12007"})
	require.NoError(t, err)

	addr, err := book.Resolve(a)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:12007", addr)

	_, err = book.Resolve(b)
	assert.ErrorIs(t, err, types.ErrNoAddress)

	require.NoError(t, book.AddAddrs(a, "[::1]:12007", "127.0.0.1:12007"))
	assert.Equal(t, []string{"127.0.0.1:12007", "[::1]:12007"}, book.Addrs(a))
	assert.Equal(t, 1, book.Len())
	assert.Equal(t, []types.PeerID{a}, book.Peers())

	t.Log("✅ 地址簿解析测试通过")
}

// TestAddrBook_Invalid 非法节点与地址被拒绝
func TestAddrBook_Invalid(t *testing.T) {
	_, err := New(map[string]string{"not-a-peer": "127.0.0.1:1"})
	assert.ErrorIs(t, err, types.ErrInvalidPeerID)

	id := newPeerID(t)
	book, err := New(nil)
	require.NoError(t, err)

	for _, bad := range []string{"", "host", ":80", "h:0", "h:70000", "h:x"} {
		assert.ErrorIs(t, book.AddAddrs(id, bad), ErrInvalidAddr, bad)
	}
	assert.Equal(t, 0, book.Len())
}

// TestProvideAddrBook 用户端 sharer 地址并入地址簿
func TestProvideAddrBook(t *testing.T) {
	sharer := newPeerID(t)

	cfg := config.NewConfig()
	cfg.User.SharerPeer = string(sharer)
	cfg.User.SharerAddr = "198.51.100.1:12007"

	book, err := ProvideAddrBook(ModuleInput{Config: cfg})
	require.NoError(t, err)

	addr, err := book.Resolve(sharer)
	require.NoError(t, err)
	assert.Equal(t, "198.51.100.1:12007", addr)
}
