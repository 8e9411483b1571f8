package acl

import (
	"math/rand"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-kadugu/pkg/types"
)

// ============================================================================
//                              测试辅助
// ============================================================================

func randomPeerID(r *rand.Rand) types.PeerID {
	digest := make([]byte, types.PeerIDDigestLen)
	r.Read(digest)
	return types.PeerID(base58.Encode(digest))
}

// ============================================================================
//                              List 测试
// ============================================================================

// TestList_EmptyAllowsAll 空集合允许所有节点
func TestList_EmptyAllowsAll(t *testing.T) {
	r := rand.New(rand.NewSource(1))

	for _, l := range []*List{AllowAll(), mustNew(t, nil), mustNew(t, []string{})} {
		assert.Equal(t, 0, l.Len())
		for i := 0; i < 50; i++ {
			assert.True(t, l.IsAllowed(randomPeerID(r)))
		}
		assert.NoError(t, l.InterceptSecured(randomPeerID(r)))
	}
}

// TestList_Membership 对任意集合 S，IsAllowed(id) 当且仅当 id ∈ S
func TestList_Membership(t *testing.T) {
	r := rand.New(rand.NewSource(42))

	for round := 0; round < 20; round++ {
		n := 1 + r.Intn(16)
		members := make(map[types.PeerID]struct{}, n)
		entries := make([]string, 0, n)
		for i := 0; i < n; i++ {
			id := randomPeerID(r)
			members[id] = struct{}{}
			entries = append(entries, id.String())
		}

		l := mustNew(t, entries)
		assert.Equal(t, len(members), l.Len())

		for id := range members {
			assert.True(t, l.IsAllowed(id), "成员应被允许")
		}
		for i := 0; i < 50; i++ {
			id := randomPeerID(r)
			_, in := members[id]
			assert.Equal(t, in, l.IsAllowed(id))
		}
	}
	t.Log("✅ ACL 成员判定测试通过")
}

// TestList_InterceptSecured 拒绝时返回 ErrACLRejected
func TestList_InterceptSecured(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	a, b := randomPeerID(r), randomPeerID(r)

	l := mustNew(t, []string{a.String()})
	assert.NoError(t, l.InterceptSecured(a))

	err := l.InterceptSecured(b)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrACLRejected)
}

// TestNew_Invalid 非法条目在加载时报错
func TestNew_Invalid(t *testing.T) {
	_, err := New([]string{"not-a-peer-id"})
	assert.ErrorIs(t, err, types.ErrInvalidPeerID)

	_, err = New([]string{""})
	assert.ErrorIs(t, err, types.ErrEmptyPeerID)
}

// TestList_IDs 去重并排序
func TestList_IDs(t *testing.T) {
	r := rand.New(rand.NewSource(9))
	a, b := randomPeerID(r), randomPeerID(r)

	l := mustNew(t, []string{b.String(), a.String(), b.String()})
	ids := l.IDs()
	require.Len(t, ids, 2)
	assert.True(t, ids[0] < ids[1])
}

func mustNew(t *testing.T, ids []string) *List {
	t.Helper()
	l, err := New(ids)
	require.NoError(t, err)
	return l
}
