package peerstore

import (
	"fmt"
	"net"
	"slices"
	"strconv"
	"sync"

	"github.com/dep2p/go-kadugu/internal/util/logger"
	"github.com/dep2p/go-kadugu/pkg/types"
)

var log = logger.Logger("core/peerstore")

// AddrBook 节点地址簿
//
// 同一节点可有多个地址，Resolve 按添加顺序返回第一个。
type AddrBook struct {
	mu    sync.RWMutex
	addrs map[types.PeerID][]string
}

// New 从 PeerID -> host:port 表创建地址簿
func New(entries map[string]string) (*AddrBook, error) {
	b := &AddrBook{addrs: make(map[types.PeerID][]string, len(entries))}
	for s, addr := range entries {
		id, err := types.ParsePeerID(s)
		if err != nil {
			return nil, fmt.Errorf("peerstore: entry %q: %w", s, err)
		}
		if err := b.AddAddrs(id, addr); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// AddAddrs 为节点追加地址，重复地址被忽略
func (b *AddrBook) AddAddrs(id types.PeerID, addrs ...string) error {
	if err := id.Validate(); err != nil {
		return err
	}
	for _, a := range addrs {
		if err := validateAddr(a); err != nil {
			return fmt.Errorf("peerstore: %s: %w", id.ShortString(), err)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, a := range addrs {
		if !slices.Contains(b.addrs[id], a) {
			b.addrs[id] = append(b.addrs[id], a)
		}
	}
	return nil
}

// Addrs 返回节点的全部地址
func (b *AddrBook) Addrs(id types.PeerID) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.addrs[id])
}

// Resolve 返回节点的首选地址
func (b *AddrBook) Resolve(id types.PeerID) (string, error) {
	b.mu.RLock()
	addrs := b.addrs[id]
	b.mu.RUnlock()

	if len(addrs) == 0 {
		return "", fmt.Errorf("%w: %s", types.ErrNoAddress, id.ShortString())
	}
	log.Debug("解析节点地址", "peer", id.ShortString(), "addr", addrs[0])
	return addrs[0], nil
}

// Peers 返回有地址的节点
func (b *AddrBook) Peers() []types.PeerID {
	b.mu.RLock()
	defer b.mu.RUnlock()

	ids := make([]types.PeerID, 0, len(b.addrs))
	for id := range b.addrs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Len 返回节点数量
func (b *AddrBook) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.addrs)
}

func validateAddr(addr string) error {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidAddr, addr, err)
	}
	if host == "" {
		return fmt.Errorf("%w %q: empty host", ErrInvalidAddr, addr)
	}
	p, err := strconv.Atoi(port)
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("%w %q: bad port", ErrInvalidAddr, addr)
	}
	return nil
}
