package kadugu

import (
	"errors"

	"github.com/dep2p/go-kadugu/pkg/types"
)

var (
	// ErrNodeStarted 节点已启动
	ErrNodeStarted = errors.New("kadugu: node already started")

	// ErrNodeNotStarted 节点未启动
	ErrNodeNotStarted = errors.New("kadugu: node not started")

	// ErrNoSharer 使用端未指定共享端 PeerID
	ErrNoSharer = errors.New("kadugu: sharer peer ID required")
)

// 对外暴露的连接错误，可配合 errors.Is 判断
var (
	ErrIdentityMismatch = types.ErrIdentityMismatch
	ErrPeerUnreachable  = types.ErrPeerUnreachable
	ErrACLRejected      = types.ErrACLRejected
	ErrInvalidPeerID    = types.ErrInvalidPeerID
)
