package identity

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/dep2p/go-kadugu/internal/util/logger"
	"github.com/dep2p/go-kadugu/pkg/types"
)

var log = logger.Logger("core/identity")

// DefaultKeyFile 默认密钥文件路径（相对于工作目录）
const DefaultKeyFile = "identity.keypair"

// ErrKeyNotFound 存储中尚无密钥
var ErrKeyNotFound = errors.New("key not found")

// ============================================================================
//                              KeyStore 接口
// ============================================================================

// KeyStore 私钥持久化存储
//
// Load 在没有密钥时返回 ErrKeyNotFound；其他错误表示存储存在但不可读。
type KeyStore interface {
	Load() ([]byte, error)
	Store(data []byte) error
}

// GenerateOrLoad 加载已有身份，不存在时生成并持久化
//
// 已有密钥材料损坏或不可读时返回 types.ErrIdentity，绝不覆盖原文件。
func GenerateOrLoad(store KeyStore) (*Identity, error) {
	data, err := store.Load()
	switch {
	case err == nil:
		priv, err := UnmarshalPrivateKey(data)
		if err != nil {
			return nil, err
		}
		id, err := New(priv)
		if err != nil {
			return nil, err
		}
		log.Debug("已加载身份", "peer", id.PeerID().ShortString())
		return id, nil

	case errors.Is(err, ErrKeyNotFound):
		id, err := Generate()
		if err != nil {
			return nil, err
		}
		if err := store.Store(MarshalPrivateKey(id.PrivateKey())); err != nil {
			return nil, fmt.Errorf("%w: persist key: %v", types.ErrIdentity, err)
		}
		log.Info("已生成新身份", "peer", id.PeerID().String())
		return id, nil

	default:
		return nil, fmt.Errorf("%w: load key: %v", types.ErrIdentity, err)
	}
}

// ============================================================================
//                              FileKeyStore
// ============================================================================

// FileKeyStore 基于文件的密钥存储
type FileKeyStore struct {
	path string
}

// NewFileKeyStore 创建文件密钥存储
func NewFileKeyStore(path string) *FileKeyStore {
	if path == "" {
		path = DefaultKeyFile
	}
	return &FileKeyStore{path: path}
}

// Path 返回密钥文件路径
func (s *FileKeyStore) Path() string {
	return s.path
}

// Load 读取密钥文件
func (s *FileKeyStore) Load() ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Store 原子写入密钥文件（0600）
func (s *FileKeyStore) Store(data []byte) error {
	return atomicWriteFile(s.path, data, 0600)
}

// ============================================================================
//                              MemoryKeyStore
// ============================================================================

// MemoryKeyStore 内存密钥存储（用于测试）
type MemoryKeyStore struct {
	mu   sync.Mutex
	data []byte
}

// NewMemoryKeyStore 创建内存密钥存储
func NewMemoryKeyStore() *MemoryKeyStore {
	return &MemoryKeyStore{}
}

// Load 读取密钥
func (s *MemoryKeyStore) Load() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		return nil, ErrKeyNotFound
	}
	return append([]byte(nil), s.data...), nil
}

// Store 保存密钥
func (s *MemoryKeyStore) Store(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = append([]byte(nil), data...)
	return nil
}
