package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/dep2p/go-kadugu/config"
	"github.com/dep2p/go-kadugu/internal/core/identity"
	"github.com/dep2p/go-kadugu/internal/core/metrics"
	"github.com/dep2p/go-kadugu/internal/tunnel/client"
	"github.com/dep2p/go-kadugu/internal/tunnel/server"
	"github.com/dep2p/go-kadugu/internal/util/logger"
)

var log = logger.Logger("app")

const (
	defaultStartTimeout = 30 * time.Second
	defaultStopTimeout  = 30 * time.Second
)

// ErrNotStarted 应用未启动
var ErrNotStarted = errors.New("app: not started")

// Mode 运行模式
type Mode int

const (
	// ModeSharer 共享端
	ModeSharer Mode = iota
	// ModeUser 使用端
	ModeUser
)

// String 返回模式名
func (m Mode) String() string {
	switch m {
	case ModeSharer:
		return "sharer"
	case ModeUser:
		return "user"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Bootstrap 应用引导程序
type Bootstrap struct {
	cfg          *config.Config
	mode         Mode
	store        identity.KeyStore
	startTimeout time.Duration
	stopTimeout  time.Duration
	onStarted    func(*Bootstrap)

	fxApp   *fx.App
	logFile *os.File

	identity *identity.Identity
	metrics  *metrics.Metrics
	server   *server.Server
	client   *client.Client
}

// NewBootstrap 创建引导程序
func NewBootstrap(cfg *config.Config, mode Mode, opts ...Option) *Bootstrap {
	b := &Bootstrap{
		cfg:          cfg,
		mode:         mode,
		startTimeout: defaultStartTimeout,
		stopTimeout:  defaultStopTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Start 构建并启动应用
//
// 启动失败时已启动的模块会被回滚。
func (b *Bootstrap) Start(ctx context.Context) error {
	if err := b.setupLogging(); err != nil {
		return fmt.Errorf("设置日志失败: %w", err)
	}

	b.fxApp = fx.New(b.options()...)
	if err := b.fxApp.Err(); err != nil {
		return fmt.Errorf("构建应用失败: %w", err)
	}

	startCtx, cancel := context.WithTimeout(ctx, b.startTimeout)
	defer cancel()

	if err := b.fxApp.Start(startCtx); err != nil {
		return err
	}
	log.Debug("应用已启动", "mode", b.mode)
	if b.onStarted != nil {
		b.onStarted(b)
	}
	return nil
}

func (b *Bootstrap) options() []fx.Option {
	opts := []fx.Option{
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		}),
		fx.Supply(b.cfg),
		ModulesFor(b.mode),
		fx.Populate(&b.identity, &b.metrics),
	}
	if b.store != nil {
		store := b.store
		opts = append(opts, fx.Provide(func() identity.KeyStore { return store }))
	}

	switch b.mode {
	case ModeSharer:
		opts = append(opts, fx.Populate(&b.server))
	default:
		opts = append(opts, fx.Populate(&b.client))
	}
	return opts
}

// Stop 停止应用并关闭日志文件
func (b *Bootstrap) Stop(ctx context.Context) error {
	if b.fxApp == nil {
		return ErrNotStarted
	}

	stopCtx, cancel := context.WithTimeout(ctx, b.stopTimeout)
	defer cancel()

	err := b.fxApp.Stop(stopCtx)
	if b.logFile != nil {
		logger.SetOutput(os.Stderr)
		err = multierr.Append(err, b.logFile.Close())
		b.logFile = nil
	}
	return err
}

// setupLogging 应用日志级别、格式与输出文件
func (b *Bootstrap) setupLogging() error {
	logger.Apply(b.cfg.Log.Level, b.cfg.Log.Format)

	if b.cfg.Log.File == "" {
		return nil
	}
	f, err := os.OpenFile(b.cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("打开日志文件失败: %w", err)
	}
	b.logFile = f
	logger.SetOutput(f)
	return nil
}

// ============================================================================
//                              访问器
// ============================================================================

// Mode 返回运行模式
func (b *Bootstrap) Mode() Mode { return b.mode }

// Identity 返回节点身份，启动前为 nil
func (b *Bootstrap) Identity() *identity.Identity { return b.identity }

// Metrics 返回指标集合
func (b *Bootstrap) Metrics() *metrics.Metrics { return b.metrics }

// Server 返回共享端，使用端模式下为 nil
func (b *Bootstrap) Server() *server.Server { return b.server }

// Client 返回使用端，共享端模式下为 nil
func (b *Bootstrap) Client() *client.Client { return b.client }
