package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/jpillora/sizestr"
	pool "github.com/libp2p/go-buffer-pool"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/dep2p/go-kadugu/config"
	"github.com/dep2p/go-kadugu/internal/core/metrics"
	"github.com/dep2p/go-kadugu/internal/util/logger"
)

var log = logger.Logger("core/relay")

// Result 一次中继的字节统计
type Result struct {
	// AToB a 读出并写入 b 的字节数
	AToB int64
	// BToA b 读出并写入 a 的字节数
	BToA int64
}

// Engine 中继引擎
type Engine struct {
	bufSize          int
	halfCloseTimeout time.Duration
	metrics          *metrics.Metrics
}

// NewEngine 创建中继引擎，m 可以为 nil
func NewEngine(cfg config.RelayConfig, m *metrics.Metrics) *Engine {
	def := config.DefaultRelayConfig()
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}
	if cfg.HalfCloseTimeout <= 0 {
		cfg.HalfCloseTimeout = def.HalfCloseTimeout
	}
	return &Engine{
		bufSize:          cfg.BufferSize,
		halfCloseTimeout: cfg.HalfCloseTimeout.Duration(),
		metrics:          m,
	}
}

// Relay 在 a 与 b 之间双向转发，直到两个方向都结束
//
// 一个方向读到 EOF 后只半关闭对应的写方向；另一方向在
// HalfCloseTimeout 内没有任何数据时两端被重置。
// 正常结束时两端已 Close；返回错误时两端已 Reset。
func (e *Engine) Relay(ctx context.Context, a, b Endpoint) (Result, error) {
	e.metrics.RelayStarted()

	var (
		res       Result
		resetOnce sync.Once
		idle      = newIdleTimer(e.halfCloseTimeout)
	)

	resetAll := func() {
		resetOnce.Do(func() {
			_ = a.Reset()
			_ = b.Reset()
		})
	}
	stop := context.AfterFunc(ctx, resetAll)

	pipe := func(dst, src Endpoint, n *int64) func() error {
		return func() error {
			var err error
			*n, err = e.copy(dst, src, idle.touch)
			if err != nil {
				resetAll()
				return err
			}
			if cerr := dst.CloseWrite(); cerr != nil {
				log.Debug("半关闭失败", "error", cerr)
			}
			// 先结束的方向开始对另一方向计空闲
			idle.arm(resetAll)
			return nil
		}
	}

	var g errgroup.Group
	g.Go(pipe(b, a, &res.AToB))
	g.Go(pipe(a, b, &res.BToA))
	err := g.Wait()

	cancelled := !stop()
	timedOut := idle.stop()

	// 两个方向都已正常结束时，之后到来的取消不改变结果
	if err != nil {
		switch {
		case cancelled:
			err = ctx.Err()
		case timedOut:
			err = ErrHalfCloseTimeout
		}
	}

	if err == nil {
		err = multierr.Combine(a.Close(), b.Close())
		if err != nil {
			log.Debug("关闭中继端点失败", "error", err)
			err = nil
		}
	} else {
		resetAll()
	}

	log.Debug(fmt.Sprintf("wrote %d bytes, received %d bytes", res.AToB, res.BToA),
		"sent", sizestr.ToString(res.AToB),
		"recv", sizestr.ToString(res.BToA),
		"error", err)
	e.metrics.RelayFinished(res.AToB, res.BToA)
	return res, err
}

// copy 复制直到 src 读到 EOF，每次写入成功后调用 progress
func (e *Engine) copy(dst io.Writer, src io.Reader, progress func()) (int64, error) {
	buf := pool.Get(e.bufSize)
	defer pool.Put(buf)

	var total int64
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			w, werr := dst.Write(buf[:n])
			total += int64(w)
			if werr != nil {
				return total, fmt.Errorf("write: %w", werr)
			}
			if w != n {
				return total, io.ErrShortWrite
			}
			progress()
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				return total, nil
			}
			return total, fmt.Errorf("read: %w", rerr)
		}
	}
}
