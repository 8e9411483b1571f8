package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// Run 启动应用，阻塞到 ctx 取消或收到 SIGINT/SIGTERM，然后优雅停止
//
// 启动失败时直接返回错误；正常退出返回 Stop 的结果。
func Run(ctx context.Context, b *Bootstrap) error {
	if err := b.Start(ctx); err != nil {
		return err
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	<-sigCtx.Done()
	log.Info("正在退出...")

	return b.Stop(context.WithoutCancel(ctx))
}
