// Package main 提供 kadugu 命令行入口
//
// 退出码：0 正常退出；1 启动失败（身份、绑定、配置）；2 用法错误。
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/dep2p/go-kadugu/config"
	"github.com/dep2p/go-kadugu/internal/app"
	"github.com/dep2p/go-kadugu/internal/core/identity"
	"github.com/dep2p/go-kadugu/pkg/protocolids"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	o, err := parseArgs(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintf(stderr, "错误: %v\n", err)
		return exitUsage
	}

	if o.version {
		fmt.Fprintln(stdout, protocolids.Agent())
		return exitOK
	}

	cfg, err := loadConfig(o)
	if err != nil {
		fmt.Fprintf(stderr, "配置错误: %v\n", err)
		return exitFailure
	}

	if o.printID {
		id, err := identity.GenerateOrLoad(identity.NewFileKeyStore(cfg.Identity.KeyFile))
		if err != nil {
			fmt.Fprintf(stderr, "错误: %v\n", err)
			return exitFailure
		}
		fmt.Fprintln(stdout, id.PeerID())
		return exitOK
	}

	var mode app.Mode
	switch {
	case o.sharer.set && o.user != "":
		fmt.Fprintln(stderr, "错误: -s 与 -u 不能同时使用")
		return exitUsage
	case o.sharer.set:
		mode = app.ModeSharer
		err = cfg.ValidateSharer()
	case o.user != "":
		mode = app.ModeUser
		err = cfg.ValidateUser()
	default:
		fs, _ := newFlagSet(stderr)
		fs.Usage()
		return exitUsage
	}
	if err != nil {
		fmt.Fprintf(stderr, "配置错误: %v\n", err)
		return exitFailure
	}

	b := app.NewBootstrap(cfg, mode, app.WithOnStarted(func(b *app.Bootstrap) {
		printInfo(stdout, b)
	}))
	if err := app.Run(ctx, b); err != nil {
		fmt.Fprintf(stderr, "错误: %v\n", err)
		return exitFailure
	}
	return exitOK
}

// loadConfig 默认值 < 配置文件 < 环境变量 < 命令行参数
func loadConfig(o *options) (*config.Config, error) {
	cfg := config.NewConfig()
	if o.cfgFile != "" {
		if err := cfg.LoadFile(o.cfgFile); err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv()
	o.apply(cfg)
	return cfg, nil
}

func printInfo(w io.Writer, b *app.Bootstrap) {
	fmt.Fprintf(w, "%s\n", protocolids.Agent())
	fmt.Fprintf(w, "  peer id:   %s\n", b.Identity().PeerID())

	switch b.Mode() {
	case app.ModeSharer:
		fmt.Fprintf(w, "  sharing:   %s\n", b.Server().Addr())
		fmt.Fprintf(w, "  users run: kadugu -u %s -addr <this-host>:<port>\n", b.Identity().PeerID())
	case app.ModeUser:
		fmt.Fprintf(w, "  sharer:    %s\n", b.Client().Sharer())
		fmt.Fprintf(w, "  proxy:     http://%s\n", b.Client().Addr())
	}
}
