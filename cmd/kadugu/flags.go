package main

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/dep2p/go-kadugu/config"
)

// ============================================================================
//                              命令行参数
// ============================================================================

// sharerFlag 可选值的 -s 参数
//
// 单独的 -s 进入共享端模式；-s=id1,id2 同时给出授权列表。
type sharerFlag struct {
	set bool
	ids []string
}

func (f *sharerFlag) String() string {
	if f == nil {
		return ""
	}
	return strings.Join(f.ids, ",")
}

func (f *sharerFlag) Set(v string) error {
	f.set = true
	if v == "true" {
		return nil
	}
	if v == "false" {
		f.set = false
		return nil
	}
	f.ids = append(f.ids, config.SplitAndTrim(v, ",")...)
	return nil
}

func (f *sharerFlag) IsBoolFlag() bool { return true }

// options 解析后的命令行参数
type options struct {
	printID  bool
	sharer   sharerFlag
	user     string
	expose   bool
	addr     string
	listen   string
	proxy    string
	tr       string
	key      string
	cfgFile  string
	metrics  string
	logLevel string
	logFile  string
	version  bool

	// set 显式出现过的参数名（规范名）
	set map[string]bool
}

// aliases 短参数到规范名
var aliases = map[string]string{
	"p": "print-peer-id",
	"s": "sharer",
	"u": "user",
	"e": "expose-lan",
}

func newFlagSet(out io.Writer) (*flag.FlagSet, *options) {
	o := &options{set: make(map[string]bool)}
	fs := flag.NewFlagSet("kadugu", flag.ContinueOnError)
	fs.SetOutput(out)

	fs.BoolVar(&o.printID, "p", false, "打印本节点 PeerID 后退出")
	fs.BoolVar(&o.printID, "print-peer-id", false, "同 -p")
	fs.Var(&o.sharer, "s", "共享端模式，可选逗号分隔的授权 PeerID 列表（-s=id1,id2 或其后的位置参数）")
	fs.Var(&o.sharer, "sharer", "同 -s")
	fs.StringVar(&o.user, "u", "", "使用端模式，参数为共享端 PeerID")
	fs.StringVar(&o.user, "user", "", "同 -u")
	fs.BoolVar(&o.expose, "e", false, "使用端代理监听 0.0.0.0")
	fs.BoolVar(&o.expose, "expose-lan", false, "同 -e")
	fs.StringVar(&o.addr, "addr", "", "共享端地址 host:port（使用端）")
	fs.StringVar(&o.listen, "listen", "", "共享端监听地址（默认 "+config.DefaultListenAddr+"）")
	fs.StringVar(&o.proxy, "proxy", "", "本地代理监听地址（默认 127.0.0.1:"+config.DefaultProxyPort+"）")
	fs.StringVar(&o.tr, "transport", "", "安全通道：quic 或 tcp（默认 quic）")
	fs.StringVar(&o.key, "key", "", "密钥文件路径（默认 identity.keypair）")
	fs.StringVar(&o.cfgFile, "config", "", "JSON 配置文件")
	fs.StringVar(&o.metrics, "metrics", "", "Prometheus /metrics 监听地址")
	fs.StringVar(&o.logLevel, "log-level", "", "日志级别，例如 info 或 tunnel/server=debug,info")
	fs.StringVar(&o.logFile, "log-file", "", "日志文件路径")
	fs.BoolVar(&o.version, "version", false, "打印版本后退出")

	fs.Usage = func() {
		fmt.Fprintln(out, "用法:")
		fmt.Fprintln(out, "  kadugu -p                       打印 PeerID")
		fmt.Fprintln(out, "  kadugu -s [id1,id2,...]         共享本机出口")
		fmt.Fprintln(out, "  kadugu -u <peerID> -addr h:p    通过共享端上网")
		fmt.Fprintln(out)
		fs.PrintDefaults()
	}
	return fs, o
}

// parseArgs 解析参数；-s 之后的位置参数视为授权列表，可与其他参数交错
func parseArgs(args []string, out io.Writer) (*options, error) {
	fs, o := newFlagSet(out)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	var positional []string
	for rest := fs.Args(); len(rest) > 0; rest = fs.Args() {
		positional = append(positional, rest[0])
		if err := fs.Parse(rest[1:]); err != nil {
			return nil, err
		}
	}

	fs.Visit(func(f *flag.Flag) {
		name := f.Name
		if canonical, ok := aliases[name]; ok {
			name = canonical
		}
		o.set[name] = true
	})

	if len(positional) > 0 {
		if !o.sharer.set {
			return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(positional, " "))
		}
		for _, arg := range positional {
			o.sharer.ids = append(o.sharer.ids, config.SplitAndTrim(arg, ",")...)
		}
	}
	return o, nil
}

// apply 将显式给出的参数覆盖到配置上
func (o *options) apply(cfg *config.Config) {
	if o.set["key"] {
		cfg.Identity.KeyFile = o.key
	}
	if o.set["transport"] {
		cfg.Transport.Protocol = strings.ToLower(o.tr)
	}
	if o.set["listen"] {
		cfg.Transport.ListenAddr = o.listen
	}
	if o.set["proxy"] {
		cfg.User.ProxyAddr = o.proxy
	}
	if o.set["expose-lan"] {
		cfg.User.ExposeLAN = o.expose
	}
	if o.set["addr"] {
		cfg.User.SharerAddr = o.addr
	}
	if o.set["metrics"] {
		cfg.Metrics.ListenAddr = o.metrics
	}
	if o.set["log-level"] {
		cfg.Log.Level = o.logLevel
	}
	if o.set["log-file"] {
		cfg.Log.File = o.logFile
	}
	if o.user != "" {
		cfg.User.SharerPeer = o.user
	}
	if len(o.sharer.ids) > 0 {
		cfg.Sharer.AllowedPeers = o.sharer.ids
	}
}
