package client

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/dep2p/go-kadugu/internal/core/metrics"
	"github.com/dep2p/go-kadugu/internal/core/relay"
	"github.com/dep2p/go-kadugu/pkg/types"
)

// requestHeaderTimeout 读取本地请求头的超时
const requestHeaderTimeout = 30 * time.Second

// errBadRequest 本地请求无法代理
var errBadRequest = errors.New("bad proxy request")

// hopHeaders 不转发给源站的逐跳头
var hopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Upgrade",
}

// handleLocal 处理一个本地代理连接
func (c *Client) handleLocal(lc net.Conn) {
	defer c.wg.Done()
	defer c.untrackLocal(lc)

	if tc, ok := lc.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}

	br := bufio.NewReader(lc)
	_ = lc.SetReadDeadline(time.Now().Add(requestHeaderTimeout))
	req, err := http.ReadRequest(br)
	if err != nil {
		log.Debug("解析本地请求失败", "remoteAddr", lc.RemoteAddr().String(), "error", err)
		writeError(lc, http.StatusBadRequest, err)
		_ = lc.Close()
		return
	}
	_ = lc.SetReadDeadline(time.Time{})

	target, err := requestTarget(req)
	if err != nil {
		writeError(lc, http.StatusBadRequest, err)
		_ = lc.Close()
		return
	}

	c.metrics.StreamOpened()
	status := metrics.StreamError
	defer func() { c.metrics.StreamClosed(status) }()

	ps, err := c.Open(c.ctx, target)
	if err != nil {
		code := statusCode(err)
		if code == http.StatusServiceUnavailable {
			status = metrics.StreamUnreachable
		} else if errors.Is(err, types.ErrDialFailure) {
			status = metrics.StreamDialFailed
		}
		log.Debug("打开代理流失败", "target", target, "error", err)
		writeError(lc, code, err)
		_ = lc.Close()
		return
	}

	if req.Method == http.MethodConnect {
		if _, err := io.WriteString(lc, "HTTP/1.1 200 Connection established\r\n\r\n"); err != nil {
			_ = ps.Reset()
			_ = lc.Close()
			return
		}
	} else {
		rewriteRequest(req)
		if err := req.Write(ps); err != nil {
			log.Debug("转发请求失败", "target", target, "error", err)
			_ = ps.Reset()
			_ = lc.Close()
			return
		}
	}

	// 浏览器可能在隧道建立前就发送了数据
	var early io.Reader
	if n := br.Buffered(); n > 0 {
		b, _ := br.Peek(n)
		early = bytes.NewReader(b)
	}

	res, err := c.relay.Relay(c.ctx, relay.NewConnEndpoint(lc, early), relay.NewStreamEndpoint(ps))
	if err != nil {
		log.Debug("中继中断", "target", target, "error", err)
		return
	}
	status = metrics.StreamOK
	log.Debug("代理完成", "method", req.Method, "target", target, "up", res.AToB, "down", res.BToA)
}

// requestTarget 从代理请求中取出 host:port
func requestTarget(req *http.Request) (string, error) {
	if req.Method == http.MethodConnect {
		host, port, err := net.SplitHostPort(req.Host)
		if err != nil || host == "" || port == "" {
			return "", fmt.Errorf("%w: CONNECT target %q", errBadRequest, req.Host)
		}
		return req.Host, nil
	}

	if !req.URL.IsAbs() || req.URL.Host == "" {
		return "", fmt.Errorf("%w: not an absolute-form request", errBadRequest)
	}
	if !strings.EqualFold(req.URL.Scheme, "http") {
		return "", fmt.Errorf("%w: unsupported scheme %q", errBadRequest, req.URL.Scheme)
	}

	host := req.URL.Host
	if req.URL.Port() == "" {
		host = net.JoinHostPort(req.URL.Hostname(), "80")
	}
	return host, nil
}

// rewriteRequest 改写为源站形式并强制关闭连接
//
// Connection 头列出的字段同样按逐跳头删除；TE 中的 trailers 保留。
func rewriteRequest(req *http.Request) {
	for _, v := range req.Header["Connection"] {
		for _, f := range strings.Split(v, ",") {
			if f = textproto.TrimString(f); f != "" {
				req.Header.Del(f)
			}
		}
	}
	trailers := teTrailers(req.Header)
	for _, h := range hopHeaders {
		req.Header.Del(h)
	}
	if trailers {
		req.Header.Set("Te", "trailers")
	}
	// 未带 User-Agent 时不补默认值
	if _, ok := req.Header["User-Agent"]; !ok {
		req.Header.Set("User-Agent", "")
	}
	req.RequestURI = ""
	req.Host = req.URL.Host
	req.Close = true
}

func teTrailers(h http.Header) bool {
	for _, v := range h["Te"] {
		for _, f := range strings.Split(v, ",") {
			// 形如 "trailers;q=1" 的参数忽略
			f, _, _ = strings.Cut(f, ";")
			if strings.EqualFold(textproto.TrimString(f), "trailers") {
				return true
			}
		}
	}
	return false
}

// statusCode 将打开流的错误映射为代理响应码
func statusCode(err error) int {
	switch {
	case errors.Is(err, types.ErrPeerUnreachable),
		errors.Is(err, types.ErrTransportClosed),
		errors.Is(err, types.ErrIdentityMismatch),
		errors.Is(err, ErrClientStopped):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func writeError(w io.Writer, code int, cause error) {
	body := http.StatusText(code) + "\n"
	if cause != nil {
		body = fmt.Sprintf("%s: %v\n", http.StatusText(code), cause)
	}
	resp := &http.Response{
		StatusCode:    code,
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        http.Header{"Content-Type": {"text/plain; charset=utf-8"}},
		ContentLength: int64(len(body)),
		Body:          io.NopCloser(strings.NewReader(body)),
		Close:         true,
	}
	_ = resp.Write(w)
}
