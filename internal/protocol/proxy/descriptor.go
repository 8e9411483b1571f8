package proxy

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"unicode/utf8"

	"github.com/multiformats/go-varint"

	"github.com/dep2p/go-kadugu/pkg/types"
)

// MaxDescriptorLen 目标描述符最大字节数
const MaxDescriptorLen = 1024

// ValidateTarget 检查 host:port 格式
func ValidateTarget(target string) error {
	if len(target) == 0 || len(target) > MaxDescriptorLen {
		return fmt.Errorf("%w: length %d", types.ErrInvalidDescriptor, len(target))
	}
	if !utf8.ValidString(target) {
		return fmt.Errorf("%w: not utf-8", types.ErrInvalidDescriptor)
	}
	host, port, err := net.SplitHostPort(target)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrInvalidDescriptor, err)
	}
	if host == "" {
		return fmt.Errorf("%w: empty host", types.ErrInvalidDescriptor)
	}
	p, err := strconv.Atoi(port)
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("%w: bad port %q", types.ErrInvalidDescriptor, port)
	}
	return nil
}

// WriteDescriptor 写入目标描述符
func WriteDescriptor(w io.Writer, target string) error {
	if err := ValidateTarget(target); err != nil {
		return err
	}
	buf := make([]byte, 0, varint.UvarintSize(uint64(len(target)))+len(target))
	buf = append(buf, varint.ToUvarint(uint64(len(target)))...)
	buf = append(buf, target...)
	_, err := w.Write(buf)
	return err
}

// ReadDescriptor 读取并校验目标描述符
//
// 格式错误返回包装 types.ErrInvalidDescriptor 的错误，I/O 错误原样返回。
func ReadDescriptor(r io.Reader) (string, error) {
	br := byteReader{r: r}
	n, err := varint.ReadUvarint(&br)
	if err != nil {
		if errors.Is(err, varint.ErrOverflow) || errors.Is(err, varint.ErrNotMinimal) {
			return "", fmt.Errorf("%w: length prefix: %v", types.ErrInvalidDescriptor, err)
		}
		return "", err
	}
	if n == 0 || n > MaxDescriptorLen {
		return "", fmt.Errorf("%w: length %d", types.ErrInvalidDescriptor, n)
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}

	target := string(buf)
	if err := ValidateTarget(target); err != nil {
		return "", err
	}
	return target, nil
}

// byteReader 每次只读一个字节，保证不越界读入负载
type byteReader struct {
	r   io.Reader
	buf [1]byte
}

func (b *byteReader) ReadByte() (byte, error) {
	for {
		n, err := b.r.Read(b.buf[:])
		if n == 1 {
			return b.buf[0], nil
		}
		if err != nil {
			return 0, err
		}
	}
}
