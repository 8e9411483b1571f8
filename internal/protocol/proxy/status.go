package proxy

import (
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/multiformats/go-varint"
)

// Status 响应状态码
type Status byte

const (
	// StatusOK 目标已连通
	StatusOK Status = 0
	// StatusDialFailed 无法连接目标
	StatusDialFailed Status = 1
	// StatusBadDescriptor 描述符非法
	StatusBadDescriptor Status = 2
	// StatusResourceLimit 超出限额
	StatusResourceLimit Status = 3
)

// maxReasonLen 状态原因最大字节数
const maxReasonLen = 1024

// String 返回状态名
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusDialFailed:
		return "DialFailed"
	case StatusBadDescriptor:
		return "BadDescriptor"
	case StatusResourceLimit:
		return "ResourceLimit"
	default:
		return fmt.Sprintf("Status(%d)", byte(s))
	}
}

// WriteStatus 写入状态应答
//
// 过长的 reason 会被截断。
func WriteStatus(w io.Writer, code Status, reason string) error {
	if len(reason) > maxReasonLen {
		reason = reason[:maxReasonLen]
		for !utf8.ValidString(reason) {
			reason = reason[:len(reason)-1]
		}
	}
	buf := make([]byte, 0, 1+varint.UvarintSize(uint64(len(reason)))+len(reason))
	buf = append(buf, byte(code))
	buf = append(buf, varint.ToUvarint(uint64(len(reason)))...)
	buf = append(buf, reason...)
	_, err := w.Write(buf)
	return err
}

// ReadStatus 读取状态应答
func ReadStatus(r io.Reader) (Status, string, error) {
	br := byteReader{r: r}
	code, err := br.ReadByte()
	if err != nil {
		return 0, "", err
	}
	n, err := varint.ReadUvarint(&br)
	if err != nil {
		return 0, "", fmt.Errorf("status reason length: %w", err)
	}
	if n > maxReasonLen {
		return 0, "", fmt.Errorf("status reason too long: %d", n)
	}
	reason := make([]byte, n)
	if _, err := io.ReadFull(r, reason); err != nil {
		return 0, "", err
	}
	return Status(code), string(reason), nil
}
