package lines

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"unicode/utf8"

	"linereviser/pkg/contract"
	"linereviser/pkg/revise"
)

// Options 为行拆分器的可选配置（最小必要）。
type Options struct {
	// KeepBOM: 保留文件开头的 UTF-8 BOM。默认去除，避免首行匹配失败。
	KeepBOM bool `json:"keep_bom"`
	// MaxBytes: 单文件最大字节数。0 表示不限制。
	MaxBytes int64 `json:"max_bytes"`
	// RequireUTF8: 遇到非法 UTF-8 时报错（默认透传）。
	RequireUTF8 bool `json:"require_utf8"`
}

// Splitter 将整个文件读入并按归一化后的换行拆分。
type Splitter struct {
	keepBOM  bool
	maxBytes int64
	strict   bool
}

var bom = []byte{0xEF, 0xBB, 0xBF}

// New 创建行拆分器。
func New(opts *Options) *Splitter {
	s := &Splitter{}
	if opts != nil {
		s.keepBOM = opts.KeepBOM
		if opts.MaxBytes > 0 {
			s.maxBytes = opts.MaxBytes
		}
		s.strict = opts.RequireUTF8
	}
	return s
}

// Split 读取 r 的全部内容并拆分为行；\r\n 与单独的 \r 视同 \n。
func (s *Splitter) Split(ctx context.Context, fileID contract.FileID, r io.Reader) (contract.Lines, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	src := r
	if s.maxBytes > 0 {
		src = io.LimitReader(r, s.maxBytes+1)
	}
	b, err := io.ReadAll(src)
	if err != nil {
		return nil, err
	}
	if s.maxBytes > 0 && int64(len(b)) > s.maxBytes {
		return nil, fmt.Errorf("%w: %s exceeds max_bytes=%d", contract.ErrInvalidInput, fileID, s.maxBytes)
	}
	if !s.keepBOM {
		b = bytes.TrimPrefix(b, bom)
	}
	if s.strict && !utf8.Valid(b) {
		return nil, fmt.Errorf("%w: %s is not valid utf-8", contract.ErrInvalidInput, fileID)
	}
	return contract.Lines(revise.SplitLines(string(b))), nil
}
