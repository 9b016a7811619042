package linear

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"strings"

	"linereviser/pkg/contract"
	"linereviser/pkg/revise"
)

// Options: 行间分隔符与末尾换行策略。
type Options struct {
	// Separator: "os"（默认，按平台）| "lf" | "crlf" | 其他任意字面量。
	Separator string `json:"separator"`
	// TrailingNewline: 输出末尾追加一个分隔符（仅当最后一行非空时）。
	TrailingNewline bool `json:"trailing_newline"`
}

type assembler struct {
	sep      string
	trailing bool
}

// New 从原样 JSON Options 创建线性装配器（严格解码）。
func New(raw json.RawMessage) (contract.Assembler, error) {
	var opts Options
	if len(raw) > 0 {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&opts); err != nil {
			return nil, fmt.Errorf("%w: assembler linear: %v", contract.ErrInvalidInput, err)
		}
	}
	return &assembler{sep: ResolveSeparator(opts.Separator), trailing: opts.TrailingNewline}, nil
}

// ResolveSeparator 将配置名（os|lf|crlf|cr，不区分大小写）解析为实际分隔符；其他值按字面使用。
func ResolveSeparator(name string) string {
	switch strings.ToLower(name) {
	case "", "os":
		if runtime.GOOS == "windows" {
			return "\r\n"
		}
		return "\n"
	case "lf":
		return "\n"
	case "crlf":
		return "\r\n"
	case "cr":
		return "\r"
	default:
		return name
	}
}

// Assemble 以单一分隔符连接各行；行内已有的 '\n'（多行替换值）原样保留。
func (a *assembler) Assemble(ctx context.Context, fileID contract.FileID, lines contract.Lines) (io.Reader, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	if len(lines) == 0 {
		return strings.NewReader(""), nil
	}
	s := revise.JoinLines(lines, a.sep)
	if a.trailing && lines[len(lines)-1] != "" {
		s += a.sep
	}
	return strings.NewReader(s), nil
}

var _ contract.Assembler = (*assembler)(nil)
