package stdout

import (
	"bufio"
	"context"
	"io"
	"os"
	"sync"

	"linereviser/pkg/contract"
)

// Writer 将产物写到标准输出（或注入的 io.Writer）；多文件按到达顺序依次输出。
type Writer struct {
	mu  sync.Mutex
	out io.Writer
}

// New 创建写到 os.Stdout 的 Writer。
func New() *Writer { return &Writer{out: os.Stdout} }

// NewTo 创建写到 w 的 Writer（测试用）。
func NewTo(w io.Writer) *Writer { return &Writer{out: w} }

// Write 将 r 全部复制到输出。
func (w *Writer) Write(ctx context.Context, _ contract.ArtifactID, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	bw := bufio.NewWriter(w.out)
	if _, err := io.Copy(bw, r); err != nil {
		return err
	}
	return bw.Flush()
}

var _ contract.Writer = (*Writer)(nil)
