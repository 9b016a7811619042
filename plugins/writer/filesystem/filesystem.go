package filesystem

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"linereviser/pkg/contract"
)

// DefaultSuffix: 输出文件名在扩展名前追加的默认后缀（a.tex → a.out.tex）。
const DefaultSuffix = ".out"

// Options: 最小必要选项。
type Options struct {
	// OutputDir: 输出根目录；为空时写到源文件旁边。
	OutputDir string `json:"output_dir"`
	// Suffix: 插入到扩展名之前的后缀；nil 采用 DefaultSuffix。
	Suffix *string `json:"suffix,omitempty"`
	// InPlace: 允许覆盖源文件（OutputDir 与 Suffix 均为空时必须显式开启）。
	InPlace bool `json:"in_place,omitempty"`
	// Atomic: 是否使用原子替换（同目录临时文件 + rename）。
	// 默认值：true。未提供该字段时采用原子写；显式 false 可关闭。
	Atomic *bool `json:"atomic,omitempty"`
	// Flat: 设置 OutputDir 时是否扁平化输出（仅保留文件名，不保留目录层级）。
	// 默认 true；当为 nil 时采用默认 true；显式 false 覆盖。
	Flat *bool `json:"flat,omitempty"`
	// PermFile/PermDir: 可选权限；为 0 表示使用实现/平台默认。
	PermFile os.FileMode `json:"perm_file,omitempty"`
	PermDir  os.FileMode `json:"perm_dir,omitempty"`
	// BufSize: 写缓冲区大小；<=0 使用实现默认。
	BufSize int `json:"buf_size,omitempty"`
}

// FS 为文件系统 Writer。
type FS struct {
	root    string
	suffix  string
	atomic  bool
	flat    bool
	permF   os.FileMode
	permD   os.FileMode
	bufSize int
}

// New 创建文件系统 Writer 实现。
func New(opts *Options) (*FS, error) {
	if opts == nil {
		opts = &Options{}
	}
	suffix := DefaultSuffix
	if opts.Suffix != nil {
		suffix = *opts.Suffix
	}
	root := strings.TrimSpace(opts.OutputDir)
	if root == "" && suffix == "" && !opts.InPlace {
		return nil, fmt.Errorf("%w: writer fs: empty suffix without output_dir overwrites sources (set in_place)", contract.ErrInvalidInput)
	}
	bsz := opts.BufSize
	if bsz <= 0 {
		bsz = 64 * 1024
	}
	pf := opts.PermFile
	if pf == 0 {
		pf = 0o644
	}
	pd := opts.PermDir
	if pd == 0 {
		pd = 0o755
	}
	flat := true
	if opts.Flat != nil {
		flat = *opts.Flat
	}
	atomic := true
	if opts.Atomic != nil {
		atomic = *opts.Atomic
	}
	return &FS{root: root, suffix: suffix, atomic: atomic, flat: flat, permF: pf, permD: pd, bufSize: bsz}, nil
}

// OutputName 在扩展名之前插入 suffix："a.tex" + ".out" → "a.out.tex"。
func OutputName(base, suffix string) string {
	ext := filepath.Ext(base)
	if ext == base {
		// 以点开头且无其他扩展名（如 ".latexmkrc"）
		ext = ""
	}
	return strings.TrimSuffix(base, ext) + suffix + ext
}

var _ contract.Writer = (*FS)(nil)

// Write 将 r 的全部字节写入到基于 id 映射的目标路径。
func (w *FS) Write(ctx context.Context, id contract.ArtifactID, r io.Reader) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	dest, err := w.mapPath(id)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dest), w.permD); err != nil {
		return err
	}

	if w.atomic {
		return w.writeAtomic(ctx, dest, r)
	}
	return w.writeOverwrite(ctx, dest, r)
}

// mapPath: 计算输出文件名，再按模式决定目录。
// - 无 OutputDir：源文件所在目录（STDIN 无目录，视为无效）；
// - Flat：OutputDir 下仅保留文件名；
// - 非扁平：保留相对层级，禁止绝对路径、父级逃逸、卷名。
func (w *FS) mapPath(id contract.ArtifactID) (string, error) {
	if id == contract.StdinID && w.root == "" {
		return "", contract.ErrPathInvalid
	}
	rel := filepath.Clean(filepath.FromSlash(string(id)))
	base := filepath.Base(rel)
	if base == "." || base == ".." || base == string(filepath.Separator) || base == "" {
		return "", contract.ErrPathInvalid
	}
	name := OutputName(base, w.suffix)
	if w.root == "" {
		return filepath.Join(filepath.Dir(rel), name), nil
	}
	if w.flat {
		return filepath.Join(w.root, name), nil
	}
	if filepath.IsAbs(rel) {
		return "", contract.ErrPathInvalid
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", contract.ErrPathInvalid
	}
	if vol := filepath.VolumeName(rel); vol != "" {
		return "", contract.ErrPathInvalid
	}
	return filepath.Join(w.root, filepath.Dir(rel), name), nil
}

// Target 返回 id 对应的输出路径（dry-run/日志用）。
func (w *FS) Target(id contract.ArtifactID) (string, error) { return w.mapPath(id) }

func (w *FS) writeOverwrite(ctx context.Context, dest string, r io.Reader) error {
	f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, w.permF)
	if err != nil {
		return err
	}
	// 确保及时关闭
	defer f.Close()

	bw := bufio.NewWriterSize(f, w.bufSize)
	if _, err := io.Copy(bw, readerWithCtx(ctx, r)); err != nil {
		return err
	}
	return bw.Flush()
}

func (w *FS) writeAtomic(ctx context.Context, dest string, r io.Reader) error {
	dir := filepath.Dir(dest)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	// 目标权限：尽量与期望一致
	_ = os.Chmod(tmpPath, w.permF)

	bw := bufio.NewWriterSize(tmp, w.bufSize)
	if _, err := io.Copy(bw, readerWithCtx(ctx, r)); err != nil {
		_ = bw.Flush()
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	// 平台特定的原子替换（或最佳努力）：
	if err := osReplace(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	// 最佳努力：在部分平台同步父目录，提升崩溃安全性
	_ = syncDir(dir)
	return nil
}

// readerWithCtx: 在每次 Read 前检查 ctx 是否已取消。
func readerWithCtx(ctx context.Context, r io.Reader) io.Reader {
	return &ctxReader{ctx: ctx, r: r}
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *ctxReader) Read(p []byte) (int, error) {
	select {
	case <-cr.ctx.Done():
		return 0, cr.ctx.Err()
	default:
	}
	return cr.r.Read(p)
}
