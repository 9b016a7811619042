package filesystem

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"linereviser/pkg/contract"
)

// Options 为 FileSystem Reader 的可选配置（最小必要）。
type Options struct {
	// BufSize 为读缓冲区大小（字节）。默认 64KiB。
	BufSize int `json:"buf_size"`
	// ExcludeDirNames: 在扫描目录时跳过这些目录名（基名完全匹配）。
	// 例如 [".git","node_modules","vendor"]。
	// 仅影响目录递归，不影响单文件 root。
	ExcludeDirNames []string `json:"exclude_dir_names"`
	// AllowExts: 目录扫描时仅接受这些扩展名（含点，大小写不敏感）；为空接受全部。
	AllowExts []string `json:"allow_exts"`
	// ExcludeSuffixes: 目录扫描时跳过以这些后缀结尾的文件名，避免重复处理已输出的产物（如 ".out.tex"）。
	ExcludeSuffixes []string `json:"exclude_suffixes"`
	// ExcludeStemSuffixes: 目录扫描时跳过主名（去掉扩展名）以这些后缀结尾的文件，如 fs Writer 的输出后缀 ".out"。
	ExcludeStemSuffixes []string `json:"exclude_stem_suffixes"`
	// ExcludeDirs: 目录扫描时跳过这些目录（按绝对路径匹配），如位于输入目录内的输出目录。
	ExcludeDirs []string `json:"exclude_dirs"`
}

// FileSystem 实现基于文件系统与 STDIN 的 Reader。
// 显式给出的文件总是被读取；扩展名与后缀过滤只作用于目录扫描。
type FileSystem struct {
	bufSize int
	// 以小写形式保存，比较时按小写基名匹配。
	excludeDir map[string]struct{}
	allowExt   map[string]struct{}
	excludeSfx []string
	excludeStem []string
	// 绝对、已清理的路径
	excludePath map[string]struct{}
}

// New 创建 FileSystem Reader。
func New(opts *Options) *FileSystem {
	const defaultBuf = 64 * 1024
	b := defaultBuf
	if opts != nil && opts.BufSize > 0 {
		b = opts.BufSize
	}
	ex := make(map[string]struct{})
	if opts != nil && len(opts.ExcludeDirNames) > 0 {
		for _, name := range opts.ExcludeDirNames {
			if name == "" {
				continue
			}
			// 小写基名匹配，调用方无需关心大小写与前后斜杠。
			ex[strings.ToLower(name)] = struct{}{}
		}
	}
	fs := &FileSystem{bufSize: b, excludeDir: ex}
	if opts != nil {
		for _, e := range opts.AllowExts {
			e = strings.ToLower(strings.TrimSpace(e))
			if e == "" {
				continue
			}
			if !strings.HasPrefix(e, ".") {
				e = "." + e
			}
			if fs.allowExt == nil {
				fs.allowExt = make(map[string]struct{})
			}
			fs.allowExt[e] = struct{}{}
		}
		for _, sfx := range opts.ExcludeSuffixes {
			if sfx = strings.ToLower(strings.TrimSpace(sfx)); sfx != "" {
				fs.excludeSfx = append(fs.excludeSfx, sfx)
			}
		}
		for _, sfx := range opts.ExcludeStemSuffixes {
			if sfx = strings.ToLower(strings.TrimSpace(sfx)); sfx != "" {
				fs.excludeStem = append(fs.excludeStem, sfx)
			}
		}
		for _, d := range opts.ExcludeDirs {
			if strings.TrimSpace(d) == "" {
				continue
			}
			if fs.excludePath == nil {
				fs.excludePath = make(map[string]struct{})
			}
			fs.excludePath[absPath(d)] = struct{}{}
		}
	}
	return fs
}

// absPath 返回清理后的绝对路径；取工作目录失败时退回清理后的原路径。
func absPath(p string) string {
	if a, err := filepath.Abs(p); err == nil {
		return a
	}
	return filepath.Clean(p)
}

// accept 判断目录扫描中的文件名是否需要处理。
func (r *FileSystem) accept(name string) bool {
	lower := strings.ToLower(name)
	for _, sfx := range r.excludeSfx {
		if strings.HasSuffix(lower, sfx) {
			return false
		}
	}
	ext := filepath.Ext(lower)
	if ext == lower {
		ext = ""
	}
	stem := strings.TrimSuffix(lower, ext)
	for _, sfx := range r.excludeStem {
		if strings.HasSuffix(stem, sfx) {
			return false
		}
	}
	if len(r.allowExt) == 0 {
		return true
	}
	_, ok := r.allowExt[ext]
	return ok
}

// Accept 报告目录扫描是否会处理该文件（按基名过滤）。
func (r *FileSystem) Accept(name string) bool { return r.accept(filepath.Base(name)) }

// SkipDir 报告目录扫描是否跳过目录 dir（按基名或绝对路径匹配）。
func (r *FileSystem) SkipDir(dir string) bool {
	if _, ok := r.excludeDir[strings.ToLower(filepath.Base(dir))]; ok {
		return true
	}
	if len(r.excludePath) == 0 {
		return false
	}
	_, ok := r.excludePath[absPath(dir)]
	return ok
}

// Iterate 遍历 roots，按稳定顺序对每个常规文件调用 yield。
// 支持 roots 为空或仅包含 "-" 作为 STDIN。
func (r *FileSystem) Iterate(ctx context.Context, roots []string, yield func(fileID contract.FileID, rc io.ReadCloser) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if len(roots) == 0 || (len(roots) == 1 && roots[0] == "-") {
		// 统一缓冲策略：STDIN 也使用 bufio.Reader 封装
		return yield(contract.StdinID, newBufferedCloser(os.Stdin, r.bufSize))
	}
	// 禁止与其他根混用 "-"
	if len(roots) > 1 {
		for _, s := range roots {
			if s == "-" {
				return errors.New("stdin '-' cannot be mixed with other roots")
			}
		}
	}

	for _, root := range roots {
		if err := r.iterateOne(ctx, root, yield); err != nil {
			return err
		}
	}
	return nil
}

func (r *FileSystem) iterateOne(ctx context.Context, root string, yield func(contract.FileID, io.ReadCloser) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	info, err := os.Lstat(root)
	if err != nil {
		return err
	}
	// 仅跟随到常规文件；目录符号链接不跟随（忽略）
	if info.Mode()&os.ModeSymlink != 0 {
		t, err := os.Stat(root)
		if err != nil {
			return err
		}
		if t.Mode().IsRegular() {
			return r.emit(root, yield)
		}
		// 非常规目标（含目录）：忽略，不报错
		return nil
	}

	if info.IsDir() {
		return r.walkDir(ctx, root, yield)
	}
	if !info.Mode().IsRegular() { // 跳过非常规文件
		return nil
	}
	return r.emit(root, yield)
}

func (r *FileSystem) walkDir(ctx context.Context, dir string, yield func(contract.FileID, io.ReadCloser) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	// 稳定顺序：字典序
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	// 先目录（不跟随目录符号链接）
	for _, e := range entries {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if e.IsDir() {
			sub := filepath.Join(dir, e.Name())
			// 跳过指定目录名与排除路径
			if r.SkipDir(sub) {
				continue
			}
			if err := r.walkDir(ctx, sub, yield); err != nil {
				return err
			}
		}
	}
	// 再文件（允许指向常规文件的符号链接；目录符号链接忽略）
	for _, e := range entries {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if e.IsDir() {
			continue
		}
		if !r.accept(e.Name()) {
			continue
		}
		p := filepath.Join(dir, e.Name())
		// 判断符号链接目标
		if e.Type()&os.ModeSymlink != 0 {
			t, err := os.Stat(p)
			if err != nil {
				return err
			}
			if !t.Mode().IsRegular() {
				// 目标不是常规文件（如目录等）则忽略
				continue
			}
		}
		info, err := e.Info()
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() && info.Mode()&os.ModeSymlink == 0 {
			// 非常规且不是符号链接（如设备等）跳过
			continue
		}
		if err := r.emit(p, yield); err != nil {
			return err
		}
	}
	return nil
}

// emit 打开 p 并交给 yield；yield 出错时由此处关闭。
func (r *FileSystem) emit(p string, yield func(contract.FileID, io.ReadCloser) error) error {
	f, err := os.Open(p)
	if err != nil {
		return err
	}
	brc := newBufferedCloser(f, r.bufSize)
	if err := yield(contract.NormalizeFileID(p), brc); err != nil {
		_ = brc.Close()
		return err
	}
	return nil
}

// bufferedCloser 将 bufio.Reader 与底层 Closer 组合为 ReadCloser。
type bufferedCloser struct {
	*bufio.Reader
	c io.Closer
}

func newBufferedCloser(c io.ReadCloser, bufSize int) *bufferedCloser {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	return &bufferedCloser{Reader: bufio.NewReaderSize(c, bufSize), c: c}
}

func (b *bufferedCloser) Close() error { return b.c.Close() }
