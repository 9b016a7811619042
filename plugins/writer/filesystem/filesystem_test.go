package filesystem

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"linereviser/pkg/contract"
)

func strptr(s string) *string { return &s }

func noTmpLeft(t *testing.T, dir string) {
	t.Helper()
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".tmp-") {
			t.Fatalf("临时文件未清理: %s", e.Name())
		}
	}
}

// TestOutputName 后缀插入到扩展名之前
func TestOutputName(t *testing.T) {
	cases := map[[2]string]string{
		{"a.tex", ".out"}:      "a.out.tex",
		{"a.b.tex", ".out"}:    "a.b.out.tex",
		{"Makefile", ".out"}:   "Makefile.out",
		{".latexmkrc", "-x"}:   ".latexmkrc-x",
		{"a.tex", ""}:          "a.tex",
		{"hw.tex", "_revised"}: "hw_revised.tex",
	}
	for in, want := range cases {
		if got := OutputName(in[0], in[1]); got != want {
			t.Fatalf("OutputName(%q,%q)=%q, 预期 %q", in[0], in[1], got, want)
		}
	}
}

// TestWriteBesideSource 无 OutputDir 时写到源文件旁
func TestWriteBesideSource(t *testing.T) {
	dir := t.TempDir()
	w, err := New(nil)
	require.NoError(t, err)
	src := filepath.Join(dir, "hw.tex")
	id := contract.NormalizeFileID(src)
	require.NoError(t, w.Write(context.Background(), id, bytes.NewBufferString("data")))
	b, err := os.ReadFile(filepath.Join(dir, "hw.out.tex"))
	require.NoError(t, err)
	require.Equal(t, "data", string(b))
	noTmpLeft(t, dir)

	target, err := w.Target(id)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "hw.out.tex"), target)
}

// TestWriteAtomic 原子写入到 OutputDir（扁平）
func TestWriteAtomic(t *testing.T) {
	dir := t.TempDir()
	a := true
	w, err := New(&Options{OutputDir: dir, Atomic: &a})
	require.NoError(t, err)
	require.NoError(t, w.Write(context.Background(), "src/ch/a.tex", bytes.NewBufferString("data")))
	b, err := os.ReadFile(filepath.Join(dir, "a.out.tex"))
	if err != nil || string(b) != "data" {
		t.Fatalf("unexpected file %v %q", err, string(b))
	}
	noTmpLeft(t, dir)
}

// 当目标已存在时，Atomic 写应替换为新内容。
func TestWriteAtomicReplaceExisting(t *testing.T) {
	dir := t.TempDir()
	w, err := New(&Options{OutputDir: dir, Suffix: strptr("")})
	require.NoError(t, err)
	require.NoError(t, w.Write(context.Background(), "out.tex", bytes.NewBufferString("v1")))
	require.NoError(t, w.Write(context.Background(), "out.tex", bytes.NewBufferString("v2")))
	b, err := os.ReadFile(filepath.Join(dir, "out.tex"))
	require.NoError(t, err)
	require.Equal(t, "v2", string(b))
	noTmpLeft(t, dir)
}

// TestWritePathInvalid 路径越界
func TestWritePathInvalid(t *testing.T) {
	dir := t.TempDir()
	flat := false
	w, _ := New(&Options{OutputDir: dir, Flat: &flat})
	err := w.Write(context.Background(), "../bad.tex", bytes.NewBufferString("x"))
	if !errors.Is(err, contract.ErrPathInvalid) {
		t.Fatalf("expect path invalid, got %v", err)
	}
}

// TestWriteStdinWithoutDir STDIN 无源目录，必须配合 OutputDir
func TestWriteStdinWithoutDir(t *testing.T) {
	w, _ := New(nil)
	err := w.Write(context.Background(), contract.StdinID, bytes.NewBufferString("x"))
	require.ErrorIs(t, err, contract.ErrPathInvalid)

	dir := t.TempDir()
	w2, _ := New(&Options{OutputDir: dir})
	require.NoError(t, w2.Write(context.Background(), contract.StdinID, bytes.NewBufferString("x")))
	_, err = os.Stat(filepath.Join(dir, "stdin.out"))
	require.NoError(t, err)
}

// TestWriteNonAtomicTree 非原子、保留层级
func TestWriteNonAtomicTree(t *testing.T) {
	dir := t.TempDir()
	flat, atomic := false, false
	w, _ := New(&Options{OutputDir: dir, Flat: &flat, Atomic: &atomic})
	require.NoError(t, w.Write(context.Background(), "sub/out.tex", bytes.NewBufferString("v")))
	if _, err := os.Stat(filepath.Join(dir, "sub", "out.out.tex")); err != nil {
		t.Fatalf("文件未创建: %v", err)
	}
}

// TestWriteCtxCancel 上下文取消
func TestWriteCtxCancel(t *testing.T) {
	dir := t.TempDir()
	w, _ := New(&Options{OutputDir: dir})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := w.Write(ctx, "a.tex", strings.NewReader("data")); err == nil {
		t.Fatalf("expect ctx error")
	}
}

// TestNewInPlaceGuard 空后缀且无输出目录需显式 in_place
func TestNewInPlaceGuard(t *testing.T) {
	_, err := New(&Options{Suffix: strptr("")})
	require.ErrorIs(t, err, contract.ErrInvalidInput)

	w, err := New(&Options{Suffix: strptr(""), InPlace: true})
	require.NoError(t, err)
	dir := t.TempDir()
	src := filepath.Join(dir, "a.tex")
	require.NoError(t, os.WriteFile(src, []byte("old"), 0o644))
	require.NoError(t, w.Write(context.Background(), contract.NormalizeFileID(src), strings.NewReader("new")))
	b, _ := os.ReadFile(src)
	require.Equal(t, "new", string(b))
}

type errReader struct{}

func (errReader) Read(p []byte) (int, error) { return 0, errors.New("boom") }

// TestWriteAtomicCopyError 原子写入时拷贝失败
func TestWriteAtomicCopyError(t *testing.T) {
	dir := t.TempDir()
	w, _ := New(&Options{OutputDir: dir})
	if err := w.Write(context.Background(), "a.tex", errReader{}); err == nil {
		t.Fatalf("expect copy error")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("temp files left %v", entries)
	}
}

// TestReaderWithCtxCancel reader 在读取前取消
func TestReaderWithCtxCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := readerWithCtx(ctx, strings.NewReader("data"))
	cancel()
	buf := make([]byte, 1)
	if _, err := r.Read(buf); err == nil {
		t.Fatalf("expect ctx error")
	}
}
