package template

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"linereviser/pkg/contract"
)

// TestLoadAndApply 占位行替换为模板内容（保留原缩进），未知模板保留原行
func TestLoadAndApply(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "header.tex"), []byte("\\title{T}\n\\author{A}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("ignored"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.tex"), 0o755))

	set, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, []string{"header"}, set.Names())

	var applied, missing []string
	r := New(set, Options{
		OnApply:   func(n string) { applied = append(applied, n) },
		OnMissing: func(n string) { missing = append(missing, n) },
	})
	got := r.Execute([]string{"  @@header@@", "@@nope@@", "@@ inline @@ text"})
	want := []string{"  \\title{T}\n\\author{A}", "@@nope@@", "@@ inline @@ text"}
	if d := cmp.Diff(want, got); d != "" {
		t.Fatalf("模板替换差异 (-want +got):\n%s", d)
	}
	require.Equal(t, []string{"header"}, applied)
	require.Equal(t, []string{"nope"}, missing)
}

// TestCustomEOL 自定义换行符
func TestCustomEOL(t *testing.T) {
	r := New(Set{"x": {"a", "b"}}, Options{EOL: "\r\n"})
	require.Equal(t, []string{"a\r\nb"}, r.Execute([]string{"@@x@@"}))
}

// TestLoadMissingDir 目录缺失返回空集合与 ErrAuxMissing
func TestLoadMissingDir(t *testing.T) {
	set, err := Load(filepath.Join(t.TempDir(), "none"))
	require.ErrorIs(t, err, contract.ErrAuxMissing)
	require.Empty(t, set)
	in := []string{"@@x@@"}
	require.Equal(t, in, New(set, Options{}).Execute(in))
}
