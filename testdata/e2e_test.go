package testdata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	cfgpkg "linereviser/internal/config"
	"linereviser/internal/diag"
	"linereviser/internal/diffview"
	"linereviser/internal/pipeline"
)

// baseConfig 构造写入 outDir（扁平、无后缀、LF）的运行配置。
func baseConfig(outDir string, inputs ...string) cfgpkg.Config {
	cfg := cfgpkg.DefaultTemplateConfig()
	cfg.Inputs = inputs
	cfg.Logging.Level = "error"
	cfg.Rules.TemplateDir = filepath.Join("files", "templates")
	cfg.Options.Assembler = json.RawMessage(`{"separator":"lf","trailing_newline":false}`)
	cfg.Options.Writer = json.RawMessage(fmt.Sprintf(`{"output_dir":%q,"suffix":"","atomic":false,"flat":true}`, outDir))
	return cfg
}

func runPipeline(t *testing.T, cfg cfgpkg.Config, logger *diag.Logger) (pipeline.Summary, error) {
	t.Helper()
	comp, set, _, err := cfgpkg.Assemble(cfg, logger)
	if err != nil {
		return pipeline.Summary{}, err
	}
	return pipeline.Run(context.Background(), comp, set, logger)
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func copyFile(t *testing.T, src, dst string) {
	t.Helper()
	in, err := os.Open(src)
	require.NoError(t, err)
	defer in.Close()
	require.NoError(t, os.MkdirAll(filepath.Dir(dst), 0o755))
	out, err := os.Create(dst)
	require.NoError(t, err)
	_, err = io.Copy(out, in)
	require.NoError(t, err)
	require.NoError(t, out.Close())
}

func TestE2EGolden(t *testing.T) {
	outDir := t.TempDir()
	cfg := baseConfig(outDir, filepath.Join("files", "homework.tex"))

	sum, err := runPipeline(t, cfg, nil)
	require.NoError(t, err)
	require.Equal(t, 1, sum.Files)
	require.Positive(t, sum.Changed)

	want := readFile(t, filepath.Join("files", "homework.golden.tex"))
	got := readFile(t, filepath.Join(outDir, "homework.tex"))
	if d := cmp.Diff(want, got); d != "" {
		t.Fatalf("输出与 golden 不符 (-want +got):\n%s", d)
	}
}

func TestE2EPassthrough(t *testing.T) {
	// 无规则时输出与输入逐字节一致
	outDir := t.TempDir()
	cfg := baseConfig(outDir, filepath.Join("files", "homework.golden.tex"))
	cfg.Rules.Preset = "none"
	cfg.Rules.TemplateDir = ""

	sum, err := runPipeline(t, cfg, nil)
	require.NoError(t, err)
	require.Equal(t, 0, sum.Changed)
	require.Equal(t, readFile(t, filepath.Join("files", "homework.golden.tex")), readFile(t, filepath.Join(outDir, "homework.golden.tex")))
}

func TestE2ERuleFile(t *testing.T) {
	outDir := t.TempDir()
	cfg := baseConfig(outDir, filepath.Join("files", "homework.tex"))
	cfg.Rules.Files = []string{filepath.Join("files", "rules.yaml")}

	_, err := runPipeline(t, cfg, nil)
	require.NoError(t, err)

	got := readFile(t, filepath.Join(outDir, "homework.tex"))
	require.Contains(t, got, `\documentclass[12pt]{article}`+"\n")
	require.NotContains(t, got, `\rule{`)
	// 其余预设规则照常生效
	require.Contains(t, got, `\includegraphics{final.png}`)
}

func TestE2EAuxMissing(t *testing.T) {
	src := t.TempDir()
	outDir := t.TempDir()
	in := filepath.Join(src, "homework.tex")
	copyFile(t, filepath.Join("files", "homework.tex"), in)

	var logs bytes.Buffer
	logger := diag.NewLoggerTo("e2e", "warn", zapcore.AddSync(&logs))
	cfg := baseConfig(outDir, in)
	cfg.Rules.TemplateDir = filepath.Join(src, "no-templates")

	_, err := runPipeline(t, cfg, logger)
	require.NoError(t, err)

	got := readFile(t, filepath.Join(outDir, "homework.tex"))
	// figure 与模板均缺失：原样保留
	require.Contains(t, got, `\includegraphics{draft.png}`)
	require.Contains(t, got, "@@header@@")
	require.Contains(t, got, `\begin{align*}`)
	require.Contains(t, logs.String(), `"code":"aux"`)
}

func TestE2EDirectoryScan(t *testing.T) {
	src := t.TempDir()
	// 输出目录位于输入目录内
	outDir := filepath.Join(src, "build")
	copyFile(t, filepath.Join("files", "homework.tex"), filepath.Join(src, "hw1.tex"))
	copyFile(t, filepath.Join("files", "homework.tex"), filepath.Join(src, "ch", "hw2.tex"))
	copyFile(t, filepath.Join("files", "figure.tex"), filepath.Join(src, "figure.tex"))
	// 既有产物与非 tex 文件不参与扫描
	copyFile(t, filepath.Join("files", "homework.tex"), filepath.Join(src, "hw1_fixed.tex"))
	copyFile(t, filepath.Join("files", "rules.yaml"), filepath.Join(src, "notes.yaml"))

	cfg := baseConfig(outDir, src)
	cfg.Rules.TemplateDir = ""
	cfg.Options.Writer = json.RawMessage(fmt.Sprintf(`{"output_dir":%q,"suffix":"_fixed","atomic":false,"flat":true}`, outDir))
	// 第二次运行时 build/ 下已有产物，仍不得被读回
	for run := 0; run < 2; run++ {
		sum, err := runPipeline(t, cfg, nil)
		require.NoError(t, err)
		// ch/hw2.tex, figure.tex, hw1.tex
		require.Equal(t, 3, sum.Files, "run %d", run)
	}

	require.Contains(t, readFile(t, filepath.Join(outDir, "hw1_fixed.tex")), `\includegraphics{final.png}`)
	// ch/ 下没有 figure.tex：保留原图
	require.Contains(t, readFile(t, filepath.Join(outDir, "hw2_fixed.tex")), `\includegraphics{draft.png}`)
	require.NoFileExists(t, filepath.Join(outDir, "hw1_fixed_fixed.tex"))
	require.NoFileExists(t, filepath.Join(outDir, "notes_fixed.yaml"))
	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	require.Len(t, entries, 3)
}

func TestE2EDryRunDiff(t *testing.T) {
	outDir := t.TempDir()
	cfg := baseConfig(outDir, filepath.Join("files", "homework.tex"))
	comp, set, _, err := cfgpkg.Assemble(cfg, nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	sink := diffview.NewSink(&buf)
	set.DryRun = true
	set.Diff = sink.Write
	_, err = pipeline.Run(context.Background(), comp, set, nil)
	require.NoError(t, err)

	files, st := sink.Summary()
	require.Equal(t, 1, files)
	require.Positive(t, st.Added)
	// 单一 hunk：首尾公共行之外整体替换
	require.Contains(t, buf.String(), "\n-\\includegraphics{draft.png}\n")
	require.Contains(t, buf.String(), "\n+\\includegraphics{final.png}\n")
	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	require.Empty(t, entries)
}
