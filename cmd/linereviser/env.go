package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	cfgpkg "linereviser/internal/config"
)

func fprintf(w io.Writer, format string, a ...any) { _, _ = fmt.Fprintf(w, format, a...) }

func dumpConfig(w io.Writer, c cfgpkg.Config) error {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	_, _ = w.Write(append([]byte("有效配置:\n"), b...))
	_, _ = w.Write([]byte("\n"))
	return nil
}

// writeConfig 写出配置模板；已存在时返回 os.ErrExist，不覆盖。
func writeConfig(path string, c cfgpkg.Config) error {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Write(append(b, '\n')); err != nil {
		return err
	}
	return nil
}

// loadDotEnv 读取简单的 .env 文件格式并注入进程环境。
// 规则：
// - 忽略不存在的文件；无法读取时返回错误（调用处可忽略）。
// - 跳过空行与以 # 开头的行；支持可选的前缀 "export "。
// - 仅按首个 '=' 分割；key 与 value 去首尾空白。
// - value 被成对的单/双引号包裹时去除外层引号；双引号内处理 \n \t \r \" \\ 转义。
// - 不覆盖已存在的环境变量。
func loadDotEnv(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()
	s := bufio.NewScanner(f)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		eq := strings.IndexByte(line, '=')
		if eq <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:eq])
		val := unquote(strings.TrimSpace(line[eq+1:]))
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		_ = os.Setenv(key, val)
	}
	return s.Err()
}

func unquote(val string) string {
	if len(val) < 2 {
		return val
	}
	q := val[0]
	if (q != '\'' && q != '"') || val[len(val)-1] != q {
		return val
	}
	val = val[1 : len(val)-1]
	if q == '\'' {
		return val
	}
	return strings.NewReplacer(`\n`, "\n", `\t`, "\t", `\r`, "\r", `\"`, `"`, `\\`, `\`).Replace(val)
}

// dotEnvKeys: .env 模板中列出的覆盖项，按分组。
var dotEnvKeys = []struct {
	title string
	keys  []string
}{
	{"配置来源（可二选一）", []string{"CONFIG_FILE", "CONFIG_JSON"}},
	{"运行参数覆盖", []string{"INPUTS", "LOG_LEVEL", "LOG_DIR", "METRICS_FILE"}},
	{"组件选择", []string{"COMPONENTS_READER", "COMPONENTS_SPLITTER", "COMPONENTS_ASSEMBLER", "COMPONENTS_WRITER"}},
	{"组件选项（原样 JSON，整体替换）", []string{"OPTIONS_READER_JSON", "OPTIONS_SPLITTER_JSON", "OPTIONS_ASSEMBLER_JSON", "OPTIONS_WRITER_JSON"}},
	{"规则来源", []string{"RULES_PRESET", "RULES_FILES", "RULES_FIGURE_FILE", "RULES_TEMPLATE_DIR"}},
}

// writeDotEnv 生成 .env 模板；已存在时跳过（返回 created=false）。
func writeDotEnv(path string) (created bool, err error) {
	var b strings.Builder
	b.WriteString("# linereviser .env 模板（由 init-config 生成）\n")
	b.WriteString("# 优先级：CLI > ENV(.env) > JSON\n")
	b.WriteString("# 空值表示未设置；按需填写。\n")
	for _, g := range dotEnvKeys {
		fmt.Fprintf(&b, "\n# %s\n", g.title)
		for _, k := range g.keys {
			fmt.Fprintf(&b, "%s%s=\n", cfgpkg.EnvPrefix, k)
		}
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()
	if _, err := f.WriteString(b.String()); err != nil {
		return false, err
	}
	return true, nil
}

// preflightCheckOutputDir: 使用 fs Writer 且配置了 output_dir 时，启动前检查其可写性。
// - 目录已存在：尝试创建并删除临时文件。
// - 目录不存在：检查父目录可写（尝试创建并删除临时目录）。
func preflightCheckOutputDir(cfg cfgpkg.Config) error {
	if cfgpkg.WriterFor(cfg) != "fs" {
		return nil
	}
	var wopts struct {
		OutputDir string `json:"output_dir"`
	}
	if len(cfg.Options.Writer) > 0 {
		_ = json.Unmarshal(cfg.Options.Writer, &wopts)
	}
	dir := strings.TrimSpace(wopts.OutputDir)
	if dir == "" {
		// 写在源文件旁，无统一目录可查
		return nil
	}
	st, err := os.Stat(dir)
	switch {
	case err == nil && st.IsDir():
		f, err := os.CreateTemp(dir, ".wcheck-*")
		if err != nil {
			return err
		}
		name := f.Name()
		_ = f.Close()
		_ = os.Remove(name)
		return nil
	case err == nil:
		return fmt.Errorf("路径存在但不是目录: %s", dir)
	case !os.IsNotExist(err):
		return err
	}
	parent := filepath.Dir(filepath.Clean(dir))
	if parent == dir {
		return fmt.Errorf("无法确定父目录: %s", dir)
	}
	pst, err := os.Stat(parent)
	if err != nil {
		return err
	}
	if !pst.IsDir() {
		return fmt.Errorf("父路径不是目录: %s", parent)
	}
	tmpd, err := os.MkdirTemp(parent, ".wcheck-*")
	if err != nil {
		return err
	}
	_ = os.RemoveAll(tmpd)
	return nil
}
