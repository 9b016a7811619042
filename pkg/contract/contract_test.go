package contract

import (
	"path/filepath"
	"testing"
)

// TestNormalizeFileID 验证路径规范化逻辑。
func TestNormalizeFileID(t *testing.T) {
	wpath := filepath.Join("a", "b", "c")
	basicCases := map[string]string{
		wpath:      "a/b/c",
		"./x/../y": "y",
		"":         ".",
	}
	for in, want := range basicCases {
		got := NormalizeFileID(in)
		if string(got) != want {
			t.Fatalf("基础测试 %s -> %s, 预期 %s", in, got, want)
		}
	}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		// 反斜杠转换
		{"Windows路径", "C:\\Users\\test\\file.tex", "C:/Users/test/file.tex"},
		{"相对路径反斜杠", "src\\chapters\\intro.tex", "src/chapters/intro.tex"},

		// path.Clean 功能
		{"清理多余斜杠", "path//to///file.tex", "path/to/file.tex"},
		{"清理当前目录", "path/./to/./file.tex", "path/to/file.tex"},
		{"处理父目录", "path/to/../from/file.tex", "path/from/file.tex"},

		// 边界情况
		{"单个点", ".", "."},
		{"双点", "..", ".."},
		{"根路径", "/", "/"},

		// 跨平台混合分隔符
		{"混合分隔符", "C:\\Users/test\\Documents/file.tex", "C:/Users/test/Documents/file.tex"},
		{"中文路径", "作业\\第一章/习题.tex", "作业/第一章/习题.tex"},
		{"空格路径", "My Documents\\My File.tex", "My Documents/My File.tex"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizeFileID(tt.input)
			if string(result) != tt.expected {
				t.Errorf("NormalizeFileID(%q) = %q, expected %q", tt.input, result, tt.expected)
			}
		})
	}
}

// TestResolveBeside 验证辅助文件相对源文件目录解析。
func TestResolveBeside(t *testing.T) {
	if got := ResolveBeside("docs/hw.tex", ""); got != "" {
		t.Fatalf("空 aux 应返回空串, got %q", got)
	}
	if got := ResolveBeside("docs/hw.tex", "figure.tex"); got != filepath.Join("docs", "figure.tex") {
		t.Fatalf("相对路径解析错误: %q", got)
	}
	if got := ResolveBeside(StdinID, "figure.tex"); got != "figure.tex" {
		t.Fatalf("stdin 应相对工作目录: %q", got)
	}
	abs, _ := filepath.Abs("figure.tex")
	if got := ResolveBeside("docs/hw.tex", abs); got != abs {
		t.Fatalf("绝对路径应原样返回: %q", got)
	}
}

// BenchmarkNormalizeFileID 性能基准测试
func BenchmarkNormalizeFileID(b *testing.B) {
	testPaths := []string{
		"C:\\Users\\test\\Documents\\file.tex",
		"src/main/../../../test/data/file.tex",
		"path//to///many////slashes/file.tex",
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, path := range testPaths {
			NormalizeFileID(path)
		}
	}
}
