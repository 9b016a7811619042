package contract

import (
	"path"
	"path/filepath"
	"strings"
)

// StdinID: STDIN 输入的固定 FileID。
const StdinID FileID = "stdin"

// NormalizeFileID 规范化路径，统一为跨平台稳定的 FileID。
// 规则：
// - 使用正斜杠分隔符
// - 清理多余分隔符与路径片段（.、..）
// - 保留相对/绝对语义，不做隐式绝对化
func NormalizeFileID(p string) FileID {
	s := strings.ReplaceAll(p, "\\", "/")
	// path.Clean 在 POSIX 语义下清理路径（此处已是 '/' 分隔）
	return FileID(path.Clean(s))
}

// ResolveBeside 将辅助文件路径解析到源文件所在目录。
// - aux 为空：返回空串；
// - aux 为绝对路径：原样返回；
// - 源为 STDIN：相对当前工作目录。
func ResolveBeside(id FileID, aux string) string {
	if strings.TrimSpace(aux) == "" {
		return ""
	}
	if filepath.IsAbs(aux) {
		return aux
	}
	if id == StdinID || id == "" {
		return filepath.Clean(aux)
	}
	dir := path.Dir(string(id))
	return filepath.Join(filepath.FromSlash(dir), aux)
}
