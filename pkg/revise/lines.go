package revise

import "strings"

var crlf = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// SplitLines 先将 \r\n 与单独的 \r 归一为 \n，再按 \n 切分。
// 空串得到一行空串；以换行结尾的内容最后一行为空串。
func SplitLines(s string) []string {
	return strings.Split(crlf.Replace(s), "\n")
}

// JoinLines 以 sep 连接各行（行间一个分隔符）。
func JoinLines(lines []string, sep string) string {
	return strings.Join(lines, sep)
}
