package contract

// FileID: 逻辑文档ID（通常为路径，需规范化，跨平台一致）。
type FileID string

// Lines: 单文件的有序行序列（已去除行终止符）。
// 约束：
// - 不含 '\r'（由 Splitter 统一归一为 '\n' 后切分）；
// - 行内可含 '\n'（替换规则产生的多物理行），仅在最终拼接时展开。
type Lines []string
