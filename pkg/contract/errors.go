package contract

import "errors"

// 最小错误分类（用于日志分类与退出码判定）。
var (
	// ErrPathInvalid: 目标标识映射为无效/越界路径（例如绝对路径或 '..' 逃逸）。
	ErrPathInvalid = errors.New("path invalid")
	// ErrInvariantViolation: 领域不变量违例（通用哨兵）。区间越界、区间重叠等编程错误均包裹此错误。
	ErrInvariantViolation = errors.New("invariant violation")
	// ErrInvalidInput: 配置或构造参数不合法。
	ErrInvalidInput = errors.New("invalid input")
	// ErrAuxMissing: 辅助文档（figure/模板目录）不存在；对应规则降级为 no-op。
	ErrAuxMissing = errors.New("auxiliary source missing")
)
