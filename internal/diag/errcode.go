package diag

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"linereviser/pkg/contract"
)

// Code 是最小错误分类代码。
// 仅用于日志/指标汇总，与退出码解耦。
type Code string

const (
	CodeUnknown   Code = "unknown"
	CodeInvariant Code = "invariant"
	CodeConfig    Code = "config"
	CodeAux       Code = "aux"
	CodeCancel    Code = "cancel"
	CodeIO        Code = "io"
)

// Classify 将错误归为最小分类。
// 仅依赖哨兵错误与标准库错误类型，不做字符串匹配。
func Classify(err error) Code {
	if err == nil {
		return CodeUnknown
	}
	// 取消/超时优先
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return CodeCancel
	}
	if errors.Is(err, contract.ErrAuxMissing) {
		return CodeAux
	}
	if errors.Is(err, contract.ErrInvalidInput) {
		return CodeConfig
	}
	if errors.Is(err, contract.ErrInvariantViolation) || errors.Is(err, contract.ErrPathInvalid) {
		return CodeInvariant
	}
	var perr *fs.PathError
	if errors.As(err, &perr) || errors.Is(err, os.ErrNotExist) || errors.Is(err, os.ErrPermission) {
		return CodeIO
	}
	var lerr *os.LinkError
	if errors.As(err, &lerr) {
		return CodeIO
	}
	return CodeUnknown
}

// Recovered 将 panic 值还原为 error（不变量断言以 error 形式 panic）。
func Recovered(v any) error {
	if err, ok := v.(error); ok {
		return err
	}
	return &panicError{v: v}
}

type panicError struct{ v any }

func (p *panicError) Error() string { return fmt.Sprintf("panic: %v", p.v) }

func (p *panicError) Unwrap() error { return contract.ErrInvariantViolation }

// NowUTC 返回 RFC3339 UTC 时间字符串。
func NowUTC() string { return time.Now().UTC().Format(time.RFC3339) }
