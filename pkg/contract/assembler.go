package contract

import (
	"context"
	"io"
)

// Assembler: 将修订后的行序列拼接为最终文本（单文件）。
// 约束：
//  1. 行间插入单一、可配置的分隔符；
//  2. 不改写行内容（行内的 '\n' 原样透传）；
//  3. 不引入跨文件状态。
type Assembler interface {
	Assemble(ctx context.Context, fileID FileID, lines Lines) (io.Reader, error)
}
