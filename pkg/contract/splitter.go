package contract

import (
	"context"
	"io"
)

// Splitter: 将单文件字节流拆分为有序行序列。
// 约束：
// 1) 不跨文件合并；
// 2) 行序稳定，不丢行；
// 3) '\r\n' 与单独的 '\r' 等价于 '\n'（先归一再切分），下游永远看不到残留的回车；
// 4) 无内部并发、幂等。
type Splitter interface {
	Split(ctx context.Context, fileID FileID, r io.Reader) (Lines, error)
}
