// Package figure 用辅助文档中的 figure 环境替换主文档中的同序 figure 环境内容。
package figure

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"linereviser/pkg/contract"
	"linereviser/pkg/revise"
)

const (
	// Begin/End: figure 环境的起止标记行（去缩进后全等匹配）。
	Begin = `\begin{figure}`
	End   = `\end{figure}`
)

// Criterion 返回 figure 区间条件；主文档与辅助文档共用同一划分方式。
func Criterion() *revise.InsideCriterion {
	return revise.Inside(revise.Equals(Begin), revise.Equals(End))
}

// New 以已划分好的块构造规则；第 i 块替换主文档第 i 个 figure 的内容。
func New(blocks [][]string) *revise.SpliceRule {
	return revise.Splice(Criterion(), blocks).Named("figure")
}

// FromLines 从辅助文档的行序列划分 figure 块并构造规则。
func FromLines(lines []string) *revise.SpliceRule {
	c := Criterion()
	return revise.Splice(c, revise.SpliceBlocks(c, lines)).Named("figure")
}

// Load 读取辅助文档并构造规则。
// 文件缺失或不可读时返回空操作规则与错误（缺失时包裹 ErrAuxMissing），调用方仅需告警。
func Load(path string) (*revise.SpliceRule, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return New(nil), fmt.Errorf("%w: figure file %s", contract.ErrAuxMissing, path)
		}
		return New(nil), fmt.Errorf("figure file %s: %w", path, err)
	}
	return FromLines(revise.SplitLines(string(b))), nil
}
