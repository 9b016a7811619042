// Package revise 实现基于位置上下文的行级修订引擎：
// Document/Context 窗口模型、Criterion 谓词代数、Insert/Replace/Splice 规则与 Reviser 流水线。
//
// 引擎为纯计算：不做 I/O、不起并发；所有守卫求值都不会报错，越界邻行仅视为"不匹配"。
package revise

import (
	"fmt"
	"strings"
	"unicode"

	"linereviser/pkg/contract"
)

// TabWidth: 比较缩进宽度时一个制表符折算的列数。
const TabWidth = 2

// Line 为可缺省的行值（越界/窗口外为缺省）。
type Line struct {
	Text    string
	Present bool
}

// Some 构造存在的行值。
func Some(s string) Line { return Line{Text: s, Present: true} }

// None 为缺省行值。
var None = Line{}

func (l Line) String() string {
	if !l.Present {
		return "<none>"
	}
	return fmt.Sprintf("%q", l.Text)
}

// Range: 半开区间 [Start, End)。Start == End 表示插入点。
type Range struct {
	Start int
	End   int
}

// Len 返回区间内行数。
func (r Range) Len() int { return r.End - r.Start }

// Contains 判断 q 是否完整落在 r 内。
// 边界是排他的：紧随区间之后的插入点 [End,End) 不算在内。
func (r Range) Contains(q Range) bool {
	return r.Start <= q.Start && q.Start < r.End && q.End <= r.End
}

// Document: 一次处理阶段内行序列的唯一事实来源，构造后不可变。
// inside 区间缓存作为显式旁表挂在 Document 上，随 Document 一起失效。
type Document struct {
	lines  []string
	ranges map[*InsideCriterion][]Range
}

// NewDocument 复制 lines 构造 Document。
func NewDocument(lines []string) *Document {
	cp := make([]string, len(lines))
	copy(cp, lines)
	return &Document{lines: cp}
}

// LineCount 返回行数。
func (d *Document) LineCount() int { return len(d.lines) }

// Line 返回第 i 行原文（含缩进）。
func (d *Document) Line(i int) string { return d.lines[i] }

// Lines 返回全部行的副本。
func (d *Document) Lines() []string {
	out := make([]string, len(d.lines))
	copy(out, d.lines)
	return out
}

// Slice 构造 [start,end) 窗口；越界或 start>end 属于编程错误，直接 panic。
func (d *Document) Slice(start, end int) Context {
	assertf(start >= 0 && start <= end && end <= len(d.lines),
		"slice [%d,%d) out of document bounds [0,%d]", start, end, len(d.lines))
	return Context{doc: d, start: start, end: end}
}

// Context: Document 上只读的连续窗口。值类型，构造成本为零，从不复制行数据。
type Context struct {
	doc   *Document
	start int
	end   int
}

// Document 返回窗口所属文档。
func (c Context) Document() *Document { return c.doc }

// Range 返回窗口区间。
func (c Context) Range() Range { return Range{Start: c.start, End: c.end} }

// LineCount 返回窗口内行数。
func (c Context) LineCount() int { return c.end - c.start }

// Self 等价于 SelfAt(0)。
func (c Context) Self() Line { return c.SelfAt(0) }

// SelfAt 返回窗口内第 offset 行去缩进后的内容；窗口外为 None。
func (c Context) SelfAt(offset int) Line {
	if offset < 0 || offset >= c.LineCount() {
		return None
	}
	return Some(StripIndent(c.doc.lines[c.start+offset]))
}

// Selves 返回窗口内所有行（去缩进）。
func (c Context) Selves() []string {
	out := make([]string, 0, c.LineCount())
	for _, l := range c.doc.lines[c.start:c.end] {
		out = append(out, StripIndent(l))
	}
	return out
}

// Prev 等价于 PrevAt(1)。
func (c Context) Prev() Line { return c.PrevAt(1) }

// PrevAt 返回 start 之前第 count 行（去缩进）；越界为 None。
func (c Context) PrevAt(count int) Line {
	i := c.start - count
	if i < 0 || i >= len(c.doc.lines) {
		return None
	}
	return Some(StripIndent(c.doc.lines[i]))
}

// Next 等价于 NextAt(1)。
func (c Context) Next() Line { return c.NextAt(1) }

// NextAt 返回 end-1 之后第 count 行（去缩进）；越界为 None。
func (c Context) NextAt(count int) Line {
	i := c.end + count - 1
	if i < 0 || i >= len(c.doc.lines) {
		return None
	}
	return Some(StripIndent(c.doc.lines[i]))
}

// Indent 计算插入/替换时使用的缩进：
// - 非空窗口：窗口内最窄的缩进（宽度相同取先出现者）；
// - 空窗口：前一行与 end 行缩进中较宽者（相同取后者；越界视为空串）。
func (c Context) Indent() string {
	if c.LineCount() > 0 {
		best := IndentOf(c.doc.lines[c.start])
		for _, l := range c.doc.lines[c.start+1 : c.end] {
			if in := IndentOf(l); IndentWidth(in) < IndentWidth(best) {
				best = in
			}
		}
		return best
	}
	before, after := c.indentAt(c.start-1), c.indentAt(c.end)
	if IndentWidth(before) > IndentWidth(after) {
		return before
	}
	return after
}

func (c Context) indentAt(i int) string {
	if i < 0 || i >= len(c.doc.lines) {
		return ""
	}
	return IndentOf(c.doc.lines[i])
}

func (c Context) String() string {
	return fmt.Sprintf("[%d,%d)", c.start, c.end)
}

// IndentOf 返回行首空白前缀（原样，不展开制表符）。
func IndentOf(line string) string {
	return line[:len(line)-len(StripIndent(line))]
}

// StripIndent 去除行首空白。
func StripIndent(line string) string {
	return strings.TrimLeftFunc(line, unicode.IsSpace)
}

// IndentWidth 返回缩进宽度；制表符按 TabWidth 计。
func IndentWidth(indent string) int {
	w := 0
	for _, r := range indent {
		if r == '\t' {
			w += TabWidth
		} else {
			w++
		}
	}
	return w
}

// assertf: 仅用于守护自身不变量（编程错误），违例时 panic 并包裹 ErrInvariantViolation。
func assertf(ok bool, format string, args ...any) {
	if ok {
		return
	}
	panic(fmt.Errorf("%w: %s", contract.ErrInvariantViolation, fmt.Sprintf(format, args...)))
}
