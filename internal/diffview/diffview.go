// Package diffview 以统一 diff 格式展示修订前后的行序列。
// 行级差异由 diffmatchpatch 计算，按上下文行数分组为多个 hunk 后交给 go-diff 渲染。
package diffview

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/sourcegraph/go-diff/diff"

	"linereviser/pkg/contract"
)

// DefaultContext: hunk 前后保留的上下文行数。
const DefaultContext = 3

// expand 将行内 '\n'（替换产生的多物理行）展开，使 diff 与最终文件一致。
func expand(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if strings.Contains(l, "\n") {
			out = append(out, strings.Split(l, "\n")...)
			continue
		}
		out = append(out, l)
	}
	return out
}

// lineOp: 单行操作；a/b 为该行之前两侧已消费的行数。
type lineOp struct {
	kind byte // ' ' '-' '+'
	text string
	a, b int
}

// joinLines 每行以 '\n' 结尾，避免末行有无换行造成的伪差异。
func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

func splitText(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

// lineOps 以行为单位计算差异（DiffLinesToChars 将每行映射为单个字符）。
func lineOps(before, after []string) []lineOp {
	dmp := diffmatchpatch.New()
	ca, cb, table := dmp.DiffLinesToChars(joinLines(before), joinLines(after))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(ca, cb, false), table)

	ops := make([]lineOp, 0, max(len(before), len(after)))
	a, b := 0, 0
	for _, d := range diffs {
		for _, l := range splitText(d.Text) {
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				ops = append(ops, lineOp{kind: ' ', text: l, a: a, b: b})
				a++
				b++
			case diffmatchpatch.DiffDelete:
				ops = append(ops, lineOp{kind: '-', text: l, a: a, b: b})
				a++
			case diffmatchpatch.DiffInsert:
				ops = append(ops, lineOp{kind: '+', text: l, a: a, b: b})
				b++
			}
		}
	}
	return ops
}

// Changed 返回改动行数：删除行与插入行之和（行内 '\n' 按物理行计）。
func Changed(before, after []string) int {
	n := 0
	for _, op := range lineOps(expand(before), expand(after)) {
		if op.kind != ' ' {
			n++
		}
	}
	return n
}

// group 将操作序列按改动分组；相邻改动间的公共行不超过 2*context 时并入同一 hunk。
func group(ops []lineOp, context int) []*diff.Hunk {
	var out []*diff.Hunk
	i := 0
	for i < len(ops) {
		for i < len(ops) && ops[i].kind == ' ' {
			i++
		}
		if i == len(ops) {
			break
		}
		start := max(0, i-context)
		end := i + 1
		for j := i + 1; j < len(ops); j++ {
			if ops[j].kind != ' ' {
				end = j + 1
				continue
			}
			if j-end >= 2*context {
				break
			}
		}
		stop := min(len(ops), end+context)
		out = append(out, hunk(ops[start:stop]))
		i = stop
	}
	return out
}

func hunk(ops []lineOp) *diff.Hunk {
	var body strings.Builder
	var origLines, newLines int
	for _, op := range ops {
		body.WriteByte(op.kind)
		body.WriteString(op.text)
		body.WriteByte('\n')
		if op.kind != '+' {
			origLines++
		}
		if op.kind != '-' {
			newLines++
		}
	}
	return &diff.Hunk{
		OrigStartLine: startLine(ops[0].a, origLines),
		OrigLines:     int32(origLines),
		NewStartLine:  startLine(ops[0].b, newLines),
		NewLines:      int32(newLines),
		Body:          []byte(body.String()),
	}
}

// Compute 构造 FileDiff；两侧一致时返回 nil。
func Compute(origName, newName string, before, after []string, context int) *diff.FileDiff {
	if context < 0 {
		context = 0
	}
	hunks := group(lineOps(expand(before), expand(after)), context)
	if len(hunks) == 0 {
		return nil
	}
	return &diff.FileDiff{
		OrigName: "a/" + origName,
		NewName:  "b/" + newName,
		Hunks:    hunks,
	}
}

// startLine: 统一 diff 约定，空侧的起始行号为其前一行。
func startLine(from, count int) int32 {
	if count == 0 {
		return int32(from)
	}
	return int32(from + 1)
}

// Unified 渲染统一 diff 文本；两侧一致时返回 nil。
func Unified(origName, newName string, before, after []string) ([]byte, error) {
	fd := Compute(origName, newName, before, after, DefaultContext)
	if fd == nil {
		return nil, nil
	}
	return diff.PrintFileDiff(fd)
}

// Sink: 并发安全的 diff 输出端。
type Sink struct {
	mu      sync.Mutex
	w       io.Writer
	context int
	files   int
	stat    diff.Stat
}

// NewSink 构造输出到 w 的 Sink。
func NewSink(w io.Writer) *Sink {
	return &Sink{w: w, context: DefaultContext}
}

// Write 输出单文件 diff；无改动时不输出。
func (s *Sink) Write(fileID contract.FileID, before, after []string) error {
	fd := Compute(string(fileID), string(fileID), before, after, s.context)
	if fd == nil {
		return nil
	}
	b, err := diff.PrintFileDiff(fd)
	if err != nil {
		return fmt.Errorf("diffview: print %s: %w", fileID, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(b); err != nil {
		return fmt.Errorf("diffview: write %s: %w", fileID, err)
	}
	st := fd.Stat()
	s.stat.Added += st.Added
	s.stat.Changed += st.Changed
	s.stat.Deleted += st.Deleted
	s.files++
	return nil
}

// Summary 返回已输出的文件数与累计增删统计。
func (s *Sink) Summary() (files int, stat diff.Stat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.files, s.stat
}
