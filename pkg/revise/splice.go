package revise

// SpliceRule 将主文档中第 i 个区间的内容整体替换为第 i 个外部块。
// 区间由 Inside 条件划分；块数少于区间数时多出的区间保持原样。
type SpliceRule struct {
	name   string
	inside *InsideCriterion
	blocks [][]string
}

// Splice 构造拼接规则；blocks 被复制。
func Splice(inside *InsideCriterion, blocks [][]string) *SpliceRule {
	cp := make([][]string, len(blocks))
	for i, b := range blocks {
		cp[i] = append([]string(nil), b...)
	}
	return &SpliceRule{name: "splice", inside: inside, blocks: cp}
}

// SpliceBlocks 以 inside 划分 lines（通常来自辅助文档），返回每个区间的原始行。
func SpliceBlocks(inside *InsideCriterion, lines []string) [][]string {
	doc := NewDocument(lines)
	rs := inside.Ranges(doc)
	out := make([][]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, append([]string(nil), doc.lines[r.Start:r.End]...))
	}
	return out
}

// Named 设置规则名。
func (r *SpliceRule) Named(name string) *SpliceRule { r.name = name; return r }

// Name 返回规则名。
func (r *SpliceRule) Name() string { return r.name }

// Blocks 返回块数。
func (r *SpliceRule) Blocks() int { return len(r.blocks) }

// Execute 按区间顺序输出：区间之外原样复制，区间内替换为对应块（每行加上区间缩进）。
func (r *SpliceRule) Execute(lines []string) []string {
	doc := NewDocument(lines)
	if r.inside == nil || len(r.blocks) == 0 {
		return doc.Lines()
	}
	rs := r.inside.Ranges(doc)
	if len(rs) > len(r.blocks) {
		rs = rs[:len(r.blocks)]
	}
	out := make([]string, 0, len(lines))
	next := 0
	for i, rg := range rs {
		for ; next < rg.Start; next++ {
			out = append(out, doc.Line(next))
		}
		indent := doc.Slice(rg.Start, rg.End).Indent()
		for _, s := range r.blocks[i] {
			out = append(out, indent+s)
		}
		next = rg.End
	}
	for ; next < doc.LineCount(); next++ {
		out = append(out, doc.Line(next))
	}
	return out
}

func (*SpliceRule) rule() {}
