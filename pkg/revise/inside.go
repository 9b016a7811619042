package revise

import "sort"

// InsideCriterion 匹配完整落在一对 begin/end 标记之间（不含标记行本身）的窗口。
// 标记可嵌套：只有回到零深度的最外层配对产生区间。
type InsideCriterion struct {
	begin Pattern
	end   Pattern
}

// Inside 构造区间条件。
func Inside(begin, end Pattern) *InsideCriterion {
	return &InsideCriterion{begin: begin, end: end}
}

// Ranges 返回 d 中的全部区间（按 Start 升序、互不重叠、Start<End）。
// 首次访问计算并缓存在 d 上；同一 Document 后续访问复用。
func (k *InsideCriterion) Ranges(d *Document) []Range {
	if rs, ok := d.ranges[k]; ok {
		return rs
	}
	rs := k.scan(d)
	if d.ranges == nil {
		d.ranges = make(map[*InsideCriterion][]Range)
	}
	d.ranges[k] = rs
	return rs
}

// scan: 单趟左到右扫描，嵌套计数从 0 开始。
// 每行先测 begin：深度为 0 时记录 start=i+1，再自增；
// 否则若深度>0 且命中 end：自减，归零时闭合 [start,i)。
// 空区间（begin 紧接 end）不记录；未闭合的 begin 与多余的 end 均不产生区间。
func (k *InsideCriterion) scan(d *Document) []Range {
	var out []Range
	depth, start := 0, 0
	for i, raw := range d.lines {
		line := Some(StripIndent(raw))
		if k.begin.Test(line) {
			if depth == 0 {
				start = i + 1
			}
			depth++
			continue
		}
		if depth > 0 && k.end.Test(line) {
			depth--
			if depth == 0 && start < i {
				out = append(out, Range{Start: start, End: i})
			}
		}
	}
	for j := 1; j < len(out); j++ {
		assertf(out[j-1].End <= out[j].Start, "inside ranges overlap: %v %v", out[j-1], out[j])
	}
	return out
}

// Matches: 二分查找最后一个 Start<=s 的区间，窗口须完整落在其中。
func (k *InsideCriterion) Matches(c Context) bool {
	rs := k.Ranges(c.doc)
	q := c.Range()
	i := sort.Search(len(rs), func(i int) bool { return rs[i].Start > q.Start }) - 1
	if i < 0 {
		return false
	}
	return rs[i].Contains(q)
}

func (*InsideCriterion) criterion() {}
