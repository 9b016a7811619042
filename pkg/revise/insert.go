package revise

// InsertRule 在守卫命中的插入点写入固定行。
type InsertRule struct {
	guard
	payload []string
}

// Insert 构造插入规则；lines 按序插入。
func Insert(lines ...string) *InsertRule {
	r := &InsertRule{guard: newGuard("insert")}
	return r.Lines(lines...)
}

// Lines 替换待插入行。
func (r *InsertRule) Lines(lines ...string) *InsertRule {
	r.payload = append([]string(nil), lines...)
	return r
}

// Payload 返回待插入行副本。
func (r *InsertRule) Payload() []string { return append([]string(nil), r.payload...) }

// Execute 遍历 0..n 共 n+1 个插入点 [p,p)；命中则以该点缩进写入 payload，再写原第 p 行。
// 同一规则在两个阶段各执行一次会插入两次，这是流水线的预期行为。
func (r *InsertRule) Execute(lines []string) []string {
	doc := NewDocument(lines)
	out := make([]string, 0, len(lines)+len(r.payload))
	for p := 0; p <= doc.LineCount(); p++ {
		ctx := doc.Slice(p, p)
		if r.criterion.Matches(ctx) {
			indent := ctx.Indent()
			for _, s := range r.payload {
				out = append(out, indent+s)
			}
		}
		if p < doc.LineCount() {
			out = append(out, doc.Line(p))
		}
	}
	return out
}

func (*InsertRule) rule() {}
