package revise

// ReplaceFunc 根据去缩进后的命中内容与窗口计算替换值；返回 None 表示删除该行。
type ReplaceFunc func(matched string, c Context) Line

type replacementKind uint8

const (
	replaceFixed replacementKind = iota
	replaceFunc
)

// Replacement: 固定（可缺省）值或函数，二选一。
type Replacement struct {
	kind  replacementKind
	value Line
	fn    ReplaceFunc
}

func (rp Replacement) apply(matched string, c Context) Line {
	switch rp.kind {
	case replaceFunc:
		if rp.fn == nil {
			return None
		}
		return rp.fn(matched, c)
	default:
		return rp.value
	}
}

// ReplaceRule 将守卫命中的单行替换为新值或删除。
type ReplaceRule struct {
	guard
	with Replacement
}

// Replace 构造替换规则，并将 Is(p) 并入守卫。
// 未设置替换值时默认为空串。
func Replace(p Pattern) *ReplaceRule {
	r := &ReplaceRule{guard: newGuard("replace"), with: Replacement{value: Some("")}}
	r.add(Is(p))
	return r
}

// With 以固定字符串替换（可含 '\n'，原样保留）。
func (r *ReplaceRule) With(s string) *ReplaceRule {
	r.with = Replacement{kind: replaceFixed, value: Some(s)}
	return r
}

// Delete 删除命中行。
func (r *ReplaceRule) Delete() *ReplaceRule {
	r.with = Replacement{kind: replaceFixed, value: None}
	return r
}

// WithFunc 以函数计算替换值。
func (r *ReplaceRule) WithFunc(fn ReplaceFunc) *ReplaceRule {
	r.with = Replacement{kind: replaceFunc, fn: fn}
	return r
}

// Execute 逐行构造 [i,i+1)；命中则输出 缩进+替换值，替换值缺省时丢弃该行；未命中原样复制。
func (r *ReplaceRule) Execute(lines []string) []string {
	doc := NewDocument(lines)
	out := make([]string, 0, len(lines))
	for i := 0; i < doc.LineCount(); i++ {
		ctx := doc.Slice(i, i+1)
		if !r.criterion.Matches(ctx) {
			out = append(out, doc.Line(i))
			continue
		}
		v := r.with.apply(ctx.Self().Text, ctx)
		if !v.Present {
			continue
		}
		out = append(out, ctx.Indent()+v.Text)
	}
	return out
}

func (*ReplaceRule) rule() {}
