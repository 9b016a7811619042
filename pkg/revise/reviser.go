package revise

// StageFunc 在每条规则执行后被调用；before/after 为该阶段的输入与输出。
type StageFunc func(index int, rule Rule, before, after []string)

// Reviser: 规则的有序流水线，对行序列做左折叠。规则列表之外无状态，可跨文档复用。
type Reviser struct {
	rules []Rule
}

// New 以给定规则构造 Reviser。
func New(rules ...Rule) *Reviser {
	return (&Reviser{}).Add(rules...)
}

// Add 追加规则并返回自身；nil 规则被忽略。
func (rv *Reviser) Add(rules ...Rule) *Reviser {
	for _, r := range rules {
		if r != nil {
			rv.rules = append(rv.rules, r)
		}
	}
	return rv
}

// Rules 返回规则列表副本。
func (rv *Reviser) Rules() []Rule { return append([]Rule(nil), rv.rules...) }

// Len 返回规则数。
func (rv *Reviser) Len() int { return len(rv.rules) }

// Process 依次执行全部规则：第 k 条规则的输入是第 k-1 条的输出。
func (rv *Reviser) Process(lines []string) []string {
	return rv.Trace(lines, nil)
}

// Trace 同 Process，并在每个阶段后回调 fn（fn 可为 nil）。
func (rv *Reviser) Trace(lines []string, fn StageFunc) []string {
	cur := append([]string(nil), lines...)
	for i, r := range rv.rules {
		next := r.Execute(cur)
		if fn != nil {
			fn(i, r, cur, next)
		}
		cur = next
	}
	return cur
}
