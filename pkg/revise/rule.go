package revise

// Rule: 受守卫条件约束的一次整体变换（行序列 → 新行序列）。
// 封闭集合：InsertRule、ReplaceRule、SpliceRule。
type Rule interface {
	// Name 返回规则名（用于日志；未命名时为种类名）。
	Name() string
	// Execute 以 lines 构造新的 Document 并输出变换后的行序列；不修改入参。
	Execute(lines []string) []string
	rule()
}

// guard: Insert/Replace 共享的守卫，初始为空 AND（空即永不匹配）。
type guard struct {
	name      string
	criterion *Compound
}

func newGuard(kind string) guard {
	return guard{name: kind, criterion: And()}
}

func (g *guard) add(c Criterion) { g.criterion.Add(c) }

// Guard 返回守卫条件（只读使用）。
func (g *guard) Guard() *Compound { return g.criterion }

// Name 返回规则名。
func (g *guard) Name() string { return g.name }

// Before 等价于 When(Before(p))。
func (r *InsertRule) Before(p Pattern) *InsertRule { r.add(Before(p)); return r }

// After 等价于 When(After(p))。
func (r *InsertRule) After(p Pattern) *InsertRule { r.add(After(p)); return r }

// Inside 等价于 When(Inside(begin, end))。
func (r *InsertRule) Inside(begin, end Pattern) *InsertRule { r.add(Inside(begin, end)); return r }

// Either 追加 Or(cs...)。
func (r *InsertRule) Either(cs ...Criterion) *InsertRule { r.add(Or(cs...)); return r }

// Where 追加自定义谓词。
func (r *InsertRule) Where(fn func(Context) bool) *InsertRule { r.add(Custom(fn)); return r }

// When 追加任意条件。
func (r *InsertRule) When(c Criterion) *InsertRule { r.add(c); return r }

// Named 设置规则名。
func (r *InsertRule) Named(name string) *InsertRule { r.name = name; return r }

// Before 等价于 When(Before(p))。
func (r *ReplaceRule) Before(p Pattern) *ReplaceRule { r.add(Before(p)); return r }

// After 等价于 When(After(p))。
func (r *ReplaceRule) After(p Pattern) *ReplaceRule { r.add(After(p)); return r }

// Inside 等价于 When(Inside(begin, end))。
func (r *ReplaceRule) Inside(begin, end Pattern) *ReplaceRule { r.add(Inside(begin, end)); return r }

// Either 追加 Or(cs...)。
func (r *ReplaceRule) Either(cs ...Criterion) *ReplaceRule { r.add(Or(cs...)); return r }

// Where 追加自定义谓词。
func (r *ReplaceRule) Where(fn func(Context) bool) *ReplaceRule { r.add(Custom(fn)); return r }

// When 追加任意条件。
func (r *ReplaceRule) When(c Criterion) *ReplaceRule { r.add(c); return r }

// Named 设置规则名。
func (r *ReplaceRule) Named(name string) *ReplaceRule { r.name = name; return r }
