package revise

// Criterion: 作用于 Context 的纯谓词。
// 封闭集合：is/before/after/inside/custom 叶子与 and/or/not 组合，仅本包可实现。
type Criterion interface {
	Matches(c Context) bool
	criterion()
}

// isCriterion 以模式测试窗口首行。
type isCriterion struct{ pattern Pattern }

// Is 构造"窗口首行满足 p"的条件。
func Is(p Pattern) Criterion { return isCriterion{pattern: p} }

func (k isCriterion) Matches(c Context) bool { return k.pattern.Test(c.Self()) }
func (isCriterion) criterion()               {}

// beforeCriterion: 窗口位于满足模式的行之前（测试 Next）。
type beforeCriterion struct{ pattern Pattern }

// Before 构造"紧随其后的一行满足 p"的条件。
func Before(p Pattern) Criterion { return beforeCriterion{pattern: p} }

func (k beforeCriterion) Matches(c Context) bool { return k.pattern.Test(c.Next()) }
func (beforeCriterion) criterion()               {}

// afterCriterion: 窗口位于满足模式的行之后（测试 Prev）。
type afterCriterion struct{ pattern Pattern }

// After 构造"紧邻其前的一行满足 p"的条件。
func After(p Pattern) Criterion { return afterCriterion{pattern: p} }

func (k afterCriterion) Matches(c Context) bool { return k.pattern.Test(c.Prev()) }
func (afterCriterion) criterion()               {}

type customCriterion struct{ fn func(Context) bool }

// Custom 包装任意谓词；fn 为 nil 时永不匹配。
func Custom(fn func(Context) bool) Criterion { return customCriterion{fn: fn} }

func (k customCriterion) Matches(c Context) bool { return k.fn != nil && k.fn(c) }
func (customCriterion) criterion()               {}

type notCriterion struct{ inner Criterion }

// Not 取反。
func Not(c Criterion) Criterion { return notCriterion{inner: c} }

func (k notCriterion) Matches(c Context) bool { return !k.inner.Matches(c) }
func (notCriterion) criterion()               {}

// CompoundOp 组合方式。
type CompoundOp uint8

const (
	OpAnd CompoundOp = iota
	OpOr
)

func (op CompoundOp) String() string {
	if op == OpOr {
		return "or"
	}
	return "and"
}

// Compound: AND/OR 组合，子条件按序短路求值。
type Compound struct {
	op       CompoundOp
	children []Criterion
}

// And 构造 AND 组合。
func And(cs ...Criterion) *Compound { return &Compound{op: OpAnd, children: cs} }

// Or 构造 OR 组合。
func Or(cs ...Criterion) *Compound { return &Compound{op: OpOr, children: cs} }

// Op 返回组合方式。
func (k *Compound) Op() CompoundOp { return k.op }

// Len 返回子条件数。
func (k *Compound) Len() int { return len(k.children) }

// At 返回第 i 个子条件。
func (k *Compound) At(i int) Criterion { return k.children[i] }

// Add 追加子条件并返回自身。
func (k *Compound) Add(c Criterion) *Compound {
	k.children = append(k.children, c)
	return k
}

// Matches: 空组合永不匹配（AND 与 OR 皆然），防止无约束规则在每个位置触发。
func (k *Compound) Matches(c Context) bool {
	if len(k.children) == 0 {
		return false
	}
	switch k.op {
	case OpOr:
		for _, ch := range k.children {
			if ch.Matches(c) {
				return true
			}
		}
		return false
	default:
		for _, ch := range k.children {
			if !ch.Matches(c) {
				return false
			}
		}
		return true
	}
}

func (*Compound) criterion() {}
