package revise

import (
	"fmt"
	"regexp"
	"strings"
)

type patternKind uint8

const (
	patternLiteral patternKind = iota
	patternPredicate
)

// Pattern 为封闭的二选一变体：字面量（可缺省）或谓词。
// 零值等价于 Absent()：仅匹配缺省行。
type Pattern struct {
	kind  patternKind
	value Line
	pred  func(Line) bool
	desc  string
}

// Equals 匹配去缩进后内容恰为 s 的行。
func Equals(s string) Pattern {
	return Pattern{kind: patternLiteral, value: Some(s)}
}

// Absent 仅匹配缺省行（窗口外/文档边界外）。
func Absent() Pattern {
	return Pattern{kind: patternLiteral, value: None}
}

// Match 以谓词构造模式；谓词需自行处理缺省行。
func Match(pred func(Line) bool) Pattern {
	return Pattern{kind: patternPredicate, pred: pred, desc: "func"}
}

// HasPrefix 匹配以 prefix 开头的存在行。
func HasPrefix(prefix string) Pattern {
	p := Match(func(l Line) bool { return l.Present && strings.HasPrefix(l.Text, prefix) })
	p.desc = fmt.Sprintf("prefix(%q)", prefix)
	return p
}

// HasSuffix 匹配以 suffix 结尾的存在行。
func HasSuffix(suffix string) Pattern {
	p := Match(func(l Line) bool { return l.Present && strings.HasSuffix(l.Text, suffix) })
	p.desc = fmt.Sprintf("suffix(%q)", suffix)
	return p
}

// Contains 匹配包含 sub 的存在行。
func Contains(sub string) Pattern {
	p := Match(func(l Line) bool { return l.Present && strings.Contains(l.Text, sub) })
	p.desc = fmt.Sprintf("contains(%q)", sub)
	return p
}

// Blank 匹配缺省行或空行。
func Blank() Pattern {
	p := Match(func(l Line) bool { return !l.Present || l.Text == "" })
	p.desc = "blank"
	return p
}

// Regexp 匹配满足 re 的存在行。
func Regexp(re *regexp.Regexp) Pattern {
	p := Match(func(l Line) bool { return l.Present && re.MatchString(l.Text) })
	p.desc = fmt.Sprintf("regex(%q)", re.String())
	return p
}

// Test 对行值求值。
func (p Pattern) Test(v Line) bool {
	switch p.kind {
	case patternLiteral:
		return p.value == v
	case patternPredicate:
		return p.pred != nil && p.pred(v)
	default:
		return false
	}
}

func (p Pattern) String() string {
	switch p.kind {
	case patternLiteral:
		return p.value.String()
	default:
		return p.desc
	}
}
