package ruleset

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"

	"linereviser/pkg/contract"
	"linereviser/pkg/revise"
)

// PatternSpec: 行模式，恰好设置一个键。
type PatternSpec struct {
	Equals   *string `yaml:"equals"`
	Prefix   *string `yaml:"prefix"`
	Suffix   *string `yaml:"suffix"`
	Contains *string `yaml:"contains"`
	Regex    *string `yaml:"regex"`
	Blank    bool    `yaml:"blank"`
	Absent   bool    `yaml:"absent"`
}

// InsideSpec: 区间标记对。
type InsideSpec struct {
	Begin PatternSpec `yaml:"begin"`
	End   PatternSpec `yaml:"end"`
}

// CriterionSpec: 同一映射中的多个键按 AND 组合。
type CriterionSpec struct {
	Is     *PatternSpec    `yaml:"is"`
	Before *PatternSpec    `yaml:"before"`
	After  *PatternSpec    `yaml:"after"`
	Inside *InsideSpec     `yaml:"inside"`
	Either []CriterionSpec `yaml:"either"`
	All    []CriterionSpec `yaml:"all"`
	Not    *CriterionSpec  `yaml:"not"`
}

// SubstituteSpec: 对命中行做正则替换（With 支持 $1 引用）。
type SubstituteSpec struct {
	Regex string `yaml:"regex"`
	With  string `yaml:"with"`
	First bool   `yaml:"first"`
}

// RuleSpec: 单条规则；insert/replace/figures/templates 四选一。
type RuleSpec struct {
	Name string `yaml:"name"`

	Insert  []string     `yaml:"insert"`
	Replace *PatternSpec `yaml:"replace"`

	With       *string         `yaml:"with"`
	Delete     bool            `yaml:"delete"`
	Substitute *SubstituteSpec `yaml:"substitute"`

	Figures   string `yaml:"figures"`
	Templates string `yaml:"templates"`

	CriterionSpec `yaml:",inline"`
}

// Document: YAML 规则文件的顶层结构。
type Document struct {
	Rules []RuleSpec `yaml:"rules"`
}

// entry: 编译后的规则项；static 可跨文件复用，figure/templates 按输入文件加载。
type entry struct {
	static    revise.Rule
	figure    string
	templates string
	name      string
}

// RuleFile: 已校验并编译的规则文件。
type RuleFile struct {
	Path    string
	entries []entry
}

// Names 返回规则名。
func (f *RuleFile) Names() []string {
	out := make([]string, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, e.name)
	}
	return out
}

// LoadFile 读取并编译 YAML 规则文件；figures 与 templates 路径相对规则文件所在目录解析。
func LoadFile(path string) (*RuleFile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: rule file %s: %v", contract.ErrInvalidInput, path, err)
	}
	rf, err := Parse(b, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("rule file %s: %w", path, err)
	}
	rf.Path = path
	return rf, nil
}

// Parse 严格解码（拒绝未知键）并编译规则。
func Parse(data []byte, baseDir string) (*RuleFile, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", contract.ErrInvalidInput, err)
	}
	rf := &RuleFile{}
	for i, rs := range doc.Rules {
		e, err := compileRule(rs, baseDir)
		if err != nil {
			return nil, fmt.Errorf("%w: rules[%d]: %v", contract.ErrInvalidInput, i, err)
		}
		if e.name == "" {
			e.name = fmt.Sprintf("%s#%d", kindOf(rs), i)
		}
		rf.entries = append(rf.entries, e)
	}
	return rf, nil
}

// besideRuleFile 将相对路径解析到规则文件所在目录。
func besideRuleFile(baseDir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}

func kindOf(rs RuleSpec) string {
	switch {
	case rs.Insert != nil:
		return "insert"
	case rs.Replace != nil:
		return "replace"
	case rs.Figures != "":
		return "figure"
	case rs.Templates != "":
		return "template"
	default:
		return "rule"
	}
}

func compileRule(rs RuleSpec, baseDir string) (entry, error) {
	kinds := 0
	for _, set := range []bool{rs.Insert != nil, rs.Replace != nil, rs.Figures != "", rs.Templates != ""} {
		if set {
			kinds++
		}
	}
	if kinds != 1 {
		return entry{}, errors.New("exactly one of insert, replace, figures, templates is required")
	}
	guard, err := compileGuard(rs.CriterionSpec)
	if err != nil {
		return entry{}, err
	}

	switch {
	case rs.Figures != "" || rs.Templates != "":
		if len(guard) > 0 || rs.With != nil || rs.Delete || rs.Substitute != nil {
			return entry{}, errors.New("figures/templates take no guard or replacement")
		}
		if rs.Templates != "" {
			return entry{templates: besideRuleFile(baseDir, rs.Templates), name: rs.Name}, nil
		}
		return entry{figure: besideRuleFile(baseDir, rs.Figures), name: rs.Name}, nil

	case rs.Insert != nil:
		if rs.With != nil || rs.Delete || rs.Substitute != nil {
			return entry{}, errors.New("insert takes no replacement")
		}
		if len(guard) == 0 {
			return entry{}, errors.New("insert requires at least one guard")
		}
		r := revise.Insert(rs.Insert...)
		for _, c := range guard {
			r.When(c)
		}
		if rs.Name != "" {
			r.Named(rs.Name)
		}
		return entry{static: r, name: r.Name()}, nil

	default:
		p, err := compilePattern(*rs.Replace)
		if err != nil {
			return entry{}, fmt.Errorf("replace: %w", err)
		}
		r := revise.Replace(p)
		if err := applyReplacement(r, rs); err != nil {
			return entry{}, err
		}
		for _, c := range guard {
			r.When(c)
		}
		if rs.Name != "" {
			r.Named(rs.Name)
		}
		return entry{static: r, name: r.Name()}, nil
	}
}

func applyReplacement(r *revise.ReplaceRule, rs RuleSpec) error {
	n := 0
	if rs.With != nil {
		n++
	}
	if rs.Delete {
		n++
	}
	if rs.Substitute != nil {
		n++
	}
	if n > 1 {
		return errors.New("at most one of with, delete, substitute")
	}
	switch {
	case rs.With != nil:
		r.With(*rs.With)
	case rs.Delete:
		r.Delete()
	case rs.Substitute != nil:
		re, err := regexp.Compile(rs.Substitute.Regex)
		if err != nil {
			return fmt.Errorf("substitute: %w", err)
		}
		with, first := rs.Substitute.With, rs.Substitute.First
		r.WithFunc(func(matched string, _ revise.Context) revise.Line {
			if !first {
				return revise.Some(re.ReplaceAllString(matched, with))
			}
			loc := re.FindStringSubmatchIndex(matched)
			if loc == nil {
				return revise.Some(matched)
			}
			var dst []byte
			dst = re.ExpandString(dst, with, matched, loc)
			return revise.Some(matched[:loc[0]] + string(dst) + matched[loc[1]:])
		})
	}
	return nil
}

// compileGuard 将映射中的各键按固定顺序转为条件列表（调用方逐个 AND 并入）。
func compileGuard(cs CriterionSpec) ([]revise.Criterion, error) {
	var out []revise.Criterion
	leaf := func(key string, ps *PatternSpec, mk func(revise.Pattern) revise.Criterion) error {
		if ps == nil {
			return nil
		}
		p, err := compilePattern(*ps)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		out = append(out, mk(p))
		return nil
	}
	if err := leaf("is", cs.Is, revise.Is); err != nil {
		return nil, err
	}
	if err := leaf("before", cs.Before, revise.Before); err != nil {
		return nil, err
	}
	if err := leaf("after", cs.After, revise.After); err != nil {
		return nil, err
	}
	if cs.Inside != nil {
		b, err := compilePattern(cs.Inside.Begin)
		if err != nil {
			return nil, fmt.Errorf("inside.begin: %w", err)
		}
		e, err := compilePattern(cs.Inside.End)
		if err != nil {
			return nil, fmt.Errorf("inside.end: %w", err)
		}
		out = append(out, revise.Inside(b, e))
	}
	if cs.Either != nil {
		or := revise.Or()
		for i, sub := range cs.Either {
			c, err := compileCriterion(sub)
			if err != nil {
				return nil, fmt.Errorf("either[%d]: %w", i, err)
			}
			or.Add(c)
		}
		out = append(out, or)
	}
	if cs.All != nil {
		and := revise.And()
		for i, sub := range cs.All {
			c, err := compileCriterion(sub)
			if err != nil {
				return nil, fmt.Errorf("all[%d]: %w", i, err)
			}
			and.Add(c)
		}
		out = append(out, and)
	}
	if cs.Not != nil {
		c, err := compileCriterion(*cs.Not)
		if err != nil {
			return nil, fmt.Errorf("not: %w", err)
		}
		out = append(out, revise.Not(c))
	}
	return out, nil
}

// compileCriterion: 单键直接返回该条件，多键组合为 AND；空映射为错误。
func compileCriterion(cs CriterionSpec) (revise.Criterion, error) {
	list, err := compileGuard(cs)
	if err != nil {
		return nil, err
	}
	switch len(list) {
	case 0:
		return nil, errors.New("empty criterion")
	case 1:
		return list[0], nil
	default:
		return revise.And(list...), nil
	}
}

func compilePattern(ps PatternSpec) (revise.Pattern, error) {
	var (
		p revise.Pattern
		n int
	)
	if ps.Equals != nil {
		p, n = revise.Equals(*ps.Equals), n+1
	}
	if ps.Prefix != nil {
		p, n = revise.HasPrefix(*ps.Prefix), n+1
	}
	if ps.Suffix != nil {
		p, n = revise.HasSuffix(*ps.Suffix), n+1
	}
	if ps.Contains != nil {
		p, n = revise.Contains(*ps.Contains), n+1
	}
	if ps.Regex != nil {
		re, err := regexp.Compile(*ps.Regex)
		if err != nil {
			return revise.Pattern{}, fmt.Errorf("regex: %w", err)
		}
		p, n = revise.Regexp(re), n+1
	}
	if ps.Blank {
		p, n = revise.Blank(), n+1
	}
	if ps.Absent {
		p, n = revise.Absent(), n+1
	}
	if n != 1 {
		return revise.Pattern{}, fmt.Errorf("pattern needs exactly one key, got %d", n)
	}
	return p, nil
}
