// Package template 将形如 "@@name@@" 的占位行替换为同名模板文件的内容。
package template

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"linereviser/pkg/contract"
	"linereviser/pkg/revise"
)

// Ext: 模板文件扩展名；文件名去掉扩展名即模板名。
const Ext = ".tex"

var placeholder = regexp.MustCompile(`^@@(.+)@@$`)

// Set: 模板名 → 模板行。
type Set map[string][]string

// Names 返回排序后的模板名。
func (s Set) Names() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Options: 回调与换行符。
type Options struct {
	// EOL: 连接模板行的换行符；为空使用 "\n"。
	EOL string
	// OnApply/OnMissing: 应用模板或模板不存在时回调（用于日志）。
	OnApply   func(name string)
	OnMissing func(name string)
}

// New 构造占位行替换规则；未知模板保留原行。
func New(set Set, opts Options) *revise.ReplaceRule {
	eol := opts.EOL
	if eol == "" {
		eol = "\n"
	}
	return revise.Replace(revise.Regexp(placeholder)).
		WithFunc(func(matched string, _ revise.Context) revise.Line {
			m := placeholder.FindStringSubmatch(matched)
			if m == nil {
				return revise.Some(matched)
			}
			lines, ok := set[m[1]]
			if !ok {
				if opts.OnMissing != nil {
					opts.OnMissing(m[1])
				}
				return revise.Some(matched)
			}
			if opts.OnApply != nil {
				opts.OnApply(m[1])
			}
			return revise.Some(strings.Join(lines, eol))
		}).
		Named("template")
}

// Load 读取 dir 下所有 *.tex 文件为模板（不递归）。
// 目录缺失时返回空集合与包裹 ErrAuxMissing 的错误；单个文件读取失败直接返回错误。
func Load(dir string) (Set, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Set{}, fmt.Errorf("%w: template dir %s", contract.ErrAuxMissing, dir)
		}
		return Set{}, fmt.Errorf("template dir %s: %w", dir, err)
	}
	set := Set{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), Ext) {
			continue
		}
		p := filepath.Join(dir, e.Name())
		b, err := os.ReadFile(p)
		if err != nil {
			return set, fmt.Errorf("template %s: %w", p, err)
		}
		set[strings.TrimSuffix(e.Name(), Ext)] = revise.SplitLines(string(b))
	}
	return set, nil
}
