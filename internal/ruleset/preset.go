// Package ruleset 组装每个输入文件使用的规则流水线：内置预设、YAML 规则文件与辅助文档规则。
package ruleset

import (
	"regexp"
	"sort"
	"strings"

	"linereviser/pkg/revise"
)

const (
	// PresetNone: 不含任何内置规则。
	PresetNone = "none"
	// PresetPandocLaTeX: 修整 pandoc 生成的 LaTeX 作业文档。
	PresetPandocLaTeX = "pandoc-latex"
)

// Aux: 预设中依赖输入文件的规则（按文件加载）；为 nil 时对应规则省略。
type Aux struct {
	Figure revise.Rule
}

// Preset: 命名的内置规则序列。
type Preset struct {
	Name        string
	Description string
	build       func(aux Aux) []revise.Rule
}

// Rules 以 aux 构造规则序列（每次调用返回新实例）。
func (p Preset) Rules(aux Aux) []revise.Rule {
	if p.build == nil {
		return nil
	}
	return p.build(aux)
}

var presets = map[string]Preset{
	PresetNone: {
		Name:        PresetNone,
		Description: "无内置规则",
		build:       func(Aux) []revise.Rule { return nil },
	},
	PresetPandocLaTeX: {
		Name:        PresetPandocLaTeX,
		Description: "pandoc 导出 LaTeX 的中文支持、版式与数学环境修整",
		build:       pandocLaTeX,
	},
}

// Lookup 按名称查找预设；空名视为 none。
func Lookup(name string) (Preset, bool) {
	if strings.TrimSpace(name) == "" {
		name = PresetNone
	}
	p, ok := presets[name]
	return p, ok
}

// Names 返回排序后的预设名。
func Names() []string {
	out := make([]string, 0, len(presets))
	for n := range presets {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

var longtableCols = regexp.MustCompile(`@\{\}(l+)@\{\}`)

// centerColumns 将首个 @{}l…l@{} 列说明改为同宽的 c 列。
func centerColumns(s string) string {
	loc := longtableCols.FindStringSubmatchIndex(s)
	if loc == nil {
		return s
	}
	n := loc[3] - loc[2]
	return s[:loc[0]] + "@{}" + strings.Repeat("c", n) + "@{}" + s[loc[1]:]
}

func pandocLaTeX(aux Aux) []revise.Rule {
	beginArray := revise.HasPrefix(`\begin{array}`)

	rules := []revise.Rule{
		revise.Insert(`\usepackage[UTF8]{ctex} % add chinese support`).
			After(revise.Equals(`\usepackage[utf8]{inputenc}`)).
			Named("ctex"),

		revise.Insert(
			"% adjust page margin",
			`\usepackage{geometry}`,
			`\geometry{a4paper,scale=0.9}`,
			"",
		).Before(revise.Equals(`\date{}`)).Named("geometry"),

		revise.Insert(
			"",
			"% polyfill",
			`\newcommand{\N}{\mathbb N}`,
			`\newcommand{\Z}{\mathbb Z}`,
			`\newcommand{\Q}{\mathbb Q}`,
			`\newcommand{\R}{\mathbb R}`,
		).After(revise.Equals(`\date{}`)).Named("polyfill"),

		revise.Replace(revise.Equals(`\newcommand{\d}{{\rm d}}`)).
			With(`\renewcommand{\d}{{\rm d}}`).
			Named("renew-d"),
		revise.Replace(revise.Equals(`\newcommand{\i}{{\rm i}}`)).
			With(`\renewcommand{\i}{{\rm i}}`).
			Named("renew-i"),

		revise.Replace(revise.Equals("")).
			Delete().
			Either(
				revise.Inside(revise.Equals(`\begin{aligned}`), revise.Equals(`\end{aligned}`)),
				revise.Inside(beginArray, revise.Equals(`\end{array}`)),
			).
			Named("math-blank-lines"),
	}

	if aux.Figure != nil {
		rules = append(rules, aux.Figure)
	}

	rules = append(rules,
		revise.Replace(revise.Equals(`\begin{aligned}`)).With(`\begin{align*}`).Named("aligned-begin"),
		revise.Replace(revise.Equals(`\end{aligned}`)).With(`\end{align*}`).Named("aligned-end"),

		revise.Insert(`\[`).
			Before(beginArray).
			After(revise.Blank()).
			Named("array-open"),
		revise.Insert(`\]`).
			After(revise.Equals(`\end{array}`)).
			Before(revise.Blank()).
			Named("array-close"),

		revise.Replace(revise.HasPrefix(`\begin{longtable}[]`)).
			WithFunc(func(matched string, _ revise.Context) revise.Line {
				return revise.Some(centerColumns(matched))
			}).
			Named("longtable-center"),

		revise.Replace(revise.HasPrefix(`\begin{center}\rule`)).
			With(`\begin{center}\rule{\linewidth}{0.05pt}\end{center}`).
			Named("hrule"),

		revise.Replace(revise.Equals("")).
			With("%").
			Either(
				revise.After(revise.Equals(`\end{longtable}`)),
				revise.Before(revise.Equals(`\begin{align*}`)),
				revise.After(revise.Equals(`\end{align*}`)),
				revise.Before(revise.HasPrefix(`\[`)),
				revise.After(revise.HasSuffix(`\]`)),
			).
			Named("segment-guard"),
	)
	return rules
}
