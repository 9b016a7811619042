package ruleset

import (
	"errors"
	"fmt"
	"strings"

	"linereviser/internal/diag"
	"linereviser/pkg/contract"
	"linereviser/pkg/revise"
	"linereviser/plugins/rule/figure"
	"linereviser/plugins/rule/template"
)

// Options: 规则来源。
type Options struct {
	// Preset: 内置预设名；空或 "none" 表示不使用。
	Preset string
	// Files: YAML 规则文件，按序追加在预设之后。
	Files []string
	// FigureFile: 预设 figure 规则的辅助文档；相对路径按输入文件所在目录解析，空则不启用。
	FigureFile string
	// TemplateDir: 占位模板目录；非空时模板规则置于最前。
	TemplateDir string
	// EOL: 模板行之间的换行符，应与装配分隔符一致。
	EOL string
}

// Builder 按输入文件构造 Reviser；辅助文档每次按需重新读取。
type Builder struct {
	opts   Options
	preset Preset
	files  []*RuleFile
	logger *diag.Logger
}

// NewBuilder 校验预设并加载全部规则文件；任一错误均包裹 ErrInvalidInput。
func NewBuilder(opts Options, logger *diag.Logger) (*Builder, error) {
	p, ok := Lookup(opts.Preset)
	if !ok {
		return nil, fmt.Errorf("%w: unknown preset %q (available: %s)", contract.ErrInvalidInput, opts.Preset, strings.Join(Names(), ", "))
	}
	b := &Builder{opts: opts, preset: p, logger: logger}
	for _, path := range opts.Files {
		rf, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		b.files = append(b.files, rf)
	}
	return b, nil
}

// Preset 返回所用预设名。
func (b *Builder) Preset() string { return b.preset.Name }

// RuleNames 返回规则名序列（不读取辅助文档）。
func (b *Builder) RuleNames() []string {
	var out []string
	if b.opts.TemplateDir != "" {
		out = append(out, "template")
	}
	var aux Aux
	if b.opts.FigureFile != "" {
		aux.Figure = figure.New(nil)
	}
	for _, r := range b.preset.Rules(aux) {
		out = append(out, r.Name())
	}
	for _, f := range b.files {
		out = append(out, f.Names()...)
	}
	return out
}

// ForFile 构造 id 对应的 Reviser。辅助文档缺失或不可读时对应规则降级为空操作并告警。
func (b *Builder) ForFile(id contract.FileID) (*revise.Reviser, error) {
	rv := revise.New()
	if b.opts.TemplateDir != "" {
		rv.Add(b.templateRule(id, b.opts.TemplateDir))
	}
	var aux Aux
	if b.opts.FigureFile != "" {
		aux.Figure = b.figureRule(id, contract.ResolveBeside(id, b.opts.FigureFile))
	}
	rv.Add(b.preset.Rules(aux)...)
	for _, f := range b.files {
		for _, e := range f.entries {
			switch {
			case e.static != nil:
				rv.Add(e.static)
			case e.figure != "":
				r := b.figureRule(id, e.figure)
				if e.name != "" {
					r.Named(e.name)
				}
				rv.Add(r)
			case e.templates != "":
				rv.Add(b.templateRule(id, e.templates))
			}
		}
	}
	return rv, nil
}

// figureRule 从已解析的 path 加载 figure 规则；读取失败时告警并返回空操作规则。
func (b *Builder) figureRule(id contract.FileID, path string) *revise.SpliceRule {
	r, err := figure.Load(path)
	if err != nil {
		b.warnAux(id, "figure", path, err)
		return r
	}
	b.logger.DebugStart("ruleset", "figure loaded", string(id), "figure", map[string]string{
		"path":   path,
		"blocks": fmt.Sprintf("%d", r.Blocks()),
	})
	return r
}

func (b *Builder) templateRule(id contract.FileID, dir string) *revise.ReplaceRule {
	set, err := template.Load(dir)
	if err != nil {
		b.warnAux(id, "template", dir, err)
	}
	fid := string(id)
	return template.New(set, template.Options{
		EOL: b.opts.EOL,
		OnApply: func(name string) {
			b.logger.DebugStart("ruleset", "template applied", fid, "template", map[string]string{"name": name})
		},
		OnMissing: func(name string) {
			b.logger.Warn("ruleset", string(diag.CodeAux), "template not found", fid, map[string]string{"name": name})
		},
	})
}

func (b *Builder) warnAux(id contract.FileID, rule, path string, err error) {
	msg := rule + " source unreadable"
	if errors.Is(err, contract.ErrAuxMissing) {
		msg = rule + " source missing"
	}
	b.logger.Warn("ruleset", string(diag.Classify(err)), msg, string(id), map[string]string{
		"path":  path,
		"error": err.Error(),
	})
	diag.IncError("ruleset", string(diag.Classify(err)))
}
