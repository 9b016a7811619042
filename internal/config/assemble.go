package config

import (
	"encoding/json"
	"fmt"
	"strings"

	"linereviser/internal/diag"
	"linereviser/internal/pipeline"
	"linereviser/internal/ruleset"
	"linereviser/pkg/contract"
	"linereviser/pkg/registry"
	linear "linereviser/plugins/assembler/linear"
	wfs "linereviser/plugins/writer/filesystem"
)

var levels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Validate 对最小必要边界做静态校验；所有错误均包裹 ErrInvalidInput。
func Validate(cfg Config) error {
	if len(cfg.Inputs) == 0 {
		return invalid("inputs empty")
	}
	// 输入路径不得为空字符串；"-" 不能与其他根混用
	dash := false
	for _, r := range cfg.Inputs {
		if strings.TrimSpace(r) == "" {
			return invalid("input path cannot be empty")
		}
		if strings.TrimSpace(r) == "-" {
			dash = true
		}
	}
	if dash && len(cfg.Inputs) > 1 {
		return invalid("'-' cannot be mixed with other roots")
	}
	if lv := strings.ToLower(strings.TrimSpace(cfg.Logging.Level)); lv != "" && !levels[lv] {
		return invalid(fmt.Sprintf("logging.level %q not one of debug|info|warn|error", cfg.Logging.Level))
	}
	// 组件名若为空，使用默认名（由 Defaults() 提供）。此处只要最终有值即可。
	d := Defaults()
	if name := effName(cfg.Components.Reader, d.Components.Reader); registry.Reader[name] == nil {
		return invalid(fmt.Sprintf("reader %q not registered (available: %s)", name, strings.Join(registry.Names(registry.Reader), ", ")))
	}
	if name := effName(cfg.Components.Splitter, d.Components.Splitter); registry.Splitter[name] == nil {
		return invalid(fmt.Sprintf("splitter %q not registered (available: %s)", name, strings.Join(registry.Names(registry.Splitter), ", ")))
	}
	if name := effName(cfg.Components.Assembler, d.Components.Assembler); registry.Assembler[name] == nil {
		return invalid(fmt.Sprintf("assembler %q not registered (available: %s)", name, strings.Join(registry.Names(registry.Assembler), ", ")))
	}
	if name := effName(cfg.Components.Writer, d.Components.Writer); registry.Writer[name] == nil {
		return invalid(fmt.Sprintf("writer %q not registered (available: %s)", name, strings.Join(registry.Names(registry.Writer), ", ")))
	}
	if _, ok := ruleset.Lookup(cfg.Rules.Preset); !ok {
		return invalid(fmt.Sprintf("preset %q unknown (available: %s)", cfg.Rules.Preset, strings.Join(ruleset.Names(), ", ")))
	}
	for _, f := range cfg.Rules.Files {
		if strings.TrimSpace(f) == "" {
			return invalid("rule file path cannot be empty")
		}
	}
	return nil
}

// Assemble 构造 Components、Settings 与规则构造器。
// 严格 Options 解析在 registry（工厂）层进行；此处只传 raw JSON。
func Assemble(cfg Config, logger *diag.Logger) (pipeline.Components, pipeline.Settings, *ruleset.Builder, error) {
	if err := Validate(cfg); err != nil {
		return pipeline.Components{}, pipeline.Settings{}, nil, err
	}

	// 有效名称
	d := Defaults()
	rn := effName(cfg.Components.Reader, d.Components.Reader)
	sn := effName(cfg.Components.Splitter, d.Components.Splitter)
	an := effName(cfg.Components.Assembler, d.Components.Assembler)
	wn := WriterFor(cfg)

	// 构造实例
	ropts := cfg.Options.Reader
	if rn == "fs" && wn == "fs" {
		var err error
		if ropts, err = excludeOutputs(ropts, cfg.Options.Writer); err != nil {
			return pipeline.Components{}, pipeline.Settings{}, nil, fmt.Errorf("reader %s: %w", rn, err)
		}
	}
	r, err := registry.Reader[rn](ropts)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, nil, fmt.Errorf("reader %s: %w", rn, err)
	}
	s, err := registry.Splitter[sn](cfg.Options.Splitter)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, nil, fmt.Errorf("splitter %s: %w", sn, err)
	}
	asm, err := registry.Assembler[an](cfg.Options.Assembler)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, nil, fmt.Errorf("assembler %s: %w", an, err)
	}
	wopts := cfg.Options.Writer
	if wn != effName(cfg.Components.Writer, d.Components.Writer) {
		// 自动切换到 stdout 时不沿用 fs 选项
		wopts = nil
	}
	w, err := registry.Writer[wn](wopts)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, nil, fmt.Errorf("writer %s: %w", wn, err)
	}

	b, err := ruleset.NewBuilder(ruleset.Options{
		Preset:      cfg.Rules.Preset,
		Files:       cloneStrings(cfg.Rules.Files),
		FigureFile:  deref(cfg.Rules.FigureFile),
		TemplateDir: cfg.Rules.TemplateDir,
		EOL:         separatorOf(cfg.Options.Assembler),
	}, logger)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, nil, err
	}

	comp := pipeline.Components{Reader: r, Splitter: s, Assembler: asm, Writer: w}
	set := pipeline.Settings{
		Inputs:    cloneStrings(cfg.Inputs),
		Revisers:  b.ForFile,
		Ruleset:   b.Preset(),
		RuleCount: len(b.RuleNames()),
	}
	return comp, set, b, nil
}

// WriterFor 返回实际使用的 Writer 名：输入为 STDIN 且 fs Writer 未配置 output_dir 时改用 stdout。
func WriterFor(cfg Config) string {
	name := effName(cfg.Components.Writer, Defaults().Components.Writer)
	if name != "fs" || len(cfg.Inputs) != 1 || strings.TrimSpace(cfg.Inputs[0]) != "-" {
		return name
	}
	var probe struct {
		OutputDir string `json:"output_dir"`
	}
	if len(cfg.Options.Writer) > 0 {
		_ = json.Unmarshal(cfg.Options.Writer, &probe)
	}
	if strings.TrimSpace(probe.OutputDir) != "" {
		return name
	}
	return "stdout"
}

// excludeOutputs 把 fs Writer 的产物加入目录扫描排除项：
// 主名以输出后缀结尾的文件，以及 output_dir（位于输入目录内时）。
func excludeOutputs(reader, writer json.RawMessage) (json.RawMessage, error) {
	var w struct {
		OutputDir string  `json:"output_dir"`
		Suffix    *string `json:"suffix"`
	}
	if len(writer) > 0 {
		_ = json.Unmarshal(writer, &w)
	}
	suffix := wfs.DefaultSuffix
	if w.Suffix != nil {
		suffix = *w.Suffix
	}
	suffix = strings.TrimSpace(suffix)
	dir := strings.TrimSpace(w.OutputDir)
	if suffix == "" && dir == "" {
		return reader, nil
	}

	opts := map[string]any{}
	if len(reader) > 0 {
		if err := json.Unmarshal(reader, &opts); err != nil {
			return nil, fmt.Errorf("%w: %v", contract.ErrInvalidInput, err)
		}
		if opts == nil {
			opts = map[string]any{}
		}
	}
	if suffix != "" {
		list, _ := opts["exclude_stem_suffixes"].([]any)
		opts["exclude_stem_suffixes"] = append(list, suffix)
	}
	if dir != "" {
		list, _ := opts["exclude_dirs"].([]any)
		opts["exclude_dirs"] = append(list, dir)
	}
	return json.Marshal(opts)
}

// separatorOf 宽松读取装配分隔符（严格校验由装配器工厂负责）。
func separatorOf(raw json.RawMessage) string {
	var probe struct {
		Separator string `json:"separator"`
	}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &probe)
	}
	return linear.ResolveSeparator(probe.Separator)
}

func invalid(msg string) error {
	return fmt.Errorf("%w: config: %s", contract.ErrInvalidInput, msg)
}

func effName(got, def string) string {
	if got == "" {
		return def
	}
	return got
}
