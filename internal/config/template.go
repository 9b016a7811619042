package config

import "encoding/json"

// DefaultTemplateConfig 返回一个“可运行”的默认配置模板：
// - 默认输入为 STDIN（"-"），此时输出自动转到 stdout；
// - 组件名采用仓库内置实现，预设为 pandoc-latex；
// - 选项给出全部键与安全中性默认值。
func DefaultTemplateConfig() Config {
	d := Defaults()
	cfg := Config{
		Inputs:     []string{"-"},
		Logging:    Logging{Level: "info", Dir: Str("logs"), MetricsFile: ""},
		Components: d.Components,
		Rules: Rules{
			Preset:      d.Rules.Preset,
			Files:       []string{},
			FigureFile:  Str("figure.tex"),
			TemplateDir: "",
		},
	}
	// Options：包含所有键（值可为空/默认），确保键存在。
	cfg.Options.Reader = json.RawMessage(`{
  "buf_size": 65536,
  "exclude_dir_names": [".git", "node_modules", "out"],
  "allow_exts": [".tex"],
  "exclude_suffixes": []
}`)
	cfg.Options.Splitter = json.RawMessage(`{
  "keep_bom": false,
  "max_bytes": 0,
  "require_utf8": false
}`)
	cfg.Options.Assembler = json.RawMessage(`{
  "separator": "os",
  "trailing_newline": false
}`)
	cfg.Options.Writer = json.RawMessage(`{
  "output_dir": "",
  "suffix": ".out",
  "in_place": false,
  "atomic": true,
  "flat": false,
  "buf_size": 65536
}`)
	return cfg
}
