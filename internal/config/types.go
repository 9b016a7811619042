package config

import (
	"encoding/json"
)

// EnvPrefix: 环境变量覆盖的统一前缀。
const EnvPrefix = "LINEREVISER_"

// Config: 运行期只读配置（一次解析，运行期不变）。
// JSON 使用 snake_case；未知字段在解析期失败。
type Config struct {
	Inputs  []string `json:"inputs"`
	Logging Logging  `json:"logging"`

	// 组件名选择（空则使用默认名）。
	Components Components `json:"components"`

	// 各组件 Options 子树，原样 JSON 传入工厂。
	Options Options `json:"options"`

	// 规则来源。
	Rules Rules `json:"rules"`
}

// Logging: 日志等级、日志目录与指标导出文件。
type Logging struct {
	Level string `json:"level"`
	// Dir: 轮转日志目录；显式空串表示写 stderr。
	Dir *string `json:"dir,omitempty"`
	// MetricsFile: 运行结束时以 textfile 格式导出指标（空则不导出）。
	MetricsFile string `json:"metrics_file,omitempty"`
}

// Components: 组件名选择（注册表中的实现名）。
type Components struct {
	Reader    string `json:"reader"`
	Splitter  string `json:"splitter"`
	Assembler string `json:"assembler"`
	Writer    string `json:"writer"`
}

// Options: 各组件的原样 JSON Options。
type Options struct {
	Reader    json.RawMessage `json:"reader,omitempty"`
	Splitter  json.RawMessage `json:"splitter,omitempty"`
	Assembler json.RawMessage `json:"assembler,omitempty"`
	Writer    json.RawMessage `json:"writer,omitempty"`
}

// Rules: 预设、YAML 规则文件与辅助文档。
type Rules struct {
	Preset string   `json:"preset"`
	Files  []string `json:"files,omitempty"`
	// FigureFile: 相对输入文件所在目录；显式空串关闭 figure 替换。
	FigureFile  *string `json:"figure_file,omitempty"`
	TemplateDir string  `json:"template_dir,omitempty"`
}

// Str 返回指向 s 的指针，便于构造可选字段。
func Str(s string) *string { return &s }

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
