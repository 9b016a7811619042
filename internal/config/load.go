package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"linereviser/pkg/contract"
)

// Defaults 返回带有安全默认值的 Config 雏形。
func Defaults() Config {
	return Config{
		Logging: Logging{Level: "info", Dir: Str("logs")},
		Components: Components{
			Reader:    "fs",
			Splitter:  "lines",
			Assembler: "linear",
			Writer:    "fs",
		},
		Options: Options{
			Reader: json.RawMessage(`{"allow_exts":[".tex"]}`),
		},
		Rules: Rules{
			Preset:     "pandoc-latex",
			FigureFile: Str("figure.tex"),
		},
	}
}

// LoadJSON 从文件路径或原始 JSON 解析 Config（严格拒绝未知字段）。
func LoadJSON(path string, raw []byte) (Config, error) {
	var cfg Config
	var r io.Reader
	switch {
	case len(raw) > 0:
		r = bytes.NewReader(raw)
	case path != "":
		f, err := os.Open(path)
		if err != nil {
			return cfg, fmt.Errorf("%w: %v", contract.ErrInvalidInput, err)
		}
		defer f.Close()
		r = f
	default:
		return cfg, fmt.Errorf("%w: no config source provided", contract.ErrInvalidInput)
	}
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("%w: config: %v", contract.ErrInvalidInput, err)
	}
	return cfg, nil
}

// Merge 按优先级合并（后者覆盖前者）。
// 仅标量/字符串/原样 JSON 为“替换”；不做深度合并。
func Merge(base, over Config) Config {
	out := base
	if len(over.Inputs) > 0 {
		out.Inputs = cloneStrings(over.Inputs)
	}

	// Logging
	if strings.TrimSpace(over.Logging.Level) != "" {
		out.Logging.Level = strings.TrimSpace(over.Logging.Level)
	}
	if over.Logging.Dir != nil {
		out.Logging.Dir = Str(*over.Logging.Dir)
	}
	if over.Logging.MetricsFile != "" {
		out.Logging.MetricsFile = over.Logging.MetricsFile
	}

	// 组件名（空不覆盖）
	if over.Components.Reader != "" {
		out.Components.Reader = over.Components.Reader
	}
	if over.Components.Splitter != "" {
		out.Components.Splitter = over.Components.Splitter
	}
	if over.Components.Assembler != "" {
		out.Components.Assembler = over.Components.Assembler
	}
	if over.Components.Writer != "" {
		out.Components.Writer = over.Components.Writer
	}

	// Options（完整替换对应键）
	if len(over.Options.Reader) > 0 {
		out.Options.Reader = cloneRaw(over.Options.Reader)
	}
	if len(over.Options.Splitter) > 0 {
		out.Options.Splitter = cloneRaw(over.Options.Splitter)
	}
	if len(over.Options.Assembler) > 0 {
		out.Options.Assembler = cloneRaw(over.Options.Assembler)
	}
	if len(over.Options.Writer) > 0 {
		out.Options.Writer = cloneRaw(over.Options.Writer)
	}

	// Rules
	if strings.TrimSpace(over.Rules.Preset) != "" {
		out.Rules.Preset = strings.TrimSpace(over.Rules.Preset)
	}
	if len(over.Rules.Files) > 0 {
		out.Rules.Files = cloneStrings(over.Rules.Files)
	}
	if over.Rules.FigureFile != nil {
		out.Rules.FigureFile = Str(*over.Rules.FigureFile)
	}
	if over.Rules.TemplateDir != "" {
		out.Rules.TemplateDir = over.Rules.TemplateDir
	}
	return out
}

// EnvOverlay 从环境变量构建一个 Config 覆盖（仅解析有限键集合，前缀 LINEREVISER_）。
// 支持：INPUTS, LOG_LEVEL, LOG_DIR, METRICS_FILE, COMPONENTS_*, OPTIONS_*_JSON,
// RULES_PRESET, RULES_FILES, RULES_FIGURE_FILE, RULES_TEMPLATE_DIR。
func EnvOverlay(environ []string) (Config, error) {
	var over Config
	for _, kv := range environ {
		if !strings.HasPrefix(kv, EnvPrefix) {
			continue
		}
		eq := strings.IndexByte(kv, '=')
		if eq <= len(EnvPrefix) {
			continue
		}
		key := strings.TrimPrefix(kv[:eq], EnvPrefix)
		val := kv[eq+1:]
		switch key {
		case "INPUTS":
			over.Inputs = splitComma(val)
		case "LOG_LEVEL":
			over.Logging.Level = strings.TrimSpace(val)
		case "LOG_DIR":
			// 允许显式空串（写 stderr）
			over.Logging.Dir = Str(strings.TrimSpace(val))
		case "METRICS_FILE":
			over.Logging.MetricsFile = strings.TrimSpace(val)
		case "COMPONENTS_READER":
			over.Components.Reader = strings.TrimSpace(val)
		case "COMPONENTS_SPLITTER":
			over.Components.Splitter = strings.TrimSpace(val)
		case "COMPONENTS_ASSEMBLER":
			over.Components.Assembler = strings.TrimSpace(val)
		case "COMPONENTS_WRITER":
			over.Components.Writer = strings.TrimSpace(val)
		case "OPTIONS_READER_JSON", "OPTIONS_SPLITTER_JSON", "OPTIONS_ASSEMBLER_JSON", "OPTIONS_WRITER_JSON":
			// 原样 JSON；空值视为未设置，避免清空现有配置
			if strings.TrimSpace(val) == "" {
				continue
			}
			if !json.Valid([]byte(val)) {
				return over, fmt.Errorf("%w: %s%s is not valid json", contract.ErrInvalidInput, EnvPrefix, key)
			}
			raw := json.RawMessage(val)
			switch key {
			case "OPTIONS_READER_JSON":
				over.Options.Reader = raw
			case "OPTIONS_SPLITTER_JSON":
				over.Options.Splitter = raw
			case "OPTIONS_ASSEMBLER_JSON":
				over.Options.Assembler = raw
			default:
				over.Options.Writer = raw
			}
		case "RULES_PRESET":
			over.Rules.Preset = strings.TrimSpace(val)
		case "RULES_FILES":
			over.Rules.Files = splitComma(val)
		case "RULES_FIGURE_FILE":
			over.Rules.FigureFile = Str(strings.TrimSpace(val))
		case "RULES_TEMPLATE_DIR":
			over.Rules.TemplateDir = strings.TrimSpace(val)
		default:
			// 集合之外的键忽略
		}
	}
	return over, nil
}

// SetOption 在原样 JSON Options 中设置单个键（其余键保持不变），用于 CLI 覆盖。
func SetOption(raw json.RawMessage, key string, value any) (json.RawMessage, error) {
	m := map[string]any{}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("%w: options: %v", contract.ErrInvalidInput, err)
		}
		if m == nil {
			m = map[string]any{}
		}
	}
	m[key] = value
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("%w: options: %v", contract.ErrInvalidInput, err)
	}
	return b, nil
}

func cloneStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneRaw(in json.RawMessage) json.RawMessage {
	if len(in) == 0 {
		return nil
	}
	out := make([]byte, len(in))
	copy(out, in)
	return out
}

func splitComma(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
