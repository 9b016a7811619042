package main

import (
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	cfgpkg "linereviser/internal/config"
	"linereviser/internal/ruleset"
	"linereviser/plugins/rule/figure"
)

// newInitConfigCmd: 在目录中生成 config.json 与 .env 模板，已存在的文件不覆盖。
func newInitConfigCmd(stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "init-config [dir]",
		Short: "生成默认配置 config.json 与 .env 模板（已存在则跳过）",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 && args[0] != "" {
				dir = args[0]
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				fprintf(stderr, "生成默认配置失败: %v\n", err)
				return exitWith(exitConfig, err)
			}
			cfgPath := filepath.Join(dir, "config.json")
			switch err := writeConfig(cfgPath, cfgpkg.DefaultTemplateConfig()); {
			case err == nil:
				fprintf(stdout, "已生成 %s\n", cfgPath)
			case os.IsExist(err):
				fprintf(stderr, "提示：%s 已存在（已跳过）\n", cfgPath)
			default:
				fprintf(stderr, "生成默认配置失败: %v\n", err)
				return exitWith(exitConfig, err)
			}
			envPath := filepath.Join(dir, ".env")
			created, err := writeDotEnv(envPath)
			switch {
			case err != nil:
				fprintf(stderr, "提示：.env 生成失败（已跳过）：%v\n", err)
			case created:
				fprintf(stdout, "已生成 %s\n", envPath)
			default:
				fprintf(stderr, "提示：%s 已存在（已跳过）\n", envPath)
			}
			return nil
		},
	}
}

// newPresetsCmd: 列出内置预设及其规则名。
func newPresetsCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "列出内置规则预设",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range ruleset.Names() {
				p, _ := ruleset.Lookup(name)
				fprintf(stdout, "%s\t%s\n", p.Name, p.Description)
				for _, r := range p.Rules(ruleset.Aux{Figure: figure.New(nil)}) {
					fprintf(stdout, "  - %s\n", r.Name())
				}
			}
			return nil
		},
	}
}
