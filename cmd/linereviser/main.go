package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	cfgpkg "linereviser/internal/config"
	"linereviser/internal/diag"
	"linereviser/internal/diffview"
	"linereviser/internal/pipeline"
	"linereviser/internal/ruleset"
	"linereviser/internal/watch"
)

var pipelineRun = pipeline.Run

// 退出码：0 成功；1 运行期失败；3 配置/装配失败。
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 3
)

// exitError 携带退出码，由 execute 统一转换。
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func exitWith(code int, err error) error { return &exitError{code: code, err: err} }

// cliFlags: 根命令旗标（覆盖 JSON 与 ENV）。
type cliFlags struct {
	config      string
	preset      string
	rules       []string
	figure      string
	templates   string
	outputDir   string
	suffix      string
	separator   string
	logLevel    string
	metricsFile string
	status      bool
	dryRun      bool
	diff        bool
	watch       bool
}

func main() {
	os.Exit(execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// execute 运行命令树并返回退出码。
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	// cobra 自身的旗标/参数错误
	fprintf(stderr, "参数错误: %v\n", err)
	return exitConfig
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var f cliFlags
	cmd := &cobra.Command{
		Use:   "linereviser [inputs...]",
		Short: "按规则逐行修订文本文档（默认 pandoc LaTeX 预设）",
		Long: `linereviser 读取文件、目录或 STDIN("-")，按预设与 YAML 规则文件逐行修订后写出。
配置优先级：CLI > ENV(LINEREVISER_*, .env) > JSON(--config 或 ./config.json) > 内置默认。`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMain(cmd.Context(), f, cmd.Flags().Changed, args, stdout, stderr)
		},
	}
	cmd.CompletionOptions.DisableDefaultCmd = true
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	fl := cmd.Flags()
	fl.StringVar(&f.config, "config", "", "配置文件路径（JSON）；缺省读取 ./config.json（若存在）")
	fl.StringVar(&f.preset, "preset", "", "规则预设（"+strings.Join(ruleset.Names(), "|")+"）")
	fl.StringArrayVar(&f.rules, "rules", nil, "YAML 规则文件（可重复，按序追加在预设之后）")
	fl.StringVar(&f.figure, "figure", "", "figure 辅助文档（相对输入文件目录；空串关闭）")
	fl.StringVar(&f.templates, "templates", "", "模板目录（整行 @@NAME@@ 占位替换为 NAME.tex）")
	fl.StringVar(&f.outputDir, "output-dir", "", "fs writer 输出目录（缺省写在源文件旁）")
	fl.StringVar(&f.suffix, "suffix", "", "fs writer 输出后缀（缺省 .out）")
	fl.StringVar(&f.separator, "separator", "", "装配行分隔符（os|lf|crlf|cr）")
	fl.StringVar(&f.logLevel, "log-level", "", "日志级别（debug|info|warn|error）")
	fl.StringVar(&f.metricsFile, "metrics-file", "", "运行结束时导出 Prometheus textfile 指标")
	fl.BoolVar(&f.status, "status", true, "终端状态提示（stderr）。TTY 动态刷新；非 TTY 打点输出")
	fl.BoolVar(&f.dryRun, "dry-run", false, "只修订不写出")
	fl.BoolVar(&f.diff, "diff", false, "向 stdout 输出 unified diff")
	fl.BoolVar(&f.watch, "watch", false, "首轮完成后监听输入变化并重新处理")

	cmd.AddCommand(newInitConfigCmd(stdout, stderr), newPresetsCmd(stdout))
	return cmd
}

// resolveConfig 依次合并 默认 → JSON → ENV → CLI。
func resolveConfig(f cliFlags, changed func(string) bool, args []string) (cfgpkg.Config, error) {
	cfg := cfgpkg.Defaults()

	var cfgJSON []byte
	if s := os.Getenv(cfgpkg.EnvPrefix + "CONFIG_JSON"); s != "" {
		cfgJSON = []byte(s)
	}
	path := f.config
	if path == "" {
		path = os.Getenv(cfgpkg.EnvPrefix + "CONFIG_FILE")
	}
	if path == "" {
		if _, err := os.Stat("config.json"); err == nil {
			path = "config.json"
		}
	}
	if path != "" || len(cfgJSON) > 0 {
		base, err := cfgpkg.LoadJSON(path, cfgJSON)
		if err != nil {
			return cfg, err
		}
		cfg = cfgpkg.Merge(cfg, base)
	}

	overEnv, err := cfgpkg.EnvOverlay(os.Environ())
	if err != nil {
		return cfg, err
	}
	cfg = cfgpkg.Merge(cfg, overEnv)

	var over cfgpkg.Config
	if len(args) > 0 {
		over.Inputs = args
	}
	over.Rules.Preset = f.preset
	over.Rules.Files = f.rules
	over.Rules.TemplateDir = f.templates
	if changed("figure") {
		over.Rules.FigureFile = cfgpkg.Str(f.figure)
	}
	over.Logging.Level = f.logLevel
	over.Logging.MetricsFile = f.metricsFile
	cfg = cfgpkg.Merge(cfg, over)

	// 组件选项按键覆盖，保留其余键
	if f.outputDir != "" {
		if cfg.Options.Writer, err = cfgpkg.SetOption(cfg.Options.Writer, "output_dir", f.outputDir); err != nil {
			return cfg, err
		}
	}
	if changed("suffix") {
		if cfg.Options.Writer, err = cfgpkg.SetOption(cfg.Options.Writer, "suffix", f.suffix); err != nil {
			return cfg, err
		}
	}
	if f.separator != "" {
		if cfg.Options.Assembler, err = cfgpkg.SetOption(cfg.Options.Assembler, "separator", f.separator); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

func runMain(ctx context.Context, f cliFlags, changed func(string) bool, args []string, stdout, stderr io.Writer) error {
	start := time.Now()
	corrID := uuid.NewString()
	// 在任何 ENV 读取前加载工作目录下的 .env（不覆盖已有 ENV）
	_ = loadDotEnv(".env")

	cfg, err := resolveConfig(f, changed, args)
	if err != nil {
		fprintf(stderr, "配置解析失败: %v\n", err)
		return exitWith(exitConfig, err)
	}
	if err := cfgpkg.Validate(cfg); err != nil {
		fprintf(stderr, "配置校验失败: %v\n", err)
		_ = dumpConfig(stderr, cfg)
		return exitWith(exitConfig, err)
	}

	logger := diag.NewLogger(corrID, cfg.Logging.Level, logDir(cfg))
	defer logger.Close()
	fail := func(code int, prefix string, err error) error {
		fprintf(stderr, "%s: %v\n", prefix, err)
		logger.Error("cli", string(diag.Classify(err)), "first error", &start)
		return exitWith(code, err)
	}

	if err := preflightCheckOutputDir(cfg); err != nil {
		return fail(exitConfig, "输出目录不可写或无法创建", err)
	}
	comp, set, builder, err := cfgpkg.Assemble(cfg, logger)
	if err != nil {
		return fail(exitConfig, "装配失败", err)
	}
	set.DryRun = f.dryRun
	var sink *diffview.Sink
	if f.diff {
		sink = diffview.NewSink(stdout)
		set.Diff = sink.Write
	}

	term := diag.NewTerminal(stderr, f.status)
	diag.SetTerminal(term)
	defer diag.SetTerminal(nil)

	logger.DebugStart("config", "effective", "", "", map[string]string{
		"corr_id":      corrID,
		"inputs_count": fmt.Sprintf("%d", len(cfg.Inputs)),
		"reader":       cfg.Components.Reader,
		"splitter":     cfg.Components.Splitter,
		"assembler":    cfg.Components.Assembler,
		"writer":       cfgpkg.WriterFor(cfg),
		"preset":       builder.Preset(),
		"rules":        strings.Join(builder.RuleNames(), ","),
		"dry_run":      fmt.Sprintf("%t", f.dryRun),
	})

	runOnce := func(ctx context.Context) error {
		t0 := time.Now()
		t := logger.Start("pipeline", "run")
		sum, err := pipelineRun(ctx, comp, set, logger)
		if err != nil {
			code := string(diag.Classify(err))
			logger.Error("pipeline", code, "first error", &t0)
			diag.IncOp("pipeline", "error", "error")
			if code != string(diag.CodeUnknown) {
				diag.IncError("pipeline", code)
			}
			if !errors.Is(err, context.Canceled) {
				fprintf(stderr, "运行失败: %v\n", err)
			}
			return err
		}
		t.Finish("run", int64(sum.Files))
		diag.IncOp("pipeline", "finish", "success")
		diag.ObserveDuration("pipeline", "finish", time.Since(t0).Milliseconds())
		return nil
	}

	runErr := runOnce(ctx)
	if f.watch {
		if err := watchInputs(ctx, cfg, comp, logger, stderr, runOnce); err != nil {
			return fail(exitRuntime, "监听失败", err)
		}
		// 监听以中断结束视为正常退出
		runErr = nil
	}

	if sink != nil {
		if files, st := sink.Summary(); files > 0 {
			fprintf(stderr, "diff: %d 个文件，+%d -%d ~%d\n", files, st.Added, st.Deleted, st.Changed)
		}
	}
	if p := strings.TrimSpace(cfg.Logging.MetricsFile); p != "" {
		if err := diag.WriteMetrics(p); err != nil {
			logger.Warn("cli", string(diag.Classify(err)), "metrics export failed", "", map[string]string{"path": p, "error": err.Error()})
		}
	}
	if runErr != nil {
		return exitWith(exitRuntime, runErr)
	}
	return nil
}

// scanFilter: Reader 暴露的目录扫描过滤，监听沿用同一规则。
type scanFilter interface {
	Accept(name string) bool
	SkipDir(dir string) bool
}

// watchInputs 阻塞监听输入变化，每批变化重跑整条流水线，直至 ctx 取消。
func watchInputs(ctx context.Context, cfg cfgpkg.Config, comp pipeline.Components, logger *diag.Logger, stderr io.Writer, runOnce func(context.Context) error) error {
	var opts watch.Options
	if sf, ok := comp.Reader.(scanFilter); ok {
		opts.Match = sf.Accept
		opts.SkipDir = sf.SkipDir
	}
	w, err := watch.New(cfg.Inputs, opts, logger)
	if err != nil {
		return err
	}
	fprintf(stderr, "监听输入变化中（Ctrl+C 退出）\n")
	return w.Run(ctx, func(ctx context.Context, changed []string) error {
		logger.DebugStart("cli", "rerun", "", "", map[string]string{"changed": strings.Join(changed, ",")})
		return runOnce(ctx)
	})
}

func logDir(cfg cfgpkg.Config) string {
	if cfg.Logging.Dir == nil {
		return ""
	}
	return strings.TrimSpace(*cfg.Logging.Dir)
}
