package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"linereviser/internal/diag"
	"linereviser/internal/diffview"
	"linereviser/pkg/contract"
	"linereviser/pkg/revise"
)

// - 顺序执行：逐文件 Reader → Splitter → Reviser → Assembler → Writer，组件均为同步实现。
// - 首错即停：任一文件任一阶段出错即返回，后续文件不再处理。
// - 规则引擎内的 panic（不变量违例）在文件边界恢复为错误。

// Components 聚合运行所需的原子组件。
type Components struct {
	Reader    contract.Reader
	Splitter  contract.Splitter
	Assembler contract.Assembler
	Writer    contract.Writer
}

// ReviserFunc 为每个文件提供规则流水线（辅助文档按文件解析）。
type ReviserFunc func(fileID contract.FileID) (*revise.Reviser, error)

// DiffFunc 接收单文件修订前后的行序列。
type DiffFunc func(fileID contract.FileID, before, after []string) error

// Settings 运行期配置。
type Settings struct {
	Inputs   []string
	Revisers ReviserFunc
	// Ruleset/RuleCount 仅用于终端提示。
	Ruleset   string
	RuleCount int
	// DryRun: 完成修订与装配但不写出。
	DryRun bool
	// Diff: 可选的 diff 输出端。
	Diff DiffFunc
}

// Summary 汇总一次运行。
type Summary struct {
	Files   int
	Changed int
}

// Run 执行完整流水线并返回汇总。
func Run(ctx context.Context, comp Components, set Settings, logger *diag.Logger) (Summary, error) {
	var sum Summary
	if err := sanity(comp, set); err != nil {
		return sum, fmt.Errorf("sanity: %w", err)
	}
	term := diag.GetTerminal()
	term.RunStart(set.Ruleset, set.RuleCount)
	runStart := time.Now()
	ok := false
	defer func() { term.RunFinish(ok, time.Since(runStart)) }()

	rtimer := logger.Start("reader", "iterate")
	err := comp.Reader.Iterate(ctx, set.Inputs, func(fid contract.FileID, rc io.ReadCloser) error {
		defer rc.Close()
		if err := ctx.Err(); err != nil {
			return err
		}
		changed, err := processFile(ctx, comp, set, logger, fid, rc)
		if err != nil {
			return fmt.Errorf("%s: %w", fid, err)
		}
		sum.Files++
		sum.Changed += changed
		return nil
	})
	if err != nil {
		fail(logger, "reader", "iterate failed", "", "", err)
		return sum, fmt.Errorf("reader iterate: %w", err)
	}
	rtimer.Finish("iterate", int64(sum.Files))
	diag.IncOp("reader", "finish", "success")
	diag.ObserveDuration("reader", "iterate", rtimer.Elapsed().Milliseconds())
	ok = true
	return sum, nil
}

// processFile 处理单个文件，返回改动行数。
func processFile(ctx context.Context, comp Components, set Settings, logger *diag.Logger, fid contract.FileID, r io.Reader) (changed int, err error) {
	fileID := string(fid)
	term := diag.GetTerminal()
	fileStart := time.Now()
	started := false
	defer func() {
		if started {
			term.FileFinish(err == nil, changed, time.Since(fileStart))
		}
	}()

	stimer := logger.StartWith("splitter", "split", fileID, "")
	lines, err := comp.Splitter.Split(ctx, fid, r)
	if err != nil {
		fail(logger, "splitter", "split failed", fileID, "", err)
		return 0, fmt.Errorf("splitter split: %w", err)
	}
	stimer.Finish("split", int64(len(lines)))
	diag.IncOp("splitter", "finish", "success")

	rv, err := set.Revisers(fid)
	if err != nil {
		fail(logger, "reviser", "build failed", fileID, "", err)
		return 0, fmt.Errorf("reviser build: %w", err)
	}
	term.FileStart(fileID, rv.Len())
	started = true

	before := []string(lines)
	after, changed, err := applyRules(rv, before, logger, fileID)
	if err != nil {
		fail(logger, "reviser", "process failed", fileID, "", err)
		return 0, fmt.Errorf("reviser process: %w", err)
	}

	if set.Diff != nil {
		if err := set.Diff(fid, before, after); err != nil {
			fail(logger, "diff", "diff failed", fileID, "", err)
			return changed, fmt.Errorf("diff: %w", err)
		}
	}

	atimer := logger.StartWith("assembler", "assemble", fileID, "")
	rd, err := comp.Assembler.Assemble(ctx, fid, contract.Lines(after))
	if err != nil {
		fail(logger, "assembler", "assemble failed", fileID, "", err)
		return changed, fmt.Errorf("assembler assemble: %w", err)
	}
	atimer.Finish("assemble", int64(len(after)))
	diag.IncOp("assembler", "finish", "success")

	if set.DryRun {
		logger.DebugStart("writer", "dry-run skip", fileID, "", nil)
		diag.IncOp("writer", "skip", "dry_run")
		return changed, nil
	}
	wtimer := logger.StartWith("writer", "write", fileID, "")
	if err := comp.Writer.Write(ctx, contract.ArtifactID(fid), rd); err != nil {
		fail(logger, "writer", "write failed", fileID, "", err)
		return changed, fmt.Errorf("writer write: %w", err)
	}
	wtimer.Finish("write", int64(changed))
	diag.IncOp("writer", "finish", "success")
	diag.ObserveDuration("writer", "write", wtimer.Elapsed().Milliseconds())
	return changed, nil
}

// applyRules 按序执行规则并逐条记录改动；规则内 panic 恢复为包裹 ErrInvariantViolation 的错误。
func applyRules(rv *revise.Reviser, lines []string, logger *diag.Logger, fileID string) (out []string, changed int, err error) {
	var current string
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("rule %s: %w", current, diag.Recovered(v))
		}
	}()
	term := diag.GetTerminal()
	total := rv.Len()
	rules := rv.Rules()
	if total > 0 {
		current = rules[0].Name()
	}
	last := time.Now()
	out = rv.Trace(lines, func(i int, rule revise.Rule, before, after []string) {
		now := time.Now()
		dur := now.Sub(last)
		last = now
		n := diffview.Changed(before, after)
		changed += n
		diag.AddRuleChanges(rule.Name(), n)
		diag.ObserveDuration("reviser", "rule", dur.Milliseconds())
		logger.DebugStart("reviser", "rule done", fileID, rule.Name(), map[string]string{
			"index":   strconv.Itoa(i),
			"changed": strconv.Itoa(n),
			"lines":   strconv.Itoa(len(after)),
		})
		term.FileProgress(i+1, total, changed)
		if i+1 < total {
			current = rules[i+1].Name()
		}
	})
	diag.IncOp("reviser", "finish", "success")
	return out, changed, nil
}

// fail 统一记录错误事件与指标。
func fail(logger *diag.Logger, comp, msg, fileID, rule string, err error) {
	code := diag.Classify(err)
	logger.ErrorWithKV(comp, string(code), msg, nil, fileID, rule, map[string]string{"error": err.Error()})
	diag.IncOp(comp, "error", "error")
	if code != diag.CodeUnknown {
		diag.IncError(comp, string(code))
	}
}

func sanity(c Components, s Settings) error {
	if c.Reader == nil || c.Splitter == nil || c.Assembler == nil || c.Writer == nil {
		return errors.New("pipeline: missing components")
	}
	if s.Revisers == nil {
		return errors.New("pipeline: missing reviser source")
	}
	if len(s.Inputs) == 0 {
		return errors.New("pipeline: empty inputs")
	}
	return nil
}
