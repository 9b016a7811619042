package diag

import (
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger 为结构化事件日志器：zap JSON 编码，写入轮转文件（dir 为空时写 stderr）。
// 事件字段：corr_id, comp, stage(start|finish|warn|error), code, dur_ms, count, file_id, rule, kv。
// 所有方法对 nil 接收者安全。
type Logger struct {
	z     *zap.Logger
	level zap.AtomicLevel
	sink  *RotatingFile
}

// DefaultMaxBytes: 单个日志文件轮转阈值。
const DefaultMaxBytes = 10 * 1024 * 1024

// NewLogger 通过配置的 level 初始化；dir 非空时写入 dir 下的轮转文件。
func NewLogger(corrID, level, dir string) *Logger {
	var ws zapcore.WriteSyncer
	var sink *RotatingFile
	if strings.TrimSpace(dir) != "" {
		sink = NewRotatingFile(dir, DefaultMaxBytes)
		ws = sink
	} else {
		ws = zapcore.Lock(os.Stderr)
	}
	l := NewLoggerTo(corrID, level, ws)
	l.sink = sink
	return l
}

// NewLoggerTo 将日志写入任意 WriteSyncer（测试或嵌入使用）。
func NewLoggerTo(corrID, level string, ws zapcore.WriteSyncer) *Logger {
	lvl := zap.NewAtomicLevelAt(ParseLevel(level))
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), ws, lvl)
	z := zap.New(core, zap.ErrorOutput(zapcore.Lock(os.Stderr))).With(zap.String("corr_id", corrID))
	return &Logger{z: z, level: lvl}
}

// NewNop 返回丢弃一切的日志器。
func NewNop() *Logger {
	return &Logger{z: zap.NewNop(), level: zap.NewAtomicLevelAt(zapcore.InfoLevel)}
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.RFC3339TimeEncoder
	cfg.CallerKey = zapcore.OmitKey
	cfg.StacktraceKey = zapcore.OmitKey
	return cfg
}

// ParseLevel 解析 debug|info|warn|error，未知值按 info。
func ParseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// SetLevel 运行期调整级别。
func (l *Logger) SetLevel(level string) {
	if l == nil {
		return
	}
	l.level.SetLevel(ParseLevel(level))
}

// Zap 返回底层 zap.Logger（nil 接收者返回 Nop）。
func (l *Logger) Zap() *zap.Logger {
	if l == nil || l.z == nil {
		return zap.NewNop()
	}
	return l.z
}

// Event 为标准事件结构。
type Event struct {
	Comp   string
	Stage  string // start|finish|warn|error
	Code   string
	DurMS  int64
	Count  int64
	FileID string
	Rule   string
	Msg    string
	KV     map[string]string
}

func (l *Logger) log(lv zapcore.Level, ev Event) {
	if l == nil || l.z == nil {
		return
	}
	ce := l.z.Check(lv, ev.Msg)
	if ce == nil {
		return
	}
	fields := make([]zap.Field, 0, 8)
	fields = append(fields, zap.String("comp", ev.Comp), zap.String("stage", ev.Stage))
	if ev.Code != "" {
		fields = append(fields, zap.String("code", ev.Code))
	}
	if ev.DurMS != 0 {
		fields = append(fields, zap.Int64("dur_ms", ev.DurMS))
	}
	if ev.Count != 0 {
		fields = append(fields, zap.Int64("count", ev.Count))
	}
	if ev.FileID != "" {
		fields = append(fields, zap.String("file_id", ev.FileID))
	}
	if ev.Rule != "" {
		fields = append(fields, zap.String("rule", ev.Rule))
	}
	if len(ev.KV) > 0 {
		fields = append(fields, zap.Any("kv", ev.KV))
	}
	ce.Write(fields...)
}

// Start 记录 start 事件；返回计时器用于 Finish。
func (l *Logger) Start(comp, msg string) *Timer {
	l.log(zapcore.InfoLevel, Event{Comp: comp, Stage: "start", Msg: msg})
	return &Timer{l: l, comp: comp, t0: time.Now()}
}

// StartWith 记录带 file_id/rule 的 start。
func (l *Logger) StartWith(comp, msg, fileID, rule string) *Timer {
	l.log(zapcore.InfoLevel, Event{Comp: comp, Stage: "start", FileID: fileID, Rule: rule, Msg: msg})
	return &Timer{l: l, comp: comp, fileID: fileID, rule: rule, t0: time.Now()}
}

// StartWithKV 记录带 file_id/rule 与键值的 start。
func (l *Logger) StartWithKV(comp, msg, fileID, rule string, kv map[string]string) *Timer {
	l.log(zapcore.InfoLevel, Event{Comp: comp, Stage: "start", FileID: fileID, Rule: rule, Msg: msg, KV: kv})
	return &Timer{l: l, comp: comp, fileID: fileID, rule: rule, t0: time.Now()}
}

// Warn 记录可恢复的降级（例如辅助文档缺失）。
func (l *Logger) Warn(comp, code, msg, fileID string, kv map[string]string) {
	l.log(zapcore.WarnLevel, Event{Comp: comp, Stage: "warn", Code: code, FileID: fileID, Msg: msg, KV: kv})
}

// Error 记录 error 事件。
func (l *Logger) Error(comp, code, msg string, durSince *time.Time) {
	l.ErrorWithKV(comp, code, msg, durSince, "", "", nil)
}

// ErrorWith 支持 file_id/rule。
func (l *Logger) ErrorWith(comp, code, msg string, durSince *time.Time, fileID, rule string) {
	l.ErrorWithKV(comp, code, msg, durSince, fileID, rule, nil)
}

// ErrorWithKV 支持附带键值对。
func (l *Logger) ErrorWithKV(comp, code, msg string, durSince *time.Time, fileID, rule string, kv map[string]string) {
	var dur int64
	if durSince != nil {
		dur = time.Since(*durSince).Milliseconds()
	}
	l.log(zapcore.ErrorLevel, Event{Comp: comp, Stage: "error", Code: code, DurMS: dur, Msg: msg, FileID: fileID, Rule: rule, KV: kv})
}

// InfoFinish 在已有起点的情况下记录 finish。
func (l *Logger) InfoFinish(comp, msg string, start time.Time, count int64) {
	l.log(zapcore.InfoLevel, Event{Comp: comp, Stage: "finish", DurMS: time.Since(start).Milliseconds(), Count: count, Msg: msg})
}

// DebugStart 输出调试级别的 start 类事件（仅在 level=debug 时生效）。
func (l *Logger) DebugStart(comp, msg, fileID, rule string, kv map[string]string) {
	l.log(zapcore.DebugLevel, Event{Comp: comp, Stage: "start", FileID: fileID, Rule: rule, Msg: msg, KV: kv})
}

// Sync 刷新缓冲；Close 额外关闭轮转文件。
func (l *Logger) Sync() error {
	if l == nil || l.z == nil {
		return nil
	}
	return l.z.Sync()
}

// Close 刷新并关闭底层文件。
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	_ = l.Sync()
	if l.sink != nil {
		return l.sink.Close()
	}
	return nil
}

// Timer 用于 start→finish 计时。
type Timer struct {
	l      *Logger
	comp   string
	fileID string
	rule   string
	t0     time.Time
}

// Elapsed 返回自 start 起的耗时。
func (t *Timer) Elapsed() time.Duration {
	if t == nil {
		return 0
	}
	return time.Since(t.t0)
}

// Finish 记录 finish；可选 count。
func (t *Timer) Finish(msg string, count int64) {
	if t == nil || t.l == nil {
		return
	}
	t.l.log(zapcore.InfoLevel, Event{Comp: t.comp, Stage: "finish", DurMS: time.Since(t.t0).Milliseconds(), Count: count, FileID: t.fileID, Rule: t.rule, Msg: msg})
}
