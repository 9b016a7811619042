package diag

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// 指标（私有 Registry，不挂 HTTP；运行结束可导出为 textfile）：
// - linereviser_op_total{comp,stage,result}
// - linereviser_error_total{comp,code}
// - linereviser_op_duration_ms{comp,stage}
// - linereviser_rule_changes_total{rule}
type metrics struct {
	reg      *prometheus.Registry
	ops      *prometheus.CounterVec
	errs     *prometheus.CounterVec
	dur      *prometheus.HistogramVec
	ruleHits *prometheus.CounterVec
}

var (
	metricsMu sync.RWMutex
	m         = newMetrics()
)

func newMetrics() *metrics {
	mm := &metrics{
		reg: prometheus.NewRegistry(),
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "linereviser", Name: "op_total", Help: "Operations by component, stage and result.",
		}, []string{"comp", "stage", "result"}),
		errs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "linereviser", Name: "error_total", Help: "Errors by component and classification code.",
		}, []string{"comp", "code"}),
		dur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "linereviser", Name: "op_duration_ms", Help: "Stage duration in milliseconds.",
			Buckets: []float64{1, 5, 10, 50, 100, 500, 1000, 5000},
		}, []string{"comp", "stage"}),
		ruleHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "linereviser", Name: "rule_changes_total", Help: "Lines changed by each rule.",
		}, []string{"rule"}),
	}
	mm.reg.MustRegister(mm.ops, mm.errs, mm.dur, mm.ruleHits)
	return mm
}

func current() *metrics {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	return m
}

// ResetMetrics 丢弃已有计数（测试与 watch 模式每轮使用）。
func ResetMetrics() {
	metricsMu.Lock()
	m = newMetrics()
	metricsMu.Unlock()
}

// Gatherer 返回当前指标集合。
func Gatherer() prometheus.Gatherer { return current().reg }

// IncOp 累加操作计数（result=success|error）。
func IncOp(comp, stage, result string) {
	current().ops.WithLabelValues(comp, stage, result).Inc()
}

// IncError 按分类累加错误计数。
func IncError(comp, code string) {
	current().errs.WithLabelValues(comp, code).Inc()
}

// ObserveDuration 记录阶段耗时（毫秒）。
func ObserveDuration(comp, stage string, durMS int64) {
	current().dur.WithLabelValues(comp, stage).Observe(float64(durMS))
}

// AddRuleChanges 累加某条规则改动的行数。
func AddRuleChanges(rule string, n int) {
	if n <= 0 {
		return
	}
	current().ruleHits.WithLabelValues(rule).Add(float64(n))
}

// WriteMetrics 以 node-exporter textfile 格式原子写出全部指标。
func WriteMetrics(path string) error {
	if err := prometheus.WriteToTextfile(path, Gatherer()); err != nil {
		return fmt.Errorf("write metrics %s: %w", path, err)
	}
	return nil
}
