package pipeline

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"linereviser/internal/ruleset"
	"linereviser/pkg/contract"
	"linereviser/pkg/revise"
)

// discardWriter 丢弃所有输出，避免磁盘开销。
type discardWriter struct{}

func (discardWriter) Write(ctx context.Context, id contract.ArtifactID, r io.Reader) error {
	_, err := io.Copy(io.Discard, r)
	return err
}

// synthDoc 生成含数学环境与表格的 pandoc 风格文档。
func synthDoc(blocks int) string {
	var sb strings.Builder
	sb.WriteString("\\documentclass{article}\n\\usepackage[utf8]{inputenc}\n\\date{}\n\\begin{document}\n")
	for i := 0; i < blocks; i++ {
		fmt.Fprintf(&sb, "para %d\n\n\\begin{aligned}\na &= %d \\\\\n\nb &= c\n\\end{aligned}\n\n", i, i)
		sb.WriteString("\\begin{longtable}[]{@{}ll@{}}\n\\end{longtable}\n\n")
	}
	sb.WriteString("\\end{document}\n")
	return sb.String()
}

// BenchmarkPipeline 测试完整流水线（pandoc-latex 预设）的性能。
func BenchmarkPipeline(b *testing.B) {
	for _, n := range []int{10, 1000} {
		b.Run(fmt.Sprintf("blocks=%d", n), func(b *testing.B) {
			files := memReader{"doc.tex": synthDoc(n)}
			comp := components(b, files, discardWriter{})
			p, _ := ruleset.Lookup(ruleset.PresetPandocLaTeX)
			set := Settings{
				Inputs: []string{"doc.tex"},
				Revisers: func(contract.FileID) (*revise.Reviser, error) {
					return revise.New(p.Rules(ruleset.Aux{})...), nil
				},
			}
			ctx := context.Background()
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := Run(ctx, comp, set, nil); err != nil {
					b.Fatalf("运行失败: %v", err)
				}
			}
		})
	}
}
