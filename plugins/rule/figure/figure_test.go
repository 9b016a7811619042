package figure

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"linereviser/pkg/contract"
)

const aux = `% figures
\begin{figure}
\centering
\includegraphics[width=0.5\linewidth]{a.png}
\end{figure}
\begin{figure}
\includegraphics{b.png}
\end{figure}
`

// TestLoadAndSplice 辅助文档中的 figure 按序替换主文档的 figure 内容
func TestLoadAndSplice(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "figure.tex")
	require.NoError(t, os.WriteFile(p, []byte(aux), 0o644))

	r, err := Load(p)
	require.NoError(t, err)
	require.Equal(t, 2, r.Blocks())
	require.Equal(t, "figure", r.Name())

	got := r.Execute([]string{
		`\begin{figure}`,
		`  \centering`,
		`  \includegraphics{placeholder}`,
		`\end{figure}`,
		`text`,
		`\begin{figure}`,
		`\includegraphics{x}`,
		`\end{figure}`,
	})
	want := []string{
		`\begin{figure}`,
		`  \centering`,
		`  \includegraphics[width=0.5\linewidth]{a.png}`,
		`\end{figure}`,
		`text`,
		`\begin{figure}`,
		`\includegraphics{b.png}`,
		`\end{figure}`,
	}
	if d := cmp.Diff(want, got); d != "" {
		t.Fatalf("figure 替换差异 (-want +got):\n%s", d)
	}
}

// TestLoadMissing 文件缺失时降级为空操作并返回 ErrAuxMissing
func TestLoadMissing(t *testing.T) {
	r, err := Load(filepath.Join(t.TempDir(), "figure.tex"))
	require.ErrorIs(t, err, contract.ErrAuxMissing)
	require.NotNil(t, r)
	in := []string{`\begin{figure}`, "x", `\end{figure}`}
	require.Equal(t, in, r.Execute(in))
}

// TestLoadUnreadable 非缺失类错误（目录）同样降级，但不标记为缺失
func TestLoadUnreadable(t *testing.T) {
	r, err := Load(t.TempDir())
	require.Error(t, err)
	require.NotErrorIs(t, err, contract.ErrAuxMissing)
	require.Equal(t, 0, r.Blocks())
}
