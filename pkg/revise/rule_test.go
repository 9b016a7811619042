package revise

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func diffLines(t *testing.T, want, got []string) {
	t.Helper()
	if d := cmp.Diff(want, got); d != "" {
		t.Fatalf("输出差异 (-want +got):\n%s", d)
	}
}

func TestInsertAfterSingleLine(t *testing.T) {
	r := Insert(`\usepackage[UTF8]{ctex} % add chinese support`).
		After(Equals(`\usepackage[utf8]{inputenc}`))
	got := r.Execute([]string{`\usepackage[utf8]{inputenc}`})
	diffLines(t, []string{
		`\usepackage[utf8]{inputenc}`,
		`\usepackage[UTF8]{ctex} % add chinese support`,
	}, got)
}

func TestInsertUsesSurroundingIndent(t *testing.T) {
	r := Insert("x", "y").Before(Equals("end"))
	got := r.Execute([]string{"begin", "    end"})
	diffLines(t, []string{"begin", "    x", "    y", "    end"}, got)
}

func TestInsertBoundaries(t *testing.T) {
	head := Insert("H").After(Absent())
	tail := Insert("T").Before(Absent())
	in := []string{"a", "b"}
	diffLines(t, []string{"H", "a", "b"}, head.Execute(in))
	diffLines(t, []string{"a", "b", "T"}, tail.Execute(in))
	diffLines(t, []string{"H"}, head.Execute(nil))
}

func TestInsertTwiceAcrossStages(t *testing.T) {
	r := Insert("x").After(Equals("a"))
	got := New(r, r).Process([]string{"a", "b"})
	diffLines(t, []string{"a", "x", "x", "b"}, got)
}

func TestRuleWithoutGuardNeverFires(t *testing.T) {
	in := []string{"a", "", "b"}
	diffLines(t, in, Insert("x").Execute(in))
	diffLines(t, in, (&ReplaceRule{guard: newGuard("replace")}).Delete().Execute(in))
}

func TestReplaceDeleteInsideAligned(t *testing.T) {
	r := Replace(Equals("")).Delete().Inside(Equals(`\begin{aligned}`), Equals(`\end{aligned}`))
	got := r.Execute([]string{`\begin{aligned}`, "", "x", "", `\end{aligned}`})
	diffLines(t, []string{`\begin{aligned}`, "x", `\end{aligned}`}, got)
}

func TestReplaceKeepsIndent(t *testing.T) {
	const fixed = `\begin{center}\rule{\linewidth}{0.05pt}\end{center}`
	r := Replace(HasPrefix(`\begin{center}\rule`)).With(fixed)
	got := r.Execute([]string{`  \begin{center}\rule{1pt}{1pt}\end{center}`})
	diffLines(t, []string{"  " + fixed}, got)
}

func TestReplaceDefaultsToEmpty(t *testing.T) {
	got := Replace(Equals("x")).Execute([]string{"  x", "y"})
	diffLines(t, []string{"  ", "y"}, got)
}

func TestReplaceWithFunc(t *testing.T) {
	r := Replace(HasPrefix("@@")).WithFunc(func(matched string, c Context) Line {
		if matched == "@@drop@@" {
			return None
		}
		return Some(strings.ToUpper(matched) + "|" + c.Next().Text)
	})
	got := r.Execute([]string{"\t@@a@@", "@@drop@@", "z"})
	diffLines(t, []string{"\t@@A@@|@@drop@@", "z"}, got)

	nilFn := Replace(Equals("z")).WithFunc(nil)
	diffLines(t, []string{"a"}, nilFn.Execute([]string{"a", "z"}))
}

func TestReplaceValueWithNewlineKeptVerbatim(t *testing.T) {
	got := Replace(Equals("x")).With("a\nb").Execute([]string{" x"})
	diffLines(t, []string{" a\nb"}, got)
	assert.Equal(t, " a\nb", JoinLines(got, "\n"))
}

func TestEitherAndWhere(t *testing.T) {
	r := Replace(Equals("")).With("%").Either(
		After(Equals(`\end{longtable}`)),
		Before(HasPrefix(`\[`)),
	)
	got := r.Execute([]string{`\end{longtable}`, "", "a", "", `\[x`, ""})
	diffLines(t, []string{`\end{longtable}`, "%", "a", "%", `\[x`, ""}, got)

	w := Replace(Equals("k")).With("K").Where(func(c Context) bool { return c.Range().Start > 0 })
	diffLines(t, []string{"k", "K"}, w.Execute([]string{"k", "k"}))
}

func TestNamedRules(t *testing.T) {
	assert.Equal(t, "insert", Insert().Name())
	assert.Equal(t, "replace", Replace(Equals("")).Name())
	assert.Equal(t, "ctex", Insert().Named("ctex").Name())
	assert.Equal(t, "splice", Splice(nil, nil).Name())
	assert.Equal(t, 2, Replace(Equals("")).After(Absent()).Guard().Len())
}

func TestExecuteDoesNotMutateInput(t *testing.T) {
	in := []string{"a", "b"}
	Replace(Equals("a")).With("z").Execute(in)
	Insert("q").After(Equals("a")).Execute(in)
	diffLines(t, []string{"a", "b"}, in)
}

func TestSplice(t *testing.T) {
	fig := Inside(Equals(`\begin{figure}`), Equals(`\end{figure}`))
	aux := []string{
		`\begin{figure}`, `\includegraphics{one}`, `\end{figure}`,
		"ignored",
		`\begin{figure}`, `  \includegraphics{two}`, `\caption{2}`, `\end{figure}`,
	}
	blocks := SpliceBlocks(fig, aux)
	if d := cmp.Diff([][]string{{`\includegraphics{one}`}, {`  \includegraphics{two}`, `\caption{2}`}}, blocks); d != "" {
		t.Fatalf("辅助块差异 (-want +got):\n%s", d)
	}

	primary := []string{
		"head",
		`\begin{figure}`, `  old1`, `\end{figure}`,
		"mid",
		`\begin{figure}`, `    old2a`, `    old2b`, `\end{figure}`,
		`\begin{figure}`, `old3`, `\end{figure}`,
	}
	got := Splice(fig, blocks).Execute(primary)
	diffLines(t, []string{
		"head",
		`\begin{figure}`, `  \includegraphics{one}`, `\end{figure}`,
		"mid",
		`\begin{figure}`, `      \includegraphics{two}`, `    \caption{2}`, `\end{figure}`,
		`\begin{figure}`, `old3`, `\end{figure}`,
	}, got)
}

func TestSpliceWithoutBlocksIsNoop(t *testing.T) {
	fig := Inside(Equals("<"), Equals(">"))
	in := []string{"<", "a", ">"}
	diffLines(t, in, Splice(fig, nil).Execute(in))
	assert.Equal(t, 0, Splice(fig, SpliceBlocks(fig, nil)).Blocks())
}

func TestSpliceBlocksAreIndependentCopies(t *testing.T) {
	fig := Inside(Equals("<"), Equals(">"))
	aux := []string{"<", "a", ">", "<", "b", "c", ">"}
	blocks := SpliceBlocks(fig, aux)
	diffLines(t, []string{"a"}, blocks[0])
	diffLines(t, []string{"b", "c"}, blocks[1])
	blocks[0][0] = "changed"
	assert.Equal(t, "a", aux[1])
	diffLines(t, []string{"b", "c"}, blocks[1])
}

// 制表符缩进按原样输出，不展开为空格
func TestTabIndentEmittedVerbatim(t *testing.T) {
	in := []string{"\tbegin", "\tend"}
	diffLines(t, []string{"\tbegin", "\tx", "\tend"}, Insert("x").After(Equals("begin")).Execute(in))
	diffLines(t, []string{"\tbegin", "\tX"}, Replace(Equals("end")).With("X").Execute(in))

	// 宽度相同（tab 记 2 列）时空窗口取后一行的原始缩进
	mixed := []string{"\ta", "  b"}
	diffLines(t, []string{"\ta", "  x", "  b"}, Insert("x").After(Equals("a")).Execute(mixed))

	fig := Inside(Equals("<"), Equals(">"))
	got := Splice(fig, [][]string{{"y"}}).Execute([]string{"<", "\t\told", ">"})
	diffLines(t, []string{"<", "\t\ty", ">"}, got)
}
