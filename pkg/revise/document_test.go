package revise

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linereviser/pkg/contract"
)

func TestContextNeighbours(t *testing.T) {
	doc := NewDocument([]string{"  a", "\tb", "c"})
	ctx := doc.Slice(1, 2)

	assert.Equal(t, Some("b"), ctx.Self())
	assert.Equal(t, None, ctx.SelfAt(1))
	assert.Equal(t, None, ctx.SelfAt(-1))
	assert.Equal(t, Some("a"), ctx.Prev())
	assert.Equal(t, Some("c"), ctx.Next())
	assert.Equal(t, None, ctx.PrevAt(2))
	assert.Equal(t, None, ctx.NextAt(2))
	assert.Equal(t, []string{"b"}, ctx.Selves())

	empty := doc.Slice(0, 0)
	assert.Equal(t, None, empty.Self())
	assert.Equal(t, None, empty.Prev())
	assert.Equal(t, Some("a"), empty.Next())

	tail := doc.Slice(3, 3)
	assert.Equal(t, Some("c"), tail.Prev())
	assert.Equal(t, None, tail.Next())
}

func TestDocumentCopiesInput(t *testing.T) {
	in := []string{"x", "y"}
	doc := NewDocument(in)
	in[0] = "changed"
	assert.Equal(t, "x", doc.Line(0))

	out := doc.Lines()
	out[1] = "changed"
	assert.Equal(t, "y", doc.Line(1))
}

func TestSliceOutOfBoundsPanics(t *testing.T) {
	doc := NewDocument([]string{"a"})
	cases := [][2]int{{-1, 0}, {1, 0}, {0, 2}, {2, 2}}
	for _, c := range cases {
		func() {
			defer func() {
				r := recover()
				require.NotNil(t, r, "Slice(%d,%d) 未 panic", c[0], c[1])
				err, ok := r.(error)
				require.True(t, ok)
				assert.True(t, errors.Is(err, contract.ErrInvariantViolation))
			}()
			doc.Slice(c[0], c[1])
		}()
	}
}

func TestIndentNonEmptyWindow(t *testing.T) {
	doc := NewDocument([]string{"    a", "  b", "\tc", "   d"})
	// 宽度：4, 2, 2(tab), 3；最窄为 2，先出现者胜出
	assert.Equal(t, "  ", doc.Slice(0, 4).Indent())
	assert.Equal(t, "\t", doc.Slice(2, 4).Indent())
	assert.Equal(t, "    ", doc.Slice(0, 1).Indent())
}

func TestIndentEmptyWindow(t *testing.T) {
	doc := NewDocument([]string{"  a", "    b", "c"})
	assert.Equal(t, "  ", doc.Slice(0, 0).Indent(), "文档开头取首行缩进")
	assert.Equal(t, "    ", doc.Slice(1, 1).Indent(), "取前后两行中较宽者")
	assert.Equal(t, "    ", doc.Slice(2, 2).Indent())
	assert.Equal(t, "", doc.Slice(3, 3).Indent(), "末尾之后为空串")

	tie := NewDocument([]string{"\tx", "  y"})
	assert.Equal(t, "  ", tie.Slice(1, 1).Indent(), "宽度相同取后一行")
}

func TestIndentHelpers(t *testing.T) {
	assert.Equal(t, " \t", IndentOf(" \tfoo  "))
	assert.Equal(t, "foo  ", StripIndent(" \tfoo  "))
	assert.Equal(t, "", IndentOf("foo"))
	assert.Equal(t, 3, IndentWidth(" \t"))
	assert.Equal(t, 0, IndentWidth(""))
}

func TestRangeContains(t *testing.T) {
	r := Range{Start: 1, End: 4}
	assert.True(t, r.Contains(Range{1, 4}))
	assert.True(t, r.Contains(Range{2, 2}))
	assert.True(t, r.Contains(Range{1, 1}))
	assert.False(t, r.Contains(Range{4, 4}), "紧随区间之后的插入点不在区间内")
	assert.False(t, r.Contains(Range{0, 2}))
	assert.False(t, r.Contains(Range{3, 5}))
	assert.Equal(t, 3, r.Len())
}

func TestSplitJoinRoundTrip(t *testing.T) {
	cases := []struct {
		in   string
		want []string
		out  string
	}{
		{"a\nb\n", []string{"a", "b", ""}, "a\nb\n"},
		{"a\r\nb\rc", []string{"a", "b", "c"}, "a\nb\nc"},
		{"", []string{""}, ""},
		{"x\r\n\r\ny", []string{"x", "", "y"}, "x\n\ny"},
	}
	for _, c := range cases {
		got := SplitLines(c.in)
		if d := cmp.Diff(c.want, got); d != "" {
			t.Fatalf("SplitLines(%q) 差异 (-want +got):\n%s", c.in, d)
		}
		assert.Equal(t, c.out, JoinLines(got, "\n"))
	}
	assert.Equal(t, "a\r\nb", JoinLines(SplitLines("a\nb"), "\r\n"))
}
