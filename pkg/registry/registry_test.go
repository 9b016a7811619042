package registry

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"linereviser/pkg/contract"
)

// TestStrictUnmarshal 验证严格解码逻辑。
func TestStrictUnmarshal(t *testing.T) {
	type opt struct {
		A int `json:"a"`
	}
	var o opt
	if err := strictUnmarshal(nil, &o); err != nil || o.A != 0 {
		t.Fatalf("nil 输入失败: %v", err)
	}
	if err := strictUnmarshal(json.RawMessage(`{"a":1}`), &o); err != nil || o.A != 1 {
		t.Fatalf("合法 JSON 解析失败: %v", err)
	}
	if err := strictUnmarshal(json.RawMessage(`{"a":1,"b":2}`), &o); !errors.Is(err, contract.ErrInvalidInput) {
		t.Fatalf("未知字段应报 ErrInvalidInput: %v", err)
	}
}

// TestFactories 遍历注册表入口。
func TestFactories(t *testing.T) {
	t.Run("reader", func(t *testing.T) {
		if _, err := Reader["fs"](json.RawMessage(`{"allow_exts":[".tex"]}`)); err != nil {
			t.Fatalf("reader: %v", err)
		}
		if _, err := Reader["fs"](json.RawMessage(`{"x":1}`)); err == nil {
			t.Fatalf("reader 未对未知字段报错")
		}
	})
	t.Run("splitter", func(t *testing.T) {
		if _, err := Splitter["lines"](json.RawMessage(`{}`)); err != nil {
			t.Fatalf("splitter: %v", err)
		}
		if _, err := Splitter["lines"](json.RawMessage(`{"x":1}`)); err == nil {
			t.Fatalf("splitter 未对未知字段报错")
		}
	})
	t.Run("assembler", func(t *testing.T) {
		if _, err := Assembler["linear"](json.RawMessage(`{"separator":"lf"}`)); err != nil {
			t.Fatalf("assembler: %v", err)
		}
		if _, err := Assembler["linear"](json.RawMessage(`{"x":1}`)); err == nil {
			t.Fatalf("assembler 未对未知字段报错")
		}
	})
	t.Run("writer", func(t *testing.T) {
		if _, err := Writer["fs"](json.RawMessage(`{"suffix":".rev"}`)); err != nil {
			t.Fatalf("writer: %v", err)
		}
		if _, err := Writer["fs"](json.RawMessage(`{"suffix":""}`)); !errors.Is(err, contract.ErrInvalidInput) {
			t.Fatalf("writer 空后缀应报错: %v", err)
		}
		if _, err := Writer["fs"](json.RawMessage(`{"x":1}`)); err == nil {
			t.Fatalf("writer 未对未知字段报错")
		}
		if _, err := Writer["stdout"](nil); err != nil {
			t.Fatalf("stdout: %v", err)
		}
	})
}

// TestNames 名称排序
func TestNames(t *testing.T) {
	require.Equal(t, []string{"fs", "stdout"}, Names(Writer))
	require.Equal(t, []string{"lines"}, Names(Splitter))
}
