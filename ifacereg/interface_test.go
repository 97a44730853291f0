package ifacereg

import (
	"context"
	"testing"

	"github.com/ianremillard/govarlink/vtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLookup(t *testing.T) {
	iface := NewInterface("com.example.demo")
	iface.Register(&Method{
		Name:   "Method",
		Params: vtype.NewObject(map[string]vtype.Type{"argument": vtype.String}, nil),
		Return: vtype.NewObject(map[string]vtype.Type{"result": vtype.String}, nil),
		Kind:   Single,
		Call: func(ctx context.Context, params map[string]any) (map[string]any, error) {
			return map[string]any{"result": "egg"}, nil
		},
	})

	m, ok := iface.Method("Method")
	require.True(t, ok)
	out, err := m.Call(context.Background(), map[string]any{"argument": "spam"})
	require.NoError(t, err)
	assert.Equal(t, "egg", out["result"])

	_, ok = iface.Method("Missing")
	assert.False(t, ok)
}

func TestRenderDescriptionPreservesDeclarationOrder(t *testing.T) {
	iface := NewInterface("com.example.demo")
	iface.Register(&Method{Name: "Second", Kind: Single})
	iface.Register(&Method{Name: "First", Kind: Single})

	desc := iface.RenderDescription()
	assert.Less(t,
		indexOf(desc, "method Second"),
		indexOf(desc, "method First"),
	)
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
