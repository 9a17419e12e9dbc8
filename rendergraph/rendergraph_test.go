package rendergraph_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gogpu/rendergraph/hal/noop"
	"github.com/gogpu/rendergraph/pass"
	"github.com/gogpu/rendergraph/recorder"
	"github.com/gogpu/rendergraph/registry"
	"github.com/gogpu/rendergraph/rendergraph"
	"github.com/gogpu/rendergraph/resource"
	"github.com/gogpu/rendergraph/types"
)

func clearPass(name string, h registry.Handle[*resource.Resource]) pass.Pass {
	return &pass.Base{
		PassName: name,
		Queue:    types.QueueGraphics,
		Mask:     pass.RunImmediate,
		ExecuteImmediateFunc: func(ctx pass.Context, rec *recorder.Recorder) error {
			return rec.ClearRenderTarget(h, 0, 0, [4]float32{1, 0, 0, 1})
		},
	}
}

func TestGraph_CompileAndExecute_SinglePass(t *testing.T) {
	device := noop.NewDevice()
	g, err := rendergraph.New(device, types.DefaultSettings(), nil)
	require.NoError(t, err)
	defer g.Close()

	h := g.DeclareTexture("SceneColor", resource.TextureSpec{MipLevels: 1, ArraySize: 1})
	g.AddPass(clearPass("ClearSceneColor", h))

	report, err := g.Compile()
	require.NoError(t, err)
	require.Equal(t, 1, report.PassCount)
	require.Greater(t, report.BatchCount, 0)

	frameReport, err := g.Execute()
	require.NoError(t, err)

	lt, ok := frameReport.LastTouches[h.GlobalResourceID()]
	require.True(t, ok)
	require.Equal(t, types.QueueGraphics, lt.Queue)
}

func TestGraph_CompileAndExecute_MultipleFrames(t *testing.T) {
	device := noop.NewDevice()
	g, err := rendergraph.New(device, types.DefaultSettings(), nil)
	require.NoError(t, err)
	defer g.Close()

	h := g.DeclareTexture("Ping", resource.TextureSpec{MipLevels: 1, ArraySize: 1})
	g.AddPass(clearPass("ClearPing", h))

	for frame := 0; frame < 3; frame++ {
		_, err := g.Compile()
		require.NoError(t, err)
		_, err = g.Execute()
		require.NoError(t, err)
	}
}

func TestGraph_Execute_BeforeCompile_Errors(t *testing.T) {
	device := noop.NewDevice()
	g, err := rendergraph.New(device, types.DefaultSettings(), nil)
	require.NoError(t, err)
	defer g.Close()

	_, err = g.Execute()
	require.ErrorIs(t, err, rendergraph.ErrNotCompiled)
}

func TestGraph_AliasedTextures_PackIntoSharedPool(t *testing.T) {
	device := noop.NewDevice()
	settings := types.DefaultSettings()
	settings.AutoAliasMode = types.AutoAliasAggressive
	g, err := rendergraph.New(device, settings, nil)
	require.NoError(t, err)
	defer g.Close()

	a := g.DeclareTexture("TempA", resource.TextureSpec{MipLevels: 1, ArraySize: 1, AllowAlias: true})
	b := g.DeclareTexture("TempB", resource.TextureSpec{MipLevels: 1, ArraySize: 1, AllowAlias: true})
	g.AddPass(clearPass("ClearA", a))
	g.AddPass(clearPass("ClearB", b))

	report, err := g.Compile()
	require.NoError(t, err)
	require.NotEmpty(t, report.PoolStats)

	_, err = g.Execute()
	require.NoError(t, err)
}
