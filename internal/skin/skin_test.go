package skin

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SmitUplenchwar2687/meshflow/internal/canvas"
)

func TestThemes_CoverEveryKind(t *testing.T) {
	for _, name := range Names() {
		s, err := ByName(name)
		require.NoError(t, err)
		assert.Equal(t, name, s.Name())

		for _, k := range []Kind{KindSuccess, KindError, KindTCP} {
			r, err := s.ForKind(k)
			require.NoError(t, err, "%s.ForKind(%s)", name, k)
			assert.NotNil(t, r)
		}
	}
}

func TestForKind_UnknownKind(t *testing.T) {
	_, err := Normal().ForKind(Kind(42))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownKind))
	assert.Contains(t, err.Error(), "kind(42)")
}

func TestForKind_MissingShape(t *testing.T) {
	theme := Normal()
	theme.TCP = nil

	_, err := theme.ForKind(KindTCP)
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestByName_Unknown(t *testing.T) {
	_, err := ByName("neon")
	assert.ErrorIs(t, err, ErrUnknownSkin)
}

func TestNormal_ErrorDistinctFromSuccess(t *testing.T) {
	s := Normal()
	ok, _ := s.ForKind(KindSuccess)
	bad, _ := s.ForKind(KindError)
	assert.NotEqual(t, ok, bad)
}

func TestCircle_Render(t *testing.T) {
	rec := canvas.NewRecording()
	Circle{Radius: 2, Fill: canvas.MustColor("#ffffff"), Stroke: canvas.MustColor("#000000"), LineWidth: 1}.
		Render(rec.Context(), canvas.Vec{X: 10, Y: 20})

	ops := rec.Ops()
	assert.Equal(t, 1, canvas.Count(ops, canvas.OpArc))
	assert.Equal(t, 1, canvas.Count(ops, canvas.OpFill))
	assert.Equal(t, 1, canvas.Count(ops, canvas.OpStroke))
	assert.Equal(t, []float64{10, 20}, ops[1].Args[:2])
}

func TestCircle_NilColorsInheritContext(t *testing.T) {
	rec := canvas.NewRecording()
	Circle{Radius: 2}.Render(rec.Context(), canvas.Vec{})

	ops := rec.Ops()
	assert.Zero(t, canvas.Count(ops, canvas.OpFillStyle))
	assert.Zero(t, canvas.Count(ops, canvas.OpStroke), "zero line width skips stroke")
	assert.Equal(t, 1, canvas.Count(ops, canvas.OpFill))
}

func TestDiamond_Render(t *testing.T) {
	rec := canvas.NewRecording()
	Diamond{Radius: 3, LineWidth: 1}.Render(rec.Context(), canvas.Vec{X: 5, Y: 5})

	ops := rec.Ops()
	require.Equal(t, canvas.OpMoveTo, ops[1].Name)
	assert.Equal(t, []float64{5, 2}, ops[1].Args)
	assert.Equal(t, 3, canvas.Count(ops, canvas.OpLineTo))
	assert.Equal(t, 1, canvas.Count(ops, canvas.OpClosePath))
}

func TestConcentricDiamond_DrawsBoth(t *testing.T) {
	rec := canvas.NewRecording()
	ConcentricDiamond{
		Outer: Diamond{Radius: 3, LineWidth: 1},
		Inner: Diamond{Radius: 1},
	}.Render(rec.Context(), canvas.Vec{})

	ops := rec.Ops()
	assert.Equal(t, 2, canvas.Count(ops, canvas.OpFill))
	assert.Equal(t, 1, canvas.Count(ops, canvas.OpStroke))
}

func TestSnowflake_Render(t *testing.T) {
	rec := canvas.NewRecording()
	Snowflake{Radius: 4, Spikes: 6}.Render(rec.Context(), canvas.Vec{})

	ops := rec.Ops()
	assert.Equal(t, 18, canvas.Count(ops, canvas.OpLineTo), "6 arms, 2 branches each")
	assert.Equal(t, 1, canvas.Count(ops, canvas.OpStroke))
	assert.Zero(t, canvas.Count(ops, canvas.OpFill))
}

func TestSnowflake_DefaultsSpikes(t *testing.T) {
	rec := canvas.NewRecording()
	Snowflake{Radius: 4}.Render(rec.Context(), canvas.Vec{})
	assert.Equal(t, 18, canvas.Count(rec.Ops(), canvas.OpLineTo))
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "success", KindSuccess.String())
	assert.Equal(t, "error", KindError.String())
	assert.Equal(t, "tcp", KindTCP.String())
}
