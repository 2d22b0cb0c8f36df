package audio

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGainEffect(t *testing.T) {
	tests := []struct {
		name    string
		db      float64
		wantErr bool
	}{
		{"unity", 0, false},
		{"cut", -12, false},
		{"boost", 6, false},
		{"maximum", MaxGainDB, false},
		{"too loud", MaxGainDB + 1, true},
		{"too quiet", -MaxGainDB - 1, true},
		{"nan", math.NaN(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := NewGainEffect(tt.db)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, g)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.db, g.GainDB())
		})
	}
}

func TestGainEffectProcess(t *testing.T) {
	g, err := NewGainEffect(LinearToDB(0.5))
	require.NoError(t, err)

	b, err := FromChannels([][]float32{{1, -0.5, 0.25}})
	require.NoError(t, err)
	require.NoError(t, g.Process(b))

	assert.InDeltaSlice(t, []float32{0.5, -0.25, 0.125}, b.Data(0), 1e-6)
}

func TestGainEffectDoesNotClip(t *testing.T) {
	g, err := NewGainEffect(6.0206)
	require.NoError(t, err)

	b, err := FromChannels([][]float32{{0.9}})
	require.NoError(t, err)
	require.NoError(t, g.Process(b))

	assert.InDelta(t, 1.8, b.Data(0)[0], 1e-3)
}

func TestDecibelConversions(t *testing.T) {
	assert.InDelta(t, 1.0, DBToLinear(0), 1e-12)
	assert.InDelta(t, 0.1, DBToLinear(-20), 1e-12)
	assert.InDelta(t, -6.0206, LinearToDB(0.5), 1e-4)
	assert.True(t, math.IsInf(LinearToDB(0), -1))
}

type failingEffect struct{}

func (failingEffect) Process(*Buffers) error { return errors.New("boom") }
func (failingEffect) Name() string           { return "Failing" }

func TestEffectChain(t *testing.T) {
	half, err := NewGainEffect(LinearToDB(0.5))
	require.NoError(t, err)

	chain := NewEffectChain(half)
	chain.AddEffect(half)
	assert.Equal(t, 2, chain.Len())
	assert.Len(t, chain.Names(), 2)

	b, err := FromChannels([][]float32{{1}})
	require.NoError(t, err)
	require.NoError(t, chain.Process(b))
	assert.InDelta(t, 0.25, b.Data(0)[0], 1e-6)

	chain.AddEffect(failingEffect{})
	err = chain.Process(b)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failing")
}
