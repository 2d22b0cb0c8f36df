// Block effects applied by the player to each content stream before mixing.

package audio

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

// MaxGainDB bounds content gain so a typo cannot produce non-finite samples.
const MaxGainDB = 60.0

// Effect processes a block of audio in place.
type Effect interface {
	// Process applies the effect to every channel of b.
	Process(b *Buffers) error

	// Name returns a human-readable name for the effect.
	Name() string
}

// DBToLinear converts a gain in decibels to a linear multiplier.
func DBToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}

// LinearToDB converts a linear amplitude to decibels. Zero maps to -Inf.
func LinearToDB(linear float64) float64 {
	return 20 * math.Log10(linear)
}

// GainEffect applies a fixed gain expressed in decibels.
//
// Samples are not clipped: the analysis must see what the mix would produce,
// including overs, so peaks above full scale are reported rather than hidden.
type GainEffect struct {
	db     float64
	linear float32
}

// NewGainEffect creates a gain effect. Gains beyond ±MaxGainDB are rejected.
func NewGainEffect(db float64) (*GainEffect, error) {
	logrus.WithFields(logrus.Fields{
		"function": "NewGainEffect",
		"gain_db":  db,
	}).Debug("Creating new gain effect")

	if math.IsNaN(db) || db > MaxGainDB || db < -MaxGainDB {
		logrus.WithFields(logrus.Fields{
			"function": "NewGainEffect",
			"gain_db":  db,
			"error":    "gain out of range",
		}).Error("Gain validation failed")
		return nil, fmt.Errorf("gain out of range (±%.0f dB): %f", MaxGainDB, db)
	}

	return &GainEffect{db: db, linear: float32(DBToLinear(db))}, nil
}

// Process multiplies every sample by the effect's linear gain.
func (g *GainEffect) Process(b *Buffers) error {
	if g.db == 0 {
		return nil
	}
	for ch := 0; ch < b.Channels(); ch++ {
		data := b.Data(ch)
		for i := range data {
			data[i] *= g.linear
		}
	}
	return nil
}

// Name returns the effect name for debugging and logging.
func (g *GainEffect) Name() string {
	return fmt.Sprintf("Gain(%.2fdB)", g.db)
}

// GainDB returns the configured gain in decibels.
func (g *GainEffect) GainDB() float64 {
	return g.db
}

// EffectChain applies a sequence of effects in order. Processing stops at the
// first error.
type EffectChain struct {
	effects []Effect
}

// NewEffectChain creates an empty effect chain.
func NewEffectChain(effects ...Effect) *EffectChain {
	return &EffectChain{effects: effects}
}

// AddEffect appends an effect to the chain.
func (e *EffectChain) AddEffect(effect Effect) {
	logrus.WithFields(logrus.Fields{
		"function":     "EffectChain.AddEffect",
		"effect_name":  effect.Name(),
		"effect_count": len(e.effects),
	}).Debug("Adding effect to audio chain")

	e.effects = append(e.effects, effect)
}

// Process applies every effect to b in order.
func (e *EffectChain) Process(b *Buffers) error {
	for i, effect := range e.effects {
		if err := effect.Process(b); err != nil {
			logrus.WithFields(logrus.Fields{
				"function":     "EffectChain.Process",
				"effect_index": i,
				"effect_name":  effect.Name(),
				"error":        err.Error(),
			}).Error("Effect processing failed")
			return fmt.Errorf("effect %d (%s) failed: %w", i, effect.Name(), err)
		}
	}
	return nil
}

// Len returns the number of effects in the chain.
func (e *EffectChain) Len() int {
	return len(e.effects)
}

// Names returns the names of all effects in the chain.
func (e *EffectChain) Names() []string {
	names := make([]string, len(e.effects))
	for i, effect := range e.effects {
		names[i] = effect.Name()
	}
	return names
}
