package compose

import (
	"github.com/MoodyStars/FreePoop/internal/config"
)

// EraTuning sets how hard a style era leans on the effect library.
// Years map into buckets; poops aged like their vintage.
type EraTuning struct {
	Name string
	// EffectChance is the per-step chance for each enabled effect.
	EffectChance float64
	// AggressiveChance replaces EffectChance for harsh effects.
	AggressiveChance float64
	// MaxChain caps effects chained onto one step.
	MaxChain int
	// Intensity in [0,1] scales rolled effect parameters.
	Intensity float64
}

// aggressiveEffects get the era's aggressive probability instead of
// the base one.
var aggressiveEffects = map[string]bool{
	"flash": true,
	"gain":  true,
}

var eraTable = []struct {
	maxYear int
	tuning  EraTuning
}{
	{2009, EraTuning{Name: "classic", EffectChance: 0.45, AggressiveChance: 0.15, MaxChain: 2, Intensity: 0.3}},
	{2015, EraTuning{Name: "golden", EffectChance: 0.6, AggressiveChance: 0.3, MaxChain: 3, Intensity: 0.55}},
	{2020, EraTuning{Name: "modern", EffectChance: 0.7, AggressiveChance: 0.45, MaxChain: 4, Intensity: 0.75}},
}

var contemporaryTuning = EraTuning{Name: "contemporary", EffectChance: 0.8, AggressiveChance: 0.6, MaxChain: 5, Intensity: 0.9}

// TuningForYear buckets a style year into an era and applies any
// configured overrides. Year zero lands in the golden era.
func TuningForYear(year int, overrides map[string]config.EraOverride) EraTuning {
	if year <= 0 {
		year = 2012
	}

	tuning := contemporaryTuning
	for _, row := range eraTable {
		if year <= row.maxYear {
			tuning = row.tuning
			break
		}
	}

	if o, ok := overrides[tuning.Name]; ok {
		if o.EffectChance > 0 {
			tuning.EffectChance = o.EffectChance
		}
		if o.AggressiveChance > 0 {
			tuning.AggressiveChance = o.AggressiveChance
		}
		if o.MaxChain > 0 {
			tuning.MaxChain = o.MaxChain
		}
		if o.MaxRepeats > 0 {
			// Repeats express intensity for rolled parameters.
			tuning.Intensity = float64(o.MaxRepeats) / 10
			if tuning.Intensity > 1 {
				tuning.Intensity = 1
			}
		}
	}

	return tuning
}
