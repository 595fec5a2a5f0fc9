package waveform

// Tuning holds the anomaly constants.
type Tuning struct {
	ArrhythmiaDelayMax int     // delay drawn from [0, ArrhythmiaDelayMax)
	StutterDelayMin    int     // delay drawn from [StutterDelayMin, StutterDelayMax)
	StutterDelayMax    int
	StutterProbability float64 // chance of a stutter after each completed cycle
	NoiseAmplitude     float64 // perturbation drawn from [-NoiseAmplitude, NoiseAmplitude)
}

// DefaultTuning returns the stock anomaly constants.
func DefaultTuning() Tuning {
	return Tuning{
		ArrhythmiaDelayMax: 100,
		StutterDelayMin:    50,
		StutterDelayMax:    100,
		StutterProbability: 0.3,
		NoiseAmplitude:     0.2,
	}
}

// normalized clamps out-of-range values instead of rejecting them.
func (t Tuning) normalized() Tuning {
	if t.ArrhythmiaDelayMax < 0 {
		t.ArrhythmiaDelayMax = 0
	}
	if t.StutterDelayMin < 0 {
		t.StutterDelayMin = 0
	}
	if t.StutterDelayMax < t.StutterDelayMin {
		t.StutterDelayMax = t.StutterDelayMin
	}
	if t.StutterProbability < 0 {
		t.StutterProbability = 0
	}
	if t.StutterProbability > 1 {
		t.StutterProbability = 1
	}
	if t.NoiseAmplitude < 0 {
		t.NoiseAmplitude = -t.NoiseAmplitude
	}
	return t
}
