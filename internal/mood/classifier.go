package mood

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/piper-ml/piper/internal/shared"
)

// Network topology. Fixed by the trained artifacts; dropout applies only
// during training, so inference is fully deterministic.
const (
	NumFeatures = 5
	hidden1     = 64
	hidden2     = 32
)

// layer holds one dense layer: weights are row-major, one row per output
// unit, plus a bias per output unit.
type layer struct {
	Weights [][]float64 `json:"weights"`
	Biases  []float64   `json:"biases"`
}

func (l layer) check(name string, in, out int) error {
	if len(l.Weights) != out || len(l.Biases) != out {
		return fmt.Errorf("%w: layer %s: want %d output units, got %d weights / %d biases",
			shared.ErrModelNotLoaded, name, out, len(l.Weights), len(l.Biases))
	}
	for i, row := range l.Weights {
		if len(row) != in {
			return fmt.Errorf("%w: layer %s: row %d has %d inputs, want %d",
				shared.ErrModelNotLoaded, name, i, len(row), in)
		}
	}
	return nil
}

// forward computes W·x + b, optionally applying ReLU.
func (l layer) forward(x []float64, relu bool) []float64 {
	out := make([]float64, len(l.Weights))
	for i, row := range l.Weights {
		sum := l.Biases[i]
		for j, w := range row {
			sum += w * x[j]
		}
		if relu && sum < 0 {
			sum = 0
		}
		out[i] = sum
	}
	return out
}

// Weights is the serialized network artifact: 5 → 64 → 32 → 5.
type Weights struct {
	FC1 layer `json:"fc1"`
	FC2 layer `json:"fc2"`
	FC3 layer `json:"fc3"`
}

// Scaler standardizes each feature column with the training-set mean and
// scale, pairing the network with the distribution it was trained on.
type Scaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

func (s Scaler) check() error {
	if len(s.Mean) != NumFeatures || len(s.Scale) != NumFeatures {
		return fmt.Errorf("%w: scaler: want %d means and scales, got %d / %d",
			shared.ErrModelNotLoaded, NumFeatures, len(s.Mean), len(s.Scale))
	}
	for i, v := range s.Scale {
		if v == 0 {
			return fmt.Errorf("%w: scaler: zero scale at column %d", shared.ErrModelNotLoaded, i)
		}
	}
	return nil
}

func (s Scaler) transform(row [NumFeatures]float64) []float64 {
	out := make([]float64, NumFeatures)
	for i, v := range row {
		out[i] = (v - s.Mean[i]) / s.Scale[i]
	}
	return out
}

// Classifier is the loaded network plus its paired scaler. It is immutable
// after [Load] and safe for unsynchronized concurrent use.
type Classifier struct {
	weights Weights
	scaler  Scaler
}

// Load reads the weight and scaler artifacts. It is called once at process
// start; a missing or malformed artifact is a fatal condition and the
// process must not serve traffic without both.
func Load(weightsPath, scalerPath string) (*Classifier, error) {
	var weights Weights
	if err := readArtifact(weightsPath, &weights); err != nil {
		return nil, fmt.Errorf("weights: %w", err)
	}

	var scaler Scaler
	if err := readArtifact(scalerPath, &scaler); err != nil {
		return nil, fmt.Errorf("scaler: %w", err)
	}

	for _, c := range []error{
		weights.FC1.check("fc1", NumFeatures, hidden1),
		weights.FC2.check("fc2", hidden1, hidden2),
		weights.FC3.check("fc3", hidden2, NumClasses),
		scaler.check(),
	} {
		if c != nil {
			return nil, c
		}
	}

	return &Classifier{weights: weights, scaler: scaler}, nil
}

func readArtifact(path string, target any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", shared.ErrModelNotLoaded, path, err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %s: %v", shared.ErrModelNotLoaded, path, err)
	}
	return nil
}

// Predict standardizes each row, runs the forward pass, and returns the
// argmax class index per row.
func (c *Classifier) Predict(rows [][NumFeatures]float64) []int {
	out := make([]int, len(rows))
	for i, row := range rows {
		x := c.scaler.transform(row)
		h := c.weights.FC1.forward(x, true)
		h = c.weights.FC2.forward(h, true)
		logits := c.weights.FC3.forward(h, false)
		out[i] = argmax(logits)
	}
	return out
}

// PredictOne classifies a single feature vector.
func (c *Classifier) PredictOne(row [NumFeatures]float64) Mood {
	return Mood(c.Predict([][NumFeatures]float64{row})[0])
}

func argmax(values []float64) int {
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return best
}
