package churn

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
)

// Schema describes the exact feature layout the classifier was trained on.
type Schema struct {
	Features           []string `json:"features"`
	CategoricalColumns []string `json:"categorical_cols_base"`
	Version            string   `json:"version,omitempty"`
}

// Scaler standardizes features as (x - mean) / scale.
type Scaler struct {
	Mean     []float64 `json:"mean"`
	Scale    []float64 `json:"scale"`
	Features []string  `json:"features,omitempty"`
	Version  string    `json:"version,omitempty"`
}

// Width returns the number of features the scaler expects.
func (s *Scaler) Width() int { return len(s.Mean) }

// Transform standardizes X row by row into a new matrix. A zero scale is
// treated as one.
func (s *Scaler) Transform(X [][]float64) ([][]float64, error) {
	if len(s.Mean) != len(s.Scale) {
		return nil, fmt.Errorf("%w: scaler mean/scale lengths %d/%d", ErrDimension, len(s.Mean), len(s.Scale))
	}
	out := make([][]float64, len(X))
	for i, row := range X {
		if len(row) != len(s.Mean) {
			return nil, fmt.Errorf("%w: row %d has %d features, scaler expects %d", ErrDimension, i, len(row), len(s.Mean))
		}
		scaled := make([]float64, len(row))
		for j, x := range row {
			sc := s.Scale[j]
			if sc == 0 {
				sc = 1
			}
			scaled[j] = (x - s.Mean[j]) / sc
		}
		out[i] = scaled
	}
	return out, nil
}

// Classifier is a binary classifier returning [p0, p1] per row.
type Classifier interface {
	PredictProba(X [][]float64) ([][2]float64, error)
	NumFeatures() int
}

// ClassifierVersion is implemented by classifiers that carry an artifact version.
type ClassifierVersion interface {
	ArtifactVersion() string
}

// LogisticClassifier is a fitted logistic regression.
type LogisticClassifier struct {
	Coef      []float64 `json:"coef"`
	Intercept float64   `json:"intercept"`
	Version   string    `json:"version,omitempty"`
}

func (c *LogisticClassifier) NumFeatures() int        { return len(c.Coef) }
func (c *LogisticClassifier) ArtifactVersion() string { return c.Version }

// MarshalJSON writes the classifier with its type tag.
func (c LogisticClassifier) MarshalJSON() ([]byte, error) {
	type plain LogisticClassifier
	return json.Marshal(struct {
		Type string `json:"type"`
		plain
	}{ModelLogistic, plain(c)})
}

func (c *LogisticClassifier) PredictProba(X [][]float64) ([][2]float64, error) {
	out := make([][2]float64, len(X))
	for i, row := range X {
		if len(row) != len(c.Coef) {
			return nil, fmt.Errorf("%w: row %d has %d features, model expects %d", ErrDimension, i, len(row), len(c.Coef))
		}
		z := c.Intercept
		for j, x := range row {
			z += c.Coef[j] * x
		}
		p := 1 / (1 + math.Exp(-z))
		out[i] = [2]float64{1 - p, p}
	}
	return out, nil
}

// TreeNode is one node of a decision tree in array form. Leaves have
// Feature < 0. Rows go left when x[Feature] <= Threshold.
type TreeNode struct {
	Feature   int        `json:"feature"`
	Threshold float64    `json:"threshold"`
	Left      int        `json:"left"`
	Right     int        `json:"right"`
	Value     [2]float64 `json:"value"`
}

// Tree is a decision tree rooted at node 0.
type Tree struct {
	Nodes []TreeNode `json:"nodes"`
}

func (t Tree) leaf(row []float64) ([2]float64, error) {
	i := 0
	for steps := 0; steps <= len(t.Nodes); steps++ {
		if i < 0 || i >= len(t.Nodes) {
			return [2]float64{}, fmt.Errorf("%w: tree node %d out of range", ErrDimension, i)
		}
		n := t.Nodes[i]
		if n.Feature < 0 {
			return n.Value, nil
		}
		if n.Feature >= len(row) {
			return [2]float64{}, fmt.Errorf("%w: tree split on feature %d", ErrDimension, n.Feature)
		}
		if row[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
	return [2]float64{}, fmt.Errorf("%w: tree does not terminate", ErrDimension)
}

// ForestClassifier averages the normalized leaf class distributions of its trees.
type ForestClassifier struct {
	Features int    `json:"n_features"`
	Trees    []Tree `json:"trees"`
	Version  string `json:"version,omitempty"`
}

func (f *ForestClassifier) NumFeatures() int        { return f.Features }
func (f *ForestClassifier) ArtifactVersion() string { return f.Version }

// MarshalJSON writes the classifier with its type tag.
func (f ForestClassifier) MarshalJSON() ([]byte, error) {
	type plain ForestClassifier
	return json.Marshal(struct {
		Type string `json:"type"`
		plain
	}{ModelRandomForest, plain(f)})
}

func (f *ForestClassifier) PredictProba(X [][]float64) ([][2]float64, error) {
	if len(f.Trees) == 0 {
		return nil, fmt.Errorf("%w: forest has no trees", ErrScorerUnavailable)
	}
	out := make([][2]float64, len(X))
	for i, row := range X {
		if len(row) != f.Features {
			return nil, fmt.Errorf("%w: row %d has %d features, model expects %d", ErrDimension, i, len(row), f.Features)
		}
		var p1 float64
		for _, t := range f.Trees {
			v, err := t.leaf(row)
			if err != nil {
				return nil, err
			}
			if sum := v[0] + v[1]; sum > 0 {
				p1 += v[1] / sum
			}
		}
		p1 /= float64(len(f.Trees))
		out[i] = [2]float64{1 - p1, p1}
	}
	return out, nil
}

// Classifier artifact types.
const (
	ModelLogistic     = "logistic_regression"
	ModelRandomForest = "random_forest"
)

// classifierEnvelope is the on-disk classifier format; the type field picks
// the concrete implementation.
type classifierEnvelope struct {
	Type string `json:"type"`
}

// DecodeClassifier decodes a classifier artifact.
func DecodeClassifier(data []byte) (Classifier, error) {
	var env classifierEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	switch env.Type {
	case ModelLogistic, "logistic":
		var c LogisticClassifier
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, err
		}
		return &c, nil
	case ModelRandomForest, "forest":
		var f ForestClassifier
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, err
		}
		return &f, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedModel, env.Type)
}

// Artifacts is the versioned classifier, scaler and schema triple.
type Artifacts struct {
	Classifier Classifier
	Scaler     *Scaler
	Schema     *Schema
	Info       map[string]any
}

// Validate checks that the three artifacts describe the same feature layout.
func (a *Artifacts) Validate() error {
	if a == nil || a.Classifier == nil || a.Scaler == nil || a.Schema == nil {
		return fmt.Errorf("%w: incomplete artifact set", ErrSchemaDrift)
	}
	n := len(a.Schema.Features)
	if n == 0 {
		return fmt.Errorf("%w: schema lists no features", ErrSchemaDrift)
	}
	if a.Scaler.Width() != n || len(a.Scaler.Scale) != n {
		return fmt.Errorf("%w: schema has %d features, scaler has %d", ErrSchemaDrift, n, a.Scaler.Width())
	}
	if a.Classifier.NumFeatures() != n {
		return fmt.Errorf("%w: schema has %d features, classifier has %d", ErrSchemaDrift, n, a.Classifier.NumFeatures())
	}
	if len(a.Scaler.Features) > 0 && !slices.Equal(a.Scaler.Features, a.Schema.Features) {
		return fmt.Errorf("%w: scaler feature order differs from schema", ErrSchemaDrift)
	}
	versions := []string{a.Schema.Version, a.Scaler.Version}
	if cv, ok := a.Classifier.(ClassifierVersion); ok {
		versions = append(versions, cv.ArtifactVersion())
	}
	var want string
	for _, v := range versions {
		if v == "" {
			continue
		}
		if want == "" {
			want = v
			continue
		}
		if v != want {
			return fmt.Errorf("%w: artifact versions %q and %q", ErrSchemaDrift, want, v)
		}
	}
	return nil
}
