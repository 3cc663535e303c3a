// Package modelstore loads and saves the churn model artifact triple.
package modelstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/okian/churnlens/internal/domain/churn"
)

// Artifact file names inside the model directory.
const (
	ModelFile    = "churn_model.json"
	ScalerFile   = "churn_scaler.json"
	FeaturesFile = "churn_features.json"
	InfoFile     = "churn_model_info.json"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	// ErrArtifactsNotFound means the model is absent; scoring degrades to the heuristic.
	ErrArtifactsNotFound = errors.New("model artifacts not found")
	// ErrMalformedArtifact means an artifact exists but cannot be decoded; loading must stop.
	ErrMalformedArtifact = errors.New("malformed model artifact")
)

// Load reads the artifact triple from dir and validates it. The info file
// is optional. A missing directory or any missing required file yields
// ErrArtifactsNotFound.
func Load(dir string) (*churn.Artifacts, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: no model directory configured", ErrArtifactsNotFound)
	}
	raw := make(map[string][]byte, 3)
	for _, name := range []string{ModelFile, ScalerFile, FeaturesFile} {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s", ErrArtifactsNotFound, filepath.Join(dir, name))
			}
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		raw[name] = b
	}

	a := &churn.Artifacts{Scaler: &churn.Scaler{}, Schema: &churn.Schema{}}
	var err error
	if a.Classifier, err = churn.DecodeClassifier(raw[ModelFile]); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedArtifact, ModelFile, err)
	}
	if err := json.Unmarshal(raw[ScalerFile], a.Scaler); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedArtifact, ScalerFile, err)
	}
	if err := json.Unmarshal(raw[FeaturesFile], a.Schema); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedArtifact, FeaturesFile, err)
	}

	if b, err := os.ReadFile(filepath.Join(dir, InfoFile)); err == nil {
		if err := json.Unmarshal(b, &a.Info); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedArtifact, InfoFile, err)
		}
	}

	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// Save writes the artifacts into dir, creating it if needed.
func Save(dir string, a *churn.Artifacts) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}
	files := map[string]any{
		ModelFile:    a.Classifier,
		ScalerFile:   a.Scaler,
		FeaturesFile: a.Schema,
	}
	if a.Info != nil {
		files[InfoFile] = a.Info
	}
	for name, v := range files {
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("encode %s: %w", name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, name), b, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return nil
}
