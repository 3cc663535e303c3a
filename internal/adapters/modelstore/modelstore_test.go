package modelstore_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/churnlens/internal/adapters/modelstore"
	"github.com/okian/churnlens/internal/domain/churn"
	. "github.com/smartystreets/goconvey/convey"
)

func artifacts() *churn.Artifacts {
	features := []string{"tx_count", "recency_days"}
	return &churn.Artifacts{
		Classifier: &churn.LogisticClassifier{Coef: []float64{-0.2, 0.8}, Intercept: 0.1, Version: "v1"},
		Scaler:     &churn.Scaler{Mean: []float64{5, 20}, Scale: []float64{2, 10}, Features: features, Version: "v1"},
		Schema:     &churn.Schema{Features: features, Version: "v1"},
		Info:       map[string]any{"model_type": "logistic_regression"},
	}
}

func TestLoad(t *testing.T) {
	Convey("Given a model directory", t, func() {
		dir := t.TempDir()

		Convey("When artifacts were saved", func() {
			So(modelstore.Save(dir, artifacts()), ShouldBeNil)
			a, err := modelstore.Load(dir)

			Convey("Then they load back validated", func() {
				So(err, ShouldBeNil)
				So(a.Schema.Features, ShouldResemble, []string{"tx_count", "recency_days"})
				So(a.Classifier.NumFeatures(), ShouldEqual, 2)
				So(a.Info["model_type"], ShouldEqual, "logistic_regression")
			})
		})

		Convey("When the directory is empty", func() {
			_, err := modelstore.Load(dir)
			So(errors.Is(err, modelstore.ErrArtifactsNotFound), ShouldBeTrue)
		})

		Convey("When no directory is configured", func() {
			_, err := modelstore.Load("")
			So(errors.Is(err, modelstore.ErrArtifactsNotFound), ShouldBeTrue)
		})

		Convey("When one artifact is not valid JSON", func() {
			So(modelstore.Save(dir, artifacts()), ShouldBeNil)
			So(os.WriteFile(filepath.Join(dir, modelstore.ScalerFile), []byte("{"), 0o644), ShouldBeNil)
			_, err := modelstore.Load(dir)
			So(errors.Is(err, modelstore.ErrMalformedArtifact), ShouldBeTrue)
		})

		Convey("When the artifacts disagree on versions", func() {
			So(modelstore.Save(dir, artifacts()), ShouldBeNil)
			So(os.WriteFile(filepath.Join(dir, modelstore.FeaturesFile),
				[]byte(`{"features":["tx_count","recency_days"],"version":"v2"}`), 0o644), ShouldBeNil)
			_, err := modelstore.Load(dir)
			So(errors.Is(err, churn.ErrSchemaDrift), ShouldBeTrue)
		})
	})
}
