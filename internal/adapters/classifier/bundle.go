// Package classifier loads serialized logistic-regression bundles exported
// from an offline training pipeline and serves predictions over the
// canonical feature space.
package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"

	"go.uber.org/zap"

	"github.com/mikey/mail-threat-scanner/internal/core"
)

// bundleFile is the on-disk JSON layout of a trained model.
type bundleFile struct {
	FeatureNames []string  `json:"feature_names"`
	Weights      []float64 `json:"weights"`
	Intercept    float64   `json:"intercept"`
	Scaler       *struct {
		Mean []float64 `json:"mean"`
		Std  []float64 `json:"std"`
	} `json:"scaler"`
}

// LogisticBundle is a logistic-regression classifier restored from a JSON
// bundle. It implements core.Classifier and core.ContributionExplainer.
type LogisticBundle struct {
	featureNames []string
	weights      []float64
	intercept    float64
	scalerMean   []float64
	scalerStd    []float64
	logger       *zap.Logger
}

// LoadBundle reads and validates a model bundle from path.
func LoadBundle(path string, logger *zap.Logger) (*LogisticBundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model bundle: %w", err)
	}
	return ParseBundle(data, logger)
}

// ParseBundle restores a classifier from serialized bundle bytes.
func ParseBundle(data []byte, logger *zap.Logger) (*LogisticBundle, error) {
	var file bundleFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse model bundle: %w", err)
	}

	if len(file.FeatureNames) == 0 {
		return nil, fmt.Errorf("model bundle declares no features")
	}
	if len(file.Weights) != len(file.FeatureNames) {
		return nil, fmt.Errorf("model bundle has %d weights for %d features",
			len(file.Weights), len(file.FeatureNames))
	}

	b := &LogisticBundle{
		featureNames: file.FeatureNames,
		weights:      file.Weights,
		intercept:    file.Intercept,
		logger:       logger,
	}

	if file.Scaler != nil {
		if len(file.Scaler.Mean) != len(file.FeatureNames) ||
			len(file.Scaler.Std) != len(file.FeatureNames) {
			return nil, fmt.Errorf("model bundle scaler shape does not match feature count")
		}
		b.scalerMean = file.Scaler.Mean
		b.scalerStd = file.Scaler.Std
	}

	if logger != nil {
		logger.Info("Loaded classifier bundle",
			zap.Int("features", len(b.featureNames)),
			zap.Bool("scaled", b.scalerMean != nil))
	}
	return b, nil
}

// FeatureNames returns the ordered feature names the model was fit against.
func (b *LogisticBundle) FeatureNames() []string {
	return b.featureNames
}

// PredictProba scores one feature vector and returns the probability of
// the threat class.
func (b *LogisticBundle) PredictProba(_ context.Context, vector []float64) (float64, error) {
	scaled, err := b.scale(vector)
	if err != nil {
		return 0, err
	}

	z := b.intercept
	for i, w := range b.weights {
		z += w * scaled[i]
	}
	return sigmoid(z), nil
}

// Contributions returns the signed weight*value term for each feature, in
// the model's declared order. The terms sum (with the intercept) to the
// pre-sigmoid logit of the prediction.
func (b *LogisticBundle) Contributions(_ context.Context, vector []float64) ([]core.FeatureContribution, error) {
	scaled, err := b.scale(vector)
	if err != nil {
		return nil, err
	}

	contribs := make([]core.FeatureContribution, len(b.weights))
	for i, w := range b.weights {
		contribs[i] = core.FeatureContribution{
			Feature:      b.featureNames[i],
			Contribution: w * scaled[i],
		}
	}
	return contribs, nil
}

func (b *LogisticBundle) scale(vector []float64) ([]float64, error) {
	if len(vector) != len(b.featureNames) {
		return nil, fmt.Errorf("feature vector has %d values, model expects %d",
			len(vector), len(b.featureNames))
	}
	if b.scalerMean == nil {
		return vector, nil
	}

	scaled := make([]float64, len(vector))
	for i, v := range vector {
		std := b.scalerStd[i]
		if std == 0 {
			std = 1
		}
		scaled[i] = (v - b.scalerMean[i]) / std
	}
	return scaled, nil
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}
