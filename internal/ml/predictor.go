package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// Predictor is the capability every loaded model has.
type Predictor interface {
	Name() string
	Version() string
	FeatureKeys() []string
	Predict(features map[string]float64) (float64, error)
}

// ProbabilityPredictor is the extra capability of classifiers. Callers that
// need class probabilities must check for it and fail loudly otherwise.
type ProbabilityPredictor interface {
	Predictor
	PredictProba(features map[string]float64) ([]float64, error)
}

// ErrNoProbability is returned when predict_proba is requested from a model
// that only supports point predictions.
var ErrNoProbability = errors.New("model does not support probability output")

const (
	ModelTypeLinearRegression   = "linear_regression"
	ModelTypeLogisticRegression = "logistic_regression"
)

// artifactDoc is the serialized predictor format produced by the training
// pipeline: a GLM coefficient document, optionally gzipped and split for
// transport.
type artifactDoc struct {
	ModelName    string             `json:"model_name"`
	Version      string             `json:"version"`
	ModelType    string             `json:"model_type"`
	FeatureKeys  []string           `json:"feature_keys"`
	Coefficients map[string]float64 `json:"coefficients"`
	Intercept    float64            `json:"intercept"`
}

type glmPredictor struct {
	name         string
	version      string
	modelType    string
	featureKeys  []string
	coefficients map[string]float64
	intercept    float64
}

func decodePredictor(name string, raw []byte) (Predictor, error) {
	var doc artifactDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("artifact for %s is not a valid model document: %w", name, err)
	}
	if doc.ModelType != ModelTypeLinearRegression && doc.ModelType != ModelTypeLogisticRegression {
		return nil, fmt.Errorf("artifact for %s has unsupported model_type %q", name, doc.ModelType)
	}
	if len(doc.FeatureKeys) == 0 {
		return nil, fmt.Errorf("artifact for %s declares no feature_keys", name)
	}
	for _, k := range doc.FeatureKeys {
		if _, ok := doc.Coefficients[k]; !ok {
			return nil, fmt.Errorf("artifact for %s missing coefficient for feature %q", name, k)
		}
	}
	p := &glmPredictor{
		name:         name,
		version:      doc.Version,
		modelType:    doc.ModelType,
		featureKeys:  doc.FeatureKeys,
		coefficients: doc.Coefficients,
		intercept:    doc.Intercept,
	}
	if doc.ModelType == ModelTypeLogisticRegression {
		return &logisticPredictor{glmPredictor: p}, nil
	}
	return p, nil
}

func (p *glmPredictor) Name() string          { return p.name }
func (p *glmPredictor) Version() string       { return p.version }
func (p *glmPredictor) FeatureKeys() []string { return p.featureKeys }

func (p *glmPredictor) linear(features map[string]float64) (float64, error) {
	sum := p.intercept
	for _, k := range p.featureKeys {
		v, ok := features[k]
		if !ok {
			return 0, fmt.Errorf("model %s: missing feature %q", p.name, k)
		}
		sum += p.coefficients[k] * v
	}
	return sum, nil
}

func (p *glmPredictor) Predict(features map[string]float64) (float64, error) {
	return p.linear(features)
}

type logisticPredictor struct {
	*glmPredictor
}

func (p *logisticPredictor) PredictProba(features map[string]float64) ([]float64, error) {
	z, err := p.linear(features)
	if err != nil {
		return nil, err
	}
	pos := 1 / (1 + math.Exp(-z))
	return []float64{1 - pos, pos}, nil
}

// Predict on a classifier returns the hard label (0 or 1).
func (p *logisticPredictor) Predict(features map[string]float64) (float64, error) {
	probs, err := p.PredictProba(features)
	if err != nil {
		return 0, err
	}
	if probs[1] >= 0.5 {
		return 1, nil
	}
	return 0, nil
}
