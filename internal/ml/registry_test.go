package ml

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/smartblood-kerala/smartblood-backend/internal/features"
	"github.com/smartblood-kerala/smartblood-backend/internal/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func matchArtifact() []byte {
	coeffs := map[string]float64{}
	for _, k := range features.MatchKeys {
		coeffs[k] = 0.1
	}
	doc := artifactDoc{
		ModelName:    ModelDonorSeekerMatch,
		Version:      "1.2.0",
		ModelType:    ModelTypeLinearRegression,
		FeatureKeys:  features.MatchKeys,
		Coefficients: coeffs,
		Intercept:    0.05,
	}
	raw, _ := json.Marshal(doc)
	return raw
}

func availabilityArtifact() []byte {
	coeffs := map[string]float64{}
	for _, k := range features.AvailabilityKeys {
		coeffs[k] = 0.01
	}
	doc := artifactDoc{
		ModelName:    ModelDonorAvailability,
		Version:      "2.0.1",
		ModelType:    ModelTypeLogisticRegression,
		FeatureKeys:  features.AvailabilityKeys,
		Coefficients: coeffs,
		Intercept:    -0.2,
	}
	raw, _ := json.Marshal(doc)
	return raw
}

func writeRegistry(t *testing.T, dir string, models map[string]RegistryEntry) string {
	t.Helper()
	raw, err := json.Marshal(registryFile{Models: models})
	if err != nil {
		t.Fatalf("marshal registry: %v", err)
	}
	path := filepath.Join(dir, "registry.json")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("write registry: %v", err)
	}
	return path
}

func newTestRegistry(t *testing.T, dir string, models map[string]RegistryEntry) *Registry {
	t.Helper()
	path := writeRegistry(t, dir, models)
	r := NewRegistry(testLogger(t), Config{ArtifactRoot: dir, RegistryPath: path}, nil)
	if err := r.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return r
}

func TestInitializeRequiresPaths(t *testing.T) {
	r := NewRegistry(testLogger(t), Config{}, nil)
	if err := r.Initialize(); err == nil {
		t.Fatal("expected configuration error for empty paths")
	}
	r = NewRegistry(testLogger(t), Config{ArtifactRoot: t.TempDir(), RegistryPath: "/nonexistent/registry.json"}, nil)
	if err := r.Initialize(); err == nil {
		t.Fatal("expected error for missing registry file")
	}
}

func TestLoadPlainArtifact(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "match.json"), matchArtifact(), 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	r := newTestRegistry(t, dir, map[string]RegistryEntry{
		ModelDonorSeekerMatch: {ArtifactPath: "match.json", Version: "1.2.0"},
	})

	p, err := r.Load(context.Background(), ModelDonorSeekerMatch, false)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if p.Version() != "1.2.0" {
		t.Fatalf("version = %q", p.Version())
	}
	// Second load must come from cache even if the file disappears.
	os.Remove(filepath.Join(dir, "match.json"))
	if _, err := r.Load(context.Background(), ModelDonorSeekerMatch, false); err != nil {
		t.Fatalf("cached load: %v", err)
	}
	if err := r.Reload(context.Background(), ModelDonorSeekerMatch); err == nil {
		t.Fatal("forced reload should fail once the artifact is gone")
	}
}

func TestLoadGzipArtifact(t *testing.T) {
	dir := t.TempDir()
	f, err := os.Create(filepath.Join(dir, "match.json.gz"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	zw := gzip.NewWriter(f)
	if _, err := zw.Write(matchArtifact()); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	zw.Close()
	f.Close()

	r := newTestRegistry(t, dir, map[string]RegistryEntry{
		ModelDonorSeekerMatch: {ArtifactPath: "match.json", Version: "1.2.0"},
	})
	if _, err := r.Load(context.Background(), ModelDonorSeekerMatch, false); err != nil {
		t.Fatalf("gz load: %v", err)
	}
}

func TestLoadSplitArtifact(t *testing.T) {
	dir := t.TempDir()
	var buf []byte
	{
		tmp := filepath.Join(dir, "whole.gz")
		f, _ := os.Create(tmp)
		zw := gzip.NewWriter(f)
		zw.Write(matchArtifact())
		zw.Close()
		f.Close()
		buf, _ = os.ReadFile(tmp)
		os.Remove(tmp)
	}
	half := len(buf) / 2
	os.WriteFile(filepath.Join(dir, "match.json.gz.part00"), buf[:half], 0o644)
	os.WriteFile(filepath.Join(dir, "match.json.gz.part01"), buf[half:], 0o644)

	r := newTestRegistry(t, dir, map[string]RegistryEntry{
		ModelDonorSeekerMatch: {ArtifactPath: "match.json", Version: "1.2.0"},
	})
	if _, err := r.Load(context.Background(), ModelDonorSeekerMatch, false); err != nil {
		t.Fatalf("split load: %v", err)
	}
}

type stubHub struct {
	repoID   string
	filename string
	payload  []byte
}

func (s *stubHub) Download(ctx context.Context, repoID, filename, destDir string) (string, error) {
	s.repoID = repoID
	s.filename = filename
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", err
	}
	dest := filepath.Join(destDir, filename)
	return dest, os.WriteFile(dest, s.payload, 0o644)
}

func TestLoadHubEntryFields(t *testing.T) {
	dir := t.TempDir()
	hub := &stubHub{payload: matchArtifact()}
	path := writeRegistry(t, dir, map[string]RegistryEntry{
		ModelDonorSeekerMatch: {Version: "1.2.0", HFRepoID: "smartblood/models", HFFilename: "match.json"},
	})
	r := NewRegistry(testLogger(t), Config{ArtifactRoot: dir, RegistryPath: path}, hub)
	if err := r.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if _, err := r.Load(context.Background(), ModelDonorSeekerMatch, false); err != nil {
		t.Fatalf("hub load: %v", err)
	}
	if hub.repoID != "smartblood/models" || hub.filename != "match.json" {
		t.Fatalf("hub called with %q/%q", hub.repoID, hub.filename)
	}
}

func TestLoadHubEntryWithoutClient(t *testing.T) {
	dir := t.TempDir()
	r := newTestRegistry(t, dir, map[string]RegistryEntry{
		ModelDonorSeekerMatch: {Version: "1.2.0", HFRepoID: "smartblood/models", HFFilename: "match.json"},
	})
	if _, err := r.Load(context.Background(), ModelDonorSeekerMatch, false); err == nil {
		t.Fatal("expected remote fetch error with no hub client")
	}
}

func TestLoadMissingArtifact(t *testing.T) {
	dir := t.TempDir()
	r := newTestRegistry(t, dir, map[string]RegistryEntry{
		ModelDonorSeekerMatch: {ArtifactPath: "gone.json", Version: "1.0.0"},
	})
	if _, err := r.Load(context.Background(), ModelDonorSeekerMatch, false); err == nil {
		t.Fatal("expected artifact not found")
	}
	if _, err := r.Load(context.Background(), "unknown_model", false); err == nil {
		t.Fatal("expected unknown model error")
	}
}

func TestPredictProbaCapability(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "match.json"), matchArtifact(), 0o644)
	os.WriteFile(filepath.Join(dir, "avail.json"), availabilityArtifact(), 0o644)
	r := newTestRegistry(t, dir, map[string]RegistryEntry{
		ModelDonorSeekerMatch:  {ArtifactPath: "match.json", Version: "1.2.0"},
		ModelDonorAvailability: {ArtifactPath: "avail.json", Version: "2.0.1"},
	})

	matchFeats := map[string]float64{}
	for _, k := range features.MatchKeys {
		matchFeats[k] = 1
	}
	if _, _, err := r.PredictProba(context.Background(), ModelDonorSeekerMatch, matchFeats); !errors.Is(err, ErrNoProbability) {
		t.Fatalf("regressor predict_proba error = %v, want ErrNoProbability", err)
	}

	availFeats := map[string]float64{}
	for _, k := range features.AvailabilityKeys {
		availFeats[k] = 1
	}
	probs, ms, err := r.PredictProba(context.Background(), ModelDonorAvailability, availFeats)
	if err != nil {
		t.Fatalf("predict_proba: %v", err)
	}
	if len(probs) != 2 || probs[0]+probs[1] < 0.999 || probs[0]+probs[1] > 1.001 {
		t.Fatalf("probabilities = %#v", probs)
	}
	if ms < 0 {
		t.Fatalf("negative inference time %v", ms)
	}
}

func TestFeatureKeyValidation(t *testing.T) {
	dir := t.TempDir()
	doc := artifactDoc{
		ModelName:    ModelDonorSeekerMatch,
		Version:      "9.0.0",
		ModelType:    ModelTypeLinearRegression,
		FeatureKeys:  []string{"wrong_key"},
		Coefficients: map[string]float64{"wrong_key": 1},
	}
	raw, _ := json.Marshal(doc)
	os.WriteFile(filepath.Join(dir, "match.json"), raw, 0o644)
	r := newTestRegistry(t, dir, map[string]RegistryEntry{
		ModelDonorSeekerMatch: {ArtifactPath: "match.json", Version: "9.0.0"},
	})
	if _, err := r.Load(context.Background(), ModelDonorSeekerMatch, false); err == nil {
		t.Fatal("expected feature contract mismatch")
	}
}

func TestPredictMissingFeatureFails(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "match.json"), matchArtifact(), 0o644)
	r := newTestRegistry(t, dir, map[string]RegistryEntry{
		ModelDonorSeekerMatch: {ArtifactPath: "match.json", Version: "1.2.0"},
	})
	if _, _, err := r.Predict(context.Background(), ModelDonorSeekerMatch, map[string]float64{"distance_km": 1}); err == nil {
		t.Fatal("expected missing feature error")
	}
}

func TestUnloadAndList(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "match.json"), matchArtifact(), 0o644)
	r := newTestRegistry(t, dir, map[string]RegistryEntry{
		ModelDonorSeekerMatch: {ArtifactPath: "match.json", Version: "1.2.0"},
	})
	if _, err := r.Load(context.Background(), ModelDonorSeekerMatch, false); err != nil {
		t.Fatalf("load: %v", err)
	}
	infos := r.List()
	if len(infos) != 1 || !infos[0].Loaded {
		t.Fatalf("list = %#v", infos)
	}
	r.Unload(ModelDonorSeekerMatch)
	infos = r.List()
	if infos[0].Loaded {
		t.Fatal("model should be evicted")
	}
}
