package ml

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/smartblood-kerala/smartblood-backend/internal/clients/hf"
	"github.com/smartblood-kerala/smartblood-backend/internal/features"
	"github.com/smartblood-kerala/smartblood-backend/internal/logger"
)

// Model names the registry knows the feature contract for. Artifacts for
// these names are validated against the builder's ordered key list at load.
const (
	ModelDonorSeekerMatch  = "donor_seeker_match"
	ModelDonorAvailability = "donor_availability"
	ModelDonorResponseTime = "donor_response_time"
)

var expectedFeatureKeys = map[string][]string{
	ModelDonorSeekerMatch:  features.MatchKeys,
	ModelDonorAvailability: features.AvailabilityKeys,
	ModelDonorResponseTime: features.ResponseTimeKeys,
}

type RegistryEntry struct {
	ArtifactPath string         `json:"artifact_path"`
	Version      string         `json:"version"`
	HFRepoID     string         `json:"hf_repo_id,omitempty"`
	HFFilename   string         `json:"hf_filename,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

type registryFile struct {
	Models map[string]RegistryEntry `json:"models"`
}

type ModelInfo struct {
	Name         string `json:"name"`
	Version      string `json:"version"`
	ArtifactPath string `json:"artifact_path"`
	Loaded       bool   `json:"loaded"`
}

type Config struct {
	ArtifactRoot string
	RegistryPath string
	RemoteToken  string
}

// Registry resolves model names to loaded predictors. It is an explicit
// component handle created at startup and passed to everything that needs
// predictions; there is no package-global instance.
//
// The mutex guards load, reload and eviction. Prediction calls run
// lock-free on cached predictors, which are immutable once loaded.
type Registry struct {
	log *logger.Logger
	cfg Config
	hub hf.Client

	mu      sync.Mutex
	entries map[string]RegistryEntry
	cache   map[string]Predictor
}

func NewRegistry(log *logger.Logger, cfg Config, hub hf.Client) *Registry {
	return &Registry{
		log:     log.With("component", "ModelRegistry"),
		cfg:     cfg,
		hub:     hub,
		entries: map[string]RegistryEntry{},
		cache:   map[string]Predictor{},
	}
}

// Initialize reads the registry file. Both the artifact root and the
// registry file must exist; anything else is a configuration error.
func (r *Registry) Initialize() error {
	if strings.TrimSpace(r.cfg.ArtifactRoot) == "" || strings.TrimSpace(r.cfg.RegistryPath) == "" {
		return fmt.Errorf("model registry: artifact root and registry path required")
	}
	if fi, err := os.Stat(r.cfg.ArtifactRoot); err != nil || !fi.IsDir() {
		return fmt.Errorf("model registry: artifact root %s not found", r.cfg.ArtifactRoot)
	}
	raw, err := os.ReadFile(r.cfg.RegistryPath)
	if err != nil {
		return fmt.Errorf("model registry: read %s: %w", r.cfg.RegistryPath, err)
	}
	var rf registryFile
	if err := json.Unmarshal(raw, &rf); err != nil {
		return fmt.Errorf("model registry: parse %s: %w", r.cfg.RegistryPath, err)
	}
	if len(rf.Models) == 0 {
		return fmt.Errorf("model registry: %s declares no models", r.cfg.RegistryPath)
	}

	r.mu.Lock()
	r.entries = rf.Models
	r.cache = map[string]Predictor{}
	r.mu.Unlock()

	r.log.Info("Model registry initialized", "models", len(rf.Models), "path", r.cfg.RegistryPath)
	return nil
}

// Load returns the cached predictor for name, loading the artifact on the
// first call or when force is set.
func (r *Registry) Load(ctx context.Context, name string, force bool) (Predictor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !force {
		if p, ok := r.cache[name]; ok {
			return p, nil
		}
	}

	entry, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("model %s not present in registry", name)
	}

	raw, err := r.resolveArtifact(ctx, name, entry)
	if err != nil {
		r.log.Error("Artifact load failed", "model", name, "error", err)
		return nil, err
	}
	p, err := decodePredictor(name, raw)
	if err != nil {
		r.log.Error("Artifact decode failed", "model", name, "error", err)
		return nil, err
	}
	if err := validateFeatureKeys(name, p.FeatureKeys()); err != nil {
		r.log.Error("Artifact feature contract mismatch", "model", name, "error", err)
		return nil, err
	}

	r.cache[name] = p
	r.log.Info("Model loaded", "model", name, "version", p.Version())
	return p, nil
}

func validateFeatureKeys(name string, got []string) error {
	want, ok := expectedFeatureKeys[name]
	if !ok {
		return nil
	}
	if len(got) != len(want) {
		return fmt.Errorf("model %s: artifact declares %d feature keys, builder produces %d", name, len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			return fmt.Errorf("model %s: feature key %d is %q, builder produces %q", name, i, got[i], want[i])
		}
	}
	return nil
}

// resolveArtifact implements the documented resolution order: explicit
// hub repo/filename entry fields, hf:// download, plain local file,
// gzipped file, split gzip parts.
func (r *Registry) resolveArtifact(ctx context.Context, name string, entry RegistryEntry) ([]byte, error) {
	if entry.HFRepoID != "" && entry.HFFilename != "" {
		return r.fetchRemote(ctx, name, entry.HFRepoID, entry.HFFilename)
	}

	path := strings.TrimSpace(entry.ArtifactPath)
	if path == "" {
		return nil, fmt.Errorf("model %s has empty artifact_path", name)
	}

	if strings.HasPrefix(path, "hf://") {
		repoID, filename, err := hf.ParseURI(path)
		if err != nil {
			return nil, err
		}
		return r.fetchRemote(ctx, name, repoID, filename)
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(r.cfg.ArtifactRoot, path)
	}

	if fileExists(path) {
		return os.ReadFile(path)
	}
	if fileExists(path + ".gz") {
		return readGzip(path + ".gz")
	}
	if parts, _ := filepath.Glob(path + ".gz.part*"); len(parts) > 0 {
		return readSplitGzip(path + ".gz")
	}
	return nil, fmt.Errorf("artifact not found for model %s at %s", name, path)
}

func fileExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}

func (r *Registry) fetchRemote(ctx context.Context, name, repoID, filename string) ([]byte, error) {
	if r.hub == nil {
		return nil, fmt.Errorf("model %s requires remote fetch but no hub client configured", name)
	}
	dest, err := r.hub.Download(ctx, repoID, filename, filepath.Join(r.cfg.ArtifactRoot, "remote"))
	if err != nil {
		return nil, fmt.Errorf("remote artifact fetch for %s: %w", name, err)
	}
	if strings.HasSuffix(dest, ".gz") {
		return readGzip(dest)
	}
	return os.ReadFile(dest)
}

func readGzip(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

// readSplitGzip concatenates <path>.part* files in lexical order and
// gunzips the result. Lexical order is stable across machines.
func readSplitGzip(path string) ([]byte, error) {
	parts, err := filepath.Glob(path + ".part*")
	if err != nil {
		return nil, err
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("no split parts for %s", path)
	}
	sort.Strings(parts)

	var joined []byte
	for _, part := range parts {
		chunk, err := os.ReadFile(part)
		if err != nil {
			return nil, err
		}
		joined = append(joined, chunk...)
	}
	zr, err := gzip.NewReader(strings.NewReader(string(joined)))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

// Predict runs a point prediction and reports inference time in ms.
func (r *Registry) Predict(ctx context.Context, name string, feats map[string]float64) (float64, float64, error) {
	p, err := r.Load(ctx, name, false)
	if err != nil {
		return 0, 0, err
	}
	start := time.Now()
	out, err := p.Predict(feats)
	elapsed := float64(time.Since(start).Microseconds()) / 1000
	if err != nil {
		return 0, elapsed, err
	}
	return out, elapsed, nil
}

// PredictProba runs a probability prediction; models without the capability
// return ErrNoProbability.
func (r *Registry) PredictProba(ctx context.Context, name string, feats map[string]float64) ([]float64, float64, error) {
	p, err := r.Load(ctx, name, false)
	if err != nil {
		return nil, 0, err
	}
	pp, ok := p.(ProbabilityPredictor)
	if !ok {
		return nil, 0, fmt.Errorf("model %s: %w", name, ErrNoProbability)
	}
	start := time.Now()
	probs, err := pp.PredictProba(feats)
	elapsed := float64(time.Since(start).Microseconds()) / 1000
	if err != nil {
		return nil, elapsed, err
	}
	return probs, elapsed, nil
}

func (r *Registry) Reload(ctx context.Context, name string) error {
	_, err := r.Load(ctx, name, true)
	return err
}

func (r *Registry) ReloadAll(ctx context.Context) error {
	r.mu.Lock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	r.mu.Unlock()

	sort.Strings(names)
	for _, name := range names {
		if err := r.Reload(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) Unload(name string) {
	r.mu.Lock()
	delete(r.cache, name)
	r.mu.Unlock()
}

func (r *Registry) List() []ModelInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]ModelInfo, 0, len(r.entries))
	for name, entry := range r.entries {
		info := ModelInfo{
			Name:         name,
			Version:      entry.Version,
			ArtifactPath: entry.ArtifactPath,
		}
		if p, ok := r.cache[name]; ok {
			info.Loaded = true
			info.Version = p.Version()
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Version reports the loaded version for a model, or the registry entry's
// declared version when not yet loaded.
func (r *Registry) Version(name string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.cache[name]; ok {
		return p.Version()
	}
	if e, ok := r.entries[name]; ok {
		return e.Version
	}
	return ""
}
