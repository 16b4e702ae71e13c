package export

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ironsheep/object-metrics/internal/config"
	"github.com/ironsheep/object-metrics/internal/pipeline"
)

// ManifestPath returns where the manifest for root is written.
func ManifestPath(root, outDir string) string {
	return OutputPath(root, outDir, ".yaml")
}

// Manifest records how a table was produced and which images it left out.
type Manifest struct {
	Version     string         `yaml:"version"`
	Root        string         `yaml:"root"`
	CSV         string         `yaml:"csv"`
	Strategy    string         `yaml:"strategy"`
	Chain       string         `yaml:"chain"`
	Backend     string         `yaml:"backend"`
	Diagnostics string         `yaml:"diagnostics"`
	Ceiling     int            `yaml:"ceiling"`
	Workers     int            `yaml:"workers"`
	Started     time.Time      `yaml:"started"`
	Finished    time.Time      `yaml:"finished"`
	Candidates  int            `yaml:"candidates"`
	Opened      int            `yaml:"opened"`
	Counts      map[string]int `yaml:"counts"`
	Skipped     []SkippedImage `yaml:"skipped,omitempty"`
}

// SkippedImage is an opened image that produced no row.
type SkippedImage struct {
	Path    string `yaml:"path"`
	Outcome string `yaml:"outcome"`
	Reason  string `yaml:"reason"`
}

// NewManifest describes report, produced with cfg, whose table was written to
// csvPath.
func NewManifest(version string, cfg config.Config, report *pipeline.Report, csvPath string) Manifest {
	m := Manifest{
		Version:     version,
		Root:        report.Root,
		CSV:         csvPath,
		Strategy:    cfg.Strategy.String(),
		Chain:       cfg.Chain.String(),
		Backend:     string(cfg.Backend),
		Diagnostics: cfg.Diagnostics.String(),
		Ceiling:     cfg.Ceiling(),
		Workers:     cfg.Workers,
		Started:     report.Started.UTC(),
		Finished:    report.Finished.UTC(),
		Candidates:  report.Candidates,
		Opened:      report.Opened,
		Counts:      make(map[string]int, len(pipeline.Kinds)),
	}
	for _, k := range pipeline.Kinds {
		m.Counts[string(k)] = report.Counts[k]
	}
	for _, o := range report.Skipped() {
		m.Skipped = append(m.Skipped, SkippedImage{
			Path:    o.Path(),
			Outcome: string(o.Kind()),
			Reason:  pipeline.Reason(o),
		})
	}
	return m
}

// WriteManifest saves m as YAML at path.
func WriteManifest(path string, m Manifest) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// ReadManifest loads a manifest written by WriteManifest.
func ReadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return m, nil
}
