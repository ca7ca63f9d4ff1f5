package journal

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ManifestFile is the manifest's file name inside an artifact directory.
const ManifestFile = "manifest.yaml"

// Manifest records content hashes of each stage's output so two runs can be
// compared for exact parity.
type Manifest struct {
	RunID      string `yaml:"run_id"`
	BarsHash   string `yaml:"bars_hash"`
	IntentHash string `yaml:"intent_hash"`
	FillsHash  string `yaml:"fills_hash"`
	TradesHash string `yaml:"trades_hash"`
}

// HashFile returns the hex SHA-256 of a file's contents.
func HashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	defer file.Close()

	h := sha256.New()
	if _, err := io.Copy(h, file); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// BuildManifest hashes the artifacts in dir. barsPath is the input bar file
// the run consumed; it participates so bar-data drift is visible too.
func BuildManifest(runID, dir, barsPath string) (Manifest, error) {
	m := Manifest{RunID: runID}

	var err error
	if barsPath != "" {
		if m.BarsHash, err = HashFile(barsPath); err != nil {
			return m, err
		}
	}
	if m.IntentHash, err = HashFile(filepath.Join(dir, IntentsFile)); err != nil {
		return m, err
	}
	if m.FillsHash, err = HashFile(filepath.Join(dir, FillsFile)); err != nil {
		return m, err
	}
	if m.TradesHash, err = HashFile(filepath.Join(dir, TradesFile)); err != nil {
		return m, err
	}
	return m, nil
}

// Write stores the manifest as YAML inside dir.
func (m Manifest) Write(dir string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, ManifestFile), data, 0o644)
}
