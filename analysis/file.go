package analysis

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/blake2b"

	"github.com/opd-ai/audioanalysis/timeline"
)

// Extension is the file extension of written artifacts.
const Extension = ".audio.json"

// PathItem identifies one audio item of a playlist.
type PathItem struct {
	Digest   string
	Position timeline.Time
	Trim     timeline.Time
	Gain     float64
}

// Path returns where the analysis of items, given in playlist order, is
// stored under dir. Gain is part of the key only when there is more than one
// item; a single item's analysis is corrected for gain when it is read.
func Path(dir string, items []PathItem) string {
	h, _ := blake2b.New256(nil) // only fails for oversized keys
	for _, it := range items {
		fmt.Fprintf(h, "%s\x00%d\x00%d\x00", it.Digest, int64(it.Position), int64(it.Trim))
		if len(items) > 1 {
			fmt.Fprintf(h, "%s\x00", strconv.FormatFloat(it.Gain, 'g', -1, 64))
		}
	}
	return filepath.Join(dir, hex.EncodeToString(h.Sum(nil))+Extension)
}

// Write stores the analysis at path. The data is written to a temporary file
// in the same directory and renamed into place, so on failure nothing is left
// at path.
func (a *AudioAnalysis) Write(path string) error {
	logrus.WithFields(logrus.Fields{
		"function": "AudioAnalysis.Write",
		"path":     path,
		"channels": a.Channels(),
	}).Info("Writing audio analysis")

	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode analysis: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create analysis directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync temporary file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temporary file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		logrus.WithFields(logrus.Fields{
			"function": "AudioAnalysis.Write",
			"path":     path,
			"error":    err.Error(),
		}).Error("Failed to move analysis into place")
		return fmt.Errorf("failed to rename file: %w", err)
	}

	return nil
}

// Read loads an analysis written by Write.
func Read(path string) (*AudioAnalysis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read analysis: %w", err)
	}
	var a AudioAnalysis
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("failed to decode analysis %s: %w", path, err)
	}
	return &a, nil
}

// FileWriter persists analyses to the local filesystem.
type FileWriter struct{}

// Write implements interfaces.ArtifactWriter.
func (FileWriter) Write(a *AudioAnalysis, path string) error {
	return a.Write(path)
}
