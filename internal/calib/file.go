package calib

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// fileEntry is the on-disk form of one calibration: a row-major 3x3
// rotation and a translation in metres.
type fileEntry struct {
	Rotation    [9]float64 `json:"rotation"`
	Translation [3]float64 `json:"translation"`
}

// LoadFile merges calibrations from a JSON file into the registry. The
// file maps calibration keys to {rotation, translation} entries and may
// override built-in keys. Rotations are validated before any entry is
// added, so a bad file leaves the registry untouched.
func LoadFile(reg Registry, path string) error {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return fmt.Errorf("calib: calibration file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return fmt.Errorf("calib: stat calibration file: %w", err)
	}
	const maxFileSize = 1 << 20
	if info.Size() > maxFileSize {
		return fmt.Errorf("calib: calibration file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return fmt.Errorf("calib: read calibration file: %w", err)
	}

	var entries map[string]fileEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("calib: parse calibration file: %w", err)
	}

	parsed := make(map[string]Extrinsic, len(entries))
	for key, entry := range entries {
		rot := mat.NewDense(3, 3, entry.Rotation[:])
		e, err := NewExtrinsic(rot, r3.Vec{
			X: entry.Translation[0],
			Y: entry.Translation[1],
			Z: entry.Translation[2],
		})
		if err != nil {
			return fmt.Errorf("calib: entry %q: %w", key, err)
		}
		parsed[key] = e
	}
	for key, e := range parsed {
		reg.Add(key, e)
	}
	return nil
}
