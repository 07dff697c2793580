package harness

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ScenarioDirNotFoundError is returned when a scenario directory doesn't
// exist.
type ScenarioDirNotFoundError struct {
	Dir string
}

// Error implements the error interface.
func (e *ScenarioDirNotFoundError) Error() string {
	return fmt.Sprintf("scenario directory %q does not exist", e.Dir)
}

// FindScenarios returns the YAML scenario files under dir in lexical
// order. A non-empty filter is a glob matched against file names without
// extension. Files under golden/ directories are skipped.
func FindScenarios(dir, filter string) ([]string, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, &ScenarioDirNotFoundError{Dir: dir}
	}
	if filter != "" {
		if _, err := filepath.Match(filter, "scenario"); err != nil {
			return nil, fmt.Errorf("invalid filter pattern: %w", err)
		}
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "golden" && path != dir {
				return filepath.SkipDir
			}
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			name := strings.TrimSuffix(d.Name(), ext)
			if matched, _ := filepath.Match(filter, name); !matched {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	return files, err
}

// GoldenPath returns the golden file of a scenario file:
// {dir}/golden/{name}.golden.
func GoldenPath(scenarioFile string) string {
	dir := filepath.Dir(scenarioFile)
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "golden", name+".golden")
}

// WriteGolden writes the snapshot of result as the golden file of
// scenarioFile.
func WriteGolden(scenarioFile string, scenario *Scenario, result *Result) error {
	data, err := NewSnapshot(scenario.Name, result).MarshalCanonical()
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	path := GoldenPath(scenarioFile)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

// CompareGolden reports whether the snapshot of result matches the golden
// file of scenarioFile. Missing golden files report ok=false with
// exists=false.
func CompareGolden(scenarioFile string, scenario *Scenario, result *Result) (ok, exists bool, err error) {
	golden, err := os.ReadFile(GoldenPath(scenarioFile))
	if os.IsNotExist(err) {
		return false, false, nil
	}
	if err != nil {
		return false, true, fmt.Errorf("failed to read golden file: %w", err)
	}

	current, err := NewSnapshot(scenario.Name, result).MarshalCanonical()
	if err != nil {
		return false, true, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return bytes.Equal(bytes.TrimSpace(golden), current), true, nil
}
