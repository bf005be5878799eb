package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ExportJSON writes the suite report to a timestamped file in dir and
// returns the file path. A sibling lock file serializes writers so
// concurrent benchmark invocations sharing an export directory cannot
// interleave output.
func ExportJSON(dir string, report SuiteReport) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	filename := fmt.Sprintf("performance_report_%s.json", report.StartedAt.Format("20060102_150405"))
	path := filepath.Join(dir, filename)

	lock := flock.New(filepath.Join(dir, ".perfbench.lock"))
	if err := lock.Lock(); err != nil {
		return "", fmt.Errorf("acquire export lock: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

// WriteJSON streams the report as indented JSON, for --json mode.
func WriteJSON(w io.Writer, report SuiteReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
