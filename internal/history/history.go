// Package history persists benchmark suite reports across runs so
// results can be compared over time.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"

	"github.com/carbonlab/perfbench/internal/output"
)

const bucketRuns = "runs"

// Store keeps suite reports in a bolt database keyed by run ID. Run IDs
// are ULIDs, so lexicographic key order is chronological order.
type Store struct {
	db *bbolt.DB
}

// DefaultPath returns the history database location under the user's
// home directory.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".perfbench", "history.db"), nil
}

// Open opens (creating if necessary) the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}

	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketRuns))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close releases the database file.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Save records a completed suite run.
func (s *Store) Save(report output.SuiteReport) error {
	if report.RunID == "" {
		return fmt.Errorf("report has no run ID")
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketRuns))
		data, err := json.Marshal(report)
		if err != nil {
			return err
		}
		return b.Put([]byte(report.RunID), data)
	})
}

// Recent returns up to n reports, newest first.
func (s *Store) Recent(n int) ([]output.SuiteReport, error) {
	var reports []output.SuiteReport
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(bucketRuns)).Cursor()
		for k, v := c.Last(); k != nil && len(reports) < n; k, v = c.Prev() {
			var report output.SuiteReport
			if err := json.Unmarshal(v, &report); err != nil {
				return fmt.Errorf("decode run %s: %w", k, err)
			}
			reports = append(reports, report)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reports, nil
}

// Last returns the most recent report, or false when the store is empty.
func (s *Store) Last() (output.SuiteReport, bool, error) {
	reports, err := s.Recent(1)
	if err != nil || len(reports) == 0 {
		return output.SuiteReport{}, false, err
	}
	return reports[0], true, nil
}

// Get looks up a run by ID.
func (s *Store) Get(runID string) (output.SuiteReport, error) {
	var report output.SuiteReport
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(bucketRuns)).Get([]byte(runID))
		if v == nil {
			return fmt.Errorf("run %s not found", runID)
		}
		return json.Unmarshal(v, &report)
	})
	return report, err
}
