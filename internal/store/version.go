package store

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/natefinch/atomic"
)

// versionMarker persists the current schema version outside the relational
// file, in a sidecar next to the database. Keeping it out of the database
// means a file rebootstrapped from a stale template does not reset the
// version. In-memory databases keep the marker in process memory.
type versionMarker struct {
	path string
	mem  int
}

func newVersionMarker(dbPath string) *versionMarker {
	if dbPath == MemoryDSN {
		return &versionMarker{}
	}
	return &versionMarker{path: dbPath + ".version"}
}

// read returns the persisted version, defaulting to 0 when the marker is
// absent.
func (m *versionMarker) read() (int, error) {
	if m.path == "" {
		return m.mem, nil
	}
	raw, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read version marker: %w", err)
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return 0, fmt.Errorf("parse version marker %q: %w", raw, err)
	}
	return v, nil
}

func (m *versionMarker) write(v int) error {
	if m.path == "" {
		m.mem = v
		return nil
	}
	if err := atomic.WriteFile(m.path, strings.NewReader(strconv.Itoa(v))); err != nil {
		return fmt.Errorf("write version marker: %w", err)
	}
	return nil
}
