package recorder

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
)

func TestFileSourceMissingFileIsUnavailable(t *testing.T) {
	source := NewFileSource(filepath.Join(t.TempDir(), "missing_page"))

	_, err := source.Read(context.Background())

	if !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("Expected ErrSourceUnavailable for a missing page, got: %v", err)
	}
}

func TestFileSourceReadsValidPage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telemetry_page")
	snapshot := testSnapshot(3, 1)

	if err := os.WriteFile(path, EncodeSnapshot(snapshot), 0644); err != nil {
		t.Fatalf("Could not write test page: %s", err)
	}

	source := NewFileSource(path)

	read, err := source.Read(context.Background())

	if err != nil {
		t.Fatalf("Expected a valid read, got: %s", err)
	}

	if read != snapshot {
		t.Errorf("Expected %+v, got %+v", snapshot, read)
	}
}

func TestFileSourceRejectsTruncatedPage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telemetry_page")

	if err := os.WriteFile(path, make([]byte, SnapshotSchemaSize/2), 0644); err != nil {
		t.Fatalf("Could not write test page: %s", err)
	}

	source := NewFileSource(path)

	_, err := source.Read(context.Background())

	if !errors.Is(err, ErrMalformedSnapshot) {
		t.Errorf("Expected ErrMalformedSnapshot for a truncated page, got: %v", err)
	}
}

func TestFileSourceHonoursCancelledContext(t *testing.T) {
	source := NewFileSource("/dev/null")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := source.Read(ctx)

	if !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("Expected ErrSourceUnavailable on a cancelled context, got: %v", err)
	}
}
