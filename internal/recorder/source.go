package recorder

import (
	"context"
	"os"

	"github.com/pkg/errors"
)

var (
	// ErrSourceUnavailable means the telemetry page could not be obtained at
	// all, typically because the simulation is not running. Retryable.
	ErrSourceUnavailable = errors.New("recorder: telemetry source unavailable")

	// ErrMalformedSnapshot means a page was read but does not match the
	// expected schema. The tick is discarded.
	ErrMalformedSnapshot = errors.New("recorder: malformed telemetry snapshot")
)

// TelemetrySource produces one Snapshot on demand. Implementations must honour
// ctx cancellation and classify failures as ErrSourceUnavailable or
// ErrMalformedSnapshot so the poller can react without terminating.
type TelemetrySource interface {
	Read(ctx context.Context) (Snapshot, error)
}

// FileSource reads the telemetry page exported by the simulation as a file
// (a shared memory region surfaced on the filesystem). A missing file is the
// normal state whenever the simulation is not running.
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (f *FileSource) Read(ctx context.Context) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, ErrSourceUnavailable
	}

	buf, err := os.ReadFile(f.path)

	if err != nil {
		return Snapshot{}, errors.Wrapf(ErrSourceUnavailable, "read %s: %v", f.path, err)
	}

	return DecodeSnapshot(buf)
}
