// Package jobstore keeps uploaded workbooks and processed outputs under
// opaque identifiers with time-boxed retention.
package jobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind separates uploads from outputs; each has its own retention.
type Kind string

const (
	KindUpload Kind = "upload"
	KindOutput Kind = "output"
)

// ErrNotFound is returned for identifiers the store does not hold.
var ErrNotFound = errors.New("object not found")

// Object describes a stored file.
type Object struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Filename  string    `json:"filename"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Store persists uploads and outputs. Implementations are safe for
// concurrent use.
type Store interface {
	// Put stores the content of r under a new identifier.
	Put(ctx context.Context, kind Kind, filename string, r io.Reader) (Object, error)
	// Open returns the content of an object. The caller closes it.
	Open(ctx context.Context, kind Kind, id string) (io.ReadCloser, Object, error)
	// Stat returns an object's metadata.
	Stat(ctx context.Context, kind Kind, id string) (Object, error)
	// Sweep deletes every object whose expiry is before now and reports how
	// many were deleted.
	Sweep(ctx context.Context, now time.Time) (int, error)
}

// Retention is how long each kind of object is kept.
type Retention struct {
	Upload time.Duration
	Output time.Duration
}

// DefaultRetention keeps uploads for a day and outputs for two.
var DefaultRetention = Retention{Upload: 24 * time.Hour, Output: 48 * time.Hour}

// For returns the retention of kind.
func (r Retention) For(kind Kind) time.Duration {
	if kind == KindOutput {
		return r.Output
	}
	return r.Upload
}

type options struct {
	retention Retention
	now       func() time.Time
}

func defaultOptions() *options {
	return &options{retention: DefaultRetention, now: time.Now}
}

// Option configures a store.
type Option func(*options)

// WithRetention overrides DefaultRetention.
func WithRetention(r Retention) Option {
	return func(o *options) { o.retention = r }
}

// WithClock sets the time source used to stamp new objects.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func validKind(kind Kind) error {
	if kind != KindUpload && kind != KindOutput {
		return fmt.Errorf("unknown object kind %q", kind)
	}
	return nil
}

// validID reports whether id is a well-formed identifier. Anything else is
// treated as not found, which also keeps ids out of file paths.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil && !strings.ContainsAny(id, `/\`)
}

func newID() string {
	return uuid.NewString()
}

// cleanFilename keeps only the base name of a client-supplied file name.
func cleanFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	if name == "." || name == "/" || name == "" {
		return "file"
	}
	return name
}
