package jobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// DirStore keeps objects on the local file system as
// <root>/<kind>/<id>/<filename>. The file's modification time is its
// creation stamp.
type DirStore struct {
	root string
	opts *options
}

var _ Store = (*DirStore)(nil)

// NewDirStore creates the kind directories under root if needed.
func NewDirStore(root string, opts ...Option) (*DirStore, error) {
	for _, kind := range []Kind{KindUpload, KindOutput} {
		if err := os.MkdirAll(filepath.Join(root, string(kind)), 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}
	return &DirStore{root: root, opts: buildOptions(opts)}, nil
}

func (s *DirStore) objectDir(kind Kind, id string) string {
	return filepath.Join(s.root, string(kind), id)
}

func (s *DirStore) Put(ctx context.Context, kind Kind, filename string, r io.Reader) (Object, error) {
	if err := validKind(kind); err != nil {
		return Object{}, err
	}
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}
	id := newID()
	dir := s.objectDir(kind, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Object{}, fmt.Errorf("create object directory: %w", err)
	}
	name := cleanFilename(filename)
	path := filepath.Join(dir, name)

	tmp, err := os.CreateTemp(dir, ".put-*")
	if err != nil {
		os.RemoveAll(dir)
		return Object{}, fmt.Errorf("create object file: %w", err)
	}
	size, copyErr := io.Copy(tmp, r)
	closeErr := tmp.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		os.RemoveAll(dir)
		return Object{}, fmt.Errorf("write object: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.RemoveAll(dir)
		return Object{}, fmt.Errorf("commit object: %w", err)
	}

	created := s.opts.now()
	if err := os.Chtimes(path, created, created); err != nil {
		os.RemoveAll(dir)
		return Object{}, fmt.Errorf("stamp object: %w", err)
	}
	return s.object(kind, id, name, size, created), nil
}

func (s *DirStore) object(kind Kind, id, name string, size int64, created time.Time) Object {
	return Object{
		ID:        id,
		Kind:      kind,
		Filename:  name,
		Size:      size,
		CreatedAt: created,
		ExpiresAt: created.Add(s.opts.retention.For(kind)),
	}
}

// find locates the single file stored for an object.
func (s *DirStore) find(kind Kind, id string) (string, Object, error) {
	if validKind(kind) != nil || !validID(id) {
		return "", Object{}, ErrNotFound
	}
	dir := s.objectDir(kind, id)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return "", Object{}, ErrNotFound
	}
	if err != nil {
		return "", Object{}, fmt.Errorf("read object directory: %w", err)
	}
	for _, e := range entries {
		if !e.Type().IsRegular() || e.Name()[0] == '.' {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return "", Object{}, fmt.Errorf("stat object: %w", err)
		}
		path := filepath.Join(dir, e.Name())
		return path, s.object(kind, id, e.Name(), info.Size(), info.ModTime()), nil
	}
	return "", Object{}, ErrNotFound
}

func (s *DirStore) Open(ctx context.Context, kind Kind, id string) (io.ReadCloser, Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, Object{}, err
	}
	path, obj, err := s.find(kind, id)
	if err != nil {
		return nil, Object{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, Object{}, fmt.Errorf("open object: %w", err)
	}
	return f, obj, nil
}

func (s *DirStore) Stat(ctx context.Context, kind Kind, id string) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}
	_, obj, err := s.find(kind, id)
	return obj, err
}

func (s *DirStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	deleted := 0
	for _, kind := range []Kind{KindUpload, KindOutput} {
		entries, err := os.ReadDir(filepath.Join(s.root, string(kind)))
		if err != nil {
			return deleted, fmt.Errorf("list %s objects: %w", kind, err)
		}
		for _, e := range entries {
			if err := ctx.Err(); err != nil {
				return deleted, err
			}
			if !e.IsDir() {
				continue
			}
			_, obj, err := s.find(kind, e.Name())
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return deleted, err
			}
			if !obj.ExpiresAt.Before(now) {
				continue
			}
			if err := os.RemoveAll(s.objectDir(kind, obj.ID)); err != nil {
				return deleted, fmt.Errorf("delete %s %s: %w", kind, obj.ID, err)
			}
			deleted++
		}
	}
	return deleted, nil
}
