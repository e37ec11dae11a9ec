// Package attachment turns the file references of a scheduled job into
// attachment bytes read from the object store.
package attachment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/portmail/portmail/internal/jobs"
	"github.com/portmail/portmail/pkg/cache"
	"github.com/portmail/portmail/pkg/storage"
)

const (
	// DefaultFilename names an attachment whose reference yields no usable name.
	DefaultFilename = "attachment"

	defaultCacheTTL = 10 * time.Minute
)

var (
	// ErrUnresolvable is returned for empty or malformed references. The
	// object store is not contacted.
	ErrUnresolvable = errors.New("attachment: unresolvable reference")

	ErrNotFound = errors.New("attachment: file not found")
	ErrFetch    = errors.New("attachment: fetch failed")
)

// Ref is one file reference of a job.
type Ref struct {
	Path string
	Name string
}

// File is a resolved attachment.
type File struct {
	Name        string
	ContentType string
	Content     []byte
}

// Refs lists the references of j in send order. Jobs with an attachment list
// use it as-is. Older jobs fall back to the single-file columns: the first
// display name pairs with file_path and every further name has no path.
func Refs(j *jobs.Job) []Ref {
	if len(j.Attachments) > 0 {
		refs := make([]Ref, 0, len(j.Attachments))
		for _, a := range j.Attachments {
			refs = append(refs, Ref{Path: a.Path, Name: a.Name})
		}
		return refs
	}

	names := j.DisplayNames()
	if len(names) == 0 {
		if strings.TrimSpace(j.FilePath) == "" {
			return nil
		}
		return []Ref{{Path: j.FilePath}}
	}

	refs := make([]Ref, 0, len(names))
	refs = append(refs, Ref{Path: j.FilePath, Name: names[0]})
	for _, n := range names[1:] {
		refs = append(refs, Ref{Name: n})
	}
	return refs
}

// Filename returns the display name of ref, falling back to the last path
// segment and then to DefaultFilename.
func Filename(ref Ref) string {
	if n := strings.TrimSpace(ref.Name); n != "" {
		return n
	}
	if n := storage.BaseName(ref.Path); n != "" && n != "." && n != ".." {
		return n
	}
	return DefaultFilename
}

// Resolver reads attachment bytes from an object store.
type Resolver struct {
	store   storage.Storage
	loader  *cache.Loader[[]byte]
	ttl     time.Duration
	maxSize int64
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithCache keeps fetched bytes in c for ttl, so a file shared by many jobs in
// one sweep is downloaded once.
func WithCache(c cache.Cache[[]byte], ttl time.Duration) Option {
	return func(r *Resolver) {
		if c == nil {
			return
		}
		r.loader = cache.NewLoader(c)
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithMaxSize bounds a single attachment. Larger objects fail to resolve.
func WithMaxSize(n int64) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.maxSize = n
		}
	}
}

// NewResolver creates a resolver over store.
func NewResolver(store storage.Storage, opts ...Option) *Resolver {
	r := &Resolver{
		store:   store,
		loader:  cache.NewLoader[[]byte](nil),
		ttl:     defaultCacheTTL,
		maxSize: storage.DefaultMaxObjectSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve fetches the bytes behind ref.
func (r *Resolver) Resolve(ctx context.Context, ref Ref) (File, error) {
	key, err := storage.CleanKey(ref.Path)
	if err != nil {
		return File{}, fmt.Errorf("%w: %q", ErrUnresolvable, ref.Path)
	}

	data, err := r.loader.Load(ctx, key, func(ctx context.Context) ([]byte, time.Duration, error) {
		data, err := storage.ReadAll(ctx, r.store, key, r.maxSize)
		return data, r.ttl, err
	})
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return File{}, fmt.Errorf("%w: %s", ErrNotFound, key)
		case errors.Is(err, storage.ErrInvalidKey):
			return File{}, fmt.Errorf("%w: %q", ErrUnresolvable, key)
		default:
			return File{}, fmt.Errorf("%w: %s: %w", ErrFetch, key, err)
		}
	}

	return File{
		Name:        Filename(ref),
		ContentType: storage.DetectContentType(data),
		Content:     data,
	}, nil
}
