package artwork

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/jfmyers9/tunecord/internal/player"
)

// MaxFileSize is the largest local image that will be uploaded
const MaxFileSize = 10 << 20

// Uploader sends image bytes to a hosting service and returns a public URL
type Uploader interface {
	Upload(ctx context.Context, name string, data []byte) (string, error)
}

// Store persists resolved uploads. *Cache implements it.
type Store interface {
	Get(ctx context.Context, path string) (Entry, bool, error)
	Put(ctx context.Context, e Entry) error
	Delete(ctx context.Context, path string) error
}

// Options controls how local images are prepared before upload
type Options struct {
	Resize bool
	Width  int
	Height int
}

func (o Options) dims() (int, int) {
	if !o.Resize {
		return 0, 0
	}
	return o.Width, o.Height
}

// Resolver turns track art references into URLs the presence client can show
type Resolver struct {
	store    Store
	uploader Uploader
	group    singleflight.Group
	logger   zerolog.Logger
}

// NewResolver creates a resolver. It is the only writer of store.
func NewResolver(store Store, uploader Uploader, logger zerolog.Logger) *Resolver {
	return &Resolver{
		store:    store,
		uploader: uploader,
		logger:   logger.With().Str("component", "artwork").Logger(),
	}
}

// Resolve returns the URL for ref. Remote URLs pass through untouched and an
// absent reference yields "". Local files are resized, uploaded and cached
// by path and fingerprint; failures are returned as *ResolveError.
func (r *Resolver) Resolve(ctx context.Context, ref player.ArtRef, opts Options) (string, error) {
	switch ref.Kind {
	case player.ArtRemote:
		return ref.Location, nil
	case player.ArtLocal:
	default:
		return "", nil
	}

	path := filepath.Clean(ref.Location)
	info, err := os.Stat(path)
	if err != nil {
		return "", &ResolveError{Op: "read", Path: path, Err: err}
	}
	if info.IsDir() {
		return "", &ResolveError{Op: "read", Path: path, Err: fmt.Errorf("is a directory")}
	}
	if info.Size() > MaxFileSize {
		return "", &ResolveError{
			Op:   "read",
			Path: path,
			Err:  fmt.Errorf("%w: file is %d bytes, limit is %d", ErrUpload, info.Size(), MaxFileSize),
		}
	}
	fp := fingerprint(info)

	if url, ok := r.lookup(ctx, path, fp, opts); ok {
		return url, nil
	}

	w, h := opts.dims()
	key := fmt.Sprintf("%s|%s|%dx%d", path, fp, w, h)
	// The shared upload must outlive any single waiter.
	flightCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(key, func() (interface{}, error) {
		if url, ok := r.lookup(flightCtx, path, fp, opts); ok {
			return url, nil
		}
		return r.upload(flightCtx, path, fp, opts)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// lookup returns a cached URL for a matching entry, discarding stale ones.
func (r *Resolver) lookup(ctx context.Context, path, fp string, opts Options) (string, bool) {
	entry, ok, err := r.store.Get(ctx, path)
	if err != nil {
		r.logger.Warn().Err(err).Str("path", path).Msg("Cover art cache lookup failed")
		return "", false
	}
	if !ok {
		return "", false
	}

	w, h := opts.dims()
	if entry.Fingerprint == fp && entry.Width == w && entry.Height == h {
		r.logger.Debug().Str("path", path).Msg("Cover art cache hit")
		return entry.URL, true
	}

	r.logger.Debug().
		Str("path", path).
		Str("cached", entry.Fingerprint).
		Str("current", fp).
		Msg("Discarding stale cover art entry")
	if err := r.store.Delete(ctx, path); err != nil {
		r.logger.Warn().Err(err).Str("path", path).Msg("Failed to delete stale cover art entry")
	}
	return "", false
}

func (r *Resolver) upload(ctx context.Context, path, fp string, opts Options) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", &ResolveError{Op: "read", Path: path, Err: err}
	}

	name := filepath.Base(path)
	if opts.Resize {
		data, err = Resize(data, opts.Width, opts.Height)
		if err != nil {
			return "", &ResolveError{Op: "resize", Path: path, Err: fmt.Errorf("%w: %v", ErrResize, err)}
		}
		name = strings.TrimSuffix(name, filepath.Ext(name)) + ".jpg"
	}

	url, err := r.uploader.Upload(ctx, name, data)
	if err != nil {
		return "", &ResolveError{Op: "upload", Path: path, Err: fmt.Errorf("%w: %v", ErrUpload, err)}
	}

	// A file replaced mid-upload has a newer flight of its own, whose
	// entry must not be overwritten by this one.
	if info, err := os.Stat(path); err != nil || fingerprint(info) != fp {
		r.logger.Debug().Str("path", path).Msg("Cover art changed during upload, not caching")
	} else {
		w, h := opts.dims()
		if err := r.store.Put(ctx, Entry{Path: path, Fingerprint: fp, URL: url, Width: w, Height: h}); err != nil {
			r.logger.Warn().Err(err).Str("path", path).Msg("Failed to cache cover art upload")
		}
	}

	r.logger.Info().
		Str("path", path).
		Str("url", url).
		Int("bytes", len(data)).
		Msg("Uploaded cover art")
	return url, nil
}

func fingerprint(info os.FileInfo) string {
	return fmt.Sprintf("%d-%d", info.ModTime().UnixNano(), info.Size())
}
