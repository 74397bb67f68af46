package asset

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

var (
	scriptExts = []string{"", ".dlg", ".tsv", ".txt"}
	spriteExts = []string{"", ".png", ".jpg", ".jpeg", ".webp"}
	soundExts  = []string{"", ".ogg", ".wav", ".mp3"}
)

// FileSource reads assets from a directory tree laid out as
// scripts/, sprites/ and sounds/. Sprites and sounds are cached per key and
// concurrent loads of one key share a single read.
type FileSource struct {
	fsys   fs.FS
	logger *slog.Logger

	group   singleflight.Group
	mu      sync.RWMutex
	sprites map[string]*Sprite
	sounds  map[string]*Sound
	reads   atomic.Int64
}

// Ensure FileSource implements Source
var _ Source = (*FileSource)(nil)

// NewFileSource creates a source rooted at dir.
func NewFileSource(dir string, logger *slog.Logger) *FileSource {
	return NewFSSource(os.DirFS(dir), logger)
}

// NewFSSource creates a source over any fs.FS.
func NewFSSource(fsys fs.FS, logger *slog.Logger) *FileSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileSource{
		fsys:    fsys,
		logger:  logger,
		sprites: make(map[string]*Sprite),
		sounds:  make(map[string]*Sound),
	}
}

// Text reads a script. Scripts are not cached so edits are picked up.
func (f *FileSource) Text(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, path, err := f.read("scripts", key, scriptExts)
	if err != nil {
		return "", err
	}
	f.logger.Debug("Loaded script", "key", key, "path", path)
	return string(data), nil
}

// Sprite returns the cached sprite for key, loading it on first use.
func (f *FileSource) Sprite(ctx context.Context, key string) (*Sprite, error) {
	f.mu.RLock()
	s, ok := f.sprites[key]
	f.mu.RUnlock()
	if ok {
		return s, nil
	}

	v, err := f.load(ctx, "sprite:"+key, func() (any, error) {
		f.mu.RLock()
		cached, ok := f.sprites[key]
		f.mu.RUnlock()
		if ok {
			return cached, nil
		}
		data, path, err := f.read("sprites", key, spriteExts)
		if err != nil {
			return nil, err
		}
		s := &Sprite{Key: key, Path: path, Data: data}
		f.mu.Lock()
		f.sprites[key] = s
		f.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Sprite), nil
}

// Sound returns the cached sound for key, loading it on first use.
func (f *FileSource) Sound(ctx context.Context, key string) (*Sound, error) {
	f.mu.RLock()
	s, ok := f.sounds[key]
	f.mu.RUnlock()
	if ok {
		return s, nil
	}

	v, err := f.load(ctx, "sound:"+key, func() (any, error) {
		f.mu.RLock()
		cached, ok := f.sounds[key]
		f.mu.RUnlock()
		if ok {
			return cached, nil
		}
		data, path, err := f.read("sounds", key, soundExts)
		if err != nil {
			return nil, err
		}
		s := &Sound{Key: key, Path: path, Data: data}
		f.mu.Lock()
		f.sounds[key] = s
		f.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Sound), nil
}

// Reads reports how many files have been read from disk.
func (f *FileSource) Reads() int64 {
	return f.reads.Load()
}

func (f *FileSource) load(ctx context.Context, key string, fn func() (any, error)) (any, error) {
	ch := f.group.DoChan(key, fn)
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.Val, res.Err
	}
}

func (f *FileSource) read(dir, key string, exts []string) ([]byte, string, error) {
	for _, ext := range exts {
		path := filepath.ToSlash(filepath.Join(dir, key+ext))
		data, err := fs.ReadFile(f.fsys, path)
		if err == nil {
			f.reads.Add(1)
			return data, path, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			f.logger.Error("Failed to read asset", "path", path, "error", err)
			return nil, "", fmt.Errorf("failed to read %s: %w", path, err)
		}
	}
	return nil, "", fmt.Errorf("%w: %s/%s", ErrNotFound, dir, key)
}
