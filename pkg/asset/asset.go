// Package asset defines the asset source contract and a cached filesystem
// implementation.
package asset

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no asset exists for a key.
var ErrNotFound = errors.New("asset not found")

// Sprite is an image the host can place on a layer or a character.
type Sprite struct {
	Key  string
	Path string
	Data []byte
}

// Sound is an audio clip.
type Sound struct {
	Key  string
	Path string
	Data []byte
}

// Source loads script text, sprites and sounds by key. Calls block until the
// asset is available or ctx is done.
type Source interface {
	Text(ctx context.Context, key string) (string, error)
	Sprite(ctx context.Context, key string) (*Sprite, error)
	Sound(ctx context.Context, key string) (*Sound, error)
}
