package photo

import (
	"bytes"
	"context"
	"path"

	"github.com/meetz/fansession/internal/client"
	"github.com/meetz/fansession/internal/storage"
)

// Sink delivers an encoded photo.
type Sink interface {
	Name() string
	Put(ctx context.Context, name string, data []byte) error
}

// HTTPSink uploads to the meetz backend.
type HTTPSink struct {
	Client *client.HTTPClient
	Path   string
}

func (s HTTPSink) Name() string { return "http" }

func (s HTTPSink) Put(ctx context.Context, name string, data []byte) error {
	return s.Client.UploadPhoto(ctx, s.Path, name, data)
}

// StorageSink writes into a Storage under Prefix.
type StorageSink struct {
	Storage storage.Storage
	Prefix  string
	Label   string
}

func (s StorageSink) Name() string {
	if s.Label != "" {
		return s.Label
	}
	return "storage"
}

func (s StorageSink) Put(ctx context.Context, name string, data []byte) error {
	return s.Storage.Write(ctx, path.Join(s.Prefix, name), bytes.NewReader(data), int64(len(data)), "image/jpeg")
}
