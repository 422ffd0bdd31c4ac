// Package compress provides precompression stages: "gzip", "brotli" and
// "zstd" emit the compressed artifact under the original path plus ".gz",
// ".br" or ".zst".
package compress

import (
	"bytes"
	"context"
	"fmt"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/vk/assetgraph/internal/asset"
	"github.com/vk/assetgraph/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// OnGzip is the handler for the 'gzip' stage. The "level" option takes
// the gzip levels 1 (fastest) to 9 (best). The header carries no name or
// modification time, so equal input gives equal output.
func OnGzip(ctx context.Context, in *registry.StageInput) (*asset.Artifact, error) {
	level, err := in.Options.Int("level", gzip.BestCompression)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, fmt.Errorf("invalid gzip level %d: %w", level, err)
	}
	if _, err := w.Write(in.Artifact.Data); err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}
	return compressed(in.Artifact, buf.Bytes(), ".gz"), nil
}

// OnBrotli is the handler for the 'brotli' stage. The "level" option takes
// the brotli qualities 0 (fastest) to 11 (best).
func OnBrotli(ctx context.Context, in *registry.StageInput) (*asset.Artifact, error) {
	level, err := in.Options.Int("level", brotli.BestCompression)
	if err != nil {
		return nil, err
	}
	if level < brotli.BestSpeed || level > brotli.BestCompression {
		return nil, fmt.Errorf("invalid brotli level %d: must be between %d and %d", level, brotli.BestSpeed, brotli.BestCompression)
	}

	var buf bytes.Buffer
	w := brotli.NewWriterLevel(&buf, level)
	if _, err := w.Write(in.Artifact.Data); err != nil {
		return nil, fmt.Errorf("brotli: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("brotli: %w", err)
	}
	return compressed(in.Artifact, buf.Bytes(), ".br"), nil
}

// OnZstd is the handler for the 'zstd' stage. The "level" option is one of
// "fastest", "default", "better" or "best".
func OnZstd(ctx context.Context, in *registry.StageInput) (*asset.Artifact, error) {
	name, err := in.Options.String("level", "best")
	if err != nil {
		return nil, err
	}
	ok, level := zstd.EncoderLevelFromString(name)
	if !ok {
		return nil, fmt.Errorf("unknown zstd level %q", name)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(level), zstd.WithEncoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("zstd: %w", err)
	}
	defer enc.Close()
	return compressed(in.Artifact, enc.EncodeAll(in.Artifact.Data, nil), ".zst"), nil
}

func compressed(a *asset.Artifact, data []byte, ext string) *asset.Artifact {
	return &asset.Artifact{Path: a.Path + ext, Kind: asset.KindBinary, Data: data}
}

// Register registers the handlers with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterStage("gzip", &registry.RegisteredStage{
		Description: "Gzip-compresses the artifact into <path>.gz.",
		Options:     map[string]cty.Type{"level": cty.Number},
		Fn:          OnGzip,
	})
	r.RegisterStage("brotli", &registry.RegisteredStage{
		Description: "Brotli-compresses the artifact into <path>.br.",
		Options:     map[string]cty.Type{"level": cty.Number},
		Fn:          OnBrotli,
	})
	r.RegisterStage("zstd", &registry.RegisteredStage{
		Description: "Zstandard-compresses the artifact into <path>.zst.",
		Options:     map[string]cty.Type{"level": cty.String},
		Fn:          OnZstd,
	})
}
