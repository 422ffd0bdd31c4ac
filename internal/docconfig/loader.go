package docconfig

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/tidwall/jsonc"
	"github.com/vk/assetgraph/internal/config"
	"github.com/vk/assetgraph/internal/ctxlog"
	"gopkg.in/yaml.v3"
)

// Format names a document syntax.
type Format string

const (
	YAML Format = "yaml"
	TOML Format = "toml"
	JSON Format = "json"
)

// Loader implements config.Loader for one document Format. Unknown keys are
// rejected in every format.
type Loader struct {
	format Format
}

// NewLoader returns a loader for the given format.
func NewLoader(format Format) *Loader {
	return &Loader{format: format}
}

// FormatFor maps a file extension to its Format.
func FormatFor(ext string) (Format, bool) {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		return YAML, true
	case ".toml":
		return TOML, true
	case ".json", ".jsonc":
		return JSON, true
	}
	return "", false
}

// Load implements config.Loader.
func (l *Loader) Load(ctx context.Context, path string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Document loader started.", "path", path, "format", l.format)

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	model, err := l.LoadBytes(ctx, src, path)
	if err != nil {
		return nil, err
	}
	logger.Debug("Document loading complete.", "entries", len(model.Entries), "rules", len(model.Rules), "copies", len(model.Copies))
	return model, nil
}

// LoadBytes decodes src; filename is used for errors and to rebase relative
// directories.
func (l *Loader) LoadBytes(_ context.Context, src []byte, filename string) (*config.Model, error) {
	var doc document
	if err := l.decode(src, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode %s file %s: %w", l.format, filename, err)
	}
	model, err := doc.toModel(filename)
	if err != nil {
		return nil, fmt.Errorf("in %s: %w", filename, err)
	}
	model.Rebase(filepath.Dir(filename))
	return model, nil
}

func (l *Loader) decode(src []byte, doc *document) error {
	switch l.format {
	case YAML:
		dec := yaml.NewDecoder(bytes.NewReader(src))
		dec.KnownFields(true)
		if err := dec.Decode(doc); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	case TOML:
		dec := toml.NewDecoder(bytes.NewReader(src))
		dec.DisallowUnknownFields()
		return dec.Decode(doc)
	case JSON:
		dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(src)))
		dec.DisallowUnknownFields()
		return dec.Decode(doc)
	default:
		return fmt.Errorf("unknown document format %q", l.format)
	}
}
