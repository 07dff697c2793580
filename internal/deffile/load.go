package deffile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

// Format is a document encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatCUE  Format = "cue"
)

// FormatFor picks the format from a file extension. JSON documents are
// read as YAML.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return FormatYAML, nil
	case ".cue":
		return FormatCUE, nil
	}
	return "", fmt.Errorf("unsupported document extension %q", filepath.Ext(path))
}

// ParseDocument decodes an execution document.
func ParseDocument(data []byte, format Format, filename string) (*Document, error) {
	var doc Document
	if err := decode(data, format, filename, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ParseDataset decodes a dataset document.
func ParseDataset(data []byte, format Format, filename string) (*DatasetDoc, error) {
	var doc DatasetDoc
	if err := decode(data, format, filename, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// LoadDocument reads an execution document from path.
func LoadDocument(path string) (*Document, error) {
	data, format, err := read(path)
	if err != nil {
		return nil, err
	}
	return ParseDocument(data, format, path)
}

// LoadDataset reads a dataset document from path.
func LoadDataset(path string) (*DatasetDoc, error) {
	data, format, err := read(path)
	if err != nil {
		return nil, err
	}
	return ParseDataset(data, format, path)
}

func read(path string) ([]byte, Format, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read document: %w", err)
	}
	return data, format, nil
}

func decode(data []byte, format Format, filename string, out any) error {
	switch format {
	case FormatYAML:
		return decodeYAML(data, out)
	case FormatCUE:
		return decodeCUE(data, filename, out)
	}
	return fmt.Errorf("unsupported format %q", format)
}

// decodeYAML rejects unknown fields so that misspelled keys are not
// silently dropped.
func decodeYAML(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return &DocumentError{Message: "empty document"}
		}
		return &DocumentError{Message: err.Error()}
	}
	return nil
}

func decodeCUE(data []byte, filename string, out any) error {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return formatCUEError(err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(err)
	}
	if err := v.Decode(out); err != nil {
		return formatCUEError(err)
	}
	return nil
}

// formatCUEError converts the first CUE error into a DocumentError with its
// source position.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &DocumentError{Message: err.Error()}
	}
	first := errs[0]
	de := &DocumentError{Message: first.Error()}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		de.Pos = positions[0]
	}
	return de
}
