package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/roach88/execdef/internal/deffile"
	"github.com/roach88/execdef/internal/model"
)

// errNoFiles is returned for directories without documents.
var errNoFiles = errors.New("no documents found")

// LoadMode controls how errors are handled during document loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadedDocument is one execution document ready to be prepared.
type LoadedDocument struct {
	Path        string
	Document    *deffile.Document
	Preparation model.Preparation
}

// LoadError reports a document that could not be loaded or converted.
type LoadError struct {
	Path string
	Code string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Path, e.Code, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// LoadDocuments reads execution documents from paths. Directories are
// searched for .yaml, .yml and .cue files. Documents without a workspace
// get workspace.
// If mode is LoadModeFailFast, returns on first error.
// If mode is LoadModeCollectAll, collects all errors.
func LoadDocuments(paths []string, workspace string, mode LoadMode) ([]LoadedDocument, []error) {
	var files []string
	for _, p := range paths {
		found, err := FindDocumentFiles(p)
		if err != nil {
			return nil, []error{&LoadError{Path: p, Code: ErrorCode(err), Err: err}}
		}
		files = append(files, found...)
	}

	var docs []LoadedDocument
	var errs []error
	for _, file := range files {
		doc, err := loadDocument(file, workspace)
		if err != nil {
			errs = append(errs, &LoadError{Path: file, Code: ErrorCode(err), Err: err})
			if mode == LoadModeFailFast {
				return nil, errs
			}
			continue
		}
		docs = append(docs, *doc)
	}
	return docs, errs
}

func loadDocument(path, workspace string) (*LoadedDocument, error) {
	doc, err := deffile.LoadDocument(path)
	if err != nil {
		return nil, err
	}
	if doc.Workspace == "" {
		doc.Workspace = workspace
	}
	prep, err := doc.Preparation()
	if err != nil {
		return nil, err
	}
	return &LoadedDocument{Path: path, Document: doc, Preparation: prep}, nil
}

// FindDocumentFiles returns path itself for files and the document files
// below it for directories.
func FindDocumentFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("path not found: %s: %w", path, fs.ErrNotExist)
		}
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if _, ferr := deffile.FormatFor(p); ferr == nil {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", errNoFiles, path)
	}
	return files, nil
}
