package sqlbackend

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/roach88/execdef/internal/model"
	"github.com/roach88/execdef/internal/store"
)

// elementsPath joins a label URI and an escaped element value.
const elementsPath = "/elements?value="

// ElementURI returns the URI of one element of the label at labelURI.
func ElementURI(labelURI, value string) string {
	return labelURI + elementsPath + url.QueryEscape(value)
}

// elementValue decodes an element URI of the label at labelURI.
func elementValue(labelURI, uri string) (string, error) {
	escaped, ok := strings.CutPrefix(uri, labelURI+elementsPath)
	if !ok {
		return "", fmt.Errorf("element %q does not belong to label %q", uri, labelURI)
	}
	value, err := url.QueryUnescape(escaped)
	if err != nil {
		return "", fmt.Errorf("element %q: %w", uri, err)
	}
	return value, nil
}

// catalog resolves global references of one workspace, remembering every
// lookup for the duration of an execution.
type catalog struct {
	store     *store.Store
	workspace string
	items     map[string]store.CatalogItem
}

func newCatalog(st *store.Store, workspace string) *catalog {
	return &catalog{store: st, workspace: workspace, items: make(map[string]store.CatalogItem)}
}

// resolve looks up ref and checks its kind against kinds.
func (c *catalog) resolve(ctx context.Context, ref model.Ref, kinds ...store.CatalogKind) (store.CatalogItem, error) {
	key := ref.String()
	item, ok := c.items[key]
	if !ok {
		var err error
		switch r := ref.(type) {
		case model.IdentifierRef:
			item, err = c.store.LookupCatalogItem(ctx, c.workspace, r.Identifier)
		case model.URIRef:
			item, err = c.store.LookupCatalogItemByURI(ctx, c.workspace, r.URI)
		default:
			return store.CatalogItem{}, fmt.Errorf("reference %s is not a catalog reference", ref)
		}
		if errors.Is(err, store.ErrNotFound) {
			return store.CatalogItem{}, fmt.Errorf("unknown catalog object %s: %w", ref, err)
		}
		if err != nil {
			return store.CatalogItem{}, err
		}
		c.items[key] = item
	}
	for _, k := range kinds {
		if item.Kind == k {
			return item, nil
		}
	}
	return store.CatalogItem{}, fmt.Errorf("catalog object %s is a %s, want %s", ref, item.Kind, joinKinds(kinds))
}

func joinKinds(kinds []store.CatalogKind) string {
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = string(k)
	}
	return strings.Join(parts, " or ")
}
