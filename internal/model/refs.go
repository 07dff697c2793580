package model

import "fmt"

// ObjectType classifies catalog objects addressed by IdentifierRef.
type ObjectType string

const (
	ObjectTypeAttribute   ObjectType = "attribute"
	ObjectTypeDisplayForm ObjectType = "displayForm"
	ObjectTypeFact        ObjectType = "fact"
	ObjectTypeMeasure     ObjectType = "measure"
	ObjectTypeDataSet     ObjectType = "dataSet"
	ObjectTypeInsight     ObjectType = "insight"
)

// Ref points at an object. Global refs (IdentifierRef, URIRef) name catalog
// objects and are never validated locally; LocalIDRef names an attribute or
// measure of the enclosing definition.
type Ref interface {
	refNode()
	String() string
}

// IdentifierRef references a catalog object by its stable identifier.
type IdentifierRef struct {
	Identifier string
	Type       ObjectType // optional
}

func (IdentifierRef) refNode() {}

func (r IdentifierRef) String() string {
	if r.Type != "" {
		return fmt.Sprintf("%s:%s", r.Type, r.Identifier)
	}
	return r.Identifier
}

// URIRef references a catalog object by its backend URI.
type URIRef struct {
	URI string
}

func (URIRef) refNode() {}

func (r URIRef) String() string { return r.URI }

// LocalIDRef references an attribute or measure of the same definition.
type LocalIDRef struct {
	LocalID string
}

func (LocalIDRef) refNode() {}

func (r LocalIDRef) String() string { return "local:" + r.LocalID }

// IDRef creates an IdentifierRef.
func IDRef(identifier string, typ ObjectType) IdentifierRef {
	return IdentifierRef{Identifier: identifier, Type: typ}
}

// URI creates a URIRef.
func URI(uri string) URIRef {
	return URIRef{URI: uri}
}

// LocalRef creates a LocalIDRef.
func LocalRef(localID string) LocalIDRef {
	return LocalIDRef{LocalID: localID}
}

// refEqual compares two refs structurally. nil equals only nil.
func refEqual(a, b Ref) bool {
	switch x := a.(type) {
	case nil:
		return b == nil
	case IdentifierRef:
		y, ok := b.(IdentifierRef)
		return ok && textEqual(string(x.Type), string(y.Type)) && textEqual(x.Identifier, y.Identifier)
	case URIRef:
		y, ok := b.(URIRef)
		return ok && textEqual(x.URI, y.URI)
	case LocalIDRef:
		y, ok := b.(LocalIDRef)
		return ok && textEqual(x.LocalID, y.LocalID)
	}
	return false
}

// refSortKey orders refs inside unordered ref sets.
func refSortKey(r Ref) string {
	switch x := r.(type) {
	case IdentifierRef:
		return "identifier\x00" + nfc(string(x.Type)) + "\x00" + nfc(x.Identifier)
	case URIRef:
		return "uri\x00" + nfc(x.URI)
	case LocalIDRef:
		return "local\x00" + nfc(x.LocalID)
	}
	return ""
}
