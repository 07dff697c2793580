package deffile

import (
	"fmt"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Number is an exact decimal read from a document. It accepts numbers and
// numeric strings.
type Number struct {
	d decimal.Decimal
}

// NewNumber wraps d.
func NewNumber(d decimal.Decimal) Number {
	return Number{d: d}
}

// Decimal returns the value.
func (n Number) Decimal() decimal.Decimal {
	return n.d
}

// UnmarshalJSON implements json.Unmarshaler. CUE decoding goes through it
// as well.
func (n *Number) UnmarshalJSON(b []byte) error {
	return n.d.UnmarshalJSON(b)
}

// MarshalJSON writes the value as a bare JSON number.
func (n Number) MarshalJSON() ([]byte, error) {
	return []byte(n.d.String()), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (n *Number) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a number", node.Line)
	}
	d, err := decimal.NewFromString(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: invalid number %q", node.Line, node.Value)
	}
	n.d = d
	return nil
}

func numberPtr(n *Number) *decimal.Decimal {
	if n == nil {
		return nil
	}
	d := n.d
	return &d
}
