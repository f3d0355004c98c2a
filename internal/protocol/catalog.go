package protocol

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Catalog is the ordered set of known protocol specifiers
type Catalog struct {
	specifiers []*Specifier
}

// NewCatalog wraps already-built specifiers; order is kept
func NewCatalog(specifiers ...*Specifier) *Catalog {
	return &Catalog{specifiers: append([]*Specifier(nil), specifiers...)}
}

// Specifiers returns every specifier in catalog order
func (c *Catalog) Specifiers() []*Specifier {
	if c == nil {
		return nil
	}
	return append([]*Specifier(nil), c.specifiers...)
}

// Len returns the number of specifiers
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.specifiers)
}

// Lookup returns every specifier accepting deviceName, in catalog order
func (c *Catalog) Lookup(deviceName string) []*Specifier {
	if c == nil {
		return nil
	}
	var out []*Specifier
	for _, s := range c.specifiers {
		if s.Matches(deviceName) {
			out = append(out, s)
		}
	}
	return out
}

// LoadError describes a catalog that could not be loaded
type LoadError struct {
	File    string
	Message string
	Cause   error
}

func (e *LoadError) Error() string {
	msg := e.Message
	if e.File != "" {
		msg = fmt.Sprintf("%s: %s", e.File, msg)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

type catalogDocument struct {
	Protocols []protocolDocument `yaml:"protocols"`
}

type protocolDocument struct {
	Name     string            `yaml:"name"`
	Names    []string          `yaml:"names"`
	Services []serviceDocument `yaml:"services"`
}

type serviceDocument struct {
	UUID string `yaml:"uuid"`
	// Decoded as a node so the declaration order of endpoints survives
	Characteristics yaml.Node `yaml:"characteristics"`
}

// LoadCatalog reads a YAML catalog from path
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{File: path, Message: "failed to read catalog", Cause: err}
	}
	c, err := ParseCatalog(data)
	if err != nil {
		if le, ok := err.(*LoadError); ok {
			le.File = path
			return nil, le
		}
		return nil, err
	}
	return c, nil
}

// ParseCatalog decodes a YAML catalog
func ParseCatalog(data []byte) (*Catalog, error) {
	var doc catalogDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &LoadError{Message: "invalid YAML", Cause: err}
	}

	catalog := &Catalog{}
	names := make(map[string]struct{}, len(doc.Protocols))
	for i, p := range doc.Protocols {
		if p.Name == "" {
			return nil, &LoadError{Message: fmt.Sprintf("protocol #%d has no name", i+1)}
		}
		if _, dup := names[p.Name]; dup {
			return nil, &LoadError{Message: fmt.Sprintf("protocol %q declared twice", p.Name)}
		}
		names[p.Name] = struct{}{}

		tables := make([]ServiceTable, 0, len(p.Services))
		for _, svc := range p.Services {
			bindings, err := decodeBindings(&svc.Characteristics)
			if err != nil {
				return nil, &LoadError{Message: fmt.Sprintf("protocol %q service %q", p.Name, svc.UUID), Cause: err}
			}
			tables = append(tables, ServiceTable{UUID: svc.UUID, Bindings: bindings})
		}

		spec, err := NewSpecifier(p.Name, p.Names, tables)
		if err != nil {
			return nil, &LoadError{Message: "invalid protocol", Cause: err}
		}
		catalog.specifiers = append(catalog.specifiers, spec)
	}
	return catalog, nil
}

// decodeBindings walks an "endpoint: uuid" mapping node in document order
func decodeBindings(node *yaml.Node) ([]Binding, error) {
	if node.Kind == 0 || node.Tag == "!!null" {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: characteristics must be a mapping of endpoint to UUID", node.Line)
	}

	bindings := make([]Binding, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		if value.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: endpoint %q must map to a UUID string", value.Line, key.Value)
		}
		bindings = append(bindings, Binding{Endpoint: Endpoint(key.Value), UUID: value.Value})
	}
	return bindings, nil
}
