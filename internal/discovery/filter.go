package discovery

import (
	"strings"

	"github.com/srg/blink/internal/protocol"
)

// ScanFilter accepts a device name. Exactly one of Name or NamePrefix is set.
type ScanFilter struct {
	Name       string
	NamePrefix string
}

// Match reports whether the filter accepts name
func (f ScanFilter) Match(name string) bool {
	if f.NamePrefix != "" {
		return strings.HasPrefix(name, f.NamePrefix)
	}
	return f.Name != "" && f.Name == name
}

func (f ScanFilter) String() string {
	if f.NamePrefix != "" {
		return f.NamePrefix + protocol.WildcardSuffix
	}
	return f.Name
}

// FilterSet is the union of every known protocol's scan filters.
// OptionalServices lists each referenced service once, in first-seen order.
type FilterSet struct {
	Filters          []ScanFilter
	OptionalServices []string
}

// BuildFilters creates one filter per name pattern of every specifier and
// allowlists every service they reference.
func BuildFilters(catalog *protocol.Catalog) FilterSet {
	var fs FilterSet
	seen := make(map[string]struct{})

	for _, spec := range catalog.Specifiers() {
		for _, pattern := range spec.Names() {
			if prefix, ok := strings.CutSuffix(pattern, protocol.WildcardSuffix); ok {
				fs.Filters = append(fs.Filters, ScanFilter{NamePrefix: prefix})
			} else {
				fs.Filters = append(fs.Filters, ScanFilter{Name: pattern})
			}
		}
		for _, svc := range spec.Services() {
			if _, dup := seen[svc]; dup {
				continue
			}
			seen[svc] = struct{}{}
			fs.OptionalServices = append(fs.OptionalServices, svc)
		}
	}
	return fs
}

// Match reports whether any filter accepts name
func (fs FilterSet) Match(name string) bool {
	if name == "" {
		return false
	}
	for _, f := range fs.Filters {
		if f.Match(name) {
			return true
		}
	}
	return false
}
