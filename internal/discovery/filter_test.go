package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srg/blink/internal/protocol"
)

func mustSpecifier(t *testing.T, name string, names []string, services ...string) *protocol.Specifier {
	t.Helper()
	tables := make([]protocol.ServiceTable, 0, len(services))
	for _, svc := range services {
		tables = append(tables, protocol.ServiceTable{UUID: svc})
	}
	s, err := protocol.NewSpecifier(name, names, tables)
	require.NoError(t, err)
	return s
}

func TestBuildFilters(t *testing.T) {
	catalog := protocol.NewCatalog(
		mustSpecifier(t, "a", []string{"LVS-*", "Lush"}, "fff0", "180f"),
		mustSpecifier(t, "b", []string{"Device-*"}, "180F", "1400"),
	)

	fs := BuildFilters(catalog)

	assert.Equal(t, []ScanFilter{
		{NamePrefix: "LVS-"},
		{Name: "Lush"},
		{NamePrefix: "Device-"},
	}, fs.Filters, "MUST build one filter per name pattern, wildcard stripped into a prefix")
	assert.Equal(t, []string{
		"0000fff0-0000-1000-8000-00805f9b34fb",
		"0000180f-0000-1000-8000-00805f9b34fb",
		"00001400-0000-1000-8000-00805f9b34fb",
	}, fs.OptionalServices, "MUST allowlist every referenced service once")
}

func TestBuildFiltersEmptyCatalog(t *testing.T) {
	fs := BuildFilters(nil)
	assert.Empty(t, fs.Filters)
	assert.Empty(t, fs.OptionalServices)
	assert.False(t, fs.Match("anything"))
}

func TestFilterSetMatch(t *testing.T) {
	fs := FilterSet{Filters: []ScanFilter{{NamePrefix: "LVS-"}, {Name: "Lush"}}}

	tests := []struct {
		name  string
		match bool
	}{
		{"LVS-Z36", true},
		{"Lush", true},
		{"Lush 2", false},
		{"XLVS-", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.match, fs.Match(tt.name))
		})
	}
}

func TestScanFilterString(t *testing.T) {
	assert.Equal(t, "LVS-*", ScanFilter{NamePrefix: "LVS-"}.String())
	assert.Equal(t, "Lush", ScanFilter{Name: "Lush"}.String())
}
