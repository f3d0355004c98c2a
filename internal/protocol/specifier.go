package protocol

import (
	"fmt"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/srg/blink/internal/bledb"
)

// WildcardSuffix marks a name pattern as a prefix match
const WildcardSuffix = "*"

// Binding ties a logical endpoint to a characteristic UUID (canonical form)
type Binding struct {
	Endpoint Endpoint
	UUID     string
}

// Specifier is a named device-protocol description: the device names it
// accepts and, per service, the endpoints it binds. Services and bindings keep
// the order they were declared in. A Specifier is immutable once built.
type Specifier struct {
	Name string

	names    []string
	services *orderedmap.OrderedMap[string, []Binding]
}

// ServiceTable declares one service of a Specifier
type ServiceTable struct {
	UUID     string
	Bindings []Binding
}

// NewSpecifier validates and canonicalises the given patterns and service tables.
// Duplicate service UUIDs are merged; a duplicated endpoint within one
// specifier is an error, since the endpoint map would be ambiguous.
func NewSpecifier(name string, names []string, services []ServiceTable) (*Specifier, error) {
	s := &Specifier{
		Name:     name,
		services: orderedmap.New[string, []Binding](),
	}

	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || n == WildcardSuffix {
			return nil, fmt.Errorf("protocol %q: empty name pattern", name)
		}
		s.names = append(s.names, n)
	}

	seen := make(map[Endpoint]string)
	for _, svc := range services {
		svcUUID, err := bledb.CanonicalUUID(svc.UUID)
		if err != nil {
			return nil, fmt.Errorf("protocol %q: service: %w", name, err)
		}

		bindings, _ := s.services.Get(svcUUID)
		for _, b := range svc.Bindings {
			ep, err := ParseEndpoint(string(b.Endpoint))
			if err != nil {
				return nil, fmt.Errorf("protocol %q: service %s: %w", name, svcUUID, err)
			}
			charUUID, err := bledb.CanonicalUUID(b.UUID)
			if err != nil {
				return nil, fmt.Errorf("protocol %q: endpoint %q: %w", name, ep, err)
			}
			if prev, dup := seen[ep]; dup {
				return nil, fmt.Errorf("protocol %q: endpoint %q bound twice (services %s and %s)", name, ep, prev, svcUUID)
			}
			seen[ep] = svcUUID
			bindings = append(bindings, Binding{Endpoint: ep, UUID: charUUID})
		}
		s.services.Set(svcUUID, bindings)
	}

	return s, nil
}

// NewDeviceSpecifier builds the name-only, service-less specifier for one
// discovered device. It matches exactly that name.
func NewDeviceSpecifier(deviceName string) *Specifier {
	s := &Specifier{
		Name:     deviceName,
		services: orderedmap.New[string, []Binding](),
	}
	if deviceName != "" {
		s.names = []string{deviceName}
	}
	return s
}

// Names returns a copy of the accepted name patterns
func (s *Specifier) Names() []string {
	return append([]string(nil), s.names...)
}

// Matches reports whether deviceName is accepted by any pattern.
// A pattern ending in "*" matches by prefix, any other pattern exactly.
func (s *Specifier) Matches(deviceName string) bool {
	if deviceName == "" {
		return false
	}
	for _, p := range s.names {
		if prefix, ok := strings.CutSuffix(p, WildcardSuffix); ok {
			if strings.HasPrefix(deviceName, prefix) {
				return true
			}
			continue
		}
		if p == deviceName {
			return true
		}
	}
	return false
}

// Services returns the service UUIDs in declaration order
func (s *Specifier) Services() []string {
	out := make([]string, 0, s.services.Len())
	for pair := s.services.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
}

// Bindings returns the endpoint bindings of one service in declaration order
func (s *Specifier) Bindings(serviceUUID string) []Binding {
	b, ok := s.services.Get(serviceUUID)
	if !ok {
		return nil
	}
	return append([]Binding(nil), b...)
}

// Endpoints lists every endpoint the specifier binds
func (s *Specifier) Endpoints() []Endpoint {
	var out []Endpoint
	for pair := s.services.Oldest(); pair != nil; pair = pair.Next() {
		for _, b := range pair.Value {
			out = append(out, b.Endpoint)
		}
	}
	return out
}

func (s *Specifier) String() string {
	return fmt.Sprintf("%s (%d services)", s.Name, s.services.Len())
}
