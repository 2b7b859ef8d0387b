// Package topology parses docker-compose service descriptors and checks
// the lab's startup wiring: port publications, health-gated dependencies,
// and a deterministic start order.
package topology

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Condition gates when a dependent service may start.
type Condition string

const (
	// ConditionStarted only requires the dependency's container to exist.
	ConditionStarted Condition = "service_started"
	// ConditionHealthy requires the dependency's healthcheck to pass first.
	ConditionHealthy Condition = "service_healthy"
	// ConditionCompleted requires the dependency to have run to completion.
	ConditionCompleted Condition = "service_completed_successfully"
)

// Compose is a parsed compose document. Service declaration order is
// preserved for deterministic planning.
type Compose struct {
	Services map[string]*Service
	Order    []string
}

// Service is one compose service entry. Unknown fields are ignored.
type Service struct {
	Image       string       `yaml:"image"`
	Ports       []Port       `yaml:"ports"`
	DependsOn   DependsOn    `yaml:"depends_on"`
	Healthcheck *Healthcheck `yaml:"healthcheck"`
	Restart     string       `yaml:"restart"`
}

// Healthcheck is the probe a service declares for its own readiness.
type Healthcheck struct {
	Test     HealthTest `yaml:"test"`
	Interval string     `yaml:"interval"`
	Timeout  string     `yaml:"timeout"`
	Retries  int        `yaml:"retries"`
}

// HealthTest accepts both the string and the [CMD/CMD-SHELL, ...] forms.
type HealthTest struct {
	Argv []string
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (h *HealthTest) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		h.Argv = []string{"CMD-SHELL", s}
		return nil
	case yaml.SequenceNode:
		return node.Decode(&h.Argv)
	default:
		return fmt.Errorf("line %d: healthcheck test must be a string or a list", node.Line)
	}
}

// Port is one port publication. HostPort is zero when the port is only
// exposed inside the compose network.
type Port struct {
	HostPort      int
	ContainerPort int
	Protocol      string
}

// UnmarshalYAML parses the short "host:container[/proto]" syntax, plus the
// bare container-port form.
func (p *Port) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: unsupported port syntax", node.Line)
	}
	// node.Value covers both quoted "5432:5432" strings and bare ints
	raw := node.Value

	p.Protocol = "tcp"
	if i := strings.IndexByte(raw, '/'); i >= 0 {
		p.Protocol = raw[i+1:]
		raw = raw[:i]
	}

	parts := strings.Split(raw, ":")
	var err error
	switch len(parts) {
	case 1:
		p.ContainerPort, err = strconv.Atoi(parts[0])
	case 2:
		if p.HostPort, err = strconv.Atoi(parts[0]); err == nil {
			p.ContainerPort, err = strconv.Atoi(parts[1])
		}
	case 3:
		// ip:host:container — the bind address is irrelevant here
		if p.HostPort, err = strconv.Atoi(parts[1]); err == nil {
			p.ContainerPort, err = strconv.Atoi(parts[2])
		}
	default:
		return fmt.Errorf("line %d: invalid port mapping %q", node.Line, raw)
	}
	if err != nil {
		return fmt.Errorf("line %d: invalid port mapping %q", node.Line, raw)
	}
	return nil
}

// String renders the mapping back to the short syntax.
func (p Port) String() string {
	if p.HostPort == 0 {
		return strconv.Itoa(p.ContainerPort)
	}
	return fmt.Sprintf("%d:%d", p.HostPort, p.ContainerPort)
}

// DependsOn maps dependency service names to their start conditions. Both
// compose forms are accepted: the short list (condition service_started)
// and the long map with explicit conditions.
type DependsOn struct {
	Conditions map[string]Condition
	Order      []string
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *DependsOn) UnmarshalYAML(node *yaml.Node) error {
	d.Conditions = make(map[string]Condition)
	switch node.Kind {
	case yaml.SequenceNode:
		var names []string
		if err := node.Decode(&names); err != nil {
			return err
		}
		for _, name := range names {
			d.Conditions[name] = ConditionStarted
			d.Order = append(d.Order, name)
		}
		return nil
	case yaml.MappingNode:
		for i := 0; i < len(node.Content); i += 2 {
			name := node.Content[i].Value
			var entry struct {
				Condition Condition `yaml:"condition"`
			}
			if err := node.Content[i+1].Decode(&entry); err != nil {
				return err
			}
			if entry.Condition == "" {
				entry.Condition = ConditionStarted
			}
			d.Conditions[name] = entry.Condition
			d.Order = append(d.Order, name)
		}
		return nil
	default:
		return fmt.Errorf("line %d: depends_on must be a list or a mapping", node.Line)
	}
}

// composeDoc is the raw document shape; the services node is kept raw to
// preserve declaration order.
type composeDoc struct {
	Services yaml.Node `yaml:"services"`
}

// Parse decodes a compose document.
func Parse(data []byte) (*Compose, error) {
	var doc composeDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse compose file: %w", err)
	}
	c := &Compose{Services: make(map[string]*Service)}
	if doc.Services.Kind == 0 {
		return c, nil
	}
	if doc.Services.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("services must be a mapping")
	}
	for i := 0; i < len(doc.Services.Content); i += 2 {
		name := doc.Services.Content[i].Value
		var svc Service
		if err := doc.Services.Content[i+1].Decode(&svc); err != nil {
			return nil, fmt.Errorf("service %s: %w", name, err)
		}
		if _, dup := c.Services[name]; dup {
			return nil, fmt.Errorf("service %s declared twice", name)
		}
		c.Services[name] = &svc
		c.Order = append(c.Order, name)
	}
	return c, nil
}

// Load reads and parses a compose file.
func Load(path string) (*Compose, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read compose file: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}
