package topology

import (
	"fmt"
	"sort"

	"github.com/hashicorp/go-multierror"
)

// Validate checks the topology's wiring. All problems are reported at
// once:
//
//   - dependency targets must exist
//   - service_healthy dependencies must point at services that declare a
//     healthcheck, otherwise the gate can never open
//   - no two services may publish the same host port
//   - the dependency graph must be acyclic
func (c *Compose) Validate() error {
	var result *multierror.Error

	for _, name := range c.Order {
		svc := c.Services[name]
		for _, dep := range svc.DependsOn.Order {
			target, ok := c.Services[dep]
			if !ok {
				result = multierror.Append(result, fmt.Errorf(
					"service %s depends on undeclared service %s", name, dep))
				continue
			}
			if svc.DependsOn.Conditions[dep] == ConditionHealthy && target.Healthcheck == nil {
				result = multierror.Append(result, fmt.Errorf(
					"service %s waits for %s to become healthy, but %s has no healthcheck", name, dep, dep))
			}
		}
	}

	published := make(map[int]string)
	for _, name := range c.Order {
		for _, port := range c.Services[name].Ports {
			if port.HostPort == 0 {
				continue
			}
			if other, taken := published[port.HostPort]; taken {
				result = multierror.Append(result, fmt.Errorf(
					"services %s and %s both publish host port %d", other, name, port.HostPort))
				continue
			}
			published[port.HostPort] = name
		}
	}

	if _, err := c.StartupOrder(); err != nil {
		result = multierror.Append(result, err)
	}

	return result.ErrorOrNil()
}

// StartupOrder returns a deterministic start sequence: dependencies before
// dependents, declaration order as the tiebreak. Unknown dependency
// targets are ignored here (Validate reports them); cycles are an error.
func (c *Compose) StartupOrder() ([]string, error) {
	indegree := make(map[string]int, len(c.Order))
	dependents := make(map[string][]string)
	for _, name := range c.Order {
		indegree[name] = 0
	}
	for _, name := range c.Order {
		for _, dep := range c.Services[name].DependsOn.Order {
			if _, ok := c.Services[dep]; !ok {
				continue
			}
			indegree[name]++
			dependents[dep] = append(dependents[dep], name)
		}
	}

	declIndex := make(map[string]int, len(c.Order))
	for i, name := range c.Order {
		declIndex[name] = i
	}

	var ready []string
	for _, name := range c.Order {
		if indegree[name] == 0 {
			ready = append(ready, name)
		}
	}

	var order []string
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool {
			return declIndex[ready[i]] < declIndex[ready[j]]
		})
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)

		for _, dependent := range dependents[next] {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
	}

	if len(order) != len(c.Order) {
		var stuck []string
		for _, name := range c.Order {
			if indegree[name] > 0 {
				stuck = append(stuck, name)
			}
		}
		return nil, fmt.Errorf("dependency cycle involving %v", stuck)
	}
	return order, nil
}

// HealthGates returns the (dependent, dependency) pairs gated on health,
// in declaration order. These are the startup edges that must refuse to
// open until the dependency's healthcheck passes.
func (c *Compose) HealthGates() [][2]string {
	var gates [][2]string
	for _, name := range c.Order {
		svc := c.Services[name]
		for _, dep := range svc.DependsOn.Order {
			if svc.DependsOn.Conditions[dep] == ConditionHealthy {
				gates = append(gates, [2]string{name, dep})
			}
		}
	}
	return gates
}
