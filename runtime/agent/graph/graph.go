// Package graph implements the Manifest Graph Validator component (spec
// §4.9): five ordered structural checks over a run's manifest map, run once
// before a run is accepted so a malformed configuration fails fast with a
// precise offending-manifest identity rather than surfacing as a confusing
// runtime lookup failure mid-run.
package graph

import (
	"goa.design/agentcore/runtime/agent"
	"goa.design/agentcore/runtime/agent/errkind"
)

type key struct {
	id      agent.Ident
	version string
}

// Validate runs the five rules in order, aborting on the first failure, the
// contract §4.9 requires ("first failure aborts").
func Validate(manifests []*agent.AgentManifest, rootManifestId agent.Ident) error {
	byID := make(map[agent.Ident][]*agent.AgentManifest, len(manifests))
	byKey := make(map[key]*agent.AgentManifest, len(manifests))

	var root *agent.AgentManifest
	for _, m := range manifests {
		if m.Id == rootManifestId {
			root = m
		}
		byID[m.Id] = append(byID[m.Id], m)
		k := key{m.Id, m.Version}
		if existing, dup := byKey[k]; dup {
			return errkind.New(errkind.BadRequest, "duplicate manifest (id=%s, version=%s)", m.Id, m.Version).
				WithMeta("manifestId", m.Id).WithMeta("version", m.Version).WithMeta("existing", existing)
		}
		byKey[k] = m
	}

	// Rule 1: root must be present.
	if root == nil {
		return errkind.New(errkind.BadRequest, "root manifest %q not found", rootManifestId).
			WithMeta("manifestId", rootManifestId)
	}

	// Rule 3: no id has more than one version within this run config.
	for id, group := range byID {
		if len(group) > 1 {
			return errkind.New(errkind.BadRequest, "manifest id %q has %d versions in one run config", id, len(group)).
				WithMeta("manifestId", id)
		}
	}

	// Rule 4: every subAgents[*].manifestId:manifestVersion resolves in the map.
	for _, m := range manifests {
		for _, ref := range m.SubAgents {
			k := key{ref.ManifestId, ref.ManifestVersion}
			if _, ok := byKey[k]; !ok {
				return errkind.New(errkind.BadRequest, "manifest %q references unresolved sub-agent (id=%s, version=%s)", m.Id, ref.ManifestId, ref.ManifestVersion).
					WithMeta("manifestId", m.Id).WithMeta("subAgentId", ref.ManifestId).WithMeta("subAgentVersion", ref.ManifestVersion)
			}
		}
	}

	// Rule 5: the manifest -> sub-agent manifest graph is acyclic.
	if cyclePath, ok := findCycle(manifests, byID); ok {
		return errkind.New(errkind.BadRequest, "manifest graph contains a cycle: %s", formatPath(cyclePath)).
			WithMeta("cycle", cyclePath)
	}

	return nil
}

// findCycle runs DFS with an on-stack set, reporting the offending path the
// moment a back-edge into the current stack is found.
func findCycle(manifests []*agent.AgentManifest, byID map[agent.Ident][]*agent.AgentManifest) ([]agent.Ident, bool) {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[agent.Ident]int, len(manifests))
	var stack []agent.Ident

	var visit func(id agent.Ident) ([]agent.Ident, bool)
	visit = func(id agent.Ident) ([]agent.Ident, bool) {
		color[id] = gray
		stack = append(stack, id)

		group := byID[id]
		if len(group) == 1 {
			for _, ref := range group[0].SubAgents {
				switch color[ref.ManifestId] {
				case gray:
					cycleStart := indexOf(stack, ref.ManifestId)
					return append(append([]agent.Ident{}, stack[cycleStart:]...), ref.ManifestId), true
				case white:
					if path, found := visit(ref.ManifestId); found {
						return path, true
					}
				}
			}
		}

		stack = stack[:len(stack)-1]
		color[id] = black
		return nil, false
	}

	for _, m := range manifests {
		if color[m.Id] == white {
			if path, found := visit(m.Id); found {
				return path, true
			}
		}
	}
	return nil, false
}

func indexOf(s []agent.Ident, v agent.Ident) int {
	for i, e := range s {
		if e == v {
			return i
		}
	}
	return 0
}

func formatPath(path []agent.Ident) string {
	out := ""
	for i, id := range path {
		if i > 0 {
			out += " -> "
		}
		out += string(id)
	}
	return out
}
