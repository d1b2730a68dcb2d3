// Package envmerge composes the environment a controller action runs
// with: the daemon's own OS environment, overlaid by the service's env
// map, with ${VAR} substitution against the merged set. Adapted from the
// teacher's internal/env package, reduced to a single base-plus-overlay
// merge (no WithSet/WithUnset mutators — the daemon's own environment
// never changes at runtime). The config loader uses the same Merge to
// build its global env layer.
package envmerge

import "strings"

// Merge returns a fresh []string suitable for exec.Cmd.Env: the process's
// own environment overlaid by overlay (service wins on key collision),
// with ${VAR} references in values expanded against the merged map.
func Merge(base []string, overlay map[string]string) []string {
	m := make(map[string]string, len(base)+len(overlay))
	for _, kv := range base {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			m[kv[:i]] = kv[i+1:]
		}
	}
	for k, v := range overlay {
		if k == "" {
			continue
		}
		m[k] = v
	}

	expanded := make(map[string]string, len(m))
	for k, v := range m {
		expanded[k] = Expand(v, m)
	}

	out := make([]string, 0, len(expanded))
	for k, v := range expanded {
		out = append(out, k+"="+v)
	}
	return out
}

// Expand replaces every ${VAR} occurrence in s with its value from m.
// Unknown variables are left untouched.
func Expand(s string, m map[string]string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	res := s
	for k, v := range m {
		res = strings.ReplaceAll(res, "${"+k+"}", v)
	}
	return res
}
