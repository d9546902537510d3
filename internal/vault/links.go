package vault

import (
	"cmp"
	"path"
	"slices"
	"strings"
)

// LinkMap maps a source note path to its link targets and how many times
// each target is linked from that source.
type LinkMap map[string]map[string]int

// Resolver maps raw link targets onto note paths the way the editor does:
// an exact vault path first, then a path relative to the linking note, then
// any note with the same base name.
type Resolver struct {
	byPath map[string]string
	byName map[string][]string
}

// NewResolver indexes the given note paths.
func NewResolver(paths []string) *Resolver {
	r := &Resolver{
		byPath: make(map[string]string, len(paths)),
		byName: make(map[string][]string, len(paths)),
	}
	for _, p := range paths {
		key := strings.ToLower(p)
		r.byPath[key] = p
		name := strings.ToLower(NoteName(p))
		r.byName[name] = append(r.byName[name], p)
	}
	for name, candidates := range r.byName {
		slices.SortFunc(candidates, func(a, b string) int {
			if c := cmp.Compare(len(a), len(b)); c != 0 {
				return c
			}
			return cmp.Compare(a, b)
		})
		r.byName[name] = candidates
	}
	return r
}

// Resolve returns the note path target refers to from source.
func (r *Resolver) Resolve(source, target string) (string, bool) {
	withExt := target
	if !strings.EqualFold(path.Ext(target), ".md") {
		withExt = target + ".md"
	}

	if p, ok := r.byPath[strings.ToLower(path.Clean(withExt))]; ok {
		return p, true
	}

	if dir := path.Dir(source); dir != "." {
		rel := path.Join(dir, withExt)
		if p, ok := r.byPath[strings.ToLower(rel)]; ok {
			return p, true
		}
	}

	candidates := r.byName[strings.ToLower(NoteName(withExt))]
	if len(candidates) == 0 {
		return "", false
	}
	if strings.Contains(target, "/") {
		suffix := "/" + strings.ToLower(strings.TrimLeft(path.Clean("/"+withExt), "/"))
		for _, c := range candidates {
			if strings.HasSuffix(strings.ToLower(c), suffix) {
				return c, true
			}
		}
		return "", false
	}
	for _, c := range candidates {
		if path.Dir(c) == path.Dir(source) {
			return c, true
		}
	}
	return candidates[0], true
}

// BuildLinkMaps splits raw per-note link targets into resolved links, keyed
// by target note path, and unresolved links, keyed by the raw target.
func BuildLinkMaps(links map[string][]string) (resolved, unresolved LinkMap) {
	paths := make([]string, 0, len(links))
	for p := range links {
		paths = append(paths, p)
	}
	resolver := NewResolver(paths)

	resolved = make(LinkMap, len(links))
	unresolved = make(LinkMap)
	for source, targets := range links {
		for _, target := range targets {
			if p, ok := resolver.Resolve(source, target); ok {
				addLink(resolved, source, p)
			} else {
				addLink(unresolved, source, target)
			}
		}
	}
	return resolved, unresolved
}

func addLink(m LinkMap, source, target string) {
	targets, ok := m[source]
	if !ok {
		targets = make(map[string]int)
		m[source] = targets
	}
	targets[target]++
}

// NoteName returns the base name of a note path without the .md extension.
func NoteName(p string) string {
	base := path.Base(p)
	if strings.EqualFold(path.Ext(base), ".md") {
		base = base[:len(base)-len(".md")]
	}
	return base
}
