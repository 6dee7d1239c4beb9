package filter

import (
	"github.com/dl-alexandre/ftpfetch/internal/sync/paths"
	"github.com/dl-alexandre/ftpfetch/internal/sync/tree"
)

// RuleSet holds blacklist and whitelist path prefixes. Matching is on whole
// segments; a rule matches the path itself and everything below it.
type RuleSet struct {
	blacklist []paths.Path
	whitelist []paths.Path
}

// New normalizes both lists. Entries that normalize to the root are ignored.
func New(blacklist, whitelist []string) (*RuleSet, error) {
	bl, err := paths.NormalizeAll(blacklist)
	if err != nil {
		return nil, err
	}
	wl, err := paths.NormalizeAll(whitelist)
	if err != nil {
		return nil, err
	}
	return &RuleSet{blacklist: bl, whitelist: wl}, nil
}

// Blacklist returns the normalized blacklist as strings.
func (r *RuleSet) Blacklist() []string {
	return toStrings(r.blacklist)
}

// Whitelist returns the normalized whitelist as strings.
func (r *RuleSet) Whitelist() []string {
	return toStrings(r.whitelist)
}

func (r *RuleSet) blacklisted(p paths.Path) bool {
	for _, b := range r.blacklist {
		if p.HasPrefix(b) {
			return true
		}
	}
	return false
}

func (r *RuleSet) whitelisted(p paths.Path) bool {
	for _, w := range r.whitelist {
		if p.HasPrefix(w) {
			return true
		}
	}
	return false
}

// onRoute reports whether p is a strict ancestor of some whitelist entry.
func (r *RuleSet) onRoute(p paths.Path) bool {
	for _, w := range r.whitelist {
		if len(w) > len(p) && w.HasPrefix(p) {
			return true
		}
	}
	return false
}

// Keep decides whether a single entry survives. Ancestors of whitelist
// entries survive only as directories, so that the whitelisted path stays
// reachable. The blacklist always wins.
func (r *RuleSet) Keep(p paths.Path, kind tree.Kind) bool {
	if r == nil || p.IsRoot() {
		return true
	}
	if r.blacklisted(p) {
		return false
	}
	if len(r.whitelist) == 0 || r.whitelisted(p) {
		return true
	}
	return kind == tree.KindDir && r.onRoute(p)
}

// Excluded reports whether the directory at p and its whole subtree are
// filtered out, so a tree builder need not enumerate it.
func (r *RuleSet) Excluded(p paths.Path) bool {
	return !r.Keep(p, tree.KindDir)
}

// Apply returns a pruned copy of root. The input tree is left untouched.
func (r *RuleSet) Apply(root *tree.Entry) *tree.Entry {
	if root == nil {
		return nil
	}
	if r == nil || (len(r.blacklist) == 0 && len(r.whitelist) == 0) {
		return root.Clone()
	}
	return r.prune(root)
}

func (r *RuleSet) prune(dir *tree.Entry) *tree.Entry {
	out := *dir
	out.Children = make(map[string]*tree.Entry, len(dir.Children))
	for name, child := range dir.Children {
		if !r.Keep(child.Path, child.Kind) {
			out.Pruned = true
			continue
		}
		if child.IsDir() {
			kept := r.prune(child)
			if kept.Pruned {
				out.Pruned = true
			}
			out.Children[name] = kept
			continue
		}
		file := *child
		out.Children[name] = &file
	}
	// A route-only directory is a partial view by definition.
	if !dir.Path.IsRoot() && len(r.whitelist) > 0 && !r.whitelisted(dir.Path) {
		out.Pruned = true
	}
	return &out
}

func toStrings(ps []paths.Path) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.String()
	}
	return out
}
