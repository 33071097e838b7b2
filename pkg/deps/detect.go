package deps

import (
	"os"
	"path/filepath"
	"sort"
)

// skipDirs are directories never treated as project roots: dependency
// trees, build output, and VCS metadata.
var skipDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	"node_modules": true,
	"vendor":       true,
	"target":       true,
	"dist":         true,
	".venv":        true,
	"venv":         true,
	"__pycache__":  true,
	".tox":         true,
}

// Detect scans the top level of root for manifest files and returns the
// install steps in priority order.
func Detect(root string) []Manifest {
	var out []Manifest
	for _, g := range groups {
		for _, file := range g.files {
			path := filepath.Join(root, file)
			info, err := os.Stat(path)
			if err != nil || info.IsDir() {
				continue
			}
			manager, args := g.resolve(root, file)
			out = append(out, Manifest{Name: file, Dir: root, Manager: manager, Args: args})
			break // first match within a group wins
		}
	}
	return out
}

// DetectNested finds manifests in root and in nested project roots up to
// maxDepth levels below it, for monorepo layouts. The root's manifests
// come first; nested roots follow in lexical path order. maxDepth <= 0
// behaves like Detect.
func DetectNested(root string, maxDepth int) []Manifest {
	out := Detect(root)
	if maxDepth <= 0 {
		return out
	}

	var nested []string
	walkProjectDirs(root, root, maxDepth, &nested)
	sort.Strings(nested)

	for _, dir := range nested {
		out = append(out, Detect(dir)...)
	}
	return out
}

// walkProjectDirs collects subdirectories of dir (excluding root itself
// and skipDirs) down to the remaining depth.
func walkProjectDirs(root, dir string, depth int, out *[]string) {
	if depth == 0 {
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if !e.IsDir() || skipDirs[e.Name()] {
			continue
		}
		sub := filepath.Join(dir, e.Name())
		*out = append(*out, sub)
		walkProjectDirs(root, sub, depth-1, out)
	}
}
