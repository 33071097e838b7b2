// Package deps detects dependency manifest files in a materialized
// repository and runs the matching package-manager install commands.
//
// Detection works over a fixed priority order of ecosystem groups
// (python, javascript, ruby, go, rust, maven, gradle). Within a group the
// first manifest present wins, so a project carrying both requirements.txt
// and pyproject.toml gets one pip invocation, not two. Separate groups are
// independent: a repo with requirements.txt and package.json gets both a
// pip and an npm step.
//
// Install commands are explicit argument vectors run without a shell.
// A missing package-manager executable is a warning, not an abort.
package deps

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Manifest is one detected install step: the manifest file that triggered
// it, the directory it lives in, and the command to run there.
type Manifest struct {
	Name    string   // manifest filename (e.g., "requirements.txt")
	Dir     string   // directory containing the manifest
	Manager string   // executable to invoke (e.g., "pip")
	Args    []string // full argument vector, Args[0] == Manager
}

// Command returns the install command as a display string.
func (m Manifest) Command() string {
	return strings.Join(m.Args, " ")
}

// group is an ordered set of alternative manifest files for one ecosystem.
// resolve may inspect the file to pick the manager (pyproject.toml can
// mean poetry or pip; package.json can pin yarn or pnpm).
type group struct {
	files   []string
	resolve func(dir, file string) (manager string, args []string)
}

// groups defines the detection priority order.
var groups = []group{
	{
		files: []string{"requirements.txt", "Pipfile", "pyproject.toml"},
		resolve: func(dir, file string) (string, []string) {
			switch file {
			case "requirements.txt":
				return "pip", []string{"pip", "install", "-r", "requirements.txt"}
			case "Pipfile":
				return "pipenv", []string{"pipenv", "install"}
			default:
				return pyprojectCommand(filepath.Join(dir, file))
			}
		},
	},
	{
		files: []string{"package.json"},
		resolve: func(dir, file string) (string, []string) {
			return packageJSONCommand(filepath.Join(dir, file))
		},
	},
	{
		files: []string{"Gemfile"},
		resolve: func(string, string) (string, []string) {
			return "bundle", []string{"bundle", "install"}
		},
	},
	{
		files: []string{"go.mod"},
		resolve: func(string, string) (string, []string) {
			return "go", []string{"go", "mod", "download"}
		},
	},
	{
		files: []string{"Cargo.toml"},
		resolve: func(string, string) (string, []string) {
			return "cargo", []string{"cargo", "fetch"}
		},
	},
	{
		files: []string{"pom.xml"},
		resolve: func(string, string) (string, []string) {
			return "mvn", []string{"mvn", "-B", "-q", "dependency:go-offline"}
		},
	},
	{
		files: []string{"build.gradle", "build.gradle.kts"},
		resolve: func(string, string) (string, []string) {
			return "gradle", []string{"gradle", "--console=plain", "dependencies"}
		},
	},
}

// pyprojectCommand picks poetry when [tool.poetry] is declared, pip
// otherwise. An unreadable file still yields the pip fallback; install
// failures surface later with better context than a detection abort.
func pyprojectCommand(path string) (string, []string) {
	var doc struct {
		Tool struct {
			Poetry map[string]any `toml:"poetry"`
		} `toml:"tool"`
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := toml.Unmarshal(data, &doc); err == nil && len(doc.Tool.Poetry) > 0 {
			return "poetry", []string{"poetry", "install"}
		}
	}
	return "pip", []string{"pip", "install", "."}
}

// packageJSONCommand honors the packageManager field (yarn@x, pnpm@x),
// defaulting to npm.
func packageJSONCommand(path string) (string, []string) {
	var doc struct {
		PackageManager string `json:"packageManager"`
	}
	if data, err := os.ReadFile(path); err == nil {
		_ = json.Unmarshal(data, &doc)
	}
	manager := doc.PackageManager
	if i := strings.Index(manager, "@"); i >= 0 {
		manager = manager[:i]
	}
	switch manager {
	case "yarn":
		return "yarn", []string{"yarn", "install"}
	case "pnpm":
		return "pnpm", []string{"pnpm", "install"}
	}
	return "npm", []string{"npm", "install"}
}
