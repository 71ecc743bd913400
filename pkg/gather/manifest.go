package gather

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"golang.org/x/mod/modfile"
)

// Ecosystem keys used in ErrorContext.Dependencies.
const (
	EcosystemNPM    = "npm"
	EcosystemPython = "python"
	EcosystemCargo  = "cargo"
	EcosystemGo     = "go"
)

type manifestParser struct {
	file      string
	ecosystem string
	parse     func(data []byte) ([]string, error)
}

var manifestParsers = []manifestParser{
	{"package.json", EcosystemNPM, parsePackageJSON},
	{"requirements.txt", EcosystemPython, parseRequirements},
	{"pyproject.toml", EcosystemPython, parsePyproject},
	{"Cargo.toml", EcosystemCargo, parseCargo},
	{"go.mod", EcosystemGo, parseGoMod},
}

// Dependencies reads the known manifests in root. Missing or malformed
// manifests are skipped; nil is returned when nothing was found.
func Dependencies(root string) map[string][]string {
	found := map[string]map[string]bool{}
	for _, p := range manifestParsers {
		data, err := os.ReadFile(filepath.Join(root, p.file))
		if err != nil {
			continue
		}
		names, err := p.parse(data)
		if err != nil || len(names) == 0 {
			continue
		}
		if found[p.ecosystem] == nil {
			found[p.ecosystem] = map[string]bool{}
		}
		for _, n := range names {
			found[p.ecosystem][n] = true
		}
	}
	if len(found) == 0 {
		return nil
	}

	deps := make(map[string][]string, len(found))
	for eco, set := range found {
		names := make([]string, 0, len(set))
		for n := range set {
			names = append(names, n)
		}
		sort.Strings(names)
		deps[eco] = names
	}
	return deps
}

func parsePackageJSON(data []byte) ([]string, error) {
	var pkg struct {
		Dependencies    map[string]string `json:"dependencies"`
		DevDependencies map[string]string `json:"devDependencies"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, err
	}
	var names []string
	for n := range pkg.Dependencies {
		names = append(names, n)
	}
	for n := range pkg.DevDependencies {
		names = append(names, n)
	}
	return names, nil
}

func parseRequirements(data []byte) ([]string, error) {
	var names []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if i := strings.Index(line, " #"); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
			continue
		}
		if n := requirementName(line); n != "" {
			names = append(names, n)
		}
	}
	return names, sc.Err()
}

// requirementName extracts the project name from a PEP 508 requirement.
func requirementName(req string) string {
	end := strings.IndexAny(req, " =<>!~;[@(")
	if end >= 0 {
		req = req[:end]
	}
	return strings.TrimSpace(req)
}

func parsePyproject(data []byte) ([]string, error) {
	var py struct {
		Project struct {
			Dependencies         []string            `toml:"dependencies"`
			OptionalDependencies map[string][]string `toml:"optional-dependencies"`
		} `toml:"project"`
		Tool struct {
			Poetry struct {
				Dependencies map[string]any `toml:"dependencies"`
			} `toml:"poetry"`
		} `toml:"tool"`
	}
	if _, err := toml.Decode(string(data), &py); err != nil {
		return nil, err
	}
	var names []string
	for _, req := range py.Project.Dependencies {
		if n := requirementName(req); n != "" {
			names = append(names, n)
		}
	}
	for _, group := range py.Project.OptionalDependencies {
		for _, req := range group {
			if n := requirementName(req); n != "" {
				names = append(names, n)
			}
		}
	}
	for n := range py.Tool.Poetry.Dependencies {
		if n != "python" {
			names = append(names, n)
		}
	}
	return names, nil
}

func parseCargo(data []byte) ([]string, error) {
	var cargo struct {
		Dependencies    map[string]any `toml:"dependencies"`
		DevDependencies map[string]any `toml:"dev-dependencies"`
	}
	if _, err := toml.Decode(string(data), &cargo); err != nil {
		return nil, err
	}
	var names []string
	for n := range cargo.Dependencies {
		names = append(names, n)
	}
	for n := range cargo.DevDependencies {
		names = append(names, n)
	}
	return names, nil
}

func parseGoMod(data []byte) ([]string, error) {
	f, err := modfile.ParseLax("go.mod", data, nil)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(f.Require))
	for _, r := range f.Require {
		names = append(names, r.Mod.Path)
	}
	return names, nil
}
