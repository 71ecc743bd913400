package gather

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDependencies_AllEcosystems(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "package.json", `{"dependencies":{"react":"^18.0.0"},"devDependencies":{"jest":"^29"}}`)
	writeFile(t, root, "requirements.txt", "# web\nFlask>=2.0\nrequests[socks]==2.31 # http\n-r dev.txt\n\nnumpy\n")
	writeFile(t, root, "pyproject.toml", `
[project]
dependencies = ["pydantic>=2", "httpx"]

[tool.poetry.dependencies]
python = "^3.11"
rich = "^13"
`)
	writeFile(t, root, "Cargo.toml", `
[package]
name = "demo"

[dependencies]
serde = { version = "1", features = ["derive"] }
tokio = "1"
`)
	writeFile(t, root, "go.mod", "module example.com/demo\n\ngo 1.22\n\nrequire (\n\tgithub.com/spf13/cobra v1.9.1\n)\n")

	deps := Dependencies(root)
	assert.Equal(t, []string{"jest", "react"}, deps[EcosystemNPM])
	assert.Equal(t, []string{"Flask", "httpx", "numpy", "pydantic", "requests", "rich"}, deps[EcosystemPython])
	assert.Equal(t, []string{"serde", "tokio"}, deps[EcosystemCargo])
	assert.Equal(t, []string{"github.com/spf13/cobra"}, deps[EcosystemGo])
}

func TestDependencies_MalformedManifestSkipped(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "package.json", `{"dependencies": {`)
	writeFile(t, root, "requirements.txt", "django\n")

	deps := Dependencies(root)
	assert.NotContains(t, deps, EcosystemNPM)
	assert.Equal(t, []string{"django"}, deps[EcosystemPython])
}

func TestDependencies_None(t *testing.T) {
	assert.Nil(t, Dependencies(t.TempDir()))
}
