package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/shipyard/pkg/shipyarderr"
	"github.com/cuemby/shipyard/pkg/types"
)

func writeDoc(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "environment.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const validDocV2 = `
__shipyard.schema: 2
name: {{ .Env.ENV_NAME }}
ships:
  ship-a:
    address: 10.0.0.1
services:
  db:
    image: postgres:15
    instances:
      db-1:
        ship: ship-a
  web:
    image: myorg/web:latest
    requires: [db]
    instances:
      web-1:
        ship: ship-a
        volumes:
          - /data/web:/var/www:ro
`

func TestLoad_RendersTemplateAndBuildsEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, validDocV2)

	env, g, err := Load(path, map[string]string{"ENV_NAME": "staging"})
	require.NoError(t, err)
	require.NotNil(t, g)

	assert.Equal(t, "staging", env.Name)
	assert.Equal(t, "10.0.0.1", env.Ships["ship-a"].Address)
	assert.Equal(t, types.TransportUnix, env.Ships["ship-a"].Transport)

	web := env.Services["web"].Instances[0]
	require.Len(t, web.Volumes, 1)
	assert.Equal(t, "/data/web", web.Volumes[0].Source)
	assert.Equal(t, "/var/www", web.Volumes[0].Target)
	assert.True(t, web.Volumes[0].ReadOnly)
}

func TestLoad_UnknownSchemaIsFatalConfigError(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "__shipyard.schema: 9\nname: x\n")

	_, _, err := Load(path, nil)
	require.Error(t, err)
	assert.True(t, shipyarderr.Is(err, shipyarderr.KindConfig))
}

func TestLoad_V1VolumeDirectionIsContainerThenHost(t *testing.T) {
	dir := t.TempDir()
	doc := `
__shipyard.schema: 1
name: legacy
ships:
  ship-a:
    address: 10.0.0.1
services:
  web:
    image: web:latest
    instances:
      web-1:
        ship: ship-a
        volumes:
          - /var/www:/data/web:ro
`
	path := writeDoc(t, dir, doc)

	env, _, err := Load(path, nil)
	require.NoError(t, err)

	web := env.Services["web"].Instances[0]
	require.Len(t, web.Volumes, 1)
	assert.Equal(t, "/data/web", web.Volumes[0].Source)
	assert.Equal(t, "/var/www", web.Volumes[0].Target)
}

func TestLoad_UndefinedDependencyFailsGraphValidation(t *testing.T) {
	dir := t.TempDir()
	doc := `
__shipyard.schema: 2
name: broken
ships:
  ship-a:
    address: 10.0.0.1
services:
  web:
    image: web:latest
    requires: [nonexistent]
    instances:
      web-1:
        ship: ship-a
`
	path := writeDoc(t, dir, doc)

	_, _, err := Load(path, nil)
	require.Error(t, err)
	assert.True(t, shipyarderr.Is(err, shipyarderr.KindConfig))
}

func TestLoad_EnvFilesLayerBeneathServiceEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "base.env"), []byte("REGION=us-east-1\nLOG_LEVEL=debug\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "override.env"), []byte("LOG_LEVEL=info\n"), 0o600))

	doc := `
__shipyard.schema: 2
name: with-env-files
ships:
  ship-a:
    address: 10.0.0.1
services:
  web:
    image: web:latest
    env_files: [base.env, override.env]
    env:
      LOG_LEVEL: warn
    instances:
      web-1:
        ship: ship-a
`
	path := writeDoc(t, dir, doc)

	env, _, err := Load(path, nil)
	require.NoError(t, err)

	svc := env.Services["web"]
	assert.Equal(t, "us-east-1", svc.Env["REGION"])
	assert.Equal(t, "warn", svc.Env["LOG_LEVEL"], "the service's own env must win over both env_files")
	require.Len(t, svc.EnvFiles, 2)
	assert.Equal(t, filepath.Join(dir, "base.env"), svc.EnvFiles[0])
}

func TestLoad_EnvFilesOverlayInDeclarationOrder(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "base.env"), []byte("LOG_LEVEL=debug\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "override.env"), []byte("LOG_LEVEL=info\n"), 0o600))

	doc := `
__shipyard.schema: 2
name: env-file-order
ships:
  ship-a:
    address: 10.0.0.1
services:
  web:
    image: web:latest
    env_files: [base.env, override.env]
    instances:
      web-1:
        ship: ship-a
`
	path := writeDoc(t, dir, doc)

	env, _, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "info", env.Services["web"].Env["LOG_LEVEL"], "later env_files entries win over earlier ones")
}

func TestLoad_MissingEnvFileIsFatalConfigError(t *testing.T) {
	dir := t.TempDir()
	doc := `
__shipyard.schema: 2
name: missing-env-file
ships:
  ship-a:
    address: 10.0.0.1
services:
  web:
    image: web:latest
    env_files: [nope.env]
    instances:
      web-1:
        ship: ship-a
`
	path := writeDoc(t, dir, doc)

	_, _, err := Load(path, nil)
	require.Error(t, err)
	assert.True(t, shipyarderr.Is(err, shipyarderr.KindConfig))
}

func TestValidate_CleanDocumentHasNoIssues(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, validDocV2)

	report, err := Validate(path, map[string]string{"ENV_NAME": "staging"})
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.Empty(t, report.Issues)
}

func TestValidate_CollectsEveryServiceErrorInOnePass(t *testing.T) {
	dir := t.TempDir()
	doc := `
__shipyard.schema: 2
name: broken
ships:
  ship-a:
    address: 10.0.0.1
services:
  web:
    image: web:latest
    lifecycle_checks:
      - slot: sideways
    instances:
      web-1:
        ship: ship-a
  db:
    image: postgres:15
    lifecycle_checks:
      - slot: sideways
    instances:
      db-1:
        ship: ship-a
`
	path := writeDoc(t, dir, doc)

	report, err := Validate(path, nil)
	require.NoError(t, err)
	require.False(t, report.OK())
	assert.Len(t, report.Issues, 2, "both broken services should be reported, not just the first")
}

func TestValidate_ReportsGraphIssuesWhenServicesAreOtherwiseClean(t *testing.T) {
	dir := t.TempDir()
	doc := `
__shipyard.schema: 2
name: broken
ships:
  ship-a:
    address: 10.0.0.1
services:
  web:
    image: web:latest
    requires: [nonexistent]
    instances:
      web-1:
        ship: ship-a
`
	path := writeDoc(t, dir, doc)

	report, err := Validate(path, nil)
	require.NoError(t, err)
	require.False(t, report.OK())
	require.Len(t, report.Issues, 1)
	assert.True(t, shipyarderr.Is(report.Issues[0], shipyarderr.KindConfig))
}

func TestValidate_UnreadableDocumentReturnsError(t *testing.T) {
	_, err := Validate(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err)
	assert.True(t, shipyarderr.Is(err, shipyarderr.KindConfig))
}

func TestParsePortSpec(t *testing.T) {
	spec, err := parsePortSpec("127.0.0.1:8080")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", spec.Bind)
	assert.Equal(t, "8080", spec.Port)

	spec, err = parsePortSpec("8080")
	require.NoError(t, err)
	assert.Equal(t, "", spec.Bind)
	assert.Equal(t, "8080", spec.Port)
}
