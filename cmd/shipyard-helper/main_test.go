package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunHost_PrintsHostVariable(t *testing.T) {
	t.Setenv("WEB_WEB_1_HOST", "10.0.0.5")

	var buf bytes.Buffer
	err := runHost(&buf, []string{"web", "web-1"})
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5\n", buf.String())
}

func TestRunHost_MissingVariableErrors(t *testing.T) {
	var buf bytes.Buffer
	err := runHost(&buf, []string{"web", "web-1"})
	assert.Error(t, err)
}

func TestRunHost_WrongArgCountErrors(t *testing.T) {
	var buf bytes.Buffer
	err := runHost(&buf, []string{"web"})
	assert.Error(t, err)
}

func TestRunPort_PrintsPortVariable(t *testing.T) {
	t.Setenv("WEB_WEB_1_HTTP_PORT", "8080")

	var buf bytes.Buffer
	err := runPort(&buf, []string{"web", "web-1", "http"})
	require.NoError(t, err)
	assert.Equal(t, "8080\n", buf.String())
}

func TestRunEnv_FiltersByNormalizedPrefix(t *testing.T) {
	t.Setenv("WEB_WEB_1_HOST", "10.0.0.5")
	t.Setenv("WEB_WEB_1_HTTP_PORT", "8080")
	t.Setenv("DB_DB_1_HOST", "10.0.0.9")

	var buf bytes.Buffer
	require.NoError(t, runEnv(&buf, []string{"web"}))

	var out map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))

	assert.Equal(t, "10.0.0.5", out["WEB_WEB_1_HOST"])
	assert.Equal(t, "8080", out["WEB_WEB_1_HTTP_PORT"])
	assert.NotContains(t, out, "DB_DB_1_HOST")
}

func TestRunEnv_NoPrefixReturnsEverything(t *testing.T) {
	t.Setenv("DB_DB_1_HOST", "10.0.0.9")

	var buf bytes.Buffer
	require.NoError(t, runEnv(&buf, nil))

	var out map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "10.0.0.9", out["DB_DB_1_HOST"])
}

func TestPeerPrefix_NormalizesBothParts(t *testing.T) {
	assert.Equal(t, "WEB_WEB_1", peerPrefix("web", "web-1"))
}
