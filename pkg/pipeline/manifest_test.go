package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stages.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadManifest(t *testing.T) {
	path := writeManifest(t, `
stages:
  - id: design
    name: Design Review
    plan:
      system: you are the manager
      content: plan the design review
    phase:
      content: break the plan into build units
    build:
      content: execute one build unit
    audit:
      content: audit the build output
  - id: implement
    name: Implementation
    plan:
      content: plan the implementation
    phase:
      content: phase it
    build:
      content: build it
    audit:
      content: audit it
`)

	stages, err := LoadManifest(path)
	require.NoError(t, err)
	require.Len(t, stages, 2)

	assert.Equal(t, "design", stages[0].ID)
	assert.Equal(t, "Design Review", stages[0].Name)
	assert.Equal(t, "you are the manager", stages[0].PlanPrompt.System)
	assert.Equal(t, "plan the design review", stages[0].PlanPrompt.Content)
	assert.Equal(t, StatusPending, stages[0].Status())
}

func TestLoadManifestRejectsEmpty(t *testing.T) {
	path := writeManifest(t, "stages: []\n")
	_, err := LoadManifest(path)
	assert.Error(t, err)
}

func TestLoadManifestRejectsDuplicateIDs(t *testing.T) {
	path := writeManifest(t, `
stages:
  - id: s1
    plan: {content: p}
    phase: {content: p}
    build: {content: b}
    audit: {content: a}
  - id: s1
    plan: {content: p}
    phase: {content: p}
    build: {content: b}
    audit: {content: a}
`)
	_, err := LoadManifest(path)
	assert.Error(t, err)
}

func TestLoadManifestRejectsMissingPrompt(t *testing.T) {
	path := writeManifest(t, `
stages:
  - id: s1
    plan: {content: p}
    phase: {content: p}
    build: {content: b}
`)
	_, err := LoadManifest(path)
	assert.Error(t, err)
}

func TestLoadManifestMissingFile(t *testing.T) {
	_, err := LoadManifest(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
