package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JustinBeckwith/flem/pkg/lib"
)

func TestMatchRules(t *testing.T) {
	tests := []struct {
		name  string
		files []string
		want  lib.Runtime
	}{
		{"dockerfile", []string{"dockerfile", "package.json"}, lib.RuntimeCustom},
		{"python", []string{"requirements.txt", "main.py"}, lib.RuntimePython},
		{"ruby", []string{"gemfile", "config.ru"}, lib.RuntimeRuby},
		{"go module", []string{"go.mod"}, lib.RuntimeGo},
		{"go sources", []string{"main.go"}, lib.RuntimeGo},
		{"composer", []string{"composer.json"}, lib.RuntimePHP},
		{"php sources", []string{"index.php"}, lib.RuntimePHP},
		{"maven", []string{"pom.xml"}, lib.RuntimeJava},
		{"jar", []string{"app.jar"}, lib.RuntimeJava},
		{"node", []string{"package.json", "server.js"}, lib.RuntimeNodejs},
		{"yarn", []string{"yarn.lock"}, lib.RuntimeNodejs},
		// Earlier rules win over later ones.
		{"python before node", []string{"package.json", "requirements.txt"}, lib.RuntimePython},
		{"go before node", []string{"package.json", "tools.go"}, lib.RuntimeGo},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MatchRules(Rules, tt.files)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatchRules_NoMatch(t *testing.T) {
	_, err := MatchRules(Rules, []string{"readme.md"})
	require.ErrorIs(t, err, lib.ErrRuntimeNotDetected)
}

func TestDetectRuntime_CaseInsensitiveAndIgnoresDirs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Gemfile", "source 'https://rubygems.org'\n")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "requirements.txt"), 0o755))

	got, err := DetectRuntime(dir)
	require.NoError(t, err)
	assert.Equal(t, lib.RuntimeRuby, got)
}

func TestDetectRuntime_MissingDir(t *testing.T) {
	_, err := DetectRuntime("/does/not/exist")
	require.ErrorIs(t, err, lib.ErrIO)
}

func TestParseGcloudConfig(t *testing.T) {
	project, err := parseGcloudConfig([]byte(`{"core": {"account": "dev@example.com", "project": "my-project"}}`))
	require.NoError(t, err)
	assert.Equal(t, "my-project", project)

	project, err = parseGcloudConfig([]byte(`{"core": {}}`))
	require.NoError(t, err)
	assert.Equal(t, "", project)

	_, err = parseGcloudConfig([]byte("not json"))
	require.Error(t, err)
}
