package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"bringupctl/internal/launch"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withPaths points the user and project layers at files under dir.
func withPaths(t *testing.T, userPath, projectPath string) {
	t.Helper()
	origUser := getUserConfigPath
	origProject := getProjectConfigPath
	t.Cleanup(func() {
		getUserConfigPath = origUser
		getProjectConfigPath = origProject
	})
	getUserConfigPath = func() (string, error) { return userPath, nil }
	getProjectConfigPath = func() (string, error) { return projectPath, nil }
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestLoadConfig_DefaultOnly(t *testing.T) {
	dir := t.TempDir()
	withPaths(t, filepath.Join(dir, "missing-user.yaml"), filepath.Join(dir, "missing-project.yaml"))

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, GetDefaultConfig(), cfg)

	req, err := cfg.Launch.Request()
	require.NoError(t, err)
	assert.Equal(t, launch.Request{
		ParamsFile:     "params/dc_params.yaml",
		Autostart:      true,
		UseComposition: true,
		ContainerName:  "dc_container",
		LogLevel:       launch.LogLevelInfo,
	}, req)
}

func TestLoadConfig_UserOverride(t *testing.T) {
	dir := t.TempDir()
	userPath := filepath.Join(dir, "user", configFileName)
	writeFile(t, userPath, `
launch:
  namespace: robot1
  services:
    detectBarcodes: true
supervisor:
  metricsAddr: ":9464"
`)
	withPaths(t, userPath, filepath.Join(dir, "missing-project.yaml"))

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "robot1", cfg.Launch.Namespace)
	assert.True(t, cfg.Launch.Services.DetectBarcodes)
	assert.Equal(t, ":9464", cfg.Supervisor.MetricsAddr)

	// untouched keys keep their defaults
	assert.True(t, cfg.Launch.UseComposition)
	assert.Equal(t, "dc_container", cfg.Launch.ContainerName)
	assert.Equal(t, "ros2", cfg.Supervisor.RosCommand)
}

func TestLoadConfig_ProjectOverridesUser(t *testing.T) {
	dir := t.TempDir()
	userPath := filepath.Join(dir, "user", configFileName)
	projectPath := filepath.Join(dir, projectConfigDir, configFileName)
	writeFile(t, userPath, "launch:\n  namespace: robot1\n  logLevel: debug\n")
	writeFile(t, projectPath, "launch:\n  namespace: robot2\n  useComposition: false\n")
	withPaths(t, userPath, projectPath)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "robot2", cfg.Launch.Namespace)
	assert.Equal(t, "debug", cfg.Launch.LogLevel)
	assert.False(t, cfg.Launch.UseComposition)
}

func TestLoadConfig_ProjectPathFromWorkingDir(t *testing.T) {
	dir := t.TempDir()
	origGetwd := osGetwd
	origUser := getUserConfigPath
	t.Cleanup(func() {
		osGetwd = origGetwd
		getUserConfigPath = origUser
	})
	osGetwd = func() (string, error) { return dir, nil }
	getUserConfigPath = func() (string, error) { return "", errors.New("no home") }

	writeFile(t, filepath.Join(dir, projectConfigDir, configFileName), "export:\n  kubeNamespace: robots\n")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "robots", cfg.Export.KubeNamespace)
}

func TestLoadConfig_EmptyLayer(t *testing.T) {
	dir := t.TempDir()
	userPath := filepath.Join(dir, configFileName)
	writeFile(t, userPath, "")
	withPaths(t, userPath, filepath.Join(dir, "missing.yaml"))

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, GetDefaultConfig(), cfg)
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"malformed yaml", "launch: [unclosed"},
		{"unknown key", "launch:\n  namesapce: robot1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			projectPath := filepath.Join(dir, configFileName)
			writeFile(t, projectPath, tt.content)
			withPaths(t, filepath.Join(dir, "missing.yaml"), projectPath)

			_, err := LoadConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), projectPath)
		})
	}
}

func TestLoadConfigFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	writeFile(t, path, "launch:\n  paramsFile: /etc/dc/params.yaml\n")

	cfg, err := LoadConfigFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "/etc/dc/params.yaml", cfg.Launch.ParamsFile)
	assert.Equal(t, "dc_container", cfg.Launch.ContainerName)

	_, err = LoadConfigFromPath(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLaunchDefaults_RequestRejectsBadLevel(t *testing.T) {
	d := GetDefaultConfig().Launch
	d.LogLevel = "verbose"

	_, err := d.Request()
	assert.Error(t, err)
}

func TestGetUserConfigDir(t *testing.T) {
	orig := osUserHomeDir
	t.Cleanup(func() { osUserHomeDir = orig })
	osUserHomeDir = func() (string, error) { return "/home/dc", nil }

	dir, err := GetUserConfigDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/home/dc", ".config", "bringupctl"), dir)
}
