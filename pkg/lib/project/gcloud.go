package project

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"strings"
)

// CloudProjectResolver returns the developer's active cloud project id.
// Implementations are best-effort: failures yield "" and an error that
// callers only report.
type CloudProjectResolver interface {
	CloudProject(ctx context.Context) (string, error)
}

// Gcloud resolves the project from the gcloud CLI configuration.
type Gcloud struct {
	Binary string // defaults to "gcloud"
}

type gcloudConfig struct {
	Core struct {
		Project string `json:"project"`
	} `json:"core"`
}

func (g Gcloud) CloudProject(ctx context.Context) (string, error) {
	binary := g.Binary
	if binary == "" {
		binary = "gcloud"
	}

	var stdout bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, "config", "list", "--format", "json")
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return "", err
	}

	return parseGcloudConfig(stdout.Bytes())
}

func parseGcloudConfig(data []byte) (string, error) {
	var cfg gcloudConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return "", err
	}
	return strings.TrimSpace(cfg.Core.Project), nil
}

// StaticProject is a CloudProjectResolver returning a fixed value.
type StaticProject string

func (s StaticProject) CloudProject(context.Context) (string, error) {
	return string(s), nil
}
