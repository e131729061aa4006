package publish

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/quimbydigital/client-report-automations/internal/common"
)

// localTarget writes report files into a directory served by the status
// server (or any static host pointed at the same directory).
type localTarget struct {
	dir     string
	baseURL string
}

func newLocalTarget(config *common.PublishConfig) *localTarget {
	return &localTarget{
		dir:     config.Local.Dir,
		baseURL: strings.TrimRight(config.BaseURL, "/"),
	}
}

func (t *localTarget) Put(_ context.Context, key string, data []byte, _ string) error {
	path := filepath.Join(t.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &DeploymentError{Reason: fmt.Sprintf("create hosting directory for %s", key), Err: err}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &DeploymentError{Transient: true, Reason: fmt.Sprintf("write %s", key), Err: err}
	}
	return nil
}

func (t *localTarget) URLFor(key string) string {
	return t.baseURL + "/" + key
}

func (t *localTarget) Name() string {
	return "local"
}
