package cmd

import (
	"fmt"
	"strings"

	"github.com/tettuan/breakdown-sub016/internal/pathvalue"
	"github.com/tettuan/breakdown-sub016/internal/strategy"
)

// safeProjectPath resolves a configured relative directory inside the
// project root.
func safeProjectPath(projectRoot, relPath string, platform pathvalue.Platform) (string, error) {
	if strings.TrimSpace(relPath) == "" {
		return "", fmt.Errorf("path is required")
	}
	if pathvalue.IsAbs(relPath, platform) {
		return "", fmt.Errorf("absolute paths are not allowed")
	}

	s, err := strategy.New(platform, projectRoot)
	if err != nil {
		return "", strategy.Legacy(err)
	}

	fullPath, err := s.Resolve(relPath)
	if err != nil {
		return "", strategy.Legacy(err)
	}

	return fullPath, nil
}
