// Package skill links generated skill directories into Claude's skills
// directory so converted servers become available without copying files.
package skill

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/junerver/MCP2Skills/internal/paths"
)

// InstallResult describes where a skill was linked.
type InstallResult struct {
	SkillDir   string
	Link       string
	LinkTarget string
}

// Install symlinks skillDir into the Claude skills directory under name.
// Re-installing the same skill is a no-op; a link pointing elsewhere is
// replaced.
func Install(skillDir, name string) (*InstallResult, error) {
	abs, err := filepath.Abs(skillDir)
	if err != nil {
		return nil, fmt.Errorf("resolving skill dir: %w", err)
	}
	if info, err := os.Stat(abs); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("skill directory not found: %s", skillDir)
	}

	claudeDir := paths.SkillsDir()
	if err := paths.EnsureDir(claudeDir); err != nil {
		return nil, fmt.Errorf("creating skills directory: %w", err)
	}

	linkPath := filepath.Join(claudeDir, name)
	target, err := ensureSymlink(abs, linkPath)
	if err != nil {
		return nil, fmt.Errorf("linking skill: %w", err)
	}

	return &InstallResult{SkillDir: abs, Link: linkPath, LinkTarget: target}, nil
}

// Uninstall removes the skill link. Only symlinks are touched; a real
// directory at the link path is an error.
func Uninstall(name string) error {
	linkPath := filepath.Join(paths.SkillsDir(), name)
	info, err := os.Lstat(linkPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("checking skill link: %w", err)
	}
	if info.Mode()&os.ModeSymlink == 0 {
		return fmt.Errorf("not a managed skill link: %s", linkPath)
	}
	return os.Remove(linkPath)
}

func ensureSymlink(target, linkPath string) (string, error) {
	if info, err := os.Lstat(linkPath); err == nil {
		if info.Mode()&os.ModeSymlink == 0 {
			return "", fmt.Errorf("path exists and is not a symlink: %s", linkPath)
		}

		existingTarget, err := os.Readlink(linkPath)
		if err != nil {
			return "", fmt.Errorf("reading existing symlink: %w", err)
		}

		if samePath(resolveLinkTarget(linkPath, existingTarget), target) {
			return existingTarget, nil
		}

		if err := os.Remove(linkPath); err != nil {
			return "", fmt.Errorf("removing existing symlink: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("checking existing link: %w", err)
	}

	linkTarget := target
	if relTarget, err := filepath.Rel(filepath.Dir(linkPath), target); err == nil && relTarget != "" {
		linkTarget = relTarget
	}

	if err := os.Symlink(linkTarget, linkPath); err != nil {
		return "", fmt.Errorf("creating symlink: %w", err)
	}
	return linkTarget, nil
}

func resolveLinkTarget(linkPath, target string) string {
	if filepath.IsAbs(target) {
		return filepath.Clean(target)
	}
	return filepath.Clean(filepath.Join(filepath.Dir(linkPath), target))
}

func samePath(pathA, pathB string) bool {
	cleanA := filepath.Clean(pathA)
	cleanB := filepath.Clean(pathB)
	if cleanA == cleanB {
		return true
	}

	if resolved, err := filepath.EvalSymlinks(cleanA); err == nil {
		cleanA = filepath.Clean(resolved)
	}
	if resolved, err := filepath.EvalSymlinks(cleanB); err == nil {
		cleanB = filepath.Clean(resolved)
	}
	return cleanA == cleanB
}
