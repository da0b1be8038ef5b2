package skillcfg

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

type lookupPathFunc func(file string) (string, error)

// CheckPrerequisites verifies that a stdio descriptor's command is
// resolvable before anything tries to spawn it. HTTP descriptors have no
// local prerequisites.
func CheckPrerequisites(d *Descriptor) error {
	return checkPrerequisitesWithLookup(d, exec.LookPath)
}

func checkPrerequisitesWithLookup(d *Descriptor, lookup lookupPathFunc) error {
	if !d.IsStdio() {
		return nil
	}
	if lookup == nil {
		lookup = exec.LookPath
	}

	command := strings.TrimSpace(d.Command)
	if command == "" {
		return nil
	}
	if _, err := lookup(command); err != nil {
		return fmt.Errorf("required runtime %q not found in PATH", command)
	}

	// `env VAR=... cmd args` hides the real command in the args.
	if !isEnvCommand(command) {
		return nil
	}
	wrapped := envWrappedCommand(d.Args)
	if wrapped == "" {
		return nil
	}
	if _, err := lookup(wrapped); err != nil {
		return fmt.Errorf("required runtime %q not found in PATH", wrapped)
	}
	return nil
}

func isEnvCommand(command string) bool {
	return filepath.Base(strings.TrimSpace(command)) == "env"
}

func envWrappedCommand(args []string) string {
	for i := 0; i < len(args); i++ {
		token := strings.TrimSpace(args[i])
		if token == "" {
			continue
		}
		if token == "--" {
			return nextNonEmptyCommandToken(args[i+1:])
		}
		if strings.HasPrefix(token, "-") {
			continue
		}
		if strings.Contains(token, "=") {
			continue
		}
		return token
	}
	return ""
}

func nextNonEmptyCommandToken(args []string) string {
	for _, arg := range args {
		token := strings.TrimSpace(arg)
		if token == "" {
			continue
		}
		if strings.Contains(token, "=") {
			continue
		}
		return token
	}
	return ""
}
