package compiler

import (
	"context"
	"os/exec"
	"regexp"
	"strings"
)

// versionPattern extracts the compiler version from a pragma comment:
// "# pragma version ^0.4.0" or the older "# @version 0.3.10".
var versionPattern = regexp.MustCompile(`#\s*(?:@version|pragma\s+version)\s*(?:[<>=!~^]*)\s*(\d+\.\d+\.\d+)`)

// DetectVersion finds the version a source file was written for, falling
// back to defaultVersion. ErrVersionNotFound when neither is available.
func DetectVersion(source, defaultVersion string) (string, error) {
	if match := versionPattern.FindStringSubmatch(source); match != nil {
		return match[1], nil
	}
	if defaultVersion != "" {
		return defaultVersion, nil
	}
	return "", ErrVersionNotFound
}

// InstalledVersion asks the configured Python environment which compiler
// version it ships, or "" when none is importable.
func (g *Gateway) InstalledVersion(ctx context.Context) string {
	cmd := exec.CommandContext(ctx, g.python, "-c", "import vyper; print(vyper.__version__)")
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
