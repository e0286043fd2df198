package harness

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
)

// Toolchain is the build system of an engine source tree.
type Toolchain string

const (
	ToolchainGo    Toolchain = "go"
	ToolchainCargo Toolchain = "cargo"
)

// DetectToolchain inspects engineDir for a known build manifest.
func DetectToolchain(engineDir string) (Toolchain, error) {
	if _, err := os.Stat(filepath.Join(engineDir, "Cargo.toml")); err == nil {
		return ToolchainCargo, nil
	}

	if _, err := os.Stat(filepath.Join(engineDir, "go.mod")); err == nil {
		return ToolchainGo, nil
	}

	return "", fmt.Errorf("no go.mod or Cargo.toml in %s", engineDir)
}

// ResolveBinary returns the expected engine binary path for a source tree
// built with toolchain.
func ResolveBinary(engineDir string, toolchain Toolchain) string {
	switch toolchain {
	case ToolchainCargo:
		return filepath.Join(
			engineDir, "target", "release", "tlsbench-engine",
		)
	default:
		return filepath.Join(engineDir, "tlsbench-engine")
	}
}

// Build compiles the engine found in engineDir.
func Build(
	ctx context.Context,
	logger *slog.Logger,
	engineDir string,
) (string, error) {
	toolchain, err := DetectToolchain(engineDir)
	if err != nil {
		return "", fmt.Errorf("build engine: %w", err)
	}

	binPath := ResolveBinary(engineDir, toolchain)

	logger.InfoContext(ctx, "building engine",
		slog.String("toolchain", string(toolchain)),
		slog.String("source_dir", engineDir),
	)

	var cmd *exec.Cmd

	switch toolchain {
	case ToolchainGo:
		cmd = exec.CommandContext(
			ctx, "go", "build", "-o", binPath, ".",
		)
	case ToolchainCargo:
		cmd = exec.CommandContext(
			ctx, "cargo", "build", "--release",
		)
	}

	cmd.Dir = engineDir
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("build engine: %w", err)
	}

	if _, err := os.Stat(binPath); err != nil {
		return "", fmt.Errorf(
			"build engine: binary not found at %s", binPath,
		)
	}

	logger.InfoContext(ctx, "engine built",
		slog.String("binary", binPath),
	)

	return binPath, nil
}

// CommandConfig holds the resolved command and extra arguments needed to
// run the engine.
type CommandConfig struct {
	Binary    string
	ExtraArgs []string
}

// WrapCommand returns the exec configuration needed to run the engine
// binary. A non-empty wrapper, such as a profiler invocation, is run with
// the engine path appended to its arguments.
func WrapCommand(binPath string, wrapper []string) CommandConfig {
	if len(wrapper) == 0 {
		return CommandConfig{Binary: binPath}
	}

	args := make([]string, 0, len(wrapper))
	args = append(args, wrapper[1:]...)
	args = append(args, binPath)

	return CommandConfig{Binary: wrapper[0], ExtraArgs: args}
}
