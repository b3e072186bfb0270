package compute

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
)

// DenoSubsystem is the sole registered subsystem; currently only deno is
// supported. There is no Deno Go SDK available, so — the way a build-time
// extension shells out to an external formatter — it invokes a Deno
// runtime as a subprocess, feeding it the
// four positional arguments as a JSON array on stdin and reading the
// script's JSON result back from stdout.
type DenoSubsystem struct {
	// Binary is the deno executable to run; defaults to "deno" on PATH.
	Binary string
}

// NewDenoSubsystem returns a DenoSubsystem invoking binary (or "deno" if
// binary is empty).
func NewDenoSubsystem(binary string) *DenoSubsystem {
	if binary == "" {
		binary = "deno"
	}
	return &DenoSubsystem{Binary: binary}
}

// ExecuteAndGet implements Subsystem.
func (d *DenoSubsystem) ExecuteAndGet(ctx context.Context, scriptPath string, parent, args map[string]any, selection []SelectionDescriptor) (any, error) {
	payload, err := json.Marshal([]any{parent, args, selection, "Exograph"})
	if err != nil {
		return nil, fmt.Errorf("compute: encoding deno invocation: %w", err)
	}

	cmd := exec.CommandContext(ctx, d.Binary, "run", "--allow-read", "--allow-net", scriptPath)
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("compute: deno subsystem %s: %w: %s", scriptPath, err, stderr.String())
	}

	var result any
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		return nil, fmt.Errorf("compute: decoding deno result from %s: %w", scriptPath, err)
	}
	return result, nil
}

var _ Subsystem = (*DenoSubsystem)(nil)
