package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"time"
)

// Preprocessor runs an external C preprocessor and returns its output.
type Preprocessor struct {
	// Command is the preprocessor binary, "cpp" when empty.
	Command string
	// Args are passed before the generated -I/-D/-include flags.
	Args []string
	// Dir is the working directory; relative include paths and the file
	// path are resolved against it.
	Dir string
	// Timeout bounds one invocation. Zero means no limit beyond ctx.
	Timeout time.Duration
}

// Argv builds the preprocessor argument list for req, in the order
// extra args, include paths, defines (sorted by name), forced includes, file.
func (p *Preprocessor) Argv(req Request) []string {
	argv := append([]string{}, p.Args...)
	for _, inc := range req.IncludePaths {
		argv = append(argv, "-I", inc)
	}
	names := make([]string, 0, len(req.Defines))
	for name := range req.Defines {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		argv = append(argv, "-D"+name+"="+req.Defines[name])
	}
	for _, inc := range req.ExtraIncludes {
		argv = append(argv, "-include", inc)
	}
	return append(argv, req.File)
}

// Run preprocesses req.File. Any failure, including a timeout, is returned
// as a *ToolchainError.
func (p *Preprocessor) Run(ctx context.Context, req Request) ([]byte, error) {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	name := p.Command
	if name == "" {
		name = "cpp"
	}
	argv := p.Argv(req)

	cmd := exec.CommandContext(ctx, name, argv...)
	cmd.Dir = p.Dir
	cmd.WaitDelay = time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if errors.Is(ctxErr, context.DeadlineExceeded) {
				err = fmt.Errorf("timed out after %s: %w", p.Timeout, ctxErr)
			} else {
				err = ctxErr
			}
		}
		return nil, &ToolchainError{
			File:    req.File,
			Command: append([]string{name}, argv...),
			Stderr:  stderr.String(),
			Err:     err,
		}
	}
	return stdout.Bytes(), nil
}
