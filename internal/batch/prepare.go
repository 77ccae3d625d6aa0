package batch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/zprp/ffscan/internal/ctxlog"
)

// ErrPrepare is returned when the source tree could not be configured.
var ErrPrepare = errors.New("prepare source tree")

// Prepare configures a fresh source tree so generated headers exist before
// preprocessing: `./configure --disable-x86asm` until avconfig.h appears.
type Prepare struct {
	// Command is run in the source root.
	Command []string
	// Sentinel is a file relative to the root; when it exists the tree is
	// considered configured and Command is not run.
	Sentinel string
}

// NewPrepare splits a command line into a Prepare.
func NewPrepare(command, sentinel string) *Prepare {
	return &Prepare{Command: strings.Fields(command), Sentinel: sentinel}
}

// Run runs Command unless Sentinel already exists.
func (p *Prepare) Run(ctx context.Context, root string) error {
	logger := ctxlog.FromContext(ctx)

	if p.Sentinel != "" {
		if _, err := os.Stat(filepath.Join(root, p.Sentinel)); err == nil {
			logger.Debug("source tree already configured", "sentinel", p.Sentinel)
			return nil
		}
	}
	if len(p.Command) == 0 {
		return fmt.Errorf("%w: empty command", ErrPrepare)
	}

	logger.Info("configuring source tree", "command", strings.Join(p.Command, " "))
	cmd := exec.CommandContext(ctx, p.Command[0], p.Command[1:]...)
	cmd.Dir = root
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		tail := strings.TrimSpace(out.String())
		if i := strings.LastIndexByte(tail, '\n'); i >= 0 {
			tail = tail[i+1:]
		}
		if tail != "" {
			return fmt.Errorf("%w: %s: %v: %s", ErrPrepare, p.Command[0], err, tail)
		}
		return fmt.Errorf("%w: %s: %v", ErrPrepare, p.Command[0], err)
	}

	if p.Sentinel != "" {
		if _, err := os.Stat(filepath.Join(root, p.Sentinel)); err != nil {
			return fmt.Errorf("%w: %s still missing after %s", ErrPrepare, p.Sentinel, p.Command[0])
		}
	}
	return nil
}
