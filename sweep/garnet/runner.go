package garnet

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/garnet-sweep/garnet-sweep/sweep"
)

// defaultTailBytes bounds how much process output an InvocationError carries.
const defaultTailBytes = 4096

// Runner implements sweep.Simulator by executing the engine binary once per
// RunConfig, writing into the Layout directory of the config.
type Runner struct {
	Engine    Engine
	Layout    sweep.Layout
	Timeout   time.Duration // per run; zero means no limit
	TailBytes int
}

// NewRunner creates a Runner for engine writing under layout.
func NewRunner(engine Engine, layout sweep.Layout) *Runner {
	return &Runner{Engine: engine, Layout: layout, TailBytes: defaultTailBytes}
}

// Run blocks until the simulator exits. A non-zero exit, a failure to start,
// or a timeout is returned as a *sweep.InvocationError.
func (r *Runner) Run(ctx context.Context, cfg sweep.RunConfig) (string, error) {
	dir := r.Layout.Dir(cfg)
	args := r.Engine.CommandLine(cfg, dir)

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, r.Engine.Binary, args...)
	cmd.Dir = r.Engine.WorkDir
	out := &tailBuffer{limit: r.TailBytes}
	cmd.Stdout = out
	cmd.Stderr = out

	logrus.Debugf("Running %s %s", r.Engine.Binary, strings.Join(args, " "))
	start := time.Now()
	err := cmd.Run()
	logrus.Debugf("%s finished in %v", cfg, time.Since(start).Round(time.Millisecond))
	if err == nil {
		return dir, nil
	}

	exitCode := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		exitCode = exitErr.ExitCode()
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = fmt.Errorf("%w: %w", ctxErr, err)
	}
	return dir, &sweep.InvocationError{
		Command:  append([]string{r.Engine.Binary}, args...),
		ExitCode: exitCode,
		Output:   out.String(),
		Err:      err,
	}
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	buf   []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if t.limit > 0 && len(t.buf) > t.limit {
		t.buf = append(t.buf[:0], t.buf[len(t.buf)-t.limit:]...)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.TrimSpace(string(t.buf))
}
