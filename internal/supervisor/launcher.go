package supervisor

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"

	"bringupctl/internal/executor"
	"bringupctl/internal/params"
)

// Process is a started standalone record.
type Process interface {
	// Wait blocks until the process exits.
	Wait() error
	// PID is the operating system process id, or 0 when there is none.
	PID() int
}

// ProcessLauncher starts standalone records (executables and fragments).
// The process must stop when ctx is cancelled.
type ProcessLauncher interface {
	Start(ctx context.Context, rec executor.StartRecord) (Process, error)
}

// ComponentLoader loads a component record into its running container.
type ComponentLoader interface {
	Load(ctx context.Context, rec executor.StartRecord) error
}

// ExecLauncher starts records with the ros command line tool.
type ExecLauncher struct {
	// Command is the ros CLI, "ros2" when empty.
	Command string
	// Output receives stdout and stderr of every process.
	Output io.Writer
	// ParamsDir is where parameter files are written. A temporary
	// directory is used when empty and removed by Close.
	ParamsDir string

	mu      sync.Mutex
	tempDir string
}

type execProcess struct {
	cmd *exec.Cmd
}

func (p *execProcess) Wait() error { return p.cmd.Wait() }
func (p *execProcess) PID() int    { return p.cmd.Process.Pid }

func (l *ExecLauncher) command() string {
	if l.Command == "" {
		return "ros2"
	}
	return l.Command
}

// Start implements ProcessLauncher.
func (l *ExecLauncher) Start(ctx context.Context, rec executor.StartRecord) (Process, error) {
	var args []string
	if rec.Kind == executor.KindFragment {
		args = LaunchArgs(rec)
	} else {
		files, err := l.writeParamFiles(rec)
		if err != nil {
			return nil, err
		}
		args = RunArgs(rec, files)
	}

	cmd := exec.CommandContext(ctx, l.command(), args...)
	// Signal the whole group so children of ros launch go down too.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGINT)
	}
	cmd.Env = os.Environ()
	for k, v := range rec.Environment {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}
	out := l.Output
	if out == nil {
		out = os.Stdout
	}
	// Both streams go to the screen sink.
	cmd.Stdout = out
	cmd.Stderr = out

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s (%s %v): %w", rec.Label(), l.command(), args, err)
	}
	return &execProcess{cmd: cmd}, nil
}

// Close removes the temporary parameter directory, if one was created.
// A caller supplied ParamsDir is left alone.
func (l *ExecLauncher) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.tempDir == "" {
		return nil
	}
	dir := l.tempDir
	l.tempDir = ""
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove parameter directory: %w", err)
	}
	return nil
}

func (l *ExecLauncher) paramsDir() (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ParamsDir != "" {
		return l.ParamsDir, nil
	}
	if l.tempDir == "" {
		dir, err := os.MkdirTemp("", "bringupctl-")
		if err != nil {
			return "", fmt.Errorf("create parameter directory: %w", err)
		}
		l.tempDir = dir
	}
	return l.tempDir, nil
}

func (l *ExecLauncher) writeParamFiles(rec executor.StartRecord) (ParamFiles, error) {
	dir, err := l.paramsDir()
	if err != nil {
		return ParamFiles{}, err
	}

	var files ParamFiles
	if !rec.Parameters.IsEmpty() {
		path := filepath.Join(dir, rec.ServiceID+".params.yaml")
		if err := writeDocument(path, rec.Parameters); err != nil {
			return ParamFiles{}, err
		}
		files.Parameters = path
	}
	if !rec.Inline.IsEmpty() {
		path := filepath.Join(dir, rec.ServiceID+".inline.yaml")
		if err := writeDocument(path, InlineDocument(rec.Inline)); err != nil {
			return ParamFiles{}, err
		}
		files.Inline = path
	}
	return files, nil
}

func writeDocument(path string, doc params.Document) error {
	data, err := doc.Encode()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ExecLoader loads components with "ros2 component load".
type ExecLoader struct {
	Command string
	Output  io.Writer
}

// Load implements ComponentLoader.
func (l *ExecLoader) Load(ctx context.Context, rec executor.StartRecord) error {
	args, err := LoadArgs(rec)
	if err != nil {
		return fmt.Errorf("build load command for %s: %w", rec.Label(), err)
	}
	command := l.Command
	if command == "" {
		command = "ros2"
	}
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Env = os.Environ()
	for k, v := range rec.Environment {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}
	if l.Output != nil {
		cmd.Stdout = l.Output
		cmd.Stderr = l.Output
	}
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to load %s: %w", rec.Label(), err)
	}
	return nil
}
