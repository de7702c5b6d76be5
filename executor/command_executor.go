package executor

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"os/exec"
)

// CommandExecutor interface for dependency injection and improved testability
type CommandExecutor interface {
	Execute(name, cmdline string) ([]byte, error)
}

// RealCommandExecutor runs recipes through the shell. Stdout is captured
// and returned to the caller for redirection into the target file;
// stderr is streamed through prefixed with the target name.
type RealCommandExecutor struct{}

func (RealCommandExecutor) Execute(name, cmdline string) ([]byte, error) {
	cmd := exec.Command("sh", "-c", cmdline)

	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		fmt.Fprintf(os.Stderr, "[%s] %s\n", name, scanner.Text())
	}

	if err := cmd.Wait(); err != nil {
		return stdout.Bytes(), err
	}

	return stdout.Bytes(), nil
}
