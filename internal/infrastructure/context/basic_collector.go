package contextcollector

import (
	"bufio"
	"context"
	"os"
	"os/exec"
	"os/user"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/doeshing/cligent-go/internal/domain"
	"github.com/doeshing/cligent-go/internal/ports"
)

const osReleasePath = "/etc/os-release"

// BasicCollector implements ContextCollector with uname, os-release and the
// current user. Host facts are probed once; the working directory is read
// on every call.
type BasicCollector struct {
	osRelease string
	run       func(ctx context.Context, name string, args ...string) string

	once sync.Once
	host domain.ContextSnapshot
}

func NewBasicCollector() *BasicCollector {
	return &BasicCollector{
		osRelease: osReleasePath,
		run:       runCmd,
	}
}

// Collect gathers context data.
func (c *BasicCollector) Collect(ctx context.Context) (domain.ContextSnapshot, error) {
	c.once.Do(func() {
		c.host = c.probe(ctx)
	})

	snapshot := c.host
	snapshot.WorkingDir, _ = os.Getwd()
	return snapshot, nil
}

func (c *BasicCollector) probe(ctx context.Context) domain.ContextSnapshot {
	osName := strings.TrimSpace(c.run(ctx, "uname", "-s"))
	if osName == "" {
		osName = runtime.GOOS
	}
	distro := readPrettyName(c.osRelease)
	if distro == "" {
		distro = strings.TrimSpace(c.run(ctx, "lsb_release", "-ds"))
	}

	return domain.ContextSnapshot{
		OS:     osName,
		Kernel: strings.TrimSpace(c.run(ctx, "uname", "-r")),
		Distro: strings.Trim(distro, `"`),
		User:   currentUser(),
		Shell:  detectShell(),
	}
}

// readPrettyName returns PRETTY_NAME from an os-release file.
func readPrettyName(path string) string {
	file, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if value, ok := strings.CutPrefix(line, "PRETTY_NAME="); ok {
			return strings.Trim(value, `"'`)
		}
	}
	return ""
}

func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	return os.Getenv("USERNAME")
}

func detectShell() string {
	if shell := os.Getenv("SHELL"); shell != "" {
		return filepath.Base(shell)
	}
	if runtime.GOOS == "windows" {
		return "cmd"
	}
	return "sh"
}

func runCmd(ctx context.Context, name string, args ...string) string {
	cctx, cancel := context.WithTimeout(ctx, domain.DefaultProbeTimeout)
	defer cancel()
	out, err := exec.CommandContext(cctx, name, args...).Output()
	if err != nil {
		return ""
	}
	return string(out)
}

var _ ports.ContextCollector = (*BasicCollector)(nil)
