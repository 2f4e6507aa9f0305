package contextcollector

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func fakeRunner(outputs map[string]string) func(context.Context, string, ...string) string {
	return func(_ context.Context, name string, args ...string) string {
		return outputs[name+" "+strings.Join(args, " ")]
	}
}

func TestBasicCollectorReadsHostFacts(t *testing.T) {
	release := filepath.Join(t.TempDir(), "os-release")
	content := "NAME=\"Ubuntu\"\nPRETTY_NAME=\"Ubuntu 24.04 LTS\"\nID=ubuntu\n"
	if err := os.WriteFile(release, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SHELL", "/usr/bin/zsh")

	collector := &BasicCollector{
		osRelease: release,
		run: fakeRunner(map[string]string{
			"uname -s": "Linux\n",
			"uname -r": "6.8.0-31-generic\n",
		}),
	}

	snapshot, err := collector.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect error: %v", err)
	}
	if snapshot.OS != "Linux" || snapshot.Kernel != "6.8.0-31-generic" {
		t.Errorf("unexpected uname facts: %+v", snapshot)
	}
	if snapshot.Distro != "Ubuntu 24.04 LTS" {
		t.Errorf("expected distro from os-release, got %q", snapshot.Distro)
	}
	if snapshot.Shell != "zsh" {
		t.Errorf("expected zsh, got %q", snapshot.Shell)
	}
	if snapshot.User == "" {
		t.Error("expected a user name")
	}
	wd, _ := os.Getwd()
	if snapshot.WorkingDir != wd {
		t.Errorf("expected working dir %s, got %s", wd, snapshot.WorkingDir)
	}
}

func TestBasicCollectorFallsBackToLsbRelease(t *testing.T) {
	collector := &BasicCollector{
		osRelease: filepath.Join(t.TempDir(), "missing"),
		run: fakeRunner(map[string]string{
			"lsb_release -ds": "\"Debian GNU/Linux 12\"\n",
		}),
	}

	snapshot, _ := collector.Collect(context.Background())
	if snapshot.Distro != "Debian GNU/Linux 12" {
		t.Errorf("expected lsb_release distro, got %q", snapshot.Distro)
	}
	if snapshot.OS == "" {
		t.Error("expected runtime OS fallback when uname is unavailable")
	}
	if !strings.Contains(snapshot.Line(), "Distro: Debian GNU/Linux 12") {
		t.Errorf("unexpected prompt line %q", snapshot.Line())
	}
}

func TestBasicCollectorProbesOnce(t *testing.T) {
	calls := 0
	collector := &BasicCollector{
		osRelease: filepath.Join(t.TempDir(), "missing"),
		run: func(context.Context, string, ...string) string {
			calls++
			return ""
		},
	}
	_, _ = collector.Collect(context.Background())
	first := calls
	_, _ = collector.Collect(context.Background())
	if calls != first {
		t.Errorf("expected host facts to be cached, probes went from %d to %d", first, calls)
	}
}
