package scripts

import (
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestStackScriptDryRun(t *testing.T) {
	cases := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "up",
			args: []string{"up", "--dry-run"},
			want: []string{
				"[dry-run] docker compose",
				"[dry-run] cd",
				"[dry-run] env FESTQL_DATABASE_URL=",
				"[dry-run] nohup env",
				"festql-source-stub",
				"festql-api",
				"stack is up",
			},
		},
		{
			name: "down",
			args: []string{"down", "--dry-run"},
			want: []string{
				"[dry-run] cd",
				"[dry-run] docker compose",
				"stack is down",
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stdout, stderr, err := runScript(t, "stack.sh", tc.args...)
			if err != nil {
				t.Fatalf("stack.sh %v failed: %v\nstdout:\n%s\nstderr:\n%s", tc.args, err, stdout, stderr)
			}
			for _, token := range tc.want {
				if !strings.Contains(stdout, token) {
					t.Fatalf("output missing %q\noutput:\n%s", token, stdout)
				}
			}
		})
	}
}

func TestStackScriptUnknownCommand(t *testing.T) {
	_, stderr, err := runScript(t, "stack.sh", "not-a-command")
	if err == nil {
		t.Fatal("expected non-zero exit for unknown command")
	}
	if !strings.Contains(stderr, "unknown command") {
		t.Fatalf("stderr missing unknown command message:\n%s", stderr)
	}
}

// runScript executes a repo script with bash and captures both streams.
func runScript(t *testing.T, script string, args ...string) (string, string, error) {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("runtime.Caller failed")
	}
	cmd := exec.Command("bash", append([]string{filepath.Join(filepath.Dir(thisFile), script)}, args...)...)
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}
