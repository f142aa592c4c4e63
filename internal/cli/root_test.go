package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/pagestrip/pkg/errors"
	"github.com/matzehuels/pagestrip/pkg/sink"
)

// writeConfig writes a config file that disables the on-disk cache, plus extra.
func writeConfig(t *testing.T, extra string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	body := "[cache]\nbackend = \"none\"\n" + extra
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCLI(t *testing.T, c *CLI, args ...string) error {
	t.Helper()
	root := c.RootCommand()
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	return root.ExecuteContext(context.Background())
}

func readOutput(t *testing.T, path string) sink.Output {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	var out sink.Output
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return out
}

func writeImage(t *testing.T, dir, name string, w, h int) {
	t.Helper()
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewGray(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
}

func TestRootCommandSubcommands(t *testing.T) {
	root := New(io.Discard, LogInfo).RootCommand()
	want := []string{"layout", "center", "render", "tui", "serve", "cache", "completion"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestLayoutCommandJSON(t *testing.T) {
	cfg := writeConfig(t, "[viewport]\nwidth = 390\nheight = 40\n")
	out := filepath.Join(t.TempDir(), "frames.json")

	c := New(io.Discard, LogInfo)
	err := runCLI(t, c, "--config", cfg, "layout", "-n", "5", "--focus", "2", "--ratio", "1.5", "-f", "json", "-o", out)
	if err != nil {
		t.Fatalf("layout: %v", err)
	}

	got := readOutput(t, out)
	if len(got.Items) != 5 {
		t.Fatalf("items = %d, want 5", len(got.Items))
	}
	// Height 40 from the config × ratio 1.5.
	if got.ExpandedWidth == nil || *got.ExpandedWidth != 60 {
		t.Errorf("expanded_width = %v, want 60", got.ExpandedWidth)
	}
	if got.ContentHeight != 40 {
		t.Errorf("content_height = %v, want 40", got.ContentHeight)
	}
	if !got.Items[2].Focus {
		t.Error("item 2 should be the focus item")
	}
}

func TestLayoutCommandRatiosSetItemCount(t *testing.T) {
	cfg := writeConfig(t, "")
	out := filepath.Join(t.TempDir(), "frames.json")

	c := New(io.Discard, LogInfo)
	err := runCLI(t, c, "--config", cfg, "layout", "--ratios", "1,,3", "--focus", "2",
		"--viewport-height", "30", "-f", "json", "-o", out)
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	got := readOutput(t, out)
	if len(got.Items) != 3 {
		t.Errorf("items = %d, want 3 (one per ratio)", len(got.Items))
	}
	// 30 × 3 = 90 is clamped to the maximum of 84.
	if got.ExpandedWidth == nil || *got.ExpandedWidth != 84 {
		t.Errorf("expanded_width = %v, want 84", got.ExpandedWidth)
	}
}

func TestLayoutCommandCachedWidth(t *testing.T) {
	cfg := writeConfig(t, "")
	out := filepath.Join(t.TempDir(), "frames.json")

	c := New(io.Discard, LogInfo)
	err := runCLI(t, c, "--config", cfg, "layout", "-n", "3", "--focus", "0", "--ratio", "2",
		"--cached-width", "50", "-f", "json", "-o", out)
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	if got := readOutput(t, out); got.ExpandedWidth == nil || *got.ExpandedWidth != 50 {
		t.Errorf("expanded_width = %v, want the cached 50", got.ExpandedWidth)
	}
}

func TestLayoutCommandDir(t *testing.T) {
	cfg := writeConfig(t, "")
	dir := t.TempDir()
	writeImage(t, dir, "a.png", 40, 20)
	writeImage(t, dir, "b.png", 10, 20)
	out := filepath.Join(t.TempDir(), "frames.json")

	c := New(io.Discard, LogInfo)
	err := runCLI(t, c, "--config", cfg, "layout", "--dir", dir, "--focus", "0",
		"--viewport-height", "30", "-f", "json", "-o", out)
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	got := readOutput(t, out)
	if len(got.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(got.Items))
	}
	if got.ExpandedWidth == nil || *got.ExpandedWidth != 60 {
		t.Errorf("expanded_width = %v, want 60 (ratio 2 × 30)", got.ExpandedWidth)
	}
}

func TestLayoutCommandErrors(t *testing.T) {
	cfg := writeConfig(t, "")
	tests := []struct {
		name     string
		args     []string
		wantCode errors.Code
	}{
		{"focus out of range", []string{"layout", "-n", "2", "--focus", "5"}, errors.ErrCodeInvalidFocusIndex},
		{"negative ratio", []string{"layout", "-n", "2", "--focus", "0", "--ratio", "-1"}, errors.ErrCodeInvalidInput},
		{"bad ratios", []string{"layout", "--ratios", "1,x"}, errors.ErrCodeInvalidInput},
		{"negative viewport", []string{"layout", "-n", "2", "--viewport-height", "-3"}, errors.ErrCodeInvalidViewport},
		{"missing dir", []string{"layout", "--dir", "/does/not/exist"}, errors.ErrCodeFileNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(io.Discard, LogInfo)
			args := append([]string{"--config", cfg}, tt.args...)
			err := runCLI(t, c, args...)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !errors.Is(err, tt.wantCode) {
				t.Errorf("error code = %v, want %v (%v)", errors.GetCode(err), tt.wantCode, err)
			}
		})
	}
}

func TestMissingConfigFile(t *testing.T) {
	c := New(io.Discard, LogInfo)
	err := runCLI(t, c, "--config", filepath.Join(t.TempDir(), "nope.toml"), "layout", "-n", "1")
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("error = %v, want %v", err, errors.ErrCodeFileNotFound)
	}
}

func TestConfigWarningsAreLogged(t *testing.T) {
	cfg := writeConfig(t, "[viewport]\nhieght = 10\n")
	var buf bytes.Buffer
	c := New(&buf, LogInfo)
	out := filepath.Join(t.TempDir(), "frames.json")
	if err := runCLI(t, c, "--config", cfg, "layout", "-n", "1", "-f", "json", "-o", out); err != nil {
		t.Fatalf("layout: %v", err)
	}
	if !strings.Contains(buf.String(), "viewport.hieght") {
		t.Errorf("log output %q does not mention the unknown key", buf.String())
	}
}

func TestCenterCommandJSON(t *testing.T) {
	cfg := writeConfig(t, "")
	c := New(io.Discard, LogInfo)

	root := c.RootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"--config", cfg, "center", "-n", "5", "--viewport-width", "100",
		"--viewport-height", "30", "--offset-x", "40", "--offset-y", "3", "--json"})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("center: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != `{"x":48.5,"y":3}` {
		t.Errorf("center output = %s, want {\"x\":48.5,\"y\":3}", got)
	}
}
