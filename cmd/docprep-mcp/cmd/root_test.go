package cmd

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ironsheep/docprep-mcp/internal/config"
)

var testInfo = BuildInfo{Version: "1.2.3", BuildTime: "2026-01-02", GitCommit: "abc123"}

// execute runs a fresh command tree with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	root := NewRootCommand(testInfo)
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

// writeConfig writes a config file that disables skew correction so test
// pages keep their geometry.
func writeConfig(t *testing.T, extra string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "docprep.yaml")
	content := `log_level: warn
pipeline:
  skew:
    min_image_size: 100000
recognition:
  language: eng
  workers: 2
` + extra
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// writePage saves a 400x400 white page with three dark columns.
func writePage(t *testing.T) string {
	t.Helper()

	g := image.NewGray(image.Rect(0, 0, 400, 400))
	for i := range g.Pix {
		g.Pix[i] = 255
	}
	for _, r := range []image.Rectangle{
		image.Rect(40, 80, 80, 330),
		image.Rect(170, 60, 210, 340),
		image.Rect(300, 50, 340, 350),
	} {
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				g.Pix[g.PixOffset(x, y)] = 0
			}
		}
	}

	path := filepath.Join(t.TempDir(), "page.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, g))
	return path
}

func decodeFile(t *testing.T, path string) image.Image {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	return img
}

func TestRootCommand(t *testing.T) {
	root := NewRootCommand(testInfo)
	assert.Equal(t, "docprep-mcp", root.Use)
	assert.NotEmpty(t, root.Short)
	assert.NotEmpty(t, root.Long)

	names := make([]string, 0, len(root.Commands()))
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"serve", "ocr", "preprocess", "segment", "config", "version"} {
		assert.Contains(t, names, want)
	}
}

func TestRootCommandHelp(t *testing.T) {
	stdout, _, err := execute(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Available Commands:")
	assert.Contains(t, stdout, "--lang")
}

func TestRootCommandVersionFlag(t *testing.T) {
	stdout, _, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "1.2.3")
	assert.Contains(t, stdout, "abc123")
}

func TestVersionCommand(t *testing.T) {
	stdout, _, err := execute(t, "version", "--config", writeConfig(t, ""))
	require.NoError(t, err)
	assert.Contains(t, stdout, "docprep-mcp 1.2.3")
	assert.Contains(t, stdout, "Build time: 2026-01-02")
	assert.Contains(t, stdout, "Git commit: abc123")
}

func TestConfigShow(t *testing.T) {
	stdout, _, err := execute(t, "config", "show", "--config", writeConfig(t, ""), "--workers", "3")
	require.NoError(t, err)

	var cfg config.Config
	require.NoError(t, yaml.Unmarshal([]byte(stdout), &cfg))
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "eng", cfg.Recognition.Language)
	assert.Equal(t, 3, cfg.Recognition.Workers, "flags override the config file")
	assert.Equal(t, 100000, cfg.Pipeline.Skew.MinImageSize)
	assert.Equal(t, config.DefaultConfig().Pipeline.Denoise, cfg.Pipeline.Denoise)
}

func TestConfigPath(t *testing.T) {
	path := writeConfig(t, "")
	stdout, _, err := execute(t, "config", "path", "--config", path)
	require.NoError(t, err)
	assert.Equal(t, path, strings.TrimSpace(stdout))
}

func TestInvalidConfigFails(t *testing.T) {
	path := writeConfig(t, "output:\n  format: xml\n")
	_, _, err := execute(t, "config", "show", "--config", path)
	require.Error(t, err)

	var verr *config.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "output.format", verr.Field)
}

func TestMissingConfigFails(t *testing.T) {
	_, _, err := execute(t, "config", "show", "--config", filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestServeAnswersRequests(t *testing.T) {
	root := NewRootCommand(testInfo)
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"initialize"}` + "\n"))
	root.SetArgs([]string{"serve", "--config", writeConfig(t, "")})
	require.NoError(t, root.Execute())

	var resp struct {
		Result struct {
			ServerInfo struct {
				Name    string `json:"name"`
				Version string `json:"version"`
			} `json:"serverInfo"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &resp))
	assert.Equal(t, "docprep-mcp", resp.Result.ServerInfo.Name)
	assert.Equal(t, "1.2.3", resp.Result.ServerInfo.Version)
}

func TestPreprocessCommand(t *testing.T) {
	out := filepath.Join(t.TempDir(), "clean.png")
	stdout, _, err := execute(t, "preprocess", writePage(t),
		"--config", writeConfig(t, ""), "--out", out, "--binarize", "--format", "json")
	require.NoError(t, err)

	var res struct {
		Width     int    `json:"width"`
		Height    int    `json:"height"`
		Inverted  bool   `json:"inverted"`
		Binarized bool   `json:"binarized"`
		Out       string `json:"out"`
		Skew      struct {
			Status string `json:"status"`
		} `json:"skew"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &res))
	assert.Equal(t, "too_small", res.Skew.Status)
	assert.Equal(t, 400, res.Width)
	assert.Equal(t, 400, res.Height)
	assert.True(t, res.Binarized)
	assert.False(t, res.Inverted)
	assert.Equal(t, out, res.Out)

	img := decodeFile(t, out)
	require.Equal(t, image.Rect(0, 0, 400, 400), img.Bounds())
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, _, _, _ := img.At(x, y).RGBA()
			v := r >> 8
			if v != 0 && v != 255 {
				t.Fatalf("pixel (%d,%d) = %d, want 0 or 255", x, y, v)
			}
		}
	}
}

func TestPreprocessCommandText(t *testing.T) {
	stdout, _, err := execute(t, "preprocess", writePage(t), "--config", writeConfig(t, ""))
	require.NoError(t, err)
	assert.Contains(t, stdout, "400x400")
	assert.Contains(t, stdout, "skew=too_small")
	assert.Contains(t, stdout, "binarized=false")
}

func TestPreprocessCommandRequiresImage(t *testing.T) {
	_, _, err := execute(t, "preprocess", "--config", writeConfig(t, ""))
	require.Error(t, err)
}

func TestSegmentCommand(t *testing.T) {
	overlay := filepath.Join(t.TempDir(), "blocks.png")
	resultFile := filepath.Join(t.TempDir(), "blocks.json")
	_, _, err := execute(t, "segment", writePage(t), "--config", writeConfig(t, ""),
		"--overlay", overlay, "--format", "json", "--output", resultFile)
	require.NoError(t, err)

	data, err := os.ReadFile(resultFile)
	require.NoError(t, err)
	var res struct {
		Strategy string `json:"strategy"`
		Count    int    `json:"count"`
		Blocks   []struct {
			X int `json:"x"`
		} `json:"blocks"`
	}
	require.NoError(t, json.Unmarshal(data, &res))
	require.Equal(t, 3, res.Count)
	require.Len(t, res.Blocks, 3)
	assert.Less(t, res.Blocks[0].X, res.Blocks[1].X)
	assert.Less(t, res.Blocks[1].X, res.Blocks[2].X)

	assert.Equal(t, image.Rect(0, 0, 400, 400), decodeFile(t, overlay).Bounds())
}

func TestSegmentCommandText(t *testing.T) {
	stdout, _, err := execute(t, "segment", writePage(t), "--config", writeConfig(t, ""))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "3 blocks")
	assert.True(t, strings.HasPrefix(lines[1], "1\t"))
}

func TestSegmentCommandMissingFile(t *testing.T) {
	_, _, err := execute(t, "segment", filepath.Join(t.TempDir(), "missing.png"), "--config", writeConfig(t, ""))
	require.Error(t, err)
}

func TestOCRCommandRequiresArgs(t *testing.T) {
	_, _, err := execute(t, "ocr", "--config", writeConfig(t, ""))
	require.Error(t, err)
}

func TestOCRCommandBadFormat(t *testing.T) {
	_, _, err := execute(t, "ocr", writePage(t), "--config", writeConfig(t, ""), "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format")
}

func TestFormatOCRText(t *testing.T) {
	text := string(formatOCRText([]ocrOutput{{File: "a.png", Error: "boom"}}))
	assert.Equal(t, "error: boom\n", text)

	text = string(formatOCRText([]ocrOutput{{File: "a.png", Error: "boom"}, {File: "b.png", Error: "bad"}}))
	assert.Equal(t, "== a.png ==\nerror: boom\n\n== b.png ==\nerror: bad\n", text)
}
