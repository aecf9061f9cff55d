package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zeebo/blake3"

	apperrors "github.com/FocuswithJustin/xus2xml/core/errors"
	"github.com/FocuswithJustin/xus2xml/core/xus"
	"github.com/FocuswithJustin/xus2xml/internal/logging"
)

// Test helper functions

func createTable(t *testing.T, dir, name string, d xus.Dialect, items ...string) string {
	t.Helper()
	data, err := xus.Encode(d, items)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}
	return path
}

func fileDigest(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// execute runs the CLI without a default config file and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	defer logging.InitLogger(logging.LevelWarn, logging.FormatText)

	var cli CLI
	var stdout bytes.Buffer
	_, kctx, err := parse(&cli, args, &stdout, io.Discard)
	if err != nil {
		return stdout.String(), err
	}
	err = kctx.Run()
	return stdout.String(), err
}

func TestDecodeAndEncodeCmd(t *testing.T) {
	dir := t.TempDir()
	src := createTable(t, dir, "menu.xus", xus.DialectB, "Start", "Quit")

	out, err := execute(t, "decode", src)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	doc := filepath.Join(dir, "menu.xml")
	if !strings.Contains(out, doc) || !strings.Contains(out, "2 items, dialect B") {
		t.Errorf("decode output = %q", out)
	}
	if want := "blake3 " + fileDigest(t, doc); !strings.Contains(out, want) {
		t.Errorf("decode output = %q, want digest %q", out, want)
	}

	out, err = execute(t, "encode", doc)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	rebuilt := filepath.Join(dir, "menu_novo.xus")
	if !strings.Contains(out, rebuilt) {
		t.Errorf("encode output = %q", out)
	}

	want, _ := os.ReadFile(src)
	got, err := os.ReadFile(rebuilt)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	if !bytes.Equal(want, got) {
		t.Errorf("rebuilt table differs from source")
	}
	if digest := fileDigest(t, rebuilt); !strings.Contains(out, "blake3 "+digest) {
		t.Errorf("encode output = %q, want digest %s", out, digest)
	}
}

func TestDecodeCmdOutFlag(t *testing.T) {
	dir := t.TempDir()
	src := createTable(t, dir, "menu.xus", xus.DialectA, "a")
	dst := filepath.Join(dir, "elsewhere.xml")

	if _, err := execute(t, "decode", src, "--out", dst); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if _, err := os.Stat(dst); err != nil {
		t.Errorf("output not written: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "menu.xml")); !os.IsNotExist(err) {
		t.Error("default output should not be written when --out is given")
	}
}

func TestEncodeCmdStrict(t *testing.T) {
	dir := t.TempDir()
	orig := filepath.Join(dir, "orig.bin")
	if err := os.WriteFile(orig, []byte("ABCDEF\x00\x00\x00\x0c\x00\x00"), 0644); err != nil {
		t.Fatal(err)
	}
	doc := filepath.Join(dir, "menu.xml")
	if err := os.WriteFile(doc, []byte("<Root><Item_1>x</Item_1></Root>"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := execute(t, "encode", doc, "--original", orig, "--strict")
	if !errors.Is(err, apperrors.ErrUnrecognizedMagic) {
		t.Errorf("strict encode error = %v, want UnrecognizedMagic", err)
	}

	out, err := execute(t, "encode", doc, "--original", orig)
	if err != nil {
		t.Fatalf("lenient encode failed: %v", err)
	}
	if !strings.Contains(out, "dialect A") {
		t.Errorf("encode output = %q", out)
	}
}

func TestDecodeCmdErrors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.xus")
	if err := os.WriteFile(bad, []byte("garbage!"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		args []string
		want error
	}{
		{"bad magic", []string{"decode", bad}, apperrors.ErrUnrecognizedMagic},
		{"missing file", []string{"decode", filepath.Join(dir, "none.xus")}, apperrors.ErrIOFailure},
		{"missing original", []string{"encode", filepath.Join(dir, "none.xml")}, apperrors.ErrMissingOriginal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.args...)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
			if out != "" {
				t.Errorf("unexpected output %q", out)
			}
		})
	}
}

func TestInfoCmd(t *testing.T) {
	dir := t.TempDir()
	src := createTable(t, dir, "menu.xus", xus.DialectB, "a", "b", "c", "d")

	out, err := execute(t, "info", src)
	if err != nil {
		t.Fatalf("info failed: %v", err)
	}
	if !strings.Contains(out, "dialect B, 4 items") {
		t.Errorf("info output = %q", out)
	}

	out, err = execute(t, "info", "--json", src)
	if err != nil {
		t.Fatalf("info --json failed: %v", err)
	}
	var report infoReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if report.Items != 4 || report.RawCount != 2 || !report.SizeFieldOK {
		t.Errorf("report = %+v", report)
	}
}

func TestVerifyCmd(t *testing.T) {
	dir := t.TempDir()
	good := createTable(t, dir, "good.xus", xus.DialectA, "one\r\ntwo", "")

	out, err := execute(t, "verify", good)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if !strings.HasPrefix(out, "OK ") {
		t.Errorf("verify output = %q", out)
	}

	// Literal escape tokens in the source text come back as CR LF.
	lossy := createTable(t, dir, "lossy.xus", xus.DialectA, "keep [0D0A] literal")
	if _, err := execute(t, "verify", lossy); err == nil {
		t.Error("verify should fail for text containing the escape token")
	}
}

func TestGlobalFlags(t *testing.T) {
	if _, err := execute(t, "--log-level", "loud", "version"); err == nil {
		t.Error("expected error for unknown log level")
	}
}

func TestConfigFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"dashed keys", `{"log-level": "debug", "log-format": "json", "strict": true}`},
		{"underscored keys", `{"log_level": "debug", "log_format": "json", "strict": true}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			config := filepath.Join(dir, "config.json")
			if err := os.WriteFile(config, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			defer logging.InitLogger(logging.LevelWarn, logging.FormatText)

			var cli CLI
			args := []string{"--config", config, "encode", filepath.Join(dir, "menu.xml")}
			if _, _, err := parse(&cli, args, io.Discard, io.Discard); err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if cli.LogLevel != "debug" || cli.LogFormat != "json" {
				t.Errorf("config not applied: level=%q format=%q", cli.LogLevel, cli.LogFormat)
			}
			if !cli.Encode.Strict {
				t.Error("config should set encode --strict")
			}
		})
	}

	t.Run("command line wins", func(t *testing.T) {
		config := filepath.Join(t.TempDir(), "config.json")
		if err := os.WriteFile(config, []byte(`{"log-level": "debug"}`), 0644); err != nil {
			t.Fatal(err)
		}
		defer logging.InitLogger(logging.LevelWarn, logging.FormatText)

		var cli CLI
		if _, _, err := parse(&cli, []string{"--config", config, "--log-level", "error", "version"}, io.Discard, io.Discard); err != nil {
			t.Fatalf("parse failed: %v", err)
		}
		if cli.LogLevel != "error" {
			t.Errorf("LogLevel = %q, want %q", cli.LogLevel, "error")
		}
	})
}

func TestExitCode(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.xus")
	if err := os.WriteFile(bad, []byte("garbage!"), 0644); err != nil {
		t.Fatal(err)
	}
	ctl := createTable(t, dir, "ctl.xus", xus.DialectA, "a\x01")

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"unrecognized magic", []string{"decode", bad}, 3},
		{"invalid text", []string{"decode", ctl}, 5},
		{"missing original", []string{"encode", filepath.Join(dir, "none.xml")}, 6},
		{"io failure", []string{"info", filepath.Join(dir, "none.xus")}, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			if err == nil {
				t.Fatal("expected an error")
			}
			if got := exitCode(err); got != tt.want {
				t.Errorf("exitCode(%v) = %d, want %d", err, got, tt.want)
			}
		})
	}

	if got := exitCode(errors.New("round trip differs")); got != 1 {
		t.Errorf("exitCode(plain) = %d, want 1", got)
	}
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if out != "xus2xml version "+version+"\n" {
		t.Errorf("version output = %q", out)
	}
}
