package main

import (
	"bytes"
	stderrors "errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vango-dev/sellerconsole/internal/errors"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	configPath = ""
	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func errorCode(err error) string {
	var ce *errors.ConsoleError
	if stderrors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

func TestVersionShort(t *testing.T) {
	out, err := execute(t, "version", "--short")
	if err != nil {
		t.Fatal(err)
	}
	if out != "dev\n" {
		t.Errorf("output = %q, want %q", out, "dev\n")
	}
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Version:    dev", "Go version:"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestServeRejectsBadFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code string
	}{
		{"port out of range", []string{"serve", "--port=70000"}, errors.CodeBadFlag},
		{"unknown rollback", []string{"serve", "--rollback=never"}, errors.CodeConfigValue},
		{"bad language", []string{"serve", "--lang=!!"}, errors.CodeConfigValue},
		{"missing config", []string{"serve", "--config", filepath.Join(t.TempDir(), "nope.json")}, errors.CodeConfigRead},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			if err == nil {
				t.Fatal("expected an error")
			}
			if got := errorCode(err); got != tt.code {
				t.Errorf("code = %q, want %q (%v)", got, tt.code, err)
			}
		})
	}
}

func TestDemo(t *testing.T) {
	out, err := execute(t, "demo", "--latency=20ms", "--seed=3")
	if err != nil {
		t.Fatalf("demo: %v\n%s", err, out)
	}
	for _, want := range []string{
		"Editing L001 twice without waiting",
		"[toast success] Leads saved",
		"Pipeline: 1 opportunities",
		"L001 is now Ana Silva Souza (contacted)",
		"0 failed",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "Retrying") {
		t.Error("nothing failed, so nothing should be retried")
	}
}

func TestDemoPortuguese(t *testing.T) {
	out, err := execute(t, "demo", "--latency=20ms", "--lang=pt")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Leads salvos") {
		t.Errorf("output missing Portuguese toast\n%s", out)
	}
}

func TestDemoRejectsBadFailureRate(t *testing.T) {
	_, err := execute(t, "demo", "--failure-rate=2")
	if got := errorCode(err); got != errors.CodeBadFlag {
		t.Errorf("code = %q, want %q", got, errors.CodeBadFlag)
	}
}
