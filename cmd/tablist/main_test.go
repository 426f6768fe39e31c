package main

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/rflorenc/tablist/internal/fakeserver"
	"github.com/rflorenc/tablist/internal/models"
)

type stubPrompter struct {
	password string
	calls    int
}

func (p *stubPrompter) ReadPassword(prompt string) (string, error) {
	p.calls++
	return p.password, nil
}

type result struct {
	code   int
	stdout string
	stderr string
}

func runCLI(t *testing.T, prompter *stubPrompter, args ...string) result {
	t.Helper()
	if prompter == nil {
		prompter = &stubPrompter{}
	}
	var stdout, stderr bytes.Buffer
	code := execute(context.Background(), args, prompter, &stdout, &stderr)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func TestCLI_ListWorkbooks(t *testing.T) {
	fs := fakeserver.New()
	defer fs.Close()
	var want strings.Builder
	for i := 0; i < 4; i++ {
		name := fmt.Sprintf("Workbook%d", i)
		id := fs.Add(models.KindWorkbook, name, nil)
		fmt.Fprintf(&want, "%s %s\n", id, name)
	}

	res := runCLI(t, nil, "-s", fs.URL, "-u", "admin", "-p", "secret", "--page-size", "3", "workbook")
	if res.code != exitOK {
		t.Fatalf("exit code = %d, want 0; stderr: %s", res.code, res.stderr)
	}
	if res.stdout != want.String() {
		t.Errorf("stdout = %q, want %q", res.stdout, want.String())
	}
	if fs.SignOuts() != 1 {
		t.Errorf("sign-outs = %d, want 1", fs.SignOuts())
	}
	if fs.ServerInfoCalls() != 1 {
		t.Errorf("serverinfo calls = %d, want 1", fs.ServerInfoCalls())
	}
}

func TestCLI_EmptyCollection(t *testing.T) {
	fs := fakeserver.New()
	defer fs.Close()

	res := runCLI(t, nil, "-s", fs.URL, "-u", "admin", "-p", "secret", "workbook")
	if res.code != exitOK {
		t.Fatalf("exit code = %d, want 0; stderr: %s", res.code, res.stderr)
	}
	if res.stdout != "" {
		t.Errorf("stdout = %q, want empty", res.stdout)
	}
	if fs.SignOuts() != 1 {
		t.Errorf("sign-outs = %d, want 1", fs.SignOuts())
	}
}

func TestCLI_EachKind(t *testing.T) {
	for _, kind := range models.Kinds() {
		if kind == models.KindTask {
			continue
		}
		t.Run(kind.String(), func(t *testing.T) {
			fs := fakeserver.New()
			defer fs.Close()
			id := fs.Add(kind, "Thing", nil)

			res := runCLI(t, nil, "--server", fs.URL, "--username", "admin", "--password", "secret", kind.String())
			if res.code != exitOK {
				t.Fatalf("exit code = %d, want 0; stderr: %s", res.code, res.stderr)
			}
			if res.stdout != id+" Thing\n" {
				t.Errorf("stdout = %q, want %q", res.stdout, id+" Thing\n")
			}
		})
	}
}

func TestCLI_Tasks(t *testing.T) {
	fs := fakeserver.New()
	defer fs.Close()
	wb := fs.Add(models.KindWorkbook, "Sales", nil)
	ds := fs.Add(models.KindDatasource, "Orders", nil)
	t1 := fs.AddTask(models.Target{Kind: models.KindWorkbook, ID: wb})
	t2 := fs.AddTask(models.Target{Kind: models.KindDatasource, ID: ds})

	res := runCLI(t, nil, "-s", fs.URL, "-u", "admin", "-p", "secret", "task")
	if res.code != exitOK {
		t.Fatalf("exit code = %d, want 0; stderr: %s", res.code, res.stderr)
	}
	want := t1 + " extractRefresh Sales\n" + t2 + " extractRefresh Orders\n"
	if res.stdout != want {
		t.Errorf("stdout = %q, want %q", res.stdout, want)
	}
	if got := fs.Lookups(models.KindWorkbook) + fs.Lookups(models.KindDatasource); got != 2 {
		t.Errorf("target lookups = %d, want 2", got)
	}
}

func TestCLI_TaskTargetMissing(t *testing.T) {
	fs := fakeserver.New()
	defer fs.Close()
	wb := fs.Add(models.KindWorkbook, "Sales", nil)
	gone := fs.Add(models.KindWorkbook, "Deleted", nil)
	t1 := fs.AddTask(models.Target{Kind: models.KindWorkbook, ID: wb})
	fs.AddTask(models.Target{Kind: models.KindWorkbook, ID: gone})
	fs.AddTask(models.Target{Kind: models.KindWorkbook, ID: wb})
	fs.Remove(models.KindWorkbook, gone)

	res := runCLI(t, nil, "-s", fs.URL, "-u", "admin", "-p", "secret", "task")
	if res.code != exitError {
		t.Fatalf("exit code = %d, want %d", res.code, exitError)
	}
	if res.stdout != t1+" extractRefresh Sales\n" {
		t.Errorf("stdout = %q, want only the first task", res.stdout)
	}
	if !strings.Contains(res.stderr, "not found") {
		t.Errorf("stderr = %q, want a not-found diagnostic", res.stderr)
	}
	if fs.SignOuts() != 1 {
		t.Errorf("sign-outs = %d, want 1", fs.SignOuts())
	}
}

func TestCLI_TaskTargetMissing_KeepGoing(t *testing.T) {
	fs := fakeserver.New()
	defer fs.Close()
	wb := fs.Add(models.KindWorkbook, "Sales", nil)
	gone := fs.Add(models.KindWorkbook, "Deleted", nil)
	fs.AddTask(models.Target{Kind: models.KindWorkbook, ID: gone})
	t2 := fs.AddTask(models.Target{Kind: models.KindWorkbook, ID: wb})
	fs.Remove(models.KindWorkbook, gone)

	res := runCLI(t, nil, "-s", fs.URL, "-u", "admin", "-p", "secret", "--keep-going", "task")
	if res.code != exitError {
		t.Fatalf("exit code = %d, want %d", res.code, exitError)
	}
	if res.stdout != t2+" extractRefresh Sales\n" {
		t.Errorf("stdout = %q, want the resolvable task", res.stdout)
	}
	if fs.SignOuts() != 1 {
		t.Errorf("sign-outs = %d, want 1", fs.SignOuts())
	}
}

func TestCLI_BadCredentials(t *testing.T) {
	fs := fakeserver.New()
	defer fs.Close()

	res := runCLI(t, nil, "-s", fs.URL, "-u", "admin", "-p", "wrong", "workbook")
	if res.code != exitError {
		t.Fatalf("exit code = %d, want %d", res.code, exitError)
	}
	if !strings.Contains(res.stderr, "authentication failed") || !strings.Contains(res.stderr, "Signin Error") {
		t.Errorf("stderr = %q, want authentication diagnostic with server message", res.stderr)
	}
	if fs.SignOuts() != 0 {
		t.Errorf("sign-outs = %d, want 0", fs.SignOuts())
	}
}

func TestCLI_Unreachable(t *testing.T) {
	fs := fakeserver.New()
	url := fs.URL
	fs.Close()

	res := runCLI(t, nil, "-s", url, "-u", "admin", "-p", "secret", "workbook")
	if res.code != exitError {
		t.Fatalf("exit code = %d, want %d", res.code, exitError)
	}
	if !strings.Contains(res.stderr, "server unreachable") {
		t.Errorf("stderr = %q, want connectivity diagnostic", res.stderr)
	}
}

func TestCLI_PromptsForPassword(t *testing.T) {
	fs := fakeserver.New()
	defer fs.Close()

	p := &stubPrompter{password: "secret"}
	res := runCLI(t, p, "-s", fs.URL, "-u", "admin", "project")
	if res.code != exitOK {
		t.Fatalf("exit code = %d, want 0; stderr: %s", res.code, res.stderr)
	}
	if p.calls != 1 {
		t.Errorf("prompter calls = %d, want 1", p.calls)
	}
}

func TestCLI_PasswordFlagSkipsPrompt(t *testing.T) {
	fs := fakeserver.New()
	defer fs.Close()

	p := &stubPrompter{password: "wrong"}
	res := runCLI(t, p, "-s", fs.URL, "-u", "admin", "-p", "secret", "project")
	if res.code != exitOK {
		t.Fatalf("exit code = %d, want 0; stderr: %s", res.code, res.stderr)
	}
	if p.calls != 0 {
		t.Errorf("prompter calls = %d, want 0", p.calls)
	}
}

func TestCLI_UsageErrors(t *testing.T) {
	fs := fakeserver.New()
	defer fs.Close()

	tests := []struct {
		name    string
		args    []string
		message string
	}{
		{"missing server", []string{"-u", "admin", "-p", "x", "workbook"}, "--server"},
		{"missing username", []string{"-s", fs.URL, "-p", "x", "workbook"}, "--username"},
		{"missing resource type", []string{"-s", fs.URL, "-u", "admin", "-p", "x"}, "resource_type"},
		{"invalid resource type", []string{"-s", fs.URL, "-u", "admin", "-p", "x", "flow"}, "resource_type"},
		{"invalid logging level", []string{"-s", fs.URL, "-u", "admin", "-p", "x", "-l", "warning", "workbook"}, "logging-level"},
		{"unknown flag", []string{"-s", fs.URL, "-u", "admin", "--bogus", "workbook"}, "bogus"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := &stubPrompter{password: "secret"}
			res := runCLI(t, p, tc.args...)
			if res.code != exitUsage {
				t.Fatalf("exit code = %d, want %d; stderr: %s", res.code, exitUsage, res.stderr)
			}
			if !strings.Contains(res.stderr, tc.message) {
				t.Errorf("stderr = %q, want mention of %q", res.stderr, tc.message)
			}
			if !strings.Contains(res.stderr, "Usage:") {
				t.Errorf("stderr = %q, want usage text", res.stderr)
			}
			if p.calls != 0 {
				t.Errorf("prompter calls = %d, want 0", p.calls)
			}
		})
	}
	if fs.ServerInfoCalls() != 0 || fs.SignIns() != 0 {
		t.Errorf("usage errors made network calls: serverinfo=%d signin=%d", fs.ServerInfoCalls(), fs.SignIns())
	}
}

func TestCLI_APIVersionSkipsDiscovery(t *testing.T) {
	fs := fakeserver.New()
	defer fs.Close()

	res := runCLI(t, nil, "-s", fs.URL, "-u", "admin", "-p", "secret", "--api-version", "3.10", "view")
	if res.code != exitOK {
		t.Fatalf("exit code = %d, want 0; stderr: %s", res.code, res.stderr)
	}
	if fs.ServerInfoCalls() != 0 {
		t.Errorf("serverinfo calls = %d, want 0", fs.ServerInfoCalls())
	}
	if fs.Requests("3.10") == 0 {
		t.Error("no requests were sent under API version 3.10")
	}
}

func TestCLI_DebugLogging(t *testing.T) {
	fs := fakeserver.New()
	defer fs.Close()
	fs.Add(models.KindProject, "Default", nil)

	res := runCLI(t, nil, "-s", fs.URL, "-u", "admin", "-p", "secret", "-l", "debug", "project")
	if res.code != exitOK {
		t.Fatalf("exit code = %d, want 0; stderr: %s", res.code, res.stderr)
	}
	if !strings.Contains(res.stderr, "level=DEBUG") {
		t.Errorf("stderr = %q, want debug log lines", res.stderr)
	}
	if strings.Contains(res.stderr, "secret") {
		t.Error("password leaked into logs")
	}
	if strings.Count(res.stdout, "\n") != 1 {
		t.Errorf("stdout = %q, logging must not affect listed output", res.stdout)
	}
}

func TestCLI_Version(t *testing.T) {
	res := runCLI(t, nil, "--version")
	if res.code != exitOK {
		t.Fatalf("exit code = %d, want 0", res.code)
	}
	if !strings.Contains(res.stdout, version) {
		t.Errorf("stdout = %q, want version", res.stdout)
	}
}
