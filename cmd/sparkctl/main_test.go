package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func runCmd(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(args, strings.NewReader(stdin), &out)
	return out.String(), err
}

func TestLookupAndSearch(t *testing.T) {
	out, err := runCmd(t, "", "lookup", " 2023-cs120 ")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"id": "2023-CS120"`) {
		t.Fatalf("lookup output: %s", out)
	}

	if _, err := runCmd(t, "", "lookup", "nope"); err == nil {
		t.Fatal("unknown ticket should fail")
	}

	out, err = runCmd(t, "", "search", "-n", "1", "2023")
	if err != nil {
		t.Fatal(err)
	}
	if lines := strings.Split(strings.TrimSpace(out), "\n"); len(lines) != 1 {
		t.Fatalf("search ignored limit: %q", out)
	}
}

func TestNormalizeFromStdin(t *testing.T) {
	out, err := runCmd(t, `{"data":[{"text":" Neustart "}]}`, "normalize")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "Neustart" {
		t.Fatalf("normalize output: %q", out)
	}
}

func TestSessionIsStable(t *testing.T) {
	dir := t.TempDir()
	first, err := runCmd(t, "", "--session-dir", dir, "session", "tablet-1")
	if err != nil {
		t.Fatal(err)
	}
	second, err := runCmd(t, "", "--session-dir", dir, "session", "tablet-1")
	if err != nil {
		t.Fatal(err)
	}
	if first == "" || first != second {
		t.Fatalf("session ids differ: %q vs %q", first, second)
	}
}

func TestUsageErrors(t *testing.T) {
	for _, args := range [][]string{
		{},
		{"frobnicate"},
		{"upgrade", "--from", "7.1"},
		{"translate"},
	} {
		_, err := runCmd(t, "", args...)
		var usage usageError
		if !errors.As(err, &usage) || usage.ExitCode() != 2 {
			t.Fatalf("%v: expected usage error, got %v", args, err)
		}
	}
}
