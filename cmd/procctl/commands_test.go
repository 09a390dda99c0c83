package main

import (
	"context"
	"errors"
	"strings"
	"testing"

	"procctl/internal/app"
	"procctl/internal/control"
	"procctl/internal/notify"
	"procctl/internal/registry"
)

func TestListPrintsTable(t *testing.T) {
	var gotQuery string
	withController(t, &stubController{
		listFunc: func(ctx context.Context, params app.ListParams) (app.Snapshot, error) {
			gotQuery = params.Query
			return app.Snapshot{
				Records: []registry.Record{{PID: 4321, Name: "notepad.exe"}},
				Skipped: []registry.SkippedLine{{Line: 5, Reason: `invalid pid "abc"`}},
			}, nil
		},
	})
	buf := withOutput(t, cmdList)
	old := listQuery
	listQuery = "note"
	t.Cleanup(func() { listQuery = old })

	if err := cmdList.RunE(cmdList, nil); err != nil {
		t.Fatalf("RunE error: %v", err)
	}
	out := buf.String()
	if gotQuery != "note" {
		t.Fatalf("query not forwarded: %q", gotQuery)
	}
	if !strings.Contains(out, "PID") || !strings.Contains(out, "4321") || !strings.Contains(out, "notepad.exe") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if !strings.Contains(out, "skipped line 5") {
		t.Fatalf("skipped lines not reported:\n%s", out)
	}
}

func TestListEmpty(t *testing.T) {
	withController(t, &stubController{
		listFunc: func(context.Context, app.ListParams) (app.Snapshot, error) {
			return app.Snapshot{}, nil
		},
	})
	buf := withOutput(t, cmdList)
	if err := cmdList.RunE(cmdList, nil); err != nil {
		t.Fatalf("RunE error: %v", err)
	}
	if buf.String() != "No processes match\n" {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestKillRequiresPID(t *testing.T) {
	withController(t, &stubController{})
	withOutput(t, cmdKill)
	old := killPID
	killPID = 0
	t.Cleanup(func() { killPID = old })

	if err := cmdKill.RunE(cmdKill, nil); err == nil || err.Error() != "--pid is required" {
		t.Fatalf("expected pid error, got %v", err)
	}
}

func TestKillReportsTypedError(t *testing.T) {
	withController(t, &stubController{
		terminateFunc: func(ctx context.Context, params app.TargetParams) (control.Terminated, error) {
			return control.Terminated{}, &control.Error{Kind: control.KindNotFound, Op: "terminate", PID: params.PID}
		},
	})
	withOutput(t, cmdKill)
	old := killPID
	killPID = 99
	t.Cleanup(func() { killPID = old })

	err := cmdKill.RunE(cmdKill, nil)
	if !errors.Is(err, control.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSpawnAndRestartOutput(t *testing.T) {
	withController(t, &stubController{
		spawnFunc: func(ctx context.Context, params app.SpawnParams) (control.Spawned, error) {
			return control.Spawned{Name: params.Name, PID: 77}, nil
		},
		restartFunc: func(ctx context.Context, params app.TargetParams) (control.Restarted, error) {
			return control.Restarted{
				Terminated: control.Terminated{PID: params.PID, Name: "svc"},
				Spawned:    control.Spawned{Name: "svc", PID: 78},
			}, nil
		},
	})

	buf := withOutput(t, cmdSpawn)
	if err := cmdSpawn.RunE(cmdSpawn, []string{"calc.exe"}); err != nil {
		t.Fatalf("spawn: %v", err)
	}
	if buf.String() != "Spawned calc.exe (pid 77)\n" {
		t.Fatalf("unexpected spawn output %q", buf.String())
	}

	buf = withOutput(t, cmdRestart)
	old := restartPID
	restartPID = 12
	t.Cleanup(func() { restartPID = old })
	if err := cmdRestart.RunE(cmdRestart, nil); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if buf.String() != "Restarted svc: pid 12 -> 78\n" {
		t.Fatalf("unexpected restart output %q", buf.String())
	}
}

func TestWatchPrintsEvents(t *testing.T) {
	withController(t, &stubController{
		events: []notify.Event{
			{Kind: notify.Refreshed, Count: 12},
			{Kind: notify.Failed, Op: "terminate", Err: &control.Error{Kind: control.KindTimeout, Op: "terminate", PID: 3}},
		},
	})
	buf := withOutput(t, cmdWatch)
	if err := cmdWatch.RunE(cmdWatch, nil); err != nil {
		t.Fatalf("watch: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "refreshed") || !strings.Contains(out, "12 processes") {
		t.Fatalf("refresh event missing:\n%s", out)
	}
	if !strings.Contains(out, "timed out") {
		t.Fatalf("failure not described:\n%s", out)
	}
}

func TestListStructuredOutput(t *testing.T) {
	withController(t, &stubController{
		listFunc: func(context.Context, app.ListParams) (app.Snapshot, error) {
			return app.Snapshot{Records: []registry.Record{{PID: 7, Name: "editor"}}}, nil
		},
	})
	old := outputFormat
	t.Cleanup(func() { outputFormat = old })

	for format, want := range map[string]string{
		"json": `"pid": 7`,
		"yaml": "pid: 7",
	} {
		buf := withOutput(t, cmdList)
		outputFormat = format
		if err := cmdList.RunE(cmdList, nil); err != nil {
			t.Fatalf("%s: %v", format, err)
		}
		if !strings.Contains(buf.String(), want) || !strings.Contains(buf.String(), "editor") {
			t.Fatalf("%s output missing %q:\n%s", format, want, buf.String())
		}
	}

	withOutput(t, cmdList)
	outputFormat = "xml"
	if err := cmdList.RunE(cmdList, nil); err == nil {
		t.Fatal("expected error for unknown format")
	}
}
