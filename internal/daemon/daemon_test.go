package daemon_test

import (
	"context"
	"testing"
	"time"

	"fluxqueue/internal/daemon"
	"fluxqueue/internal/logging"
	"fluxqueue/internal/queue"
	"fluxqueue/internal/testsupport"
)

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubGenerator(0))
	store := testsupport.MustOpenStore(t, cfg)

	d, err := daemon.New(cfg, store, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !d.Running() {
		t.Fatal("daemon should report running after Start")
	}

	job := testsupport.NewJob(t, store, cfg, 1, "daemon run")
	deadline := time.Now().Add(15 * time.Second)
	for {
		got, err := store.GetByID(context.Background(), job.ID)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if got != nil && got.IsTerminal() {
			if got.Status != queue.StatusDone {
				t.Fatalf("status = %q (error %q)", got.Status, got.ErrorMessage)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("job never completed under daemon")
		}
		time.Sleep(50 * time.Millisecond)
	}

	d.Stop()
	if d.Running() {
		t.Fatal("daemon should report stopped after Stop")
	}
}

func TestDaemonRejectsSecondInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubGenerator(0))
	store := testsupport.MustOpenStore(t, cfg)

	first, err := daemon.New(cfg, store, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer first.Stop()

	second, err := daemon.New(cfg, store, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("second instance should fail to start")
	}
}

func TestDaemonStartTwice(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubGenerator(0))
	store := testsupport.MustOpenStore(t, cfg)

	d, err := daemon.New(cfg, store, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	if err := d.Start(context.Background()); err == nil {
		t.Fatal("second Start on a running daemon should error")
	}
}
