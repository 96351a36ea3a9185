package jobs

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

type fakeDeck struct {
	checks   atomic.Int32
	verifies atomic.Int32
	checkErr error
	verifyOK bool
}

func (f *fakeDeck) CheckDue(context.Context) error {
	f.checks.Add(1)
	return f.checkErr
}

func (f *fakeDeck) Verify(context.Context) (bool, error) {
	f.verifies.Add(1)
	return f.verifyOK, nil
}

func captureLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, nil)), &buf
}

func TestCheckDueLogsFailure(t *testing.T) {
	log, buf := captureLogger()
	d := &fakeDeck{checkErr: errors.New("disk gone")}
	s := New(d, log, time.Minute, 0)

	s.CheckDue()

	if d.checks.Load() != 1 {
		t.Fatalf("checks = %d, want 1", d.checks.Load())
	}
	if !strings.Contains(buf.String(), "disk gone") {
		t.Errorf("expected the failure to be logged, got %q", buf.String())
	}
}

func TestVerifyLogsRepair(t *testing.T) {
	log, buf := captureLogger()
	d := &fakeDeck{}
	s := New(d, log, 0, time.Hour)

	s.Verify()

	if !strings.Contains(buf.String(), "repaired") {
		t.Errorf("expected a repair warning, got %q", buf.String())
	}

	buf.Reset()
	d.verifyOK = true
	s.Verify()
	if buf.Len() != 0 {
		t.Errorf("a clean verification should be silent, got %q", buf.String())
	}
}

func TestStartSchedulesEnabledJobs(t *testing.T) {
	testCases := []struct {
		name          string
		check, verify time.Duration
		want          int
	}{
		{"both", time.Minute, time.Hour, 2},
		{"check only", time.Minute, 0, 1},
		{"none", 0, 0, 0},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := New(&fakeDeck{verifyOK: true}, nil, tc.check, tc.verify)
			if err := s.Start(); err != nil {
				t.Fatalf("Start: %v", err)
			}
			defer s.Stop()
			if got := s.Jobs(); got != tc.want {
				t.Errorf("Jobs() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestStartRunsDueCheckImmediately(t *testing.T) {
	d := &fakeDeck{verifyOK: true}
	s := New(d, nil, time.Hour, time.Hour)
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	deadline := time.Now().Add(5 * time.Second)
	for d.checks.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if d.checks.Load() == 0 {
		t.Fatal("the due check did not run on start")
	}
	if d.verifies.Load() != 0 {
		t.Errorf("verification ran before its first interval")
	}
}
