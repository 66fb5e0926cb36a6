package watchdog

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimeWindowCheck(t *testing.T) {
	at := func(hour int) func() time.Time {
		return func() time.Time {
			return time.Date(2026, 3, 14, hour, 30, 0, 0, time.Local)
		}
	}

	tests := []struct {
		name       string
		start, end int
		hour       int
		want       bool
	}{
		{"inside window", 2, 4, 3, true},
		{"at window start", 2, 4, 2, true},
		{"at window end", 2, 4, 4, false},
		{"outside window", 2, 4, 14, false},
		{"wrapping window night side", 22, 6, 23, true},
		{"wrapping window morning side", 22, 6, 5, true},
		{"wrapping window midday", 22, 6, 12, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &TimeWindowCheck{StartHour: tt.start, EndHour: tt.end, now: at(tt.hour)}
			ok, reason := c.Allow()
			if ok != tt.want {
				t.Errorf("Allow() at %02d:30 = %v (%q), want %v", tt.hour, ok, reason, tt.want)
			}
		})
	}
}

func TestDiskSpaceCheck(t *testing.T) {
	dir := t.TempDir()

	c := &DiskSpaceCheck{Path: dir, MinBytes: 1}
	ok, reason := c.Allow()
	require.True(t, ok, "one free byte should exist: %s", reason)

	c = &DiskSpaceCheck{Path: dir, MinBytes: math.MaxUint64}
	ok, reason = c.Allow()
	require.False(t, ok)
	require.Contains(t, reason, "disk space")
}

func TestDiskSpaceCheckBadPath(t *testing.T) {
	c := &DiskSpaceCheck{Path: filepath.Join(t.TempDir(), "missing"), MinBytes: 1}
	ok, reason := c.Allow()
	require.False(t, ok, "unreadable volume must deny")
	require.Contains(t, reason, "probe")
}

func TestDownFileCheckTracksFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "down")

	c, err := NewDownFileCheck(path)
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	ok, _ := c.Allow()
	require.True(t, ok, "no down file yet")

	require.NoError(t, os.WriteFile(path, nil, 0o644))
	waitFor(t, time.Second, func() bool {
		ok, _ := c.Allow()
		return !ok
	}, "check should deny once the down file appears")

	ok, reason := c.Allow()
	require.False(t, ok)
	require.True(t, strings.Contains(reason, "down file"), "reason = %q", reason)

	require.NoError(t, os.Remove(path))
	waitFor(t, time.Second, func() bool {
		ok, _ := c.Allow()
		return ok
	}, "check should permit once the down file is removed")
}

func TestDownFileCheckPreexistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "down")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	c, err := NewDownFileCheck(path)
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	ok, _ := c.Allow()
	require.False(t, ok, "pre-existing down file must deny immediately")
}

func TestDownFileCheckCloseIdempotent(t *testing.T) {
	c, err := NewDownFileCheck(filepath.Join(t.TempDir(), "down"))
	require.NoError(t, err)

	require.NoError(t, c.Close())

	done := make(chan error, 1)
	go func() { done <- c.Close() }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("second close hung")
	}
}
