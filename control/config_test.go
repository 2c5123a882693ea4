// Copyright 2025 momentics@gmail.com
// Licensed under the Apache License, Version 2.0.

package control

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestConfigTypedGetters(t *testing.T) {
	cs := NewConfigStore()
	if got := cs.GetInt(KeyPollMaxEvents, DefaultPollMaxEvents); got != DefaultPollMaxEvents {
		t.Fatalf("unset key returned %d", got)
	}
	cs.SetConfig(map[string]any{
		KeyPollMaxEvents:   512,
		KeyConnectDeadline: 3 * time.Second,
	})
	if got := cs.GetInt(KeyPollMaxEvents, DefaultPollMaxEvents); got != 512 {
		t.Fatalf("GetInt = %d, want 512", got)
	}
	if got := cs.GetDuration(KeyConnectDeadline, DefaultConnectDeadline); got != 3*time.Second {
		t.Fatalf("GetDuration = %v, want 3s", got)
	}
	// Mistyped values fall back to the default.
	cs.SetConfig(map[string]any{KeyPollMaxEvents: "many"})
	if got := cs.GetInt(KeyPollMaxEvents, DefaultPollMaxEvents); got != DefaultPollMaxEvents {
		t.Fatalf("mistyped key returned %d", got)
	}
}

func TestConfigSnapshotIsCopy(t *testing.T) {
	cs := NewConfigStore()
	cs.SetConfig(map[string]any{"a": 1})
	snap := cs.GetSnapshot()
	snap["a"] = 2
	if got := cs.GetInt("a", 0); got != 1 {
		t.Fatalf("snapshot mutation leaked into store: %d", got)
	}
}

func TestConfigReloadListener(t *testing.T) {
	cs := NewConfigStore()
	var reloads int32
	cs.OnReload(func() { atomic.AddInt32(&reloads, 1) })
	cs.SetConfig(map[string]any{"x": 1})

	deadline := time.Now().Add(time.Second)
	for atomic.LoadInt32(&reloads) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("reload listener never ran")
		}
		time.Sleep(time.Millisecond)
	}
}
