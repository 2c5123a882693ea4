// Copyright 2025 momentics@gmail.com
// Licensed under the Apache License, Version 2.0.

// sockaddr_test.go — target resolution: dualstack mapping, zones, unix paths.
package tcp

import (
	"errors"
	"testing"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-netcore/api"
)

func TestResolveIPv4ProducesBothForms(t *testing.T) {
	tgt, err := resolveTarget("tcp", "192.0.2.7:443")
	if err != nil {
		t.Fatal(err)
	}
	if tgt.sa4 == nil || tgt.sa6 == nil {
		t.Fatal("IPv4 target must carry both plain and v4-mapped forms")
	}
	if tgt.sa4.Port != 443 || tgt.sa6.Port != 443 {
		t.Fatalf("ports: sa4=%d sa6=%d, want 443", tgt.sa4.Port, tgt.sa6.Port)
	}
	want4 := [4]byte{192, 0, 2, 7}
	if tgt.sa4.Addr != want4 {
		t.Fatalf("sa4 addr = %v", tgt.sa4.Addr)
	}
	// ::ffff:192.0.2.7
	mapped := tgt.sa6.Addr
	if mapped[10] != 0xff || mapped[11] != 0xff {
		t.Fatalf("sa6 is not a v4-mapped address: %v", mapped)
	}
	if [4]byte{mapped[12], mapped[13], mapped[14], mapped[15]} != want4 {
		t.Fatalf("v4-mapped tail = %v", mapped[12:])
	}
}

func TestResolveIPv6HasNoV4Form(t *testing.T) {
	tgt, err := resolveTarget("tcp", "[2001:db8::1]:80")
	if err != nil {
		t.Fatal(err)
	}
	if tgt.sa4 != nil {
		t.Fatal("IPv6 target must not carry an IPv4 form")
	}
	if tgt.sa6 == nil || tgt.sa6.Port != 80 {
		t.Fatalf("sa6 = %+v", tgt.sa6)
	}
}

func TestResolveUnixPath(t *testing.T) {
	tgt, err := resolveTarget("unix", "/tmp/x.sock")
	if err != nil {
		t.Fatal(err)
	}
	if tgt.saUnix == nil || tgt.saUnix.Name != "/tmp/x.sock" {
		t.Fatalf("saUnix = %+v", tgt.saUnix)
	}
	if tgt.str != "unix:/tmp/x.sock" {
		t.Fatalf("str = %q", tgt.str)
	}
}

func TestResolveGarbageFails(t *testing.T) {
	if _, err := resolveTarget("tcp", "no-port-here"); err == nil {
		t.Fatal("expected resolve failure")
	}
}

func TestResolveUnsupportedNetwork(t *testing.T) {
	_, err := resolveTarget("udp", "127.0.0.1:53")
	if !errors.Is(err, api.ErrInvalidArgument) {
		t.Fatalf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestOpenSocketPrefersDualstack(t *testing.T) {
	tgt, err := resolveTarget("tcp", "127.0.0.1:9")
	if err != nil {
		t.Fatal(err)
	}
	fd, sa, err := openSocket(tgt)
	if err != nil {
		t.Skipf("no IPv6 support on this host: %v", err)
	}
	defer unix.Close(fd)
	if _, ok := sa.(*unix.SockaddrInet6); !ok {
		t.Fatalf("expected v4-mapped v6 sockaddr, got %T", sa)
	}
	v6only, err := unix.GetsockoptInt(fd, unix.IPPROTO_IPV6, unix.IPV6_V6ONLY)
	if err == nil && v6only != 0 {
		t.Fatal("dualstack socket still has IPV6_V6ONLY set")
	}
}
