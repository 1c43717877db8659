package main

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestVersionCommand(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != version {
		t.Fatalf("version output = %q, want %q", got, version)
	}
}

func TestRootFlags(t *testing.T) {
	cmd := newRootCmd()
	for name, want := range map[string]string{"config": "configs/config.yaml", "env": ".env"} {
		flag := cmd.PersistentFlags().Lookup(name)
		if flag == nil || flag.DefValue != want {
			t.Fatalf("flag --%s = %+v, want default %q", name, flag, want)
		}
	}
}

func TestWaitTimeout(t *testing.T) {
	var wg sync.WaitGroup
	if !waitTimeout(&wg, time.Second) {
		t.Fatalf("empty group should finish immediately")
	}

	wg.Add(1)
	if waitTimeout(&wg, 20*time.Millisecond) {
		t.Fatalf("pending group should time out")
	}
	wg.Done()
}
