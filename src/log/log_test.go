package log_test

import (
	"testing"

	"treedump/src/log"
)

func TestUseProduction(t *testing.T) {
	orig := log.Logger()
	t.Cleanup(func() {
		log.SetLogger(orig)
	})

	if err := log.UseProduction(); err != nil {
		t.Fatalf("UseProduction() error = %v", err)
	}
	if log.Logger().GetSink() == nil {
		t.Fatalf("UseProduction() left no active log sink")
	}

	// Info-level logging must stay enabled on the production core
	if !log.Logger().Enabled() {
		t.Errorf("production logger has info level disabled")
	}
}
