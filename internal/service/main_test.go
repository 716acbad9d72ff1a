package service

import (
	"os"
	"testing"

	"ledger-core/pkg/monitor"
)

func TestMain(m *testing.M) {
	// Business metrics register on the default prometheus registry, so
	// they are initialized exactly once for the whole test binary.
	monitor.InitBusinessMetrics()
	os.Exit(m.Run())
}
