package action

import (
	"testing"

	"go.uber.org/goleak"
)

// Execute runs the context-provider chain and the run validator concurrently
// via errgroup, and shells out through os/exec for inline_script/run — the
// same two goroutine/subprocess suspension-point categories the teacher
// guards with goleak in its own concurrency-heavy packages (e.g.
// internal/core/kernel_test.go). TestMain here catches a leaked goroutine
// from a timed-out or killed subprocess instead of letting it silently
// survive past the test that spawned it.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
