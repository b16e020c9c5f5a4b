// Package testlog bootstraps logging for tests.
package testlog

import (
	"testing"

	"github.com/fisadev/grillo/internal/logging"
)

func Start(t *testing.T) {
	t.Helper()
	logging.ConfigureTests()
}
