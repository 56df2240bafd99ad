package ingest

import (
	"testing"

	"go.uber.org/goleak"
)

// The pipeline spawns embed+insert workers per document; every test must
// leave no goroutine behind.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
