package mongodb_test

import (
	"os"
	"testing"

	"github.com/lllypuk/ladder/tests/testutil"
)

func TestMain(m *testing.M) {
	code := m.Run()

	testutil.CleanupSharedContainer()

	os.Exit(code)
}
