package eventbus_test

import (
	"os"
	"testing"

	"github.com/lllypuk/ladder/tests/testutil"
)

func TestMain(m *testing.M) {
	code := m.Run()

	testutil.CleanupSharedRedisContainer()

	os.Exit(code)
}
