package app

import (
	"os"
	"strconv"
	"sync"
)

// TestModeEnv marks a process started by the test harness. Entrypoints return
// before dialing Postgres, Redis or object storage when it is set.
const TestModeEnv = "ALESTEB_TEST_MODE"

var testMode = sync.OnceValue(func() bool {
	on, _ := strconv.ParseBool(os.Getenv(TestModeEnv))
	return on
})

// InTestMode reports whether TestModeEnv was truthy when first checked.
func InTestMode() bool {
	return testMode()
}
