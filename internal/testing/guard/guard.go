package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("HORIZON_TEST_MODE") == "" {
			_ = os.Setenv("HORIZON_TEST_MODE", "1")
		}
	})
}
