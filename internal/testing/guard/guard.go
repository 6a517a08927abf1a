package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("VENDORBRIDGE_TEST_MODE") == "" {
			_ = os.Setenv("VENDORBRIDGE_TEST_MODE", "1")
		}
	})
}
