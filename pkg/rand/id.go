package rand

import (
	cr "crypto/rand"
	"encoding/base32"
	"fmt"
	"time"
)

// DeviceID synthesizes a fallback identifier for imported rows that carry no
// recognizable device-id column. The millisecond clock plus a random suffix
// keeps it unique within and across processes.
func DeviceID() string {
	var b [4]byte // 4 raw bytes → 7 base32 chars
	_, _ = cr.Read(b[:])
	suffix := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(b[:])
	return fmt.Sprintf("IMPORT-%d-%s", time.Now().UnixMilli(), suffix)
}
