package simplelogger

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// EnvVar names the environment variable holding the log file path.
const EnvVar = "LINEDIFF_LOG_FILE"

var mu sync.Mutex

// now is replaced in tests.
var now = time.Now

// Log is a minimal printf-style logger. It appends formatted output to the file
// specified by the LINEDIFF_LOG_FILE environment variable. Each line of the
// message is prefixed with an RFC 3339 UTC timestamp.
//
// If LINEDIFF_LOG_FILE is unset/empty or the path can't be opened as a file,
// Log is a no-op.
func Log(format string, args ...any) {
	path := os.Getenv(EnvVar)
	if path == "" {
		return
	}

	// Serialize open/write/close to reduce interleaving within a single process.
	mu.Lock()
	defer mu.Unlock()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()

	stamp := now().UTC().Format(time.RFC3339)
	msg := strings.TrimSuffix(fmt.Sprintf(format, args...), "\n")

	var b bytes.Buffer
	for _, line := range strings.Split(msg, "\n") {
		_, _ = fmt.Fprintf(&b, "%s %s\n", stamp, line)
	}
	_, _ = f.Write(b.Bytes())
}

// Enabled reports whether Log writes anywhere. Callers use it to skip building expensive messages.
func Enabled() bool {
	return os.Getenv(EnvVar) != ""
}
