// file: cmd/logging.go
// version: 1.0.0
// guid: 1f2e3d4c-5b6a-4978-8a9b-0c1d2e3f4a5b

package cmd

import (
	"bytes"
	"io"
	"log"
	"os"
	"strings"
)

var levelRanks = map[string]int{"debug": 0, "info": 1, "warn": 2, "error": 3}

// levelWriter drops log lines tagged below the configured level. Lines
// without a tag are always written.
type levelWriter struct {
	out io.Writer
	min int
}

func (w *levelWriter) Write(p []byte) (int, error) {
	if lineRank(p) < w.min {
		return len(p), nil
	}
	return w.out.Write(p)
}

func lineRank(p []byte) int {
	for tag, rank := range map[string]int{"[DEBUG]": 0, "[INFO]": 1, "[WARN]": 2, "[ERROR]": 3} {
		if bytes.Contains(p, []byte(tag)) {
			return rank
		}
	}
	return 3
}

// setupLogging applies the log level to the standard logger.
func setupLogging(level string) {
	rank, ok := levelRanks[strings.ToLower(strings.TrimSpace(level))]
	if !ok {
		rank = levelRanks["info"]
	}
	log.SetOutput(&levelWriter{out: os.Stderr, min: rank})
}
