package insight

import (
	"io"
	"log/slog"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fp(v float64) *float64 {
	return &v
}

func ip(v int) *int {
	return &v
}

func sp(v string) *string {
	return &v
}
