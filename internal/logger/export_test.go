package logger

import (
	"io"

	"github.com/rs/zerolog"
)

func newTestZerolog(w io.Writer) zerolog.Logger {
	return zerolog.New(w).Level(zerolog.InfoLevel)
}
