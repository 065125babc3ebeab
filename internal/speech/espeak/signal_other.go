//go:build !unix

package espeak

import (
	"os"

	"github.com/dgnsrekt/readaloud/internal/speech"
)

func suspend(*os.Process) error {
	return speech.ErrUnsupported
}

func resume(*os.Process) error {
	return speech.ErrUnsupported
}
