package playback

import (
	"errors"
	"fmt"

	"github.com/dgnsrekt/readaloud/internal/library"
	"github.com/dgnsrekt/readaloud/internal/speech"
)

var (
	// ErrClosed is returned by calls made after Shutdown.
	ErrClosed = errors.New("playback: controller closed")
	// ErrNotStarted is returned by calls made before Start.
	ErrNotStarted = errors.New("playback: controller not started")
)

// ContentCode classifies why a chapter cannot be played.
type ContentCode string

const (
	CodeChapterNotFound ContentCode = "CHAPTER_NOT_FOUND"
	CodeMalformed       ContentCode = "MALFORMED_CHAPTER"
	CodeNoContent       ContentCode = "NO_CONTENT"
	CodeTooLong         ContentCode = "TOO_LONG"
)

// ContentError is a problem with the chapter itself. These are the errors
// readers are told about.
type ContentError struct {
	Code    ContentCode
	Chapter string
	Cause   error
}

func (e *ContentError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Chapter, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Chapter)
}

func (e *ContentError) Unwrap() error {
	return e.Cause
}

// Message is the text shown in the error toast.
func (e *ContentError) Message() string {
	switch e.Code {
	case CodeChapterNotFound:
		return fmt.Sprintf("Chapter %q was not found.", e.Chapter)
	case CodeMalformed:
		return fmt.Sprintf("Chapter %q could not be read.", e.Chapter)
	case CodeNoContent:
		return fmt.Sprintf("Chapter %q has nothing to read.", e.Chapter)
	case CodeTooLong:
		return fmt.Sprintf("A sentence in %q is too long for text-to-speech.", e.Chapter)
	default:
		return fmt.Sprintf("Chapter %q cannot be played.", e.Chapter)
	}
}

// contentError classifies err from loading or speaking chapter.
func contentError(chapter string, err error) *ContentError {
	var ce *ContentError
	if errors.As(err, &ce) {
		return ce
	}

	code := CodeMalformed
	switch {
	case errors.Is(err, library.ErrChapterNotFound):
		code = CodeChapterNotFound
	case errors.Is(err, library.ErrNoContent):
		code = CodeNoContent
	case errors.Is(err, speech.ErrTooLong):
		code = CodeTooLong
	}
	return &ContentError{Code: code, Chapter: chapter, Cause: err}
}
