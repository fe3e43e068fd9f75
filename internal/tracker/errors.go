package tracker

import (
	"errors"
	"fmt"
)

var (
	// ErrNoDailyData signals that no usable daily series was found on the page.
	ErrNoDailyData = errors.New("no daily data extracted; page structure may have changed")
	// ErrTooManyRedirects is wrapped by FetchError when the redirect chain exceeds the hop limit.
	ErrTooManyRedirects = errors.New("too many redirects")
	// ErrBodyTooLarge is wrapped by FetchError when the page exceeds the configured size cap.
	ErrBodyTooLarge = errors.New("response body exceeds size limit")
)

// FetchError describes a failed fetch of the source page. StatusCode is zero
// when the request never produced a response.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("fetch %s: HTTP %d: %v", e.URL, e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.StatusCode)
	default:
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IOError describes a failed artifact write.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}
