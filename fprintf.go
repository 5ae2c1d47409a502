package wandio

import "fmt"

// Fprintf formats according to format and writes the result to w, the same
// shape as wandio_printf/wandio_vprintf in the original library: format into
// a buffer first, then push the whole buffer through the Sink in one Write
// (SPEC_FULL.md §6, grounded on original_source/lib/wandio.c). Because Sink
// writes are all-or-error, the returned int is either len(formatted) or 0.
func Fprintf(w Sink, format string, args ...any) (int, error) {
	buf := fmt.Sprintf(format, args...)
	n, err := w.Write([]byte(buf))
	if err != nil {
		return 0, err
	}
	return n, nil
}
