package response

import "rethinkdriver/internal/errs"

// MapError converts a server error response into a typed error from the
// errs package (the full Driver/Runtime taxonomy). Returns nil for
// non-error response types.
func MapError(resp *Response) error {
	return errs.MapError(resp.Type, resp.ErrType, resp.Results, resp.Backtrace)
}
