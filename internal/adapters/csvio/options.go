package csvio

// Option configures a Reader.
type Option func(*Reader)

// WithMinRows sets the row count below which a table only produces a warning.
func WithMinRows(n int) Option {
	return func(r *Reader) {
		if n >= 0 {
			r.minRows = n
		}
	}
}

// WithComma sets the field delimiter.
func WithComma(c rune) Option {
	return func(r *Reader) {
		if c != 0 {
			r.comma = c
		}
	}
}
