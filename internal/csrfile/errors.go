package csrfile

import "errors"

var (
	ErrInvalidMagic     = errors.New("invalid CSR file magic")
	ErrUnsupportedMajor = errors.New("unsupported CSR file major version")
	ErrCorruptFile      = errors.New("corrupt CSR file")
	ErrScalarMismatch   = errors.New("CSR file holds a different scalar type")
)
