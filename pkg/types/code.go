package types

// ErrorKind is the rejection reason reported for an unsafe query.
type ErrorKind int32

// Rejection kinds.
const (
	ErrorKind_UNSPECIFIED ErrorKind = 0

	// 1 ~ 99 structural errors.
	MalformedQuery ErrorKind = 1

	// 101 ~ 199 write and admin errors.
	WriteNotAllowed     ErrorKind = 101
	ProcedureNotAllowed ErrorKind = 102

	// 201 ~ 299 APOC errors.
	ApocNotAllowed      ErrorKind = 201
	UnsafeApocProcedure ErrorKind = 202

	// 301 ~ 399 dialect errors.
	ExplicitCountSubqueryNotAllowed ErrorKind = 301
	UnsupportedVersionConstruct     ErrorKind = 302
)

func (k ErrorKind) String() string {
	switch k {
	case MalformedQuery:
		return "MalformedQuery"
	case WriteNotAllowed:
		return "WriteNotAllowed"
	case ProcedureNotAllowed:
		return "ProcedureNotAllowed"
	case ApocNotAllowed:
		return "ApocNotAllowed"
	case UnsafeApocProcedure:
		return "UnsafeApocProcedure"
	case ExplicitCountSubqueryNotAllowed:
		return "ExplicitCountSubqueryNotAllowed"
	case UnsupportedVersionConstruct:
		return "UnsupportedVersionConstruct"
	default:
		return "UNSPECIFIED"
	}
}

// MarshalText implements encoding.TextMarshaler so kinds render by name in
// JSON and YAML output.
func (k ErrorKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}
