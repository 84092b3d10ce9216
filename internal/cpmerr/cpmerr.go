// Package cpmerr carries this module's ambient error and logging idiom,
// grounded on the teacher's context.go/misc.go: an Error interface that
// distinguishes lock contention from ordinary failure, and a package-level
// Logger a caller can enable for diagnostics.
package cpmerr

import (
	"fmt"
	goLog "log"
)

// Kind classifies a failure along the lines spec.md §7 draws for
// propagation and exit-code purposes. KindUnknown is the zero value, used
// by call sites that predate the taxonomy or genuinely don't care.
type Kind int

const (
	KindUnknown Kind = iota
	KindConfig
	KindArg
	KindSecurity
	KindIO
	KindCrypto
	KindCompression
	KindXMLParse
	KindXMLValidation
	KindPattern
	KindPolicy
	KindSignalExit
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "ConfigError"
	case KindArg:
		return "ArgError"
	case KindSecurity:
		return "SecurityError"
	case KindIO:
		return "IoError"
	case KindCrypto:
		return "CryptoError"
	case KindCompression:
		return "CompressionError"
	case KindXMLParse:
		return "XmlParseError"
	case KindXMLValidation:
		return "XmlValidationError"
	case KindPattern:
		return "PatternError"
	case KindPolicy:
		return "PolicyError"
	case KindSignalExit:
		return "SignalExit"
	default:
		return "Error"
	}
}

// Error is implemented by every error this module constructs directly
// (as opposed to errors it merely wraps from a dependency).
type Error interface {
	error
	Locked() bool // true when the failure was a file or resource already being held
	Inner() error // the wrapped error, if any
	Kind() Kind
}

type errorImpl struct {
	msg    string
	locked bool
	inner  error
	kind   Kind
}

func (err *errorImpl) Locked() bool { return err.locked }
func (err *errorImpl) Inner() error { return err.inner }
func (err *errorImpl) Kind() Kind   { return err.kind }

func (err *errorImpl) Error() string {
	if err.inner != nil {
		return fmt.Sprintf("%s: %s", err.msg, err.inner.Error())
	}
	return err.msg
}

// Errorf formats a new Error of unspecified kind.
func Errorf(format string, a ...interface{}) Error {
	return &errorImpl{msg: fmt.Sprintf(format, a...)}
}

// WrapErrorf formats a new Error that wraps err.
func WrapErrorf(err error, format string, a ...interface{}) Error {
	return &errorImpl{msg: fmt.Sprintf(format, a...), inner: err}
}

// LockedErrorf formats a new Error with Locked() true, for contention on
// an advisory lock (the store's FILE.lock, the container's lockfile).
func LockedErrorf(format string, a ...interface{}) Error {
	return &errorImpl{msg: fmt.Sprintf(format, a...), locked: true, kind: KindIO}
}

// KindErrorf formats a new Error carrying the given kind, for call sites
// that need to participate in spec.md §7's propagation rules (a session
// controller deciding exit codes, a CLI mapping kinds to text prefixes).
func KindErrorf(kind Kind, format string, a ...interface{}) Error {
	return &errorImpl{msg: fmt.Sprintf(format, a...), kind: kind}
}

// WrapKindErrorf formats a new Error of the given kind that wraps err.
func WrapKindErrorf(kind Kind, err error, format string, a ...interface{}) Error {
	return &errorImpl{msg: fmt.Sprintf(format, a...), inner: err, kind: kind}
}

// Logger is this module's pluggable diagnostic sink.
type Logger interface {
	Logf(format string, a ...interface{})
}

type dummyLogger struct{}

func (*dummyLogger) Logf(format string, a ...interface{}) {}

type stdlibLogger struct{}

func (*stdlibLogger) Logf(format string, a ...interface{}) { goLog.Printf(format, a...) }

var log Logger = &dummyLogger{}

// SetLogger installs logger as the package-wide diagnostic sink.
func SetLogger(logger Logger) { log = logger }

// EnableLogging installs the standard library logger, the common case
// for a --verbose/--debug flag.
func EnableLogging() { log = &stdlibLogger{} }

// Logf emits a diagnostic line through the installed logger.
func Logf(format string, a ...interface{}) { log.Logf(format, a...) }
