package value

import (
	"errors"
	"fmt"
	"strings"
)

// Exception is a raised (or constructed) script exception. It is the only
// error type scripts can observe and catch.
type Exception struct {
	Class *Class
	Args  Tuple
	Cause *Exception
	// Line is the source line where the exception was raised; 0 until the
	// evaluator records it.
	Line int
}

func (e *Exception) Type() string { return e.Class.ClassName }
func (*Exception) Truth() bool    { return true }

// Message renders str(e).
func (e *Exception) Message() string {
	switch len(e.Args) {
	case 0:
		return ""
	case 1:
		if e.Class.IsSubclass(KeyError) {
			return Repr(e.Args[0])
		}
		return ToStr(e.Args[0])
	}
	return Repr(e.Args)
}

// Error renders "Type: message", or just the type name when the message is
// empty.
func (e *Exception) Error() string {
	if msg := e.Message(); msg != "" {
		return e.Class.ClassName + ": " + msg
	}
	return e.Class.ClassName
}

// Errorf builds an exception of class cls with a formatted message.
func Errorf(cls *Class, format string, args ...any) *Exception {
	return &Exception{Class: cls, Args: Tuple{Str(fmt.Sprintf(format, args...))}}
}

// NewException builds an exception from script-level arguments.
func NewException(cls *Class, args ...Value) *Exception {
	return &Exception{Class: cls, Args: Tuple(args)}
}

// AsException extracts a script exception from err.
func AsException(err error) (*Exception, bool) {
	var e *Exception
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Object is the root of the class hierarchy.
var Object = NewClass("object", nil, nil)

// Exception classes. The hierarchy mirrors the host language's, trimmed to
// what scripts can raise or catch. They are assigned in init because their
// constructor itself raises TypeError.
var (
	BaseException *Class
	ExceptionBase *Class

	ArithmeticError   *Class
	ZeroDivisionError *Class
	OverflowError     *Class

	LookupError *Class
	IndexError  *Class
	KeyError    *Class

	NameError           *Class
	UnboundLocalError   *Class
	TypeError           *Class
	ValueError          *Class
	AttributeError      *Class
	ImportError         *Class
	RuntimeError        *Class
	RecursionError      *Class
	NotImplementedError *Class
	AssertionError      *Class
	StopIteration       *Class
	MemoryError         *Class
)

func init() {
	BaseException = NewExceptionClass("BaseException", Object)
	ExceptionBase = NewExceptionClass("Exception", BaseException)

	ArithmeticError = NewExceptionClass("ArithmeticError", ExceptionBase)
	ZeroDivisionError = NewExceptionClass("ZeroDivisionError", ArithmeticError)
	OverflowError = NewExceptionClass("OverflowError", ArithmeticError)

	LookupError = NewExceptionClass("LookupError", ExceptionBase)
	IndexError = NewExceptionClass("IndexError", LookupError)
	KeyError = NewExceptionClass("KeyError", LookupError)

	NameError = NewExceptionClass("NameError", ExceptionBase)
	UnboundLocalError = NewExceptionClass("UnboundLocalError", NameError)
	TypeError = NewExceptionClass("TypeError", ExceptionBase)
	ValueError = NewExceptionClass("ValueError", ExceptionBase)
	AttributeError = NewExceptionClass("AttributeError", ExceptionBase)
	ImportError = NewExceptionClass("ImportError", ExceptionBase)
	RuntimeError = NewExceptionClass("RuntimeError", ExceptionBase)
	RecursionError = NewExceptionClass("RecursionError", RuntimeError)
	NotImplementedError = NewExceptionClass("NotImplementedError", RuntimeError)
	AssertionError = NewExceptionClass("AssertionError", ExceptionBase)
	StopIteration = NewExceptionClass("StopIteration", ExceptionBase)
	MemoryError = NewExceptionClass("MemoryError", ExceptionBase)
}

// ExceptionClasses lists every exception class in declaration order.
func ExceptionClasses() []*Class {
	return []*Class{
		BaseException, ExceptionBase,
		ArithmeticError, ZeroDivisionError, OverflowError,
		LookupError, IndexError, KeyError,
		NameError, UnboundLocalError, TypeError, ValueError, AttributeError,
		ImportError, RuntimeError, RecursionError, NotImplementedError,
		AssertionError, StopIteration, MemoryError,
	}
}

// NewExceptionClass declares an exception class deriving from base.
func NewExceptionClass(name string, base *Class) *Class {
	return NewClass(name, base, func(_ Thread, recv Value, args []Value, kwargs []Kwarg) (Value, error) {
		cls := recv.(*Class)
		if len(kwargs) > 0 {
			return nil, Errorf(TypeError, "%s() takes no keyword arguments", cls.ClassName)
		}
		return NewException(cls, append([]Value(nil), args...)...), nil
	})
}

// IsExceptionClass reports whether c derives from BaseException.
func IsExceptionClass(c *Class) bool {
	return c != nil && c.IsSubclass(BaseException)
}

// ExceptionRepr renders repr(e), e.g. ValueError('bad').
func ExceptionRepr(e *Exception) string {
	parts := make([]string, len(e.Args))
	for i, a := range e.Args {
		parts[i] = Repr(a)
	}
	return e.Class.ClassName + "(" + strings.Join(parts, ", ") + ")"
}
