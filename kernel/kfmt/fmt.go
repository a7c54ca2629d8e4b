// Package kfmt provides formatted output for code that runs before a heap
// allocator is available.
package kfmt

import (
	"io"
	"unsafe"
)

// maxBufSize defines the buffer size for formatting numbers.
const maxBufSize = 32

var (
	errMissingArg   = []byte("(MISSING)")
	errWrongArgType = []byte("%!(WRONGTYPE)")
	errNoVerb       = []byte("%!(NOVERB)")
	errExtraArg     = []byte("%!(EXTRA)")
	trueValue       = []byte("true")
	falseValue      = []byte("false")

	numFmtBuf [maxBufSize]byte

	// singleByte is used as a shared buffer for passing single characters
	// to doWrite.
	singleByte = []byte(" ")

	// earlyPrintBuffer captures Printf output until an output sink is
	// attached.
	earlyPrintBuffer ringBuffer

	// outputSink is where Printf sends its output. If nil, the output is
	// kept in earlyPrintBuffer.
	outputSink io.Writer
)

// SetOutputSink sets the target for calls to Printf to w and copies any data
// accumulated in the earlyPrintBuffer to it.
func SetOutputSink(w io.Writer) {
	outputSink = w
	if w != nil {
		io.Copy(w, &earlyPrintBuffer)
	}
}

// Printf is a minimal Printf implementation that does not allocate memory
// and can therefore be used by the loader and by the kernel before its
// allocator is set up. It supports the following verbs:
//
//	%s  string or []byte
//	%d  integer, base 10, left-padded with spaces
//	%x  integer, base 16, left-padded with zeroes
//	%t  bool
//
// An optional decimal width may precede the verb. Arguments that implement
// fmt.Stringer are not recognized; callers must pass String() explicitly.
func Printf(format string, args ...interface{}) {
	Fprintf(outputSink, format, args...)
}

// Fprintf behaves exactly like Printf but it writes the formatted output to
// the specified io.Writer.
func Fprintf(w io.Writer, format string, args ...interface{}) {
	var (
		argIndex int
		padLen   int
	)

	for i := 0; i < len(format); i++ {
		if format[i] != '%' {
			// slicing format would trigger an allocation when the
			// slice is converted to []byte; write one byte at a time.
			writeByte(w, format[i])
			continue
		}

		padLen = 0
		for i++; i < len(format) && format[i] >= '0' && format[i] <= '9'; i++ {
			padLen = padLen*10 + int(format[i]-'0')
		}

		if i == len(format) {
			doWrite(w, errNoVerb)
			break
		}

		verb := format[i]
		switch verb {
		case '%':
			writeByte(w, '%')
			continue
		case 'd', 'x', 's', 't':
		default:
			doWrite(w, errNoVerb)
			continue
		}

		if argIndex >= len(args) {
			doWrite(w, errMissingArg)
			continue
		}

		switch verb {
		case 'd':
			fmtInt(w, args[argIndex], 10, padLen)
		case 'x':
			fmtInt(w, args[argIndex], 16, padLen)
		case 's':
			fmtString(w, args[argIndex], padLen)
		case 't':
			fmtBool(w, args[argIndex])
		}
		argIndex++
	}

	for ; argIndex < len(args); argIndex++ {
		doWrite(w, errExtraArg)
	}
}

func writeByte(w io.Writer, ch byte) {
	singleByte[0] = ch
	doWrite(w, singleByte)
}

func fmtBool(w io.Writer, v interface{}) {
	bVal, ok := v.(bool)
	switch {
	case !ok:
		doWrite(w, errWrongArgType)
	case bVal:
		doWrite(w, trueValue)
	default:
		doWrite(w, falseValue)
	}
}

func fmtString(w io.Writer, v interface{}, padLen int) {
	switch castedVal := v.(type) {
	case string:
		for i := len(castedVal); i < padLen; i++ {
			writeByte(w, ' ')
		}
		for i := 0; i < len(castedVal); i++ {
			writeByte(w, castedVal[i])
		}
	case []byte:
		for i := len(castedVal); i < padLen; i++ {
			writeByte(w, ' ')
		}
		doWrite(w, castedVal)
	default:
		doWrite(w, errWrongArgType)
	}
}

// fmtInt prints v in the requested base. Base-10 output is padded with
// spaces and base-16 output with zeroes.
func fmtInt(w io.Writer, v interface{}, base uint64, padLen int) {
	var (
		uval     uint64
		negative bool
	)

	switch castedVal := v.(type) {
	case uint8:
		uval = uint64(castedVal)
	case uint16:
		uval = uint64(castedVal)
	case uint32:
		uval = uint64(castedVal)
	case uint64:
		uval = castedVal
	case uint:
		uval = uint64(castedVal)
	case uintptr:
		uval = uint64(castedVal)
	case int32:
		negative, uval = castedVal < 0, absInt64(int64(castedVal))
	case int64:
		negative, uval = castedVal < 0, absInt64(castedVal)
	case int:
		negative, uval = castedVal < 0, absInt64(int64(castedVal))
	default:
		doWrite(w, errWrongArgType)
		return
	}

	padCh := byte(' ')
	if base == 16 {
		padCh = '0'
	}

	if padLen >= maxBufSize {
		padLen = maxBufSize - 1
	}

	// Digits are written right to left.
	pos := maxBufSize
	for {
		pos--
		digit := uval % base
		if digit < 10 {
			numFmtBuf[pos] = byte(digit) + '0'
		} else {
			numFmtBuf[pos] = byte(digit-10) + 'a'
		}

		uval /= base
		if uval == 0 {
			break
		}
	}

	if negative && padCh == ' ' {
		pos--
		numFmtBuf[pos] = '-'
	}

	for maxBufSize-pos < padLen && pos > 1 {
		pos--
		numFmtBuf[pos] = padCh
	}

	if negative && padCh == '0' {
		pos--
		numFmtBuf[pos] = '-'
	}

	doWrite(w, numFmtBuf[pos:])
}

func absInt64(v int64) uint64 {
	if v < 0 {
		return uint64(-v)
	}
	return uint64(v)
}

// doWrite is a proxy that uses the runtime.noescape hack to hide p from the
// compiler's escape analysis. Without this hack, the compiler flags p as
// escaping (due to the call to the unknown io.Writer) and every call to
// Printf would allocate.
func doWrite(w io.Writer, p []byte) {
	doRealWrite(w, noEscape(unsafe.Pointer(&p)))
}

func doRealWrite(w io.Writer, bufPtr unsafe.Pointer) {
	p := *(*[]byte)(bufPtr)
	if w != nil {
		w.Write(p)
	} else {
		earlyPrintBuffer.Write(p)
	}
}

// noEscape hides a pointer from escape analysis. This function is copied over
// from runtime/stubs.go
//go:nosplit
func noEscape(p unsafe.Pointer) unsafe.Pointer {
	x := uintptr(p)
	return unsafe.Pointer(x ^ 0)
}
