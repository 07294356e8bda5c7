package oper

import (
	"bytes"
	"fmt"
	"unicode/utf16"
	"unicode/utf8"
	"unsafe"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"

	"github.com/reglet-dev/reglet-xll/internal/abi"
	"github.com/reglet-dev/reglet-xll/xlcall"
)

// MaxTextLen is the longest text, in UTF-16 code units, the host accepts.
// Longer input is truncated.
const MaxTextLen = 32767

// EncodingError reports malformed input to a text constructor. Constructors
// panic with it: malformed text is a programming error, not host data.
type EncodingError struct {
	Encoding string
	Offset   int // first offending byte, or -1 if unknown
	Err      error
}

func (e *EncodingError) Error() string {
	msg := fmt.Sprintf("oper: malformed %s text", e.Encoding)
	if e.Offset >= 0 {
		msg += fmt.Sprintf(" at byte %d", e.Offset)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// TextUTF16 returns a Str Value holding a copy of units.
func TextUTF16(units []uint16) *Value {
	n := min(len(units), MaxTextLen)
	// Don't cut a surrogate pair in half.
	if n < len(units) && n > 0 && isHighSurrogate(units[n-1]) {
		n--
	}
	buf := abi.Alloc[uint16](n + 1)
	buf[0] = uint16(n)
	copy(buf[1:], units[:n])

	v := newValue(xlcall.TypeStr)
	v.op.SetPtr(unsafe.Pointer(&buf[0]))
	return v
}

func isHighSurrogate(u uint16) bool {
	return u >= 0xD800 && u < 0xDC00
}

// Text returns a Str Value from UTF-8 text. It panics with *EncodingError if
// s is not valid UTF-8.
func Text(s string) *Value {
	if !utf8.ValidString(s) {
		panic(&EncodingError{Encoding: "utf-8", Offset: invalidUTF8Offset([]byte(s))})
	}
	return TextUTF16(utf16.Encode([]rune(s)))
}

// TextBytes returns a Str Value from narrow text in the given encoding; nil
// means the process code page (see SystemEncoding). It panics with
// *EncodingError if b is not valid in that encoding.
func TextBytes(b []byte, enc encoding.Encoding) *Value {
	if enc == nil {
		enc = SystemEncoding()
	}
	decoded, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		panic(&EncodingError{Encoding: encodingName(enc), Offset: -1, Err: err})
	}
	// Decoders substitute U+FFFD for invalid input. Only a faithful round trip
	// proves the replacement character was really in the source.
	if bytes.ContainsRune(decoded, utf8.RuneError) {
		back, err := enc.NewEncoder().Bytes(decoded)
		if err != nil || !bytes.Equal(back, b) {
			panic(&EncodingError{Encoding: encodingName(enc), Offset: invalidUTF8Offset(decoded), Err: err})
		}
	}
	return Text(string(decoded))
}

// invalidUTF8Offset returns the offset of the first invalid sequence or
// replacement character in b, or -1.
func invalidUTF8Offset(b []byte) int {
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError {
			return i
		}
		i += size
	}
	return -1
}

func encodingName(enc encoding.Encoding) string {
	if name, err := ianaindex.IANA.Name(enc); err == nil {
		return name
	}
	return fmt.Sprint(enc)
}

// EncodingByName looks up a code page by its IANA name or alias, for example
// "windows-1252" or "Shift_JIS".
func EncodingByName(name string) (encoding.Encoding, error) {
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", name, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("encoding %q is not supported", name)
	}
	return enc, nil
}

// TextBuffer returns the length-prefixed text buffer of a Str Value: unit 0
// holds the length, units 1..length the characters. The slice aliases v and is
// valid until v is freed or moved.
func (v *Value) TextBuffer() []uint16 {
	if !v.IsStr() {
		return nil
	}
	return xlcall.StrUnits(v.op.Ptr())
}

// UTF16 returns a copy of the characters of a Str Value.
func (v *Value) UTF16() []uint16 {
	buf := v.TextBuffer()
	if len(buf) == 0 {
		return nil
	}
	out := make([]uint16, len(buf)-1)
	copy(out, buf[1:])
	return out
}

// Text returns the characters of a Str Value as UTF-8, and "" for every other
// kind.
func (v *Value) Text() string {
	buf := v.TextBuffer()
	if len(buf) <= 1 {
		return ""
	}
	return string(utf16.Decode(buf[1:]))
}
