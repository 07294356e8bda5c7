package oper

import (
	"sync"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
)

// codePages maps Windows code page identifiers to encodings.
var codePages = map[uint32]encoding.Encoding{
	437:   charmap.CodePage437,
	850:   charmap.CodePage850,
	866:   charmap.CodePage866,
	874:   charmap.Windows874,
	932:   japanese.ShiftJIS,
	936:   simplifiedchinese.GBK,
	949:   korean.EUCKR,
	950:   traditionalchinese.Big5,
	1250:  charmap.Windows1250,
	1251:  charmap.Windows1251,
	1252:  charmap.Windows1252,
	1253:  charmap.Windows1253,
	1254:  charmap.Windows1254,
	1255:  charmap.Windows1255,
	1256:  charmap.Windows1256,
	1257:  charmap.Windows1257,
	1258:  charmap.Windows1258,
	65001: unicode.UTF8,
}

// CodePage returns the encoding of a Windows code page identifier.
func CodePage(id uint32) (encoding.Encoding, bool) {
	enc, ok := codePages[id]
	return enc, ok
}

var systemEncoding = sync.OnceValue(func() encoding.Encoding {
	if enc, ok := CodePage(activeCodePage()); ok {
		return enc
	}
	return charmap.Windows1252
})

// SystemEncoding returns the process code page used by TextBytes when no
// encoding is given: the ANSI code page on Windows, Windows-1252 elsewhere.
func SystemEncoding() encoding.Encoding {
	return systemEncoding()
}
