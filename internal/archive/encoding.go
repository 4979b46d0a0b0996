package archive

import (
	"archive/zip"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
)

// flagUTF8 is the general purpose bit marking an entry name as UTF-8
const flagUTF8 = 0x800

// LookupEncoding resolves an IANA charset name such as "GBK" or "Shift_JIS"
func LookupEncoding(name string) (encoding.Encoding, error) {
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("unknown filename encoding %q: %w", name, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported filename encoding %q", name)
	}
	return enc, nil
}

// RepairNames rewrites the names of entries written by legacy tools in a
// local code page. Entries carrying the UTF-8 flag and pure ASCII names are
// left alone. It returns the number of renamed entries.
func RepairNames(files []*zip.File, enc encoding.Encoding) int {
	if enc == nil {
		return 0
	}

	repaired := 0
	for _, f := range files {
		name, ok := repairName(f.Name, f.Flags, enc)
		if !ok {
			continue
		}
		f.Name = name
		f.NonUTF8 = false
		repaired++
	}
	return repaired
}

func repairName(name string, flags uint16, enc encoding.Encoding) (string, bool) {
	if flags&flagUTF8 != 0 || isASCII(name) {
		return "", false
	}

	decoded, err := enc.NewDecoder().String(name)
	if err != nil || decoded == name {
		return "", false
	}

	// A valid UTF-8 name that does not decode cleanly was written as UTF-8
	// without setting the flag.
	if utf8.ValidString(name) && strings.ContainsRune(decoded, utf8.RuneError) {
		return "", false
	}

	return decoded, true
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
