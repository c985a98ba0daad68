// file: internal/isbn/isbn.go
// version: 1.1.0
// guid: 939fd77a-0a6b-4818-b8eb-1097d45fbc48

package isbn

import (
	"strings"
)

// Type identifies the kind of code held by an ISBN.
type Type int

const (
	Invalid Type = iota
	ISBN10
	ISBN13
	// EAN13 is a 13-digit barcode without the 978/979 Bookland prefix.
	EAN13
	// UPCA is a 12-digit UPC barcode.
	UPCA
)

func (t Type) String() string {
	switch t {
	case ISBN10:
		return "ISBN-10"
	case ISBN13:
		return "ISBN-13"
	case EAN13:
		return "EAN-13"
	case UPCA:
		return "UPC-A"
	default:
		return "invalid"
	}
}

// ISBN is a parsed ISBN or book barcode. The zero value is invalid.
type ISBN struct {
	raw    string
	digits string
	kind   Type
}

// New parses text into an ISBN. Spaces and dashes are ignored. A UPC-A
// with a 5-digit add-on from a known book publisher is converted to its
// ISBN-10. When strict is false, other UPC-A and non-Bookland EAN-13
// barcodes are also accepted.
func New(text string, strict bool) ISBN {
	code := cleanup(text)
	i := ISBN{raw: text, digits: code, kind: detect(code)}
	if i.kind == UPCA {
		if isbn10, ok := upcToISBN10(code); ok {
			i.digits, i.kind = isbn10, ISBN10
		}
	}
	if strict && (i.kind == EAN13 || i.kind == UPCA) {
		i.kind = Invalid
	}
	return i
}

// Parse is New with strict validation.
func Parse(text string) ISBN {
	return New(text, true)
}

// IsValidText reports whether text is a valid ISBN-10 or ISBN-13.
func IsValidText(text string) bool {
	return Parse(text).IsValid(true)
}

// IsValid reports whether the code is usable. With strict set only real
// ISBN-10/13 codes qualify; otherwise barcodes are accepted as well.
func (i ISBN) IsValid(strict bool) bool {
	switch i.kind {
	case ISBN10, ISBN13:
		return true
	case EAN13, UPCA:
		return !strict
	default:
		return false
	}
}

// Type returns the detected code type.
func (i ISBN) Type() Type {
	return i.kind
}

// IsISBN10Compat reports whether the code can be expressed as an ISBN-10.
func (i ISBN) IsISBN10Compat() bool {
	switch i.kind {
	case ISBN10:
		return true
	case ISBN13:
		return strings.HasPrefix(i.digits, "978")
	default:
		return false
	}
}

// String returns the code in its own form, or the original text when invalid.
func (i ISBN) String() string {
	if i.kind == Invalid {
		return i.raw
	}
	return i.digits
}

// AsText returns the code converted to the requested type. Conversions that
// are impossible fall back to the native form.
func (i ISBN) AsText(t Type) string {
	switch {
	case t == ISBN10 && i.kind == ISBN13 && i.IsISBN10Compat():
		return to10(i.digits)
	case t == ISBN13 && i.kind == ISBN10:
		return to13(i.digits)
	default:
		return i.String()
	}
}

// Equal compares two codes regardless of ISBN-10/13 form.
func (i ISBN) Equal(other ISBN) bool {
	if i.kind == Invalid || other.kind == Invalid {
		return false
	}
	return i.canonical() == other.canonical()
}

func (i ISBN) canonical() string {
	if i.kind == ISBN10 {
		return to13(i.digits)
	}
	return i.digits
}

func cleanup(text string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(text) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == 'x' || r == 'X':
			b.WriteRune('X')
		case r == '-' || r == ' ':
		default:
			// anything else makes the code unparseable
			return ""
		}
	}
	return b.String()
}

func detect(code string) Type {
	switch len(code) {
	case 10:
		if valid10(code) {
			return ISBN10
		}
	case 13:
		if !allDigits(code) || !validEAN(code) {
			return Invalid
		}
		if strings.HasPrefix(code, "978") || strings.HasPrefix(code, "979") {
			return ISBN13
		}
		return EAN13
	case 12, 14, 17:
		// 2- or 5-digit add-ons follow the 12-digit UPC-A
		if allDigits(code) && validEAN("0"+code[:12]) {
			return UPCA
		}
	}
	return Invalid
}

// upcISBNPrefix maps UPC-A manufacturer prefixes of book publishers to
// their ISBN prefix.
var upcISBNPrefix = map[string]string{
	"014794": "08041", "018926": "0445", "027778": "0449", "037145": "0812",
	"042799": "0785", "043144": "0688", "044903": "0312", "045863": "0517",
	"046594": "0064", "047132": "0152", "051487": "08167", "051488": "0140",
	"060771": "0002", "065373": "0373", "070992": "0523", "070993": "0446",
	"070999": "0345", "071001": "0380", "071009": "0440", "071125": "088677",
	"071136": "0451", "071149": "0451", "071152": "0515", "071162": "0451",
	"071268": "08217", "071831": "0425", "071842": "08439", "072742": "0441",
	"076714": "0671", "076783": "0553", "076814": "0449", "078021": "0872",
	"079808": "0394", "090129": "0679", "099455": "0061", "099769": "0451",
}

// upcToISBN10 rebuilds an ISBN-10 from the publisher prefix and the
// add-on digits, which together hold the first nine digits.
func upcToISBN10(code string) (string, bool) {
	if len(code) <= 12 {
		return "", false
	}
	prefix, ok := upcISBNPrefix[code[:6]]
	if !ok {
		return "", false
	}
	base := prefix + code[12:]
	if len(base) != 9 {
		return "", false
	}
	return base + string(checkDigit10(base)), true
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func valid10(code string) bool {
	if !allDigits(code[:9]) {
		return false
	}
	return checkDigit10(code[:9]) == code[9]
}

func checkDigit10(first9 string) byte {
	sum := 0
	for i := 0; i < 9; i++ {
		sum += int(first9[i]-'0') * (10 - i)
	}
	c := (11 - sum%11) % 11
	if c == 10 {
		return 'X'
	}
	return byte('0' + c)
}

func validEAN(code string) bool {
	return checkDigit13(code[:12]) == code[12]
}

func checkDigit13(first12 string) byte {
	sum := 0
	for i := 0; i < 12; i++ {
		d := int(first12[i] - '0')
		if i%2 == 1 {
			d *= 3
		}
		sum += d
	}
	return byte('0' + (10-sum%10)%10)
}

func to13(isbn10 string) string {
	base := "978" + isbn10[:9]
	return base + string(checkDigit13(base))
}

func to10(isbn13 string) string {
	base := isbn13[3:12]
	return base + string(checkDigit10(base))
}
