package docreader

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// C0 and C1 controls except \t, \n and \r
var controlChars = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f-\x9f]`)

// UTF-8 text that was decoded as Windows-1252 or Latin-1 somewhere upstream
var mojibake = strings.NewReplacer(
	"Ã¡", "á", "Ã©", "é", "Ã\u00ad", "í", "Ã³", "ó", "Ãº", "ú",
	"Ã±", "ñ", "Ã¼", "ü", "Ã§", "ç",
	"Ã\u00a0", "à", "Ã¨", "è", "Ã¬", "ì", "Ã²", "ò", "Ã¹", "ù",
	"Ã¢", "â", "Ãª", "ê", "Ã®", "î", "Ã´", "ô", "Ã»", "û",
	"Ã¤", "ä", "Ã¶", "ö", "Ã¸", "ø", "ÃŸ", "ß",
	// Windows-1252 capitals
	"Ã‘", "Ñ", "Ã€", "À", "Ã‰", "É", "Ã“", "Ó", "Ãš", "Ú",
	"Ãˆ", "È", "Ã…", "Å", "Ã†", "Æ",
	// Latin-1 capitals land on C1 controls
	"Ã\u0081", "Á", "Ã\u0089", "É", "Ã\u008d", "Í", "Ã\u0091", "Ñ",
	"Ã\u0093", "Ó", "Ã\u009a", "Ú", "Ã\u009c", "Ü",
)

// Clean normalizes extracted document text: invalid UTF-8 becomes U+FFFD,
// double-encoded accents are repaired, control characters other than
// tab and line breaks are dropped, and the result is NFC so precomposed
// letters match the name heuristics.
func Clean(s string) string {
	s = strings.ToValidUTF8(s, "�")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	// Repair before stripping, Latin-1 mojibake carries C1 bytes
	s = mojibake.Replace(s)
	s = controlChars.ReplaceAllString(s, "")
	return norm.NFC.String(s)
}
