package rates

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
)

var decimalOne = decimal.NewFromInt(1)

func newBytesReader(b []byte) io.Reader {
	return bytes.NewReader(b)
}

// charsetReader decodes the legacy windows-1251 encoding the CBR service
// declares in its XML prolog. UTF-8 passes through untouched.
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(charset) {
	case "", "utf-8":
		return input, nil
	case "windows-1251", "cp1251":
		return charmap.Windows1251.NewDecoder().Reader(input), nil
	default:
		return nil, fmt.Errorf("unsupported charset %q", charset)
	}
}
