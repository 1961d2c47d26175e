package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// writeJSONValue re-encodes the next value from dec with two-space
// indentation, keeping object keys in input order.
func writeJSONValue(dec *json.Decoder, b *strings.Builder, depth int) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}

	switch v := tok.(type) {
	case json.Delim:
		closing := byte(']')
		if v == '{' {
			closing = '}'
		}
		b.WriteByte(byte(v))
		n := 0
		for dec.More() {
			if n > 0 {
				b.WriteByte(',')
			}
			writeIndent(b, depth+1)
			if v == '{' {
				key, err := dec.Token()
				if err != nil {
					return err
				}
				s, ok := key.(string)
				if !ok {
					return fmt.Errorf("unexpected object key %v", key)
				}
				if err := writeJSONString(b, s); err != nil {
					return err
				}
				b.WriteString(": ")
			}
			if err := writeJSONValue(dec, b, depth+1); err != nil {
				return err
			}
			n++
		}
		if _, err := dec.Token(); err != nil {
			return err
		}
		if n > 0 {
			writeIndent(b, depth)
		}
		b.WriteByte(closing)
	case string:
		return writeJSONString(b, v)
	case json.Number:
		s, err := formatJSONNumber(v)
		if err != nil {
			return err
		}
		b.WriteString(s)
	case bool:
		b.WriteString(strconv.FormatBool(v))
	case nil:
		b.WriteString("null")
	default:
		return fmt.Errorf("unexpected token %v", tok)
	}
	return nil
}

func writeIndent(b *strings.Builder, depth int) {
	b.WriteByte('\n')
	b.WriteString(strings.Repeat("  ", depth))
}

func writeJSONString(b *strings.Builder, s string) error {
	var sb strings.Builder
	enc := json.NewEncoder(&sb)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	b.WriteString(strings.TrimSuffix(sb.String(), "\n"))
	return nil
}

// formatJSONNumber writes n the way a JavaScript engine serializes a
// double: "1.0" becomes "1", "1e2" becomes "100", and exponents are only
// used below 1e-6 or from 1e21 up.
func formatJSONNumber(n json.Number) (string, error) {
	f, err := strconv.ParseFloat(string(n), 64)
	if err != nil {
		return "", err
	}
	if f == 0 {
		return "0", nil
	}
	abs := math.Abs(f)
	if abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	}
	s := strconv.FormatFloat(f, 'e', -1, 64)
	mant, exp, _ := strings.Cut(s, "e")
	sign := exp[:1]
	exp = strings.TrimLeft(exp[1:], "0")
	return mant + "e" + sign + exp, nil
}
