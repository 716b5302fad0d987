// Package jsonutil provides the JSON encoding used across the pipeline:
// a plain deterministic encoder for persistence and a canonical encoder
// (sorted keys, compact separators, normalized floats) whose byte output
// feeds content hashing. Both encoders keep UTF-8 verbatim.
package jsonutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Round12 rounds f to 12 decimal places. Metric outputs and canonical
// serialization share this so analysis ids are insensitive to
// floating-point representation noise.
func Round12(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return f
	}
	r, err := strconv.ParseFloat(strconv.FormatFloat(f, 'f', 12, 64), 64)
	if err != nil {
		return f
	}
	return r
}

// Round12Ptr rounds through a nullable value, preserving nil.
func Round12Ptr(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := Round12(*p)
	return &v
}

// Marshal encodes v as compact JSON without HTML escaping, so URLs and
// comparison operators survive verbatim in stored documents.
func Marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// MarshalCanonical encodes v with sorted object keys, compact separators,
// and all fractional numbers rounded to 12 decimal places. Integers pass
// through untouched. The output is the hashing input for analysis ids:
// equal values always produce equal bytes.
func MarshalCanonical(v interface{}) ([]byte, error) {
	plain, err := Marshal(v)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(plain))
	dec.UseNumber()
	var tree interface{}
	if err := dec.Decode(&tree); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := writeCanonical(&buf, tree); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v interface{}) error {
	switch t := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if t {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case string:
		return writeString(buf, t)
	case json.Number:
		return writeNumber(buf, t)
	case []interface{}:
		buf.WriteByte('[')
		for i, el := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, el); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeString(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := writeCanonical(buf, t[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unsupported canonical value type %T", v)
	}
	return nil
}

func writeString(buf *bytes.Buffer, s string) error {
	b, err := Marshal(s)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}

func writeNumber(buf *bytes.Buffer, n json.Number) error {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		buf.WriteString(s)
		return nil
	}
	f, err := n.Float64()
	if err != nil {
		return err
	}
	appendFloat(buf, Round12(f))
	return nil
}

// appendFloat formats floats the same way encoding/json does (shortest
// round-trip form, exponent only outside [1e-6, 1e21)), keeping canonical
// numeric tokens identical to those in plainly marshaled documents.
func appendFloat(buf *bytes.Buffer, f float64) {
	abs := math.Abs(f)
	format := byte('f')
	if abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		format = 'e'
	}
	b := strconv.AppendFloat(nil, f, format, -1, 64)
	if format == 'e' {
		n := len(b)
		if n >= 4 && b[n-4] == 'e' && b[n-3] == '-' && b[n-2] == '0' {
			b[n-2] = b[n-1]
			b = b[:n-1]
		}
	}
	buf.Write(b)
}
