package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
)

// Args are the arguments of a memoized call. Positional order is
// significant; Named is keyed by parameter name and its order is not.
type Args struct {
	Positional []any
	Named      map[string]any
}

// Positional builds Args from positional values only.
func Positional(values ...any) Args {
	return Args{Positional: values}
}

// Keyer generates deterministic fingerprints for memoized calls.
//
// Contract:
// - Determinism: structurally equal arguments produce the same key.
// - Errors: arguments that cannot be represented deterministically fail
//   with ErrUnkeyableArgs instead of risking a wrong cache hit.
// - Concurrency: implementations must be safe for concurrent use.
type Keyer interface {
	Key(funcID string, args Args) (string, error)
}

// DefaultKeyer generates SHA-256 based fingerprints.
type DefaultKeyer struct{}

// NewDefaultKeyer creates a new default keyer.
func NewDefaultKeyer() *DefaultKeyer {
	return &DefaultKeyer{}
}

// Key generates a fingerprint.
// Format: memo:<funcID>:<hash>
// where hash is the hex SHA-256 of the canonical encoding of args. Every
// argument is encoded together with its Go type, so 1 and "1" differ.
func (k *DefaultKeyer) Key(funcID string, args Args) (string, error) {
	if err := ValidateKey(funcID); err != nil {
		return "", err
	}

	canonical, err := canonicalArgs(args)
	if err != nil {
		return "", err
	}

	hash := sha256.Sum256(canonical)
	return fmt.Sprintf("memo:%s:%s", funcID, hex.EncodeToString(hash[:])), nil
}

// canonicalArgs encodes args as {"args":[...],"kwargs":{...}} with named
// arguments sorted by name.
func canonicalArgs(args Args) ([]byte, error) {
	result := []byte(`{"args":[`)
	for i, v := range args.Positional {
		if i > 0 {
			result = append(result, ',')
		}
		b, err := typedValue(v)
		if err != nil {
			return nil, fmt.Errorf("%w: positional argument %d: %w", ErrUnkeyableArgs, i, err)
		}
		result = append(result, b...)
	}
	result = append(result, `],"kwargs":{`...)

	names := make([]string, 0, len(args.Named))
	for name := range args.Named {
		names = append(names, name)
	}
	sort.Strings(names)

	for i, name := range names {
		if i > 0 {
			result = append(result, ',')
		}
		result = appendJSON(result, name)
		result = append(result, ':')

		b, err := typedValue(args.Named[name])
		if err != nil {
			return nil, fmt.Errorf("%w: named argument %q: %w", ErrUnkeyableArgs, name, err)
		}
		result = append(result, b...)
	}
	result = append(result, "}}"...)

	return result, nil
}

// typedValue encodes v as [<type>,<value>], recursing so that every nested
// value carries its own type as well.
func typedValue(v any) ([]byte, error) {
	return encodeTyped(nil, reflect.ValueOf(v), 0)
}

// maxKeyableDepth bounds the walk so cyclic values fail instead of recursing forever.
const maxKeyableDepth = 64

var (
	jsonMarshalerType = reflect.TypeFor[json.Marshaler]()
	textMarshalerType = reflect.TypeFor[encoding.TextMarshaler]()
)

// encodeTyped appends the canonical form of v to buf. It rejects values
// whose encoding would be lossy or unstable: funcs, channels, complex
// numbers, NaN/Inf, structs with unexported state and fields hidden from
// JSON with a "-" tag.
func encodeTyped(buf []byte, v reflect.Value, depth int) ([]byte, error) {
	if !v.IsValid() {
		return append(buf, "null"...), nil
	}
	if depth > maxKeyableDepth {
		return nil, fmt.Errorf("value nested deeper than %d levels (cyclic?)", maxKeyableDepth)
	}

	t := v.Type()
	if v.Kind() == reflect.Interface {
		if v.IsNil() {
			return append(buf, "null"...), nil
		}
		return encodeTyped(buf, v.Elem(), depth+1)
	}

	buf = append(buf, '[')
	buf = appendJSON(buf, t.String())
	buf = append(buf, ',')

	switch {
	case v.Kind() == reflect.Pointer && v.IsNil():
		buf = append(buf, "null"...)
		return append(buf, ']'), nil
	case t.Implements(jsonMarshalerType) || t.Implements(textMarshalerType):
		b, err := json.Marshal(v.Interface())
		if err != nil {
			return nil, err
		}
		buf = append(buf, b...)
		return append(buf, ']'), nil
	}

	var err error
	switch v.Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer, reflect.Complex64, reflect.Complex128:
		return nil, fmt.Errorf("unsupported type %s", t)
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("unsupported float value %v", f)
		}
		buf = strconv.AppendFloat(buf, f, 'g', -1, t.Bits())
	case reflect.Bool:
		buf = strconv.AppendBool(buf, v.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		buf = strconv.AppendInt(buf, v.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		buf = strconv.AppendUint(buf, v.Uint(), 10)
	case reflect.String:
		buf = appendJSON(buf, v.String())
	case reflect.Pointer:
		buf, err = encodeTyped(buf, v.Elem(), depth+1)
	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.IsNil() {
			buf = append(buf, "null"...)
			break
		}
		buf = append(buf, '[')
		for i := 0; i < v.Len(); i++ {
			if i > 0 {
				buf = append(buf, ',')
			}
			if buf, err = encodeTyped(buf, v.Index(i), depth+1); err != nil {
				return nil, err
			}
		}
		buf = append(buf, ']')
	case reflect.Map:
		buf, err = encodeMap(buf, v, depth)
	case reflect.Struct:
		buf, err = encodeStruct(buf, v, depth)
	default:
		return nil, fmt.Errorf("unsupported type %s", t)
	}
	if err != nil {
		return nil, err
	}
	return append(buf, ']'), nil
}

// encodeMap writes a map as [[key,value],...] sorted by the encoded key.
func encodeMap(buf []byte, v reflect.Value, depth int) ([]byte, error) {
	if v.IsNil() {
		return append(buf, "null"...), nil
	}
	type pair struct{ k, v []byte }
	pairs := make([]pair, 0, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		k, err := encodeTyped(nil, iter.Key(), depth+1)
		if err != nil {
			return nil, fmt.Errorf("map key: %w", err)
		}
		val, err := encodeTyped(nil, iter.Value(), depth+1)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, pair{k, val})
	}
	sort.Slice(pairs, func(i, j int) bool { return bytes.Compare(pairs[i].k, pairs[j].k) < 0 })

	buf = append(buf, '[')
	for i, p := range pairs {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = append(buf, '[')
		buf = append(buf, p.k...)
		buf = append(buf, ',')
		buf = append(buf, p.v...)
		buf = append(buf, ']')
	}
	return append(buf, ']'), nil
}

// encodeStruct writes exported fields in declaration order as {"Name":value}.
func encodeStruct(buf []byte, v reflect.Value, depth int) ([]byte, error) {
	t := v.Type()
	buf = append(buf, '{')
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			return nil, fmt.Errorf("struct %s has unexported field %s", t, f.Name)
		}
		if f.Tag.Get("json") == "-" {
			return nil, fmt.Errorf("struct %s hides field %s from JSON", t, f.Name)
		}
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = appendJSON(buf, f.Name)
		buf = append(buf, ':')
		var err error
		if buf, err = encodeTyped(buf, v.Field(i), depth+1); err != nil {
			return nil, err
		}
	}
	return append(buf, '}'), nil
}

func appendJSON(buf []byte, s string) []byte {
	b, _ := json.Marshal(s)
	return append(buf, b...)
}

// Ensure DefaultKeyer implements Keyer
var _ Keyer = (*DefaultKeyer)(nil)
