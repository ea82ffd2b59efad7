package cache

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
)

// ValueType indica cómo se guardó un valor.
type ValueType uint8

const (
	TypeAbsent ValueType = iota
	TypeText
	TypeJSON
	TypeInt
)

func (t ValueType) String() string {
	switch t {
	case TypeAbsent:
		return "absent"
	case TypeText:
		return "text"
	case TypeJSON:
		return "json"
	case TypeInt:
		return "int"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

// Etiquetas de un byte al inicio del payload. Los enteros se guardan sin etiqueta
// para que INCR siga funcionando sobre ellos.
const (
	tagText byte = 0x01
	tagJSON byte = 0x02
)

// Value es un valor leído de la caché. El valor cero es "ausente".
type Value struct {
	typ ValueType
	raw []byte
}

// TextValue construye un Value de texto (útil en tests y productores).
func TextValue(s string) Value { return Value{typ: TypeText, raw: []byte(s)} }

func (v Value) Type() ValueType { return v.typ }

func (v Value) Present() bool { return v.typ != TypeAbsent }

// Bytes devuelve el payload sin etiqueta.
func (v Value) Bytes() []byte { return v.raw }

// String devuelve el payload como texto (el JSON tal cual para valores estructurados).
func (v Value) String() string { return string(v.raw) }

// Int devuelve el entero guardado. Sólo tiene éxito para TypeInt.
func (v Value) Int() (int64, bool) {
	if v.typ != TypeInt {
		return 0, false
	}
	n, err := strconv.ParseInt(string(v.raw), 10, 64)
	return n, err == nil
}

// Decode rellena dest (un puntero) con el valor. Para texto acepta *string;
// para JSON y enteros usa encoding/json.
func (v Value) Decode(dest interface{}) error {
	switch v.typ {
	case TypeAbsent:
		return fmt.Errorf("decode absent value")
	case TypeText:
		if s, ok := dest.(*string); ok {
			*s = string(v.raw)
			return nil
		}
		if b, ok := dest.(*[]byte); ok {
			*b = append((*b)[:0], v.raw...)
			return nil
		}
	}
	return json.Unmarshal(v.raw, dest)
}

// Interface devuelve el valor como string, int64 o la forma genérica de JSON
// (map[string]interface{}, []interface{}, float64, bool).
func (v Value) Interface() interface{} {
	switch v.typ {
	case TypeText:
		return string(v.raw)
	case TypeInt:
		n, _ := v.Int()
		return n
	case TypeJSON:
		var out interface{}
		if err := json.Unmarshal(v.raw, &out); err != nil {
			return string(v.raw)
		}
		return out
	default:
		return nil
	}
}

// encode convierte un valor Go en el payload etiquetado que se guarda en Redis.
func encode(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, ErrNilValue
	case string:
		return tagged(tagText, []byte(v)), nil
	case []byte:
		return tagged(tagText, v), nil
	case Value:
		return encodeValue(v)
	case int, int8, int16, int32, int64:
		return []byte(strconv.FormatInt(reflect.ValueOf(v).Int(), 10)), nil
	case uint, uint8, uint16, uint32, uint64:
		return []byte(strconv.FormatUint(reflect.ValueOf(v).Uint(), 10)), nil
	}

	rv := reflect.ValueOf(value)
	if (rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Map || rv.Kind() == reflect.Slice) && rv.IsNil() {
		return nil, ErrNilValue
	}

	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return tagged(tagJSON, data), nil
}

func encodeValue(v Value) ([]byte, error) {
	switch v.typ {
	case TypeText:
		return tagged(tagText, v.raw), nil
	case TypeJSON:
		return tagged(tagJSON, v.raw), nil
	case TypeInt:
		return append([]byte(nil), v.raw...), nil
	default:
		return nil, ErrNilValue
	}
}

func tagged(tag byte, payload []byte) []byte {
	out := make([]byte, 0, len(payload)+1)
	out = append(out, tag)
	return append(out, payload...)
}

// decode interpreta un payload leído de Redis. ok=false indica un payload JSON
// corrupto; en ese caso se devuelve como texto.
func decode(raw []byte) (v Value, ok bool) {
	if len(raw) > 0 {
		switch raw[0] {
		case tagText:
			return Value{typ: TypeText, raw: raw[1:]}, true
		case tagJSON:
			payload := raw[1:]
			if !json.Valid(payload) {
				return Value{typ: TypeText, raw: payload}, false
			}
			return Value{typ: TypeJSON, raw: payload}, true
		}
	}

	// Sin etiqueta: contadores (INCR) o valores escritos por otros clientes.
	if _, err := strconv.ParseInt(string(raw), 10, 64); err == nil {
		return Value{typ: TypeInt, raw: raw}, true
	}
	return Value{typ: TypeText, raw: raw}, true
}
