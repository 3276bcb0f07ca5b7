package journal

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nathanial/ledger-sub001/internal/datom"
	"github.com/nathanial/ledger-sub001/internal/value"
)

// wireValue is the on-disk encoding of a value.Value: a single tagged
// {"t": kind, "v": payload} object, the literal shape spec.md §6 gives
// for journal values (`{"t":"string","v":"hi"}`). V is kept as a
// json.RawMessage rather than decoded into interface{} so int64/ref/
// instant payloads round-trip through their full 64-bit range instead of
// losing precision to an intermediate float64, which a generic
// map[string]interface{} decode would otherwise force.
type wireValue struct {
	T string          `json:"t"`
	V json.RawMessage `json:"v"`
}

func encodeValue(v value.Value) wireValue {
	var payload interface{}
	switch v.Kind() {
	case value.KindInt:
		payload = v.Int()
	case value.KindFloat:
		payload = v.Float()
	case value.KindString, value.KindKeyword:
		payload = v.Str()
	case value.KindBool:
		payload = v.Bool()
	case value.KindInstant:
		payload = v.Instant().UnixNano()
	case value.KindRef:
		payload = int64(v.Ref())
	case value.KindBytes:
		payload = base64.StdEncoding.EncodeToString(v.Bytes())
	}
	raw, _ := json.Marshal(payload)
	return wireValue{T: v.Kind().String(), V: raw}
}

func decodeValue(w wireValue) (value.Value, error) {
	switch w.T {
	case "int":
		var i int64
		if err := json.Unmarshal(w.V, &i); err != nil {
			return value.Value{}, fmt.Errorf("decode int value: %w", err)
		}
		return value.OfInt(i), nil
	case "float":
		var f float64
		if err := json.Unmarshal(w.V, &f); err != nil {
			return value.Value{}, fmt.Errorf("decode float value: %w", err)
		}
		return value.OfFloat(f), nil
	case "string":
		var s string
		if err := json.Unmarshal(w.V, &s); err != nil {
			return value.Value{}, fmt.Errorf("decode string value: %w", err)
		}
		return value.OfString(s), nil
	case "bool":
		var b bool
		if err := json.Unmarshal(w.V, &b); err != nil {
			return value.Value{}, fmt.Errorf("decode bool value: %w", err)
		}
		return value.OfBool(b), nil
	case "instant":
		var nanos int64
		if err := json.Unmarshal(w.V, &nanos); err != nil {
			return value.Value{}, fmt.Errorf("decode instant value: %w", err)
		}
		return value.OfInstant(time.Unix(0, nanos).UTC()), nil
	case "ref":
		var r int64
		if err := json.Unmarshal(w.V, &r); err != nil {
			return value.Value{}, fmt.Errorf("decode ref value: %w", err)
		}
		return value.OfRef(value.EntityId(r)), nil
	case "keyword":
		var s string
		if err := json.Unmarshal(w.V, &s); err != nil {
			return value.Value{}, fmt.Errorf("decode keyword value: %w", err)
		}
		return value.OfKeyword(s), nil
	case "bytes":
		var s string
		if err := json.Unmarshal(w.V, &s); err != nil {
			return value.Value{}, fmt.Errorf("decode bytes value: %w", err)
		}
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return value.Value{}, fmt.Errorf("decode bytes value: %w", err)
		}
		return value.OfBytes(b), nil
	default:
		return value.Value{}, fmt.Errorf("unknown value kind %q", w.T)
	}
}

// wireDatom is one journal-line datom record, encoded as the literal
// 5-element tuple spec.md §6 specifies — `[E,"A",{t,v},T,added]` — rather
// than an object keyed by field name, so an external reader following the
// spec's example can parse the journal without this module.
type wireDatom struct {
	E     int64
	A     string
	V     wireValue
	Tx    uint64
	Added bool
}

func (w wireDatom) MarshalJSON() ([]byte, error) {
	return json.Marshal([5]interface{}{w.E, w.A, w.V, w.Tx, w.Added})
}

func (w *wireDatom) UnmarshalJSON(data []byte) error {
	var tuple [5]json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return fmt.Errorf("decode datom tuple: %w", err)
	}
	if err := json.Unmarshal(tuple[0], &w.E); err != nil {
		return fmt.Errorf("decode datom entity: %w", err)
	}
	if err := json.Unmarshal(tuple[1], &w.A); err != nil {
		return fmt.Errorf("decode datom attribute: %w", err)
	}
	if err := json.Unmarshal(tuple[2], &w.V); err != nil {
		return fmt.Errorf("decode datom value: %w", err)
	}
	if err := json.Unmarshal(tuple[3], &w.Tx); err != nil {
		return fmt.Errorf("decode datom tx: %w", err)
	}
	if err := json.Unmarshal(tuple[4], &w.Added); err != nil {
		return fmt.Errorf("decode datom added flag: %w", err)
	}
	return nil
}

func encodeDatom(d datom.Datom) wireDatom {
	return wireDatom{
		E:     int64(d.E),
		A:     string(d.A),
		V:     encodeValue(d.V),
		Tx:    uint64(d.Tx),
		Added: d.Added,
	}
}

func decodeDatom(w wireDatom) (datom.Datom, error) {
	v, err := decodeValue(w.V)
	if err != nil {
		return datom.Datom{}, err
	}
	return datom.New(value.EntityId(w.E), datom.Attribute(w.A), v, datom.TxId(w.Tx), w.Added), nil
}

// txLine is one line of the append-only journal: a committed transaction's
// id, wall-clock instant, and the datoms it produced — spec.md §6's
// `{"txId":N,"instant":N,"datoms":[...]}`.
type txLine struct {
	Tx      uint64      `json:"txId"`
	Instant int64       `json:"instant"` // unix nanos
	Datoms  []wireDatom `json:"datoms"`
}
