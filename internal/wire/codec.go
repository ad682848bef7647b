// Package wire is the serialization facade every collective algorithm
// builds on: a value_type buffer, a serializer/deserializer pair, and
// get_buffer-style byte extraction, folded into a small Codec interface. The
// state machines themselves are responsible for any framing beyond what the
// codec already self-describes (sender tags), matching the
// contract that framing lives at the algorithm level, not in the codec.
package wire

import "encoding/json"

// Codec turns values into self-describing byte buffers and back. A Codec
// implementation owns both the serializer and deserializer side of the
// facade; Encode plays the role of value_type+serializer+get_buffer, Decode
// the role of deserializer.
type Codec interface {
	Encode(v interface{}) ([]byte, error)
	Decode(data []byte, v interface{}) error
}

// JSONCodec is the default Codec, grounded on the teacher's own framing
// choice (core/transport.go marshals and unmarshals every wire message with
// encoding/json).
type JSONCodec struct{}

func (JSONCodec) Encode(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONCodec) Decode(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// Envelope wraps a batch of already-serialized elements together with a
// leading count, the wire-level analog of "payload framed with a leading
// block count" called for by the segment-forwarding algorithms (scatter,
// gather). The count is redundant with len(Elements) in this Go encoding,
// but it is kept explicit so that a deserializer never has to trust the
// transport's framing implicitly. The scatter and gather state machines in
// this module do not use it; they encode [][]byte directly.
type Envelope struct {
	Count    int      `json:"count"`
	Elements [][]byte `json:"elements"`
}

// Tagged wraps a single contribution with the rotated rank it originated
// from, used by the binomial gather/reduce mailboxes. Gather sorts by it to
// recover rank order of contributions that can arrive in any order; reduce
// decodes it but combines in arrival order.
type Tagged struct {
	FromRel int    `json:"from_rel"`
	Data    []byte `json:"data"`
}

func EncodeEnvelope(c Codec, count int, elements [][]byte) ([]byte, error) {
	return c.Encode(Envelope{Count: count, Elements: elements})
}

func DecodeEnvelope(c Codec, data []byte) (Envelope, error) {
	var env Envelope
	err := c.Decode(data, &env)
	return env, err
}

func EncodeTagged(c Codec, fromRel int, data []byte) ([]byte, error) {
	return c.Encode(Tagged{FromRel: fromRel, Data: data})
}

func DecodeTagged(c Codec, data []byte) (Tagged, error) {
	var t Tagged
	err := c.Decode(data, &t)
	return t, err
}
