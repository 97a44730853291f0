package wire

import jsoniter "github.com/json-iterator/go"

// JSON is the codec used for every frame body in this module, in place of
// encoding/json, mirroring the pack's precedent of dropping jsoniter in as a
// compatible faster replacement rather than hand-rolling a decoder.
var JSON = jsoniter.ConfigCompatibleWithStandardLibrary

// DecodeObject decodes a single frame body into a generic JSON object. A
// frame that decodes to something other than a JSON object is reported as
// ErrNotObject, distinct from a JSON syntax error.
func DecodeObject(data []byte) (map[string]any, error) {
	var v any
	if err := JSON.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, ErrNotObject
	}
	return obj, nil
}

// ErrNotObject is returned by DecodeObject when the frame's JSON value is
// not an object.
var ErrNotObject = jsonNotObjectError{}

type jsonNotObjectError struct{}

func (jsonNotObjectError) Error() string { return "wire: frame did not decode to a JSON object" }

// EncodeFrame marshals obj and appends the NUL frame terminator.
func EncodeFrame(obj map[string]any) ([]byte, error) {
	data, err := JSON.Marshal(obj)
	if err != nil {
		return nil, err
	}
	return append(data, 0), nil
}
