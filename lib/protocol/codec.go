// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"io"

	"github.com/fxamacker/cbor/v2"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("protocol: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		// A duplicated "type" key could smuggle two tags past the
		// dispatcher; reject the envelope instead of taking the last.
		DupMapKey: cbor.DupMapKeyEnforcedAPF,
		// Envelopes are flat maps of three strings.
		MaxNestedLevels: 4,
		MaxMapPairs:     64,
	}.DecMode()
	if err != nil {
		panic("protocol: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v with the deterministic encoder.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes one CBOR item into v.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

func newEncoder(w io.Writer) *cbor.Encoder {
	return encMode.NewEncoder(w)
}

func newDecoder(r io.Reader) *cbor.Decoder {
	return decMode.NewDecoder(r)
}
