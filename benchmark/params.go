package benchmark

import (
	"github.com/mitchellh/mapstructure"
)

// DecodeParams decodes user supplied parameters into out, which must be a pointer to a struct already holding the
// defaults. Values may be strings (from flags or the environment); they are converted to the field types.
func DecodeParams(raw map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return ParamError("decoding parameters", err)
	}
	return nil
}
