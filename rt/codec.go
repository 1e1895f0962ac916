package rt

import "github.com/bytedance/sonic"

// decodeJSON unmarshals data into out using the module's JSON codec.
func decodeJSON(data []byte, out any) error {
	return sonic.Unmarshal(data, out)
}
