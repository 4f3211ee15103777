// Package jsoncodec is the single JSON implementation used for MQTT payloads.
package jsoncodec

import (
	"strings"

	"github.com/bytedance/sonic"
	"github.com/bytedance/sonic/ast"
)

var defaultConfig = sonic.ConfigStd

func Marshal(v any) ([]byte, error) {
	return defaultConfig.Marshal(v)
}

func MarshalIndent(v any, prefix, indent string) ([]byte, error) {
	return defaultConfig.MarshalIndent(v, prefix, indent)
}

func Unmarshal(data []byte, v any) error {
	return defaultConfig.Unmarshal(data, v)
}

// LookupString returns the string at a dotted object path such as
// "clientToken" or "execution.jobId" without decoding the whole payload.
// The second result is false when the payload is not JSON, the path is
// absent, or the value is not a JSON string.
func LookupString(payload []byte, path string) (string, bool) {
	if path == "" {
		return "", false
	}

	segments := strings.Split(path, ".")
	keys := make([]any, len(segments))
	for i, s := range segments {
		keys[i] = s
	}

	node, err := sonic.Get(payload, keys...)
	if err != nil {
		return "", false
	}

	if node.Type() != ast.V_STRING {
		return "", false
	}

	s, err := node.String()
	if err != nil {
		return "", false
	}
	return s, true
}
