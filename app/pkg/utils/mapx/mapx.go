package mapx

import (
	"fmt"
	"net/http"
)

type BasicMap map[string]interface{}

func CopyNoDuplicates(src BasicMap, dst BasicMap) []string {
	var duplicateKeys []string

	for k, v := range src {
		for {
			if _, ok := dst[k]; !ok {
				break
			}
			duplicateKeys = append(duplicateKeys, k)
			k += "_"
		}
		dst[k] = v
	}

	return duplicateKeys
}

func StringToStringsList(m map[string]interface{}) map[string][]string {
	result := make(map[string][]string)
	for key, value := range m {
		switch v := value.(type) {
		case []interface{}:
			var values []string
			for _, item := range v {
				values = append(values, fmt.Sprintf("%v", item))
			}
			result[key] = values
		default:
			result[key] = []string{fmt.Sprintf("%v", v)}
		}
	}

	return result
}

// ToHeader converts a loosely typed yaml mapping into canonical http headers.
func ToHeader(m map[string]interface{}) http.Header {
	header := make(http.Header, len(m))
	for k, values := range StringToStringsList(m) {
		for _, v := range values {
			header.Add(k, v)
		}
	}
	return header
}
