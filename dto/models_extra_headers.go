package dto

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtraHeaders type is a comma seperated key=value string defined for use with flag/appconfig parsing
type ExtraHeaders map[string]string

func (e ExtraHeaders) String() string {
	data, _ := json.MarshalIndent(e, "", "  ")
	return string(data)
}

// Set Value should be a comma seperated key=value string
func (e ExtraHeaders) Set(s string) error {
	for _, header := range strings.Split(s, ",") {
		k, v, found := strings.Cut(header, "=")
		if !found {
			return fmt.Errorf("malformed header entry: %s", header)
		}
		e[k] = v
	}
	return nil
}

func (e ExtraHeaders) Type() string {
	return "ExtraHeaders"
}
