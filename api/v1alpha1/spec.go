package v1alpha1

import (
	_ "embed"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var rawSpec []byte

// GetSwagger returns the OpenAPI document the API server validates requests against.
func GetSwagger() (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	swagger, err := loader.LoadFromData(rawSpec)
	if err != nil {
		return nil, fmt.Errorf("error loading swagger spec: %w", err)
	}
	if err := swagger.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("invalid swagger spec: %w", err)
	}
	return swagger, nil
}
