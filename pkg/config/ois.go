package config

import "strings"

// OIS is an Oracle Integration Specification: one external API and the
// endpoints the node exposes over it.
type OIS struct {
	OISFormat         string            `yaml:"oisFormat"`
	Version           string            `yaml:"version"`
	Title             string            `yaml:"title"`
	APISpecifications APISpecifications `yaml:"apiSpecifications"`
	Endpoints         []Endpoint        `yaml:"endpoints"`
}

// APISpecifications is the subset of the upstream API description the
// executor needs to build HTTP requests.
type APISpecifications struct {
	Servers         []Server                  `yaml:"servers"`
	SecuritySchemes map[string]SecurityScheme `yaml:"securitySchemes"`
}

// Server is a base URL of the upstream API
type Server struct {
	URL string `yaml:"url"`
}

// SecurityScheme describes one API credential. The credential value is
// read from the environment at call time, named
// <OIS_TITLE>_<SCHEME_NAME> upper-cased with non-alphanumerics as _.
type SecurityScheme struct {
	Type string `yaml:"type"` // "apiKey"
	In   string `yaml:"in"`   // "query" or "header"
	Name string `yaml:"name"`
}

// Endpoint is one named API operation
type Endpoint struct {
	Name                     string                    `yaml:"name"`
	Operation                Operation                 `yaml:"operation"`
	FixedOperationParameters []FixedOperationParameter `yaml:"fixedOperationParameters"`
	ReservedParameters       []ReservedParameter       `yaml:"reservedParameters"`
	Parameters               []EndpointParameter       `yaml:"parameters"`
}

// Operation locates the endpoint in the upstream API
type Operation struct {
	Path   string `yaml:"path"`
	Method string `yaml:"method"`
}

// OperationParameter targets an HTTP parameter slot
type OperationParameter struct {
	In   string `yaml:"in"` // "query", "header" or "path"
	Name string `yaml:"name"`
}

// FixedOperationParameter is always sent with the configured value
type FixedOperationParameter struct {
	OperationParameter OperationParameter `yaml:"operationParameter"`
	Value              string             `yaml:"value"`
}

// ReservedParameter controls response post-processing. Reserved names
// are _type, _path and _times. A fixed value overrides whatever the
// requester supplied; a default applies when the requester is silent.
type ReservedParameter struct {
	Name    string `yaml:"name"`
	Fixed   string `yaml:"fixed"`
	Default string `yaml:"default"`
}

// EndpointParameter maps a request parameter onto the upstream operation
type EndpointParameter struct {
	Name               string             `yaml:"name"`
	OperationParameter OperationParameter `yaml:"operationParameter"`
	Required           bool               `yaml:"required"`
	Default            string             `yaml:"default"`
}

// Reserved parameter names
const (
	ReservedType  = "_type"
	ReservedPath  = "_path"
	ReservedTimes = "_times"
)

// IsReservedName reports whether name is a reserved parameter
func IsReservedName(name string) bool {
	return name == ReservedType || name == ReservedPath || name == ReservedTimes
}

// FindReservedParameter returns the endpoint's declaration for name
func (e *Endpoint) FindReservedParameter(name string) (ReservedParameter, bool) {
	for _, rp := range e.ReservedParameters {
		if rp.Name == name {
			return rp, true
		}
	}
	return ReservedParameter{}, false
}

// FindParameter returns the endpoint parameter declaration for name
func (e *Endpoint) FindParameter(name string) (EndpointParameter, bool) {
	for _, p := range e.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return EndpointParameter{}, false
}

// SecurityEnvName is the environment variable holding the credential
// value for a security scheme of an OIS.
func SecurityEnvName(oisTitle, schemeName string) string {
	sanitize := func(s string) string {
		var b strings.Builder
		for _, r := range strings.ToUpper(s) {
			if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
				b.WriteRune(r)
			} else {
				b.WriteRune('_')
			}
		}
		return b.String()
	}
	return sanitize(oisTitle) + "_" + sanitize(schemeName)
}
