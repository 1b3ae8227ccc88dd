package config

import (
	"encoding/json"
	"path"
	"reflect"
	"strings"

	"github.com/invopop/jsonschema"
)

// SchemaID identifies the generated configuration schema.
const SchemaID = "https://github.com/grovetools/gcpd/gcpd.schema.json"

// GenerateSchema reflects the Config type into a JSON schema keyed by the
// yaml field names used in configuration files.
func GenerateSchema() *jsonschema.Schema {
	r := &jsonschema.Reflector{
		FieldNameTag:               "yaml",
		RequiredFromJSONSchemaTags: true,
		AllowAdditionalProperties:  false,
		ExpandedStruct:             true,
		Namer:                      definitionName,
	}
	schema := r.Reflect(&Config{})
	schema.ID = jsonschema.ID(SchemaID)
	schema.Title = "gcpd configuration"
	return schema
}

// SchemaJSON returns the indented JSON encoding of the configuration schema.
func SchemaJSON() ([]byte, error) {
	return json.MarshalIndent(GenerateSchema(), "", "  ")
}

// definitionName prefixes types from other packages with their package
// name, so logging.Config becomes LoggingConfig instead of colliding with
// the root Config.
func definitionName(t reflect.Type) string {
	pkg := path.Base(t.PkgPath())
	if pkg == "" || pkg == "." || pkg == "config" {
		return t.Name()
	}
	return strings.ToUpper(pkg[:1]) + pkg[1:] + t.Name()
}
