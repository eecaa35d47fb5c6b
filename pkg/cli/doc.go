// Package cli implements the configctl command-line tool for validating
// and rendering configuration schemas without a running registry server.
//
// # Overview
//
// configctl works against a local schema file and an optional local value
// set, so it can be run in a build pipeline or on a developer's laptop
// with no network access to the registry.
//
// # Commands
//
// validate: run a schema against a product version, role, and target, and
// print the outcome table
//
//	configctl validate \
//		-schema file.yaml \
//		-values values.yaml \
//		-version 1.2.0 \
//		-role worker \
//		-target env
//
// render: the same validation, written out in one of the file formats
// pkg/render produces
//
//	configctl render \
//		-schema file.yaml \
//		-values values.yaml \
//		-version 1.2.0 \
//		-role worker \
//		-target file:app.properties \
//		-format properties \
//		-out app.properties
//
// # Values file
//
// A values file is a flat list of NAME=value lines; blank lines and lines
// starting with # are ignored. A schema with no values file validates
// cleanly against its defaults and recommendations alone.
//
// # Related Packages
//
//   - pkg/schema: loads and compiles the schema document
//   - pkg/validate: runs the validation pass this command prints
//   - pkg/render: produces the env/properties/xml output for render
package cli
