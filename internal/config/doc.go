// Package config handles the YAML configuration of the entity generator.
//
// Example entitygen.yaml:
//
//	version: "1"
//	tag_key: entity
//	packages:
//	  - path: entity-mapper/examples/users
//	    types: [User, UserLocation]
//	    output: entity_gen.go
//	    methods: [from_map, to_map, new]
//
// An empty types list selects every entity type of the package. Methods
// choose which convenience methods are emitted next to the descriptor tables.
package config
