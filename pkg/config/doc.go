// Package config loads typed configuration structs from environment
// variables, with optional .env file support for local development.
//
// Each component declares its own config struct with `env:` tags and loads it
// through Load or MustLoad; there is no central configuration registry.
package config
