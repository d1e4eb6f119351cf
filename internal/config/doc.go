// Package config handles YAML configuration loading with environment variable substitution.
//
// One file format serves both binaries. barshub reads server, database,
// session, hub and log; barsclient reads client, liveness and log. Each
// binary validates only the sections it uses, see Config.Validate.
//
// Configuration files support ${VAR} syntax for environment variable interpolation.
package config
