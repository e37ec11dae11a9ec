// Package config reads the portmail process configuration from the
// environment, after loading an optional .env file.
package config
