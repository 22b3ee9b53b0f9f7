// Package config loads the YAML configuration of the ScriptPilot daemon:
// storage backend, completion provider, catalog locations, queue and
// observability settings. Relative paths resolve against the config file's
// directory.
package config
