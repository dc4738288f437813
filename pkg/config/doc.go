// Package config reads the tool's settings from process environment
// variables.
//
// Settings are declared as tagged fields on Environment, parsed with
// caarlos0/env and validated with go-playground/validator. Derived paths,
// such as the package cache and the stored credentials file, are computed
// from CacheDir, which falls back to the user cache directory.
//
//	env, err := config.Load()
//	if err != nil {
//		return err
//	}
//	index := env.PackageIndexFile()
package config
