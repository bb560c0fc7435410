// Package config loads the Boiler configuration file
// (~/.boiler/boiler.conf.json) through viper, with BOILER_*
// environment overrides, and manages its backup and reset.
package config
