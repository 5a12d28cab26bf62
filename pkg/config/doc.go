// Package config loads typed configuration structs from environment
// variables using github.com/caarlos0/env/v11 struct tags, with optional
// .env files read through github.com/joho/godotenv.
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
// Load caches one value per struct type. Parse skips the cache, which keeps
// tests that tweak the environment independent from each other.
package config
