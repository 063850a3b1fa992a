// Package config loads application configuration from environment variables.
//
// It combines github.com/joho/godotenv and github.com/caarlos0/env/v11: the
// default .env file is loaded once per process (a missing file is fine), then
// the environment is parsed into any annotated struct.
//
//	type ServerConfig struct {
//	    Addr string `env:"HTTP_ADDR" envDefault:":8080"`
//	}
//
//	var cfg ServerConfig
//	if err := config.Load(&cfg); err != nil {
//	    log.Fatal(err)
//	}
//
// Sentinel errors can be compared with errors.Is:
//
//   - ErrParsingConfig – environment could not be parsed into the struct.
//   - ErrNilPointer    – nil pointer passed to Load/MustLoad.
package config
