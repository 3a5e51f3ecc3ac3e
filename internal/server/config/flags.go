package config

import (
	"flag"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/userdir/internal/flagx"
)

var serverFlags = []string{"-a", "-G", "-d", "-s", "-k", "-l", "-f", "-i", "-t", "-u", "-p", "-b", "-g", "-e"}

// parseFlags overlays command-line flags.
//
//	-a string   HTTP bind address (":8080")
//	-G string   gRPC health bind address (":50051", empty disables)
//	-d string   database DSN (postgres://... or sqlite:path)
//	-s string   password scheme (md5, bcrypt)
//	-k int      bcrypt cost
//	-l string   log level
//	-f string   log format (json, text)
//	-i int      health check interval, seconds
//	-t int      shutdown timeout, seconds
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket (empty disables export)
//	-g string   S3 region
//	-e string   S3 base endpoint
func parseFlags(config *Config) error {
	return parseFlagArgs(config, flagx.FilterArgs(os.Args[1:], serverFlags))
}

func parseFlagArgs(config *Config, args []string) error {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "HTTP address and port")
	fs.StringVar(&config.EndpointAddrGRPC, "G", config.EndpointAddrGRPC, "gRPC health address and port")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.PasswordScheme, "s", config.PasswordScheme, "password scheme (md5, bcrypt)")
	fs.IntVar(&config.BcryptCost, "k", config.BcryptCost, "bcrypt cost")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.LogFormat, "f", config.LogFormat, "log format (json, text)")

	healthInterval := fs.Int("i", int(config.HealthCheckInterval.Seconds()), "health check interval (in seconds)")
	shutdownTimeout := fs.Int("t", int(config.ShutdownTimeout.Seconds()), "shutdown timeout (in seconds)")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		return err
	}

	// seconds-only flags must not truncate sub-second values from JSON or env
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "i":
			config.HealthCheckInterval = time.Duration(*healthInterval) * time.Second
		case "t":
			config.ShutdownTimeout = time.Duration(*shutdownTimeout) * time.Second
		}
	})
	return nil
}
