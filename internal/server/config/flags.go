package config

import (
	"flag"
	"time"

	"github.com/dmitrijs2005/gophgallery/internal/flagx"
)

var serverFlags = []string{"-a", "-d", "-s", "-t", "-l", "-k", "-f", "-n", "-m", "-u", "-p", "-b", "-g", "-e"}

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":3000")
//	-d string   metadata store DSN (postgres://, mongodb:// or memory://)
//	-s string   JWT HMAC secret key
//	-t int      access token validity, minutes
//	-l string   log level
//	-k string   blob backend: local | s3
//	-f string   upload directory of the local backend
//	-n int      max files per batch upload
//	-m int      max bytes per uploaded file
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//
// Arguments are filtered with flagx.FilterArgs first, so -c/-config and any
// other foreign flags are ignored here.
func parseFlags(config *Config, args []string) {
	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")

	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.BlobBackend, "k", config.BlobBackend, "blob backend (local|s3)")
	fs.StringVar(&config.UploadDir, "f", config.UploadDir, "local upload directory")
	fs.IntVar(&config.MaxBatchFiles, "n", config.MaxBatchFiles, "max files per batch upload")
	fs.Int64Var(&config.MaxUploadBytes, "m", config.MaxUploadBytes, "max bytes per uploaded file")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 root bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 root region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(flagx.FilterArgs(args, serverFlags)); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
}
