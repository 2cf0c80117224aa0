// producer-token issues a Bearer token for a producer calling IngestService.
// Requires PRODUCER_JWT_PRIVATE_KEY; issuer and audience come from the same config as the server.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"device-inspector/backend/internal/config"
)

func main() {
	producer := flag.String("producer", "", "Producer id (token subject)")
	device := flag.String("device", "", "Optional device id the token is limited to")
	ttl := flag.Duration("ttl", 30*24*time.Hour, "Token lifetime")
	flag.Parse()

	if *producer == "" {
		fmt.Fprintln(os.Stderr, "-producer is required")
		os.Exit(2)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	signer, err := cfg.ProducerSigner()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	token, exp, err := signer.Issue(*producer, *device, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, "issue:", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "expires %s\n", exp.Format(time.RFC3339))
	fmt.Println(token)
}
