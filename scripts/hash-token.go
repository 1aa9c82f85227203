package main

import (
	"fmt"
	"os"

	"github.com/openclaw/fleet-worker-go/internal/config"
	"github.com/openclaw/fleet-worker-go/internal/util"
)

// Prints a fresh operator token and its OPS_TOKEN_HASH. Pass a token to hash
// an existing one instead.
func main() {
	var token string
	if len(os.Args) > 1 {
		token = os.Args[1]
	} else {
		generated, err := util.GenerateToken()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		token = generated
	}

	hash, err := util.HashToken(token, config.TokenHashCost)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("token: %s\n", token)
	fmt.Printf("OPS_TOKEN_HASH=%s\n", hash)
}
