// Command hash prints the bcrypt hash of an admin secret for ADMIN_SECRET_HASH.
//
// Usage:
//
//	hash <secret>
//	echo -n <secret> | hash
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/mmynk/scanbill/internal/auth"
)

func main() {
	secret, err := readSecret()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	hash, err := auth.HashSecret(secret)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(hash)
}

func readSecret() (string, error) {
	if len(os.Args) > 1 {
		return os.Args[1], nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("usage: hash <secret>")
	}
	return strings.TrimRight(line, "\r\n"), nil
}
