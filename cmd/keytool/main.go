// Command keytool mints rowfence API keys and hashes existing ones, for
// operators seeding keys straight into the database.
package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"rowfence/internal/store/postgres"
)

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	switch os.Args[1] {
	case "mint":
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			fmt.Println("rand failed:", err)
			os.Exit(1)
		}
		key := "rk_" + hex.EncodeToString(b)
		fmt.Println("key: ", key)
		fmt.Println("hash:", postgres.HashAPIKey(key))
	case "hash":
		if len(os.Args) != 3 {
			usage()
		}
		fmt.Println(postgres.HashAPIKey(os.Args[2]))
	default:
		usage()
	}
}

func usage() {
	fmt.Println("usage: keytool mint | keytool hash <key>")
	os.Exit(1)
}
