package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/betbot/dicebot/pkg/keyring"
)

func main() {
	var (
		dbPath    = flag.String("keyring", getenv("DICEBOT_KEYRING_DIR", "data/keyring"), "keyring directory")
		masterKey = flag.String("master-key", getenv("DICEBOT_KEYRING_MASTER_KEY", ""), "encryption key (32 bytes base64/hex), empty stores plaintext")
		site      = flag.String("site", "duckdice", "betting site the key belongs to")
		apiKey    = flag.String("key", "", "api key (falls back to DICEBOT_API_KEY from -env, then the environment)")
		envPath   = flag.String("env", ".env", ".env file consulted when -key is empty")
		list      = flag.Bool("list", false, "list stored sites and exit")
	)
	flag.Parse()

	master, err := keyring.ParseMasterKey(*masterKey)
	if err != nil {
		fatal(err)
	}

	kr, err := keyring.Open(keyring.OpenOptions{
		Path:      *dbPath,
		MasterKey: master,
		ReadOnly:  *list,
	})
	if err != nil {
		fatal(err)
	}
	defer kr.Close()

	if *list {
		sites, err := kr.Sites()
		if err != nil {
			fatal(err)
		}
		if len(sites) == 0 {
			fmt.Println("keyring is empty")
			return
		}
		for _, s := range sites {
			fmt.Println(s)
		}
		return
	}

	key := strings.TrimSpace(*apiKey)
	if key == "" {
		key = apiKeyFromDotEnv(*envPath)
	}
	if key == "" {
		key = strings.TrimSpace(os.Getenv("DICEBOT_API_KEY"))
	}
	if key == "" {
		fatal(fmt.Errorf("no api key: pass -key, or put DICEBOT_API_KEY in %s or the environment", *envPath))
	}

	if err := kr.SetAPIKey(*site, key); err != nil {
		fatal(err)
	}
	fmt.Fprintf(os.Stderr, "stored api key for %s in %s\n", strings.ToLower(strings.TrimSpace(*site)), *dbPath)
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "error:", err.Error())
	os.Exit(1)
}

// apiKeyFromDotEnv pulls DICEBOT_API_KEY out of a .env file without
// touching the process environment. A missing file is fine.
func apiKeyFromDotEnv(path string) string {
	b, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(string(b), "\n") {
		l := strings.TrimSpace(strings.TrimRight(line, "\r"))
		if l == "" || strings.HasPrefix(l, "#") {
			continue
		}
		parts := strings.SplitN(l, "=", 2)
		if len(parts) != 2 || strings.TrimSpace(parts[0]) != "DICEBOT_API_KEY" {
			continue
		}
		v := strings.TrimSpace(parts[1])
		// strip optional quotes
		if len(v) >= 2 && ((v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'')) {
			v = v[1 : len(v)-1]
		}
		return v
	}
	return ""
}
