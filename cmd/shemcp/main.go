package main

import (
	"os"
)

func main() {
	env := envToMap(os.Environ())

	os.Exit(Run(os.Stdin, os.Stdout, os.Stderr, os.Args, env))
}

func envToMap(environ []string) map[string]string {
	env := make(map[string]string, len(environ))

	for _, kv := range environ {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				env[kv[:i]] = kv[i+1:]

				break
			}
		}
	}

	return env
}
