// Command shipyard-helper runs inside a container and reads the
// variables shipyard already projected into its environment, so
// application start-up scripts can look up a peer's host or port
// without parsing the naming convention themselves.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cuemby/shipyard/pkg/discovery"
)

func main() {
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	var err error
	switch args[0] {
	case "host":
		err = runHost(os.Stdout, args[1:])
	case "port":
		err = runPort(os.Stdout, args[1:])
	case "env":
		err = runEnv(os.Stdout, args[1:])
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "shipyard-helper: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  shipyard-helper host <service> <instance>
  shipyard-helper port <service> <instance> <port-name>
  shipyard-helper env [prefix]`)
}

func runHost(w io.Writer, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("host requires <service> <instance>")
	}
	key := peerPrefix(args[0], args[1]) + "_HOST"
	return printVar(w, key)
}

func runPort(w io.Writer, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("port requires <service> <instance> <port-name>")
	}
	key := peerPrefix(args[0], args[1]) + "_" + discovery.NormalizeName(args[2]) + "_PORT"
	return printVar(w, key)
}

func peerPrefix(service, instance string) string {
	return discovery.NormalizeName(service) + "_" + discovery.NormalizeName(instance)
}

func printVar(w io.Writer, key string) error {
	val, ok := os.LookupEnv(key)
	if !ok {
		return fmt.Errorf("%s is not set in this container's environment", key)
	}
	fmt.Fprintln(w, val)
	return nil
}

// runEnv dumps every environment variable whose name starts with
// prefix (normalized the same way Project names peers) as a JSON
// object, for scripts that prefer to parse once rather than shell out
// per lookup.
func runEnv(w io.Writer, args []string) error {
	var prefix string
	if len(args) == 1 {
		prefix = discovery.NormalizeName(args[0])
	}

	out := make(map[string]string)
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if prefix != "" && !strings.HasPrefix(k, prefix) {
			continue
		}
		out[k] = v
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
