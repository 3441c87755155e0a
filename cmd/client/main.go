// Command client drives one side-effect lookup against a running server
// (spec §4.7): encrypt the identity token, submit the query, decrypt the
// match results, and fetch/decrypt the matching rows.
package main

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"

	"github.com/iasenovets/side-effect-pir/internal/applog"
	"github.com/iasenovets/side-effect-pir/internal/heparams"
	"github.com/iasenovets/side-effect-pir/internal/identity"
	"github.com/iasenovets/side-effect-pir/internal/payload"
	"github.com/iasenovets/side-effect-pir/internal/protocol"
)

func main() {
	var (
		profile     = flag.String("profile", "standard", "scheme profile: standard|radius")
		secretKey   = flag.String("secret-key", "secret_key.bin", "path to the client's secret key")
		cipherFile  = flag.String("cipher", "payload_cipher.json", "path to payload_cipher.json")
		age         = flag.Int("age", 0, "patient age, 1-99 (required)")
		gender      = flag.String("gender", "", "patient gender: male|female (required)")
		medicines   = flag.String("medicine-ids", "", "comma-separated medicine IDs, e.g. 1,4,5 (required)")
		sideEffects = flag.String("side-effect-ids", "", "comma-separated side-effect IDs, e.g. 2 (required)")
		outfile     = flag.String("outfile", "", "path to write pretty-printed result JSON; stdout if omitted")
		tlsInsecure = flag.Bool("tls-insecure", true, "skip TLS certificate verification (demo profile); set false for a production deployment with a real CA chain")
		logLevel    = flag.String("log-level", "info", "log level: debug|info|warn|error")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] endpoint\n\nendpoint is the server's base URL, e.g. https://host:port\n\nflags:\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	log := applog.New("client", *logLevel)

	endpoint := flag.Arg(0)
	if endpoint == "" {
		log.Errorf("missing required positional argument: endpoint")
		flag.Usage()
		os.Exit(1)
	}

	g, err := identity.ParseGender(*gender)
	if err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}

	meds, err := parseIntList(*medicines)
	if err != nil {
		log.Errorf("bad -medicine-ids: %v", err)
		os.Exit(1)
	}
	effects, err := parseIntList(*sideEffects)
	if err != nil {
		log.Errorf("bad -side-effect-ids: %v", err)
		os.Exit(1)
	}

	sk, err := loadSecretKey(*secretKey)
	if err != nil {
		log.Errorf("loading secret key: %v", err)
		os.Exit(1)
	}

	heCtx, err := heparams.NewClientContextFromKey(heparams.Profile(*profile), sk)
	if err != nil {
		log.Errorf("building client HE context: %v", err)
		os.Exit(1)
	}

	cipher, err := loadCipher(*cipherFile)
	if err != nil {
		log.Errorf("loading payload cipher material: %v", err)
		os.Exit(1)
	}

	client := protocol.NewClient(endpoint, heCtx, cipher, log, *tlsInsecure)
	records, err := client.Lookup(*age, g, meds, effects)
	if err != nil {
		if errors.Is(err, protocol.ErrNoMatch) {
			log.Infof("not found: no matching record for this query")
			os.Exit(1)
		}
		log.Errorf("lookup failed: %v", err)
		os.Exit(1)
	}

	if err := writeResult(records, *outfile); err != nil {
		log.Errorf("writing result: %v", err)
		os.Exit(1)
	}
}

// writeResult pretty-prints records as JSON (spec §6) to outfile, or to
// stdout when outfile is empty.
func writeResult(records []protocol.MatchedRecord, outfile string) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	data = append(data, '\n')
	if outfile == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(outfile, data, 0o644)
}

func parseIntList(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("must be a non-empty comma-separated list")
	}
	parts := strings.Split(s, ",")
	out := make([]int, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q: %w", p, err)
		}
		out[i] = v
	}
	return out, nil
}

func loadSecretKey(path string) (*rlwe.SecretKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sk := new(rlwe.SecretKey)
	if err := sk.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return sk, nil
}

func loadCipher(path string) (*payload.Cipher, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var material struct {
		KeyHex   string `json:"key_hex"`
		NonceHex string `json:"nonce_hex"`
	}
	if err := json.Unmarshal(data, &material); err != nil {
		return nil, err
	}
	key, err := hex.DecodeString(material.KeyHex)
	if err != nil {
		return nil, fmt.Errorf("bad key_hex: %w", err)
	}
	nonce, err := hex.DecodeString(material.NonceHex)
	if err != nil {
		return nil, fmt.Errorf("bad nonce_hex: %w", err)
	}
	return payload.New(key, nonce)
}
