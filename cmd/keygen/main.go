// Command keygen provisions a fresh keypair for one of the two scheme
// profiles, and optionally a synthetic dataset, so a server and client can
// be brought up without sharing a live session (spec §6).
package main

import (
	"crypto/rand"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/iasenovets/side-effect-pir/internal/gendata"
	"github.com/iasenovets/side-effect-pir/internal/heparams"
	"github.com/iasenovets/side-effect-pir/internal/payload"
)

func main() {
	var (
		profile     = flag.String("profile", "standard", "scheme profile: standard|radius")
		outDir      = flag.String("out", ".", "directory to write key/cipher material into")
		genCount    = flag.Int("gen", 0, "if > 0, also generate this many synthetic records into dataset.json")
		datasetPath = flag.String("dataset", "dataset.json", "path (relative to -out) to write the generated dataset to")
	)
	flag.Parse()

	p := heparams.Profile(*profile)
	ctx, sk, pk, rlk, err := heparams.NewClientContext(p)
	if err != nil {
		log.Fatalf("[ERROR] building client context: %v", err)
	}

	if err := os.MkdirAll(*outDir, 0o700); err != nil {
		log.Fatalf("[ERROR] creating output directory: %v", err)
	}

	writeKey(*outDir, "secret_key.bin", sk)
	writeKey(*outDir, "public_key.bin", pk)
	if p == heparams.ProfileRadius {
		writeKey(*outDir, "relin_keys.bin", rlk)
	}

	key := make([]byte, payload.KeySize)
	nonce := make([]byte, payload.NonceSize)
	if _, err := rand.Read(key); err != nil {
		log.Fatalf("[ERROR] generating payload cipher key: %v", err)
	}
	if _, err := rand.Read(nonce); err != nil {
		log.Fatalf("[ERROR] generating payload cipher nonce: %v", err)
	}
	writeCipherMaterial(*outDir, key, nonce)

	cipher, err := payload.New(key, nonce)
	if err != nil {
		log.Fatalf("[ERROR] constructing payload cipher: %v", err)
	}

	log.Printf("[INFO] keypair generated: profile=%s out=%s", p, *outDir)

	if *genCount > 0 {
		store, err := gendata.Generate(gendata.DefaultOptions(*genCount), ctx, cipher)
		if err != nil {
			log.Fatalf("[ERROR] generating dataset: %v", err)
		}
		path := *outDir + "/" + *datasetPath
		if err := store.Save(path); err != nil {
			log.Fatalf("[ERROR] writing dataset: %v", err)
		}
		log.Printf("[INFO] wrote %d synthetic records to %s", store.Len(), path)
	}
}

type binaryMarshaler interface {
	MarshalBinary() ([]byte, error)
}

func writeKey(dir, name string, m binaryMarshaler) {
	data, err := m.MarshalBinary()
	if err != nil {
		log.Fatalf("[ERROR] marshaling %s: %v", name, err)
	}
	if err := os.WriteFile(dir+"/"+name, data, 0o600); err != nil {
		log.Fatalf("[ERROR] writing %s: %v", name, err)
	}
}

func writeCipherMaterial(dir string, key, nonce []byte) {
	material := struct {
		KeyHex   string `json:"key_hex"`
		NonceHex string `json:"nonce_hex"`
	}{
		KeyHex:   fmt.Sprintf("%x", key),
		NonceHex: fmt.Sprintf("%x", nonce),
	}
	data, err := json.MarshalIndent(material, "", "  ")
	if err != nil {
		log.Fatalf("[ERROR] marshaling cipher material: %v", err)
	}
	if err := os.WriteFile(dir+"/payload_cipher.json", data, 0o600); err != nil {
		log.Fatalf("[ERROR] writing payload_cipher.json: %v", err)
	}
}
