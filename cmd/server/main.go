// Command server runs the PIR side-effect lookup HTTP service (spec §4.8,
// §6): it loads a dataset snapshot and the public (and, for the radius
// profile, relinearization) key material, then serves POST/GET /query.
package main

import (
	"flag"
	"net/http"
	"os"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"

	"github.com/iasenovets/side-effect-pir/internal/applog"
	"github.com/iasenovets/side-effect-pir/internal/config"
	"github.com/iasenovets/side-effect-pir/internal/heparams"
	"github.com/iasenovets/side-effect-pir/internal/protocol"
	"github.com/iasenovets/side-effect-pir/internal/record"
)

func main() {
	configPath := flag.String("config", "", "path to a JSON config file (optional)")
	flag.Parse()

	cfg := config.Load(*configPath)
	log := applog.New("server", cfg.LogLevel)

	store, err := record.Load(cfg.DatasetFile)
	if err != nil {
		log.Errorf("loading dataset %s: %v", cfg.DatasetFile, err)
		os.Exit(1)
	}
	log.Infof("loaded %d records from %s", store.Len(), cfg.DatasetFile)

	pk, err := loadPublicKey(cfg.PublicKey)
	if err != nil {
		log.Errorf("loading public key %s: %v", cfg.PublicKey, err)
		os.Exit(1)
	}

	var rlk *rlwe.RelinearizationKey
	profile := heparams.Profile(cfg.Profile)
	if profile == heparams.ProfileRadius {
		rlk, err = loadRelinKey(cfg.RelinKeys)
		if err != nil {
			log.Errorf("loading relinearization keys %s: %v", cfg.RelinKeys, err)
			os.Exit(1)
		}
	}

	heCtx, err := heparams.NewServerContext(profile, pk, rlk)
	if err != nil {
		log.Errorf("building server HE context: %v", err)
		os.Exit(1)
	}

	srv, err := protocol.NewServer(store, heCtx, log)
	if err != nil {
		log.Errorf("building protocol server: %v", err)
		os.Exit(1)
	}

	log.Infof("listening on %s (profile=%s)", cfg.ListenAddr, profile)
	if cfg.TLSCertFile != "" && cfg.TLSKeyFile != "" {
		err = http.ListenAndServeTLS(cfg.ListenAddr, cfg.TLSCertFile, cfg.TLSKeyFile, srv.Routes())
	} else {
		log.Warnf("no TLS certificate configured, serving plaintext HTTP")
		err = http.ListenAndServe(cfg.ListenAddr, srv.Routes())
	}
	if err != nil {
		log.Errorf("server exited: %v", err)
		os.Exit(1)
	}
}

func loadPublicKey(path string) (*rlwe.PublicKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	pk := new(rlwe.PublicKey)
	if err := pk.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return pk, nil
}

func loadRelinKey(path string) (*rlwe.RelinearizationKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	rlk := new(rlwe.RelinearizationKey)
	if err := rlk.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return rlk, nil
}
