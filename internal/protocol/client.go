package protocol

import (
	"bytes"
	"crypto/tls"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/iasenovets/side-effect-pir/internal/applog"
	"github.com/iasenovets/side-effect-pir/internal/heparams"
	"github.com/iasenovets/side-effect-pir/internal/identity"
	"github.com/iasenovets/side-effect-pir/internal/payload"
)

// ErrNoMatch is returned by Lookup when the query completes successfully
// but no candidate row's identity token matches (spec §6/§7: "not found"
// is surfaced to the CLI as exit status 1, distinct from a transport or
// protocol error).
var ErrNoMatch = errors.New("protocol: client: no matching record found")

// Client is the Client Protocol Driver (spec §4.7): derives and encrypts
// the identity token, drives the two-leg HTTP exchange, and decrypts the
// match results and, for matching rows, the sealed payload fields.
type Client struct {
	baseURL string
	http    *http.Client
	ctx     *heparams.Context
	cipher  *payload.Cipher
	log     *applog.Logger
}

// NewClient builds a Client around a client-side FHE Context (one holding
// a secret key, from heparams.NewClientContext or
// heparams.NewClientContextFromKey) and a payload Cipher
// sharing the dataset owner's symmetric key/nonce out-of-band.
//
// insecureSkipVerify controls TLS certificate verification. Spec §6's
// demo profile requires it disabled by default ("clients MUST NOT
// require a valid CA chain in the demo profile"), mirroring the
// original prototype's verify=False; callers running against a
// production deployment with a real CA chain should pass false.
func NewClient(baseURL string, ctx *heparams.Context, cipher *payload.Cipher, log *applog.Logger, insecureSkipVerify bool) *Client {
	var transport *http.Transport
	if insecureSkipVerify {
		transport = &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}}
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second, Transport: transport},
		ctx:     ctx,
		cipher:  cipher,
		log:     log,
	}
}

// MatchedRecord is one fully-decoded result row returned to the caller.
// Tagged for spec §6's "pretty-printed result JSON" CLI output.
type MatchedRecord struct {
	Medicines   []int  `json:"medicines"`
	SideEffects []int  `json:"side_effects"`
	Treatment   string `json:"treatment"`
}

// Lookup runs the full two-leg protocol for one (age, gender, medicines,
// side_effects) query: derive and encrypt the token, POST the query,
// decrypt every returned ciphertext to find the zero-valued (matching)
// slots, GET the rows at those positions, and open their sealed treatment
// field (spec §4.7, §5 timing instrumentation).
func (c *Client) Lookup(age int, gender identity.Gender, medicines, sideEffects []int) ([]MatchedRecord, error) {
	start := time.Now()

	m, err := identity.Token(age, gender)
	if err != nil {
		return nil, fmt.Errorf("protocol: client: %w", err)
	}

	ctQuery, err := c.ctx.EncryptToken(m)
	if err != nil {
		return nil, fmt.Errorf("protocol: client: encrypt token: %w", err)
	}
	encHex, err := c.ctx.Serialize(ctQuery)
	if err != nil {
		return nil, fmt.Errorf("protocol: client: serialize token: %w", err)
	}

	q := Query{Medicines: medicines, SideEffects: sideEffects, EncryptedM: encHex}
	body, err := MarshalQuery(q)
	if err != nil {
		return nil, fmt.Errorf("protocol: client: marshal query: %w", err)
	}

	queryStart := time.Now()
	resp, err := c.http.Post(c.baseURL+"/query", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("protocol: client: POST /query: %w", err)
	}
	respBody, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("protocol: client: reading POST /query response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("protocol: client: POST /query: %s: %s", resp.Status, string(respBody))
	}
	conversationToken := resp.Header.Get(conversationHeader)
	c.log.Debugf("POST /query round trip: %s", time.Since(queryStart))

	var result Result
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("protocol: client: decode POST /query response: %w", err)
	}

	decryptStart := time.Now()
	var matchedPositions []int
	for i, hexCt := range result {
		ct, err := c.ctx.Deserialize(hexCt)
		if err != nil {
			return nil, fmt.Errorf("protocol: client: decode result ciphertext %d: %w", i, err)
		}
		slot0, err := c.ctx.DecryptToken(ct)
		if err != nil {
			return nil, fmt.Errorf("protocol: client: decrypt result ciphertext %d: %w", i, err)
		}
		if slot0 == 0 {
			matchedPositions = append(matchedPositions, i)
		}
	}
	c.log.Debugf("local decrypt of %d candidates: %s", len(result), time.Since(decryptStart))

	if len(matchedPositions) == 0 {
		c.log.Infof("query completed in %s: no match", time.Since(start))
		return nil, ErrNoMatch
	}

	records, err := c.fetch(conversationToken, matchedPositions)
	if err != nil {
		return nil, err
	}
	c.log.Infof("query completed in %s: %d match(es)", time.Since(start), len(records))
	return records, nil
}

// fetch issues the GET /query leg for the given candidate-set positions and
// opens each row's sealed treatment field.
func (c *Client) fetch(conversationToken string, positions []int) ([]MatchedRecord, error) {
	idxJSON, err := json.Marshal(positions)
	if err != nil {
		return nil, fmt.Errorf("protocol: client: marshal indexes: %w", err)
	}

	req, err := http.NewRequest(http.MethodGet, c.baseURL+"/query?indexes="+string(idxJSON), nil)
	if err != nil {
		return nil, fmt.Errorf("protocol: client: build GET /query: %w", err)
	}
	req.Header.Set(conversationHeader, conversationToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("protocol: client: GET /query: %w", err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("protocol: client: reading GET /query response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("protocol: client: GET /query: %s: %s", resp.Status, string(respBody))
	}

	var items []FetchResponseItem
	if err := json.Unmarshal(respBody, &items); err != nil {
		return nil, fmt.Errorf("protocol: client: decode GET /query response: %w", err)
	}

	out := make([]MatchedRecord, len(items))
	for i, item := range items {
		sealed, err := hex.DecodeString(item.Treatment)
		if err != nil {
			return nil, fmt.Errorf("protocol: client: bad treatment hex at position %d: %w", i, err)
		}
		treatment, err := c.cipher.OpenString(sealed)
		if err != nil {
			return nil, fmt.Errorf("protocol: client: opening treatment at position %d: %w", i, err)
		}
		out[i] = MatchedRecord{
			Medicines:   item.Medicines,
			SideEffects: item.SideEffects,
			Treatment:   treatment,
		}
	}
	return out, nil
}
