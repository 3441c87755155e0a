package protocol

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"

	"github.com/iasenovets/side-effect-pir/internal/applog"
	"github.com/iasenovets/side-effect-pir/internal/heparams"
	"github.com/iasenovets/side-effect-pir/internal/match"
	"github.com/iasenovets/side-effect-pir/internal/record"
)

// conversationHeader carries the opaque per-conversation token the
// REDESIGN FLAG in spec §9 asks for: the transient candidate set is keyed
// by this token instead of a process-wide singleton, so concurrent
// clients never see each other's state (spec §5).
const conversationHeader = "X-Conversation-Id"

// conversation holds the transient candidate set between a POST /query
// and its paired GET fetch (spec §3/§4.8).
type conversation struct {
	candidates []int // Store indices, in prefilter/evaluation order
}

// Server is the Server Protocol Driver (spec §4.8): process-wide Record
// Store and FHE Context, one transient candidate set per conversation.
type Server struct {
	store     *record.Store
	ctx       *heparams.Context
	evaluator *match.Evaluator
	log       *applog.Logger

	mu            sync.Mutex
	conversations map[string]*conversation
}

// NewServer builds a Server Protocol Driver around an immutable Store and
// a server-side (encrypt/evaluate-only) FHE Context.
func NewServer(store *record.Store, ctx *heparams.Context, log *applog.Logger) (*Server, error) {
	ev, err := match.NewEvaluator(ctx)
	if err != nil {
		return nil, fmt.Errorf("protocol: server: %w", err)
	}
	return &Server{
		store:         store,
		ctx:           ctx,
		evaluator:     ev,
		log:           log,
		conversations: make(map[string]*conversation),
	}, nil
}

// Routes returns the http.Handler implementing spec §6's HTTP interface.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /query", s.handleQuery)
	mux.HandleFunc("GET /query", s.handleFetch)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	return mux
}

// handleQuery implements the Idle -> Awaiting-Fetch transition (spec
// §4.8): prefilter, evaluate, respond, and stash the transient candidate
// set under a fresh conversation token.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.log.Warnf("reading query body: %v", err)
		writeBadRequest(w, err)
		return
	}
	q, err := UnmarshalQuery(body)
	if err != nil {
		s.log.Warnf("malformed query body: %v", err)
		writeBadRequest(w, err)
		return
	}
	if err := q.Validate(); err != nil {
		writeBadRequest(w, err)
		return
	}

	ctQuery, err := s.ctx.Deserialize(q.EncryptedM)
	if err != nil {
		s.log.Warnf("bad encrypted_m: %v", err)
		writeBadRequest(w, err)
		return
	}

	candidates := record.Prefilter(s.store, record.FilterQuery{
		Medicines:   q.Medicines,
		SideEffects: q.SideEffects,
	})

	candidateCts := make([]*rlwe.Ciphertext, len(candidates))
	for i, idx := range candidates {
		ct, err := s.store.IdentityCiphertext(idx, s.ctx)
		if err != nil {
			// Deserialization of at-rest identity ciphertexts cannot fail
			// under the invariants this module maintains; treat it as the
			// internal FHE failure spec §7 calls a bug, not a client error.
			s.log.Errorf("internal FHE failure decoding stored identity: %v", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		candidateCts[i] = ct
	}

	hexResults, err := s.evaluator.EvaluateAll(ctQuery, candidateCts)
	if err != nil {
		s.log.Errorf("internal FHE failure: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	token, err := newConversationToken()
	if err != nil {
		s.log.Errorf("failed to allocate conversation token: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.mu.Lock()
	s.conversations[token] = &conversation{candidates: candidates}
	s.mu.Unlock()

	w.Header().Set(conversationHeader, token)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(Result(hexResults))
}

// handleFetch implements the Awaiting-Fetch -> Idle transition (spec
// §4.8): validate indices against the current candidate set, project
// each row through View, respond, and clear the transient state.
func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get(conversationHeader)

	s.mu.Lock()
	conv, ok := s.conversations[token]
	if ok {
		delete(s.conversations, token)
	}
	s.mu.Unlock()

	if !ok {
		writeBadRequest(w, fmt.Errorf("no query in progress for this conversation"))
		return
	}

	rawIndexes := r.URL.Query().Get("indexes")
	if rawIndexes == "" {
		writeBadRequest(w, fmt.Errorf("missing required parameter: indexes"))
		return
	}
	fetch, err := ParseFetchIndexes(rawIndexes)
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	items := make([]FetchResponseItem, len(fetch))
	for i, pos := range fetch {
		if pos >= len(conv.candidates) {
			writeBadRequest(w, fmt.Errorf("index %d out of range of candidate set (size %d)", pos, len(conv.candidates)))
			return
		}
		view := s.store.View(conv.candidates[pos])
		items[i] = FetchResponseItem{
			Medicines:   view.Medicines,
			SideEffects: view.SideEffects,
			Treatment:   view.TreatmentSealed,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(items)
}

func writeBadRequest(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func newConversationToken() (string, error) {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf[:]), nil
}
