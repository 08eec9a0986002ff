// Package testutils runs an in-process fake mint federation for wallet
// tests: real per-tier signing keys and the real wire protocol over
// httptest, with switches to make individual mints misbehave.
package testutils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/gorilla/mux"

	"github.com/fedi-tools/gomint/crypto"
	"github.com/fedi-tools/gomint/ecash"
)

// GenerateTierKeys draws one signing key per tier, returning the private
// table fake mints sign with and the public table wallets verify against.
func GenerateTierKeys(tiers []ecash.Amount) (
	ecash.Keys[*secp256k1.PrivateKey], ecash.Keys[*secp256k1.PublicKey], error) {

	private := make(map[ecash.Amount]*secp256k1.PrivateKey, len(tiers))
	public := make(map[ecash.Amount]*secp256k1.PublicKey, len(tiers))
	for _, tier := range tiers {
		key, err := secp256k1.GeneratePrivateKey()
		if err != nil {
			return ecash.Keys[*secp256k1.PrivateKey]{}, ecash.Keys[*secp256k1.PublicKey]{}, err
		}
		private[tier] = key
		public[tier] = key.PubKey()
	}
	return ecash.NewKeys(private), ecash.NewKeys(public), nil
}

// FakeMint is one federation member served over httptest. Peg-ins are
// signed on arrival and kept for later issuance queries.
type FakeMint struct {
	URL string

	tierKeys ecash.Keys[*secp256k1.PrivateKey]
	server   *httptest.Server

	mu        sync.Mutex
	issuances map[ecash.TransactionId]ecash.SigResponse
	pegIns    int
	rejecting bool
	corrupt   bool
}

func NewFakeMint(tierKeys ecash.Keys[*secp256k1.PrivateKey]) *FakeMint {
	m := &FakeMint{
		tierKeys:  tierKeys,
		issuances: make(map[ecash.TransactionId]ecash.SigResponse),
	}

	router := mux.NewRouter()
	router.HandleFunc("/issuance/pegin", m.handlePegIn).Methods(http.MethodPut)
	router.HandleFunc("/issuance/{id}", m.handleGetIssuance).Methods(http.MethodGet)

	m.server = httptest.NewServer(router)
	m.URL = m.server.URL
	return m
}

func (m *FakeMint) Close() {
	m.server.Close()
}

// Reject makes the mint refuse every request until re-enabled.
func (m *FakeMint) Reject(reject bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejecting = reject
}

// Corrupt makes the mint sign with throwaway keys, so its signatures fail
// client verification.
func (m *FakeMint) Corrupt(corrupt bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.corrupt = corrupt
}

// PegIns returns how many peg-in requests the mint accepted.
func (m *FakeMint) PegIns() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pegIns
}

// Forget drops a stored issuance, as if the mint had never seen it.
func (m *FakeMint) Forget(id ecash.TransactionId) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.issuances, id)
}

func (m *FakeMint) handlePegIn(rw http.ResponseWriter, req *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.rejecting {
		rw.WriteHeader(http.StatusServiceUnavailable)
		rw.Write([]byte("mint unavailable"))
		return
	}

	var pegIn ecash.PegInRequest
	if err := json.NewDecoder(req.Body).Decode(&pegIn); err != nil {
		writeMintError(rw, "invalid peg-in request")
		return
	}

	response := ecash.SigResponse{Id: pegIn.BlindTokens.TransactionId()}
	for _, entry := range pegIn.BlindTokens.All() {
		signingKey, err := m.tierKeys.Tier(entry.Amount)
		if err != nil {
			writeMintError(rw, err.Error())
			return
		}
		if m.corrupt {
			signingKey, err = secp256k1.GeneratePrivateKey()
			if err != nil {
				rw.WriteHeader(http.StatusInternalServerError)
				return
			}
		}
		signature, err := crypto.SignBlinded(entry.Item, signingKey)
		if err != nil {
			rw.WriteHeader(http.StatusInternalServerError)
			return
		}
		response.Signatures.Add(entry.Amount, signature)
	}

	m.issuances[response.Id] = response
	m.pegIns++
	rw.WriteHeader(http.StatusOK)
}

func (m *FakeMint) handleGetIssuance(rw http.ResponseWriter, req *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.rejecting {
		rw.WriteHeader(http.StatusServiceUnavailable)
		rw.Write([]byte("mint unavailable"))
		return
	}

	id, err := ecash.ParseTransactionId(mux.Vars(req)["id"])
	if err != nil {
		writeMintError(rw, "invalid issuance id")
		return
	}

	response, ok := m.issuances[id]
	if !ok {
		rw.WriteHeader(http.StatusNotFound)
		rw.Write([]byte("issuance not found"))
		return
	}

	rw.Header().Set("Content-Type", "application/json")
	json.NewEncoder(rw).Encode(response)
}

func writeMintError(rw http.ResponseWriter, detail string) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(rw).Encode(map[string]any{"detail": detail, "code": 10000})
}

// Federation is a set of fake mints sharing one tier key table.
type Federation struct {
	Mints    []*FakeMint
	TierKeys ecash.Keys[*secp256k1.PublicKey]
}

// NewFederation starts n fake mints issuing the given tiers.
func NewFederation(n int, tiers []ecash.Amount) (*Federation, error) {
	private, public, err := GenerateTierKeys(tiers)
	if err != nil {
		return nil, err
	}

	federation := &Federation{TierKeys: public}
	for i := 0; i < n; i++ {
		federation.Mints = append(federation.Mints, NewFakeMint(private))
	}
	return federation, nil
}

// URLs returns the endpoint of every mint, in federation order.
func (f *Federation) URLs() []string {
	urls := make([]string, len(f.Mints))
	for i, mint := range f.Mints {
		urls[i] = mint.URL
	}
	return urls
}

func (f *Federation) Close() {
	for _, mint := range f.Mints {
		mint.Close()
	}
}
