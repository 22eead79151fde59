package content

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrNotFound means the store has no blob at the address. Transient from
	// the reconciler's point of view; the event stream redelivers.
	ErrNotFound = errors.New("content not found")
	// ErrHashMismatch means retrieved content does not hash to the
	// ledger-committed digest. Never ignored, never auto-corrected.
	ErrHashMismatch = errors.New("content hash mismatch")
)

// Gateway wraps the content-addressed store. The store speaks base58
// multihash addresses; the ledger only ever carries the raw sha256 digest,
// so every retrieval re-hashes the canonical bytes and compares.
type Gateway struct {
	baseURL string
	client  *http.Client
}

func NewGateway(apiURL string) *Gateway {
	return &Gateway{
		baseURL: strings.TrimRight(apiURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Store writes the canonical form of doc and returns the store address plus
// the 0x-prefixed sha256 digest committed on the ledger.
func (g *Gateway) Store(ctx context.Context, doc json.RawMessage) (string, string, error) {
	canonical, err := Canonicalize(doc)
	if err != nil {
		return "", "", err
	}
	digest := sha256.Sum256(canonical)
	hash := HexHash(digest[:])

	address, err := g.add(ctx, canonical)
	if err != nil {
		return "", "", err
	}
	stored, err := AddressToHash(address)
	if err != nil {
		return "", "", fmt.Errorf("content store returned bad address %q: %w", address, err)
	}
	if !strings.EqualFold(stored, hash) {
		return "", "", fmt.Errorf("content store address %s does not carry digest %s", address, hash)
	}
	return address, hash, nil
}

// RetrieveAndVerify fetches the blob at address, recomputes its hash over
// the canonical bytes and compares against expectedHash (the event-supplied
// digest). Content is only trusted when the digests match.
func (g *Gateway) RetrieveAndVerify(ctx context.Context, address, expectedHash string) (json.RawMessage, error) {
	body, err := g.cat(ctx, address)
	if err != nil {
		return nil, err
	}
	canonical, err := Canonicalize(body)
	if err != nil {
		return nil, err
	}
	digest := sha256.Sum256(canonical)
	if !strings.EqualFold(HexHash(digest[:]), expectedHash) {
		return nil, ErrHashMismatch
	}
	return canonical, nil
}

func (g *Gateway) add(ctx context.Context, data []byte) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "content")
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	endpoint := g.baseURL + "/api/v0/add"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", httpError("content add", resp)
	}

	var out struct {
		Hash string `json:"Hash"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.Hash == "" {
		return "", errors.New("content add response missing hash")
	}
	return out.Hash, nil
}

func (g *Gateway) cat(ctx context.Context, address string) ([]byte, error) {
	endpoint := g.baseURL + "/ipfs/" + address
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, httpError("content get", resp)
	}
	return io.ReadAll(resp.Body)
}

// Canonicalize produces the deterministic byte form hashes are computed
// over: decode and re-encode, which sorts object keys.
func Canonicalize(doc []byte) ([]byte, error) {
	var v any
	if err := json.Unmarshal(doc, &v); err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

func httpError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	msg := strings.TrimSpace(string(body))
	if msg != "" {
		return fmt.Errorf("%s http status %d: %s", op, resp.StatusCode, msg)
	}
	return fmt.Errorf("%s http status %d", op, resp.StatusCode)
}
