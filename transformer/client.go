package transformer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/omahs/rs-eigentrust/protocol"
)

// Client drives a remote transformer over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the transformer at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{},
	}
}

// SyncIndexer triggers one checkpointed ingestion pass.
func (c *Client) SyncIndexer(ctx context.Context) error {
	return c.post(ctx, "/sync-indexer", nil)
}

// TermStream asks the transformer to forward the term range described by
// batch into the combiner.
func (c *Client) TermStream(ctx context.Context, batch protocol.TermBatch) error {
	body, err := protocol.SerializeMessage(&batch)
	if err != nil {
		return err
	}
	return c.post(ctx, "/term-stream", body)
}

func (c *Client) post(ctx context.Context, path string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("transformer %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("transformer %s: status %d: %s", path, resp.StatusCode, bytes.TrimSpace(msg))
	}
	return nil
}
