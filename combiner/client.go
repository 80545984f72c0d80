package combiner

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/omahs/rs-eigentrust/protocol"
)

// Client drives a remote combiner over HTTP. The transformer uses it to
// forward term streams; the core computer side uses it to pull the matrix.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the combiner at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{},
	}
}

// SyncTransformer streams terms into the combiner's ingestion endpoint and
// waits for the whole-batch acknowledgement.
func (c *Client) SyncTransformer(ctx context.Context, terms []protocol.TermObject) error {
	var body bytes.Buffer
	enc := protocol.NewStreamEncoder[protocol.TermObject](&body)
	for i := range terms {
		if err := enc.Send(&terms[i]); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sync-transformer", &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-ndjson")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("combiner sync: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("combiner sync: status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	return nil
}

// SyncCoreComputer opens the sparse matrix stream scoped by batch.
// The caller owns the returned stream and must close it.
func (c *Client) SyncCoreComputer(ctx context.Context, batch protocol.MatrixBatch) (*MatrixStream, error) {
	return c.openStream(ctx, "/sync-core-computer", batch)
}

// Updates opens the updates-table stream scoped by batch.
func (c *Client) Updates(ctx context.Context, batch protocol.MatrixBatch) (*MatrixStream, error) {
	return c.openStream(ctx, "/updates", batch)
}

func (c *Client) openStream(ctx context.Context, path string, batch protocol.MatrixBatch) (*MatrixStream, error) {
	body, err := protocol.SerializeMessage(&batch)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("combiner stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("combiner stream: status %d", resp.StatusCode)
	}

	return &MatrixStream{
		body: resp.Body,
		dec:  protocol.NewStreamDecoder[protocol.MatrixEntry](resp.Body),
	}, nil
}

// MatrixStream is an open finite stream of sparse matrix triplets.
type MatrixStream struct {
	body io.ReadCloser
	dec  *protocol.StreamDecoder[protocol.MatrixEntry]
}

// Next returns the next triplet, or io.EOF at the end of the dump.
func (s *MatrixStream) Next() (*protocol.MatrixEntry, error) {
	return s.dec.Next()
}

// Close terminates the stream.
func (s *MatrixStream) Close() error {
	return s.body.Close()
}
