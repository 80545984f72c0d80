// Package indexer defines the upstream event indexer's subscription
// contract and the HTTP client that consumes it. The indexer itself is an
// external collaborator; only its interface lives here.
package indexer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/omahs/rs-eigentrust/protocol"
)

// Query filters the indexer's event log by attestation source and schema,
// and selects the window [Offset, Offset+Count).
type Query struct {
	SourceAddress string   `json:"source_address"`
	SchemaIDs     []uint32 `json:"schema_id"`
	Offset        uint32   `json:"offset"`
	Count         uint32   `json:"count"`
}

// Event is one entry of the indexer's ordered event log.
type Event struct {
	ID          uint32 `json:"id"`
	SchemaID    uint32 `json:"schema_id"`
	SchemaValue string `json:"schema_value"`
	Timestamp   uint64 `json:"timestamp"`
}

// Client consumes the indexer's subscribe stream over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the indexer at baseURL. Deadlines are
// supplied per call through the context, not a client-wide timeout, since
// subscribe responses are streamed.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{},
	}
}

// Subscribe opens the filtered event stream described by q. The caller owns
// the returned stream and must close it.
func (c *Client) Subscribe(ctx context.Context, q Query) (*EventStream, error) {
	body, err := protocol.SerializeMessage(&q)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/subscribe", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("indexer subscribe: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("indexer subscribe: status %d", resp.StatusCode)
	}

	return &EventStream{
		body: resp.Body,
		dec:  protocol.NewStreamDecoder[Event](resp.Body),
	}, nil
}

// EventStream is an open subscription; events arrive in log order.
type EventStream struct {
	body io.ReadCloser
	dec  *protocol.StreamDecoder[Event]
}

// Next returns the next event, or io.EOF when the window is exhausted.
func (s *EventStream) Next() (*Event, error) {
	return s.dec.Next()
}

// Close terminates the subscription.
func (s *EventStream) Close() error {
	return s.body.Close()
}
