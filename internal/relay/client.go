package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"whisper/internal/domain"
)

// ErrNotFound is returned when the relay has nothing for the requested user.
var ErrNotFound = errors.New("relay: not found")

// HTTPClient talks JSON over HTTP to a relay server.
type HTTPClient struct {
	Base string
	HTTP *http.Client
}

// NewHTTP returns a client for the relay at base. A nil hc uses
// http.DefaultClient.
func NewHTTP(base string, hc *http.Client) *HTTPClient {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &HTTPClient{Base: strings.TrimRight(base, "/"), HTTP: hc}
}

var _ domain.RelayClient = (*HTTPClient)(nil)

// RegisterPreKeys publishes our keys, replacing any previous set.
func (c *HTTPClient) RegisterPreKeys(ctx context.Context, keys domain.PublishedKeys) error {
	return c.do(ctx, http.MethodPost, "/register", keys, nil)
}

// FetchPreKeyBundle fetches a bundle for peer; the relay consumes one of its
// one-time pre-keys if any are left.
func (c *HTTPClient) FetchPreKeyBundle(ctx context.Context, peer domain.Address) (domain.PreKeyBundle, error) {
	var out domain.PreKeyBundle
	path := "/prekey/" + url.PathEscape(peer.Name.String()) + "/" + strconv.FormatUint(uint64(peer.DeviceID), 10)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return domain.PreKeyBundle{}, err
	}
	return out, nil
}

// SendMessage queues env for env.To and returns the relay-assigned id.
func (c *HTTPClient) SendMessage(ctx context.Context, env domain.Envelope) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/msg/"+url.PathEscape(env.To.String()), env, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// FetchMessages returns up to limit queued envelopes; limit <= 0 means all.
func (c *HTTPClient) FetchMessages(ctx context.Context, username domain.Username, limit int) ([]domain.Envelope, error) {
	path := "/msg/" + url.PathEscape(username.String())
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var envs []domain.Envelope
	if err := c.do(ctx, http.MethodGet, path, nil, &envs); err != nil {
		return nil, err
	}
	return envs, nil
}

// AckMessages removes the given envelopes from the queue.
func (c *HTTPClient) AckMessages(ctx context.Context, username domain.Username, ids []string) error {
	return c.do(ctx, http.MethodPost, "/msg/"+url.PathEscape(username.String())+"/ack", struct {
		IDs []string `json:"ids"`
	}{IDs: ids}, nil)
}

func (c *HTTPClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf := new(bytes.Buffer)
		if err := json.NewEncoder(buf).Encode(in); err != nil {
			return err
		}
		body = buf
	}
	req, err := http.NewRequestWithContext(ctx, method, c.Base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("relay %s %s: %s: %s", strings.ToLower(method), path, resp.Status, strings.TrimSpace(string(msg)))
		if resp.StatusCode == http.StatusNotFound {
			return errors.Join(ErrNotFound, err)
		}
		return err
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
