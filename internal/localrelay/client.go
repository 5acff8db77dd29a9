package localrelay

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"nostrarena"
)

// Client is an arena.Gateway that speaks to a Server over HTTP, for
// exercising the coordinator against a real (if minimal) network
// boundary instead of the zero-latency InProcess hub.
type Client struct {
	baseURL string
	pubkey  string
	hc      *http.Client
}

// DialGateway returns an arena.Gateway bound to pubkey, talking to the
// Server listening at baseURL (e.g. "http://localhost:8787").
func DialGateway(baseURL, pubkey string) arena.Gateway {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), pubkey: pubkey, hc: http.DefaultClient}
}

func (c *Client) Publish(ctx context.Context, event arena.OutboundEvent) error {
	body, err := json.Marshal(publishRequest{
		Pubkey: c.pubkey, Kind: event.Kind, Tags: event.Tags,
		Content: event.Content, Replaceable: event.Replaceable,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/publish", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("localrelay: publish returned %s", resp.Status)
	}
	return nil
}

func (c *Client) FetchReplaceable(ctx context.Context, addr arena.Address) (*arena.InboundEvent, error) {
	q := url.Values{}
	q.Set("kind", strconv.Itoa(addr.Kind))
	q.Set("host_pubkey", addr.HostPubkey)
	q.Set("dtag", addr.DTag)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/fetch?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("localrelay: fetch returned %s", resp.Status)
	}
	var ev arena.InboundEvent
	if err := json.NewDecoder(resp.Body).Decode(&ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

func (c *Client) Subscribe(ctx context.Context, filters []arena.Filter) (<-chan arena.InboundEvent, error) {
	q := url.Values{}
	for _, f := range filters {
		for _, k := range f.Kinds {
			q.Add("kind", strconv.Itoa(k))
		}
		if d := f.Tags["d"]; len(d) > 0 {
			q.Set("dtag", d[0])
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/subscribe?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("localrelay: subscribe returned %s", resp.Status)
	}

	out := make(chan arena.InboundEvent, 64)
	go func() {
		defer close(out)
		defer resp.Body.Close()
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			var ev arena.InboundEvent
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (c *Client) SetRelays(relays []string) {
	if len(relays) > 0 {
		c.baseURL = strings.TrimRight(relays[0], "/")
	}
}

func (c *Client) Connected() bool { return true }
