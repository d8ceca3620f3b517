package revalidate

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrijs2005/portfolio/internal/logging"
)

// Webhook POSTs {"secret": ..., "paths": [...]} to an external revalidation
// endpoint. Calls run in the background; failures are logged.
type Webhook struct {
	url    string
	secret string
	client *http.Client
	log    logging.Logger
	wg     sync.WaitGroup
}

func NewWebhook(url, secret string, log logging.Logger) *Webhook {
	return &Webhook{
		url:    url,
		secret: secret,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    log.With("module", "revalidate"),
	}
}

type payload struct {
	Secret string   `json:"secret"`
	Paths  []string `json:"paths"`
}

func (w *Webhook) Revalidate(ctx context.Context, paths ...string) {
	body, err := json.Marshal(payload{Secret: w.secret, Paths: paths})
	if err != nil {
		w.log.Error(ctx, "revalidation payload", "error", err)
		return
	}

	ctx = context.WithoutCancel(ctx)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.send(ctx, body)
	}()
}

func (w *Webhook) send(ctx context.Context, body []byte) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		w.log.Error(ctx, "revalidation request", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		w.log.Warn(ctx, "error triggering revalidation", "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		w.log.Warn(ctx, "revalidation failed", "status", resp.StatusCode)
		return
	}
	w.log.Debug(ctx, "revalidation triggered")
}

// Wait blocks until in-flight calls finish.
func (w *Webhook) Wait() {
	w.wg.Wait()
}
