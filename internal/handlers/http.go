package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
)

type textService struct {
	httpclient *http.Client
	url        string
	timeout    time.Duration
}

func newTextService(url string, timeout time.Duration) (*textService, error) {
	if url == "" {
		return nil, fmt.Errorf("no url")
	}
	return &textService{httpclient: asrHTTPClient(), url: url, timeout: timeout}, nil
}

// post sends JSON request and decodes JSON response
func (s *textService) post(ctx context.Context, in, out any) error {
	ctx, cancelF := context.WithTimeout(ctx, s.timeout)
	defer cancelF()

	b := new(bytes.Buffer)
	if err := json.NewEncoder(b).Encode(in); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, b)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.httpclient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1000))
		_ = resp.Body.Close()
	}()
	if err := goapp.ValidateHTTPResp(resp, 100); err != nil {
		return fmt.Errorf("can't invoke '%s': %w", req.URL.String(), err)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func asrHTTPClient() *http.Client {
	return &http.Client{Transport: newTransport()}
}

func newTransport() http.RoundTripper {
	res := http.DefaultTransport.(*http.Transport).Clone()
	res.MaxConnsPerHost = 5
	res.MaxIdleConns = 2
	res.MaxIdleConnsPerHost = 2
	res.IdleConnTimeout = 90 * time.Second
	return res
}
