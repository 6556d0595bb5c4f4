// Package transporttest provides a scripted transport.Doer for tests.
package transporttest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/endpoints-tools/config-fetcher/internal/transport"
)

// Request records one call made against the fake.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Form    url.Values
}

// Doer replays scripted responses keyed by exact request URL. Requests to
// unscripted URLs fail, which keeps tests honest about exactly which pages
// the code under test asked for.
type Doer struct {
	Responses map[string]*transport.Response
	Errs      map[string]error

	Requests []Request
}

// New returns an empty fake ready for scripting.
func New() *Doer {
	return &Doer{
		Responses: map[string]*transport.Response{},
		Errs:      map[string]error{},
	}
}

// Respond scripts a response for the given URL.
func (d *Doer) Respond(rawURL string, statusCode int, body string) *Doer {
	d.Responses[rawURL] = &transport.Response{
		StatusCode: statusCode,
		Reason:     http.StatusText(statusCode),
		Body:       []byte(body),
	}
	return d
}

// Fail scripts a transport-level failure for the given URL.
func (d *Doer) Fail(rawURL string, err error) *Doer {
	d.Errs[rawURL] = err
	return d
}

// Get implements transport.Doer.
func (d *Doer) Get(_ context.Context, rawURL string, headers map[string]string) (*transport.Response, error) {
	return d.dispatch("GET", rawURL, headers, nil)
}

// PostForm implements transport.Doer.
func (d *Doer) PostForm(_ context.Context, rawURL string, headers map[string]string, form url.Values) (*transport.Response, error) {
	return d.dispatch("POST", rawURL, headers, form)
}

func (d *Doer) dispatch(method, rawURL string, headers map[string]string, form url.Values) (*transport.Response, error) {
	d.Requests = append(d.Requests, Request{Method: method, URL: rawURL, Headers: headers, Form: form})

	if err, ok := d.Errs[rawURL]; ok {
		return nil, err
	}
	if resp, ok := d.Responses[rawURL]; ok {
		return resp, nil
	}
	return nil, fmt.Errorf("unscripted request: %s %s", method, rawURL)
}
