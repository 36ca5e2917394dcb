// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/go-resty/resty/v2"

	"github.com/MKhiriev/go-checkin/internal/config"
	"github.com/MKhiriev/go-checkin/internal/logger"
	"github.com/MKhiriev/go-checkin/internal/netmon"
	"github.com/MKhiriev/go-checkin/internal/utils"
	"github.com/MKhiriev/go-checkin/models"
)

// SignatureHeader carries the HMAC-SHA256 of a mutation body.
const SignatureHeader = "HashSHA256"

type httpServerAdapter struct {
	client   *utils.HTTPClient
	signer   *utils.Signer
	reporter StatusReporter

	mu    sync.RWMutex
	token string

	logger *logger.Logger
}

// NewHTTPServerAdapter constructs an HTTP/REST implementation of
// [ServerAdapter]. It normalises adapterCfg.HTTPAddress into the base URL and
// signs mutation bodies with appCfg.HashKey when one is set. reporter may be
// nil.
//
// Returns an error if adapterCfg.HTTPAddress is empty or not a valid URL.
func NewHTTPServerAdapter(adapterCfg config.Adapter, appCfg config.App, reporter StatusReporter, log *logger.Logger) (ServerAdapter, error) {
	baseURL, err := NormalizeBaseURL(adapterCfg.HTTPAddress)
	if err != nil {
		return nil, fmt.Errorf("invalid adapter http address: %w", err)
	}

	h := &httpServerAdapter{
		client:   utils.NewHTTPClient(baseURL, adapterCfg.RequestTimeout),
		signer:   utils.NewSigner(appCfg.HashKey),
		reporter: reporter,
		logger:   log,
	}

	h.client.
		OnAfterResponse(h.reportResponse).
		OnError(h.reportError)

	return h, nil
}

// NormalizeBaseURL adds a missing http scheme and strips trailing slashes.
func NormalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty address")
	}

	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("address must include host and scheme")
	}

	return strings.TrimRight(u.String(), "/"), nil
}

// reportResponse runs for every response that arrived, whatever its status.
func (h *httpServerAdapter) reportResponse(_ *resty.Client, _ *resty.Response) error {
	if h.reporter != nil {
		h.reporter.SetOnlineStatus(true)
	}
	return nil
}

// reportError runs when a request produced no usable response.
func (h *httpServerAdapter) reportError(req *resty.Request, err error) {
	if !netmon.IsNetworkError(err) {
		return
	}

	h.logger.Warn().
		Err(err).
		Str("func", "httpServerAdapter.reportError").
		Str("method", req.Method).
		Str("url", req.URL).
		Msg("server unreachable")

	if h.reporter != nil {
		h.reporter.SetOnlineStatus(false)
	}
}

// SetToken implements [ServerAdapter].
func (h *httpServerAdapter) SetToken(token string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.token = strings.TrimSpace(token)
}

// Token implements [ServerAdapter].
func (h *httpServerAdapter) Token() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.token
}

// Login implements [ServerAdapter]. It POSTs the credentials to
// POST /api/auth/login and reads the bearer token from the Authorization
// response header.
func (h *httpServerAdapter) Login(ctx context.Context, creds models.Credentials) (models.Token, error) {
	resp, err := h.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(creds).
		Post("/api/auth/login")
	if err != nil {
		return models.Token{}, fmt.Errorf("login request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.Token{}, err
	}

	signed, err := utils.ParseBearerToken(resp.Header().Get("Authorization"))
	if err != nil {
		return models.Token{}, fmt.Errorf("login parse bearer token: %w", err)
	}

	token, err := utils.ParseTokenUnverified(signed)
	if err != nil {
		return models.Token{}, fmt.Errorf("login parse token claims: %w", err)
	}

	h.SetToken(signed)
	return token, nil
}

// ListTickets implements [ServerAdapter] with
// GET /api/events/{event}/tickets?page=&per_page=.
func (h *httpServerAdapter) ListTickets(ctx context.Context, eventUUID string, page, perPage int) (models.TicketPage, error) {
	var result models.TicketPage

	resp, err := h.authedRequest(ctx).
		SetPathParam("event", eventUUID).
		SetQueryParam("page", strconv.Itoa(page)).
		SetQueryParam("per_page", strconv.Itoa(perPage)).
		SetResult(&result).
		Get("/api/events/{event}/tickets")
	if err != nil {
		return models.TicketPage{}, fmt.Errorf("list tickets request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.TicketPage{}, err
	}

	return result, nil
}

// ScanTicket implements [ServerAdapter] with
// POST /api/events/{event}/tickets/{code}/scan.
func (h *httpServerAdapter) ScanTicket(ctx context.Context, p models.ScanTicketPayload) (models.RemoteResult, error) {
	return h.mutate(ctx, "POST", "/api/events/{event}/tickets/{code}/scan", p.EventUUID, p.Code, p)
}

// UpdateNote implements [ServerAdapter] with
// PUT /api/events/{event}/tickets/{code}/note.
func (h *httpServerAdapter) UpdateNote(ctx context.Context, p models.UpdateNotePayload) (models.RemoteResult, error) {
	return h.mutate(ctx, "PUT", "/api/events/{event}/tickets/{code}/note", p.EventUUID, p.Code, p)
}

// ManualCheckin implements [ServerAdapter] with
// POST /api/events/{event}/tickets/{code}/checkin.
func (h *httpServerAdapter) ManualCheckin(ctx context.Context, p models.ManualCheckinPayload) (models.RemoteResult, error) {
	return h.mutate(ctx, "POST", "/api/events/{event}/tickets/{code}/checkin", p.EventUUID, p.Code, p)
}

// mutate sends a signed JSON body to a ticket endpoint and decodes the
// authoritative ticket state. An empty 2xx body yields an empty result.
func (h *httpServerAdapter) mutate(ctx context.Context, method, path, event, code string, body any) (models.RemoteResult, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return models.RemoteResult{}, fmt.Errorf("encode %s body: %w", path, err)
	}

	req := h.authedRequest(ctx).
		SetPathParam("event", event).
		SetPathParam("code", code).
		SetHeader("Content-Type", "application/json").
		SetBody(payload)
	if h.signer.Enabled() {
		req.SetHeader(SignatureHeader, h.signer.Sign(payload))
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return models.RemoteResult{}, fmt.Errorf("%s %s request: %w", method, path, err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.RemoteResult{}, err
	}

	var result models.RemoteResult
	if len(resp.Body()) == 0 {
		return result, nil
	}
	if err = json.Unmarshal(resp.Body(), &result); err != nil {
		return models.RemoteResult{}, fmt.Errorf("decode %s response: %w", path, err)
	}
	return result, nil
}

func (h *httpServerAdapter) authedRequest(ctx context.Context) *resty.Request {
	req := h.client.R().SetContext(ctx)
	if token := h.Token(); token != "" {
		req.SetHeader("Authorization", "Bearer "+token)
	}
	return req
}
