package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/d-lef/flashcard-webapp/internal/domain"
)

// HTTPGateway talks to the flashcard REST API.
type HTTPGateway struct {
	baseURL string
	client  *http.Client
}

// NewHTTP creates a gateway for the API rooted at baseURL (e.g.
// "https://host/api").
func NewHTTP(baseURL string, timeout time.Duration) *HTTPGateway {
	return &HTTPGateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// FetchDecks implements Gateway.
func (g *HTTPGateway) FetchDecks(ctx context.Context) ([]domain.Deck, error) {
	var bodies []deckBody
	if err := g.do(ctx, http.MethodGet, "/decks", nil, &bodies); err != nil {
		return nil, err
	}
	decks := make([]domain.Deck, 0, len(bodies))
	for _, b := range bodies {
		decks = append(decks, deckFromBody(b))
	}
	return decks, nil
}

// CreateDeck implements Gateway.
func (g *HTTPGateway) CreateDeck(ctx context.Context, deck domain.Deck) error {
	return g.do(ctx, http.MethodPost, "/decks", deckToBody(deck), nil)
}

// UpdateDeck implements Gateway.
func (g *HTTPGateway) UpdateDeck(ctx context.Context, deck domain.Deck) error {
	return g.do(ctx, http.MethodPut, "/decks/"+url.PathEscape(deck.ID), deckToBody(deck), nil)
}

// DeleteDeck implements Gateway.
func (g *HTTPGateway) DeleteDeck(ctx context.Context, deckID string) error {
	return g.do(ctx, http.MethodDelete, "/decks/"+url.PathEscape(deckID), nil, nil)
}

// SaveCard implements Gateway. POST is an upsert on the server side.
func (g *HTTPGateway) SaveCard(ctx context.Context, card domain.Card, deckID string) error {
	return g.do(ctx, http.MethodPost, "/cards", cardToBody(card, deckID), nil)
}

// DeleteCard implements Gateway.
func (g *HTTPGateway) DeleteCard(ctx context.Context, cardID string) error {
	return g.do(ctx, http.MethodDelete, "/cards/"+url.PathEscape(cardID), nil, nil)
}

// PushDayStat implements Gateway.
func (g *HTTPGateway) PushDayStat(ctx context.Context, delta StatDelta) error {
	return g.do(ctx, http.MethodPost, "/review-stats", pushFromDelta(delta), nil)
}

// FetchDayStats implements Gateway.
func (g *HTTPGateway) FetchDayStats(ctx context.Context, start, end string) ([]domain.DayStat, error) {
	q := url.Values{}
	if start != "" {
		q.Set("start", start)
	}
	if end != "" {
		q.Set("end", end)
	}
	path := "/review-stats"
	if enc := q.Encode(); enc != "" {
		path += "?" + enc
	}

	var bodies []statBody
	if err := g.do(ctx, http.MethodGet, path, nil, &bodies); err != nil {
		return nil, err
	}
	stats := make([]domain.DayStat, 0, len(bodies))
	for _, b := range bodies {
		stats = append(stats, domain.DayStat{
			Day:             b.Day,
			Reviews:         b.Reviews,
			Correct:         b.Correct,
			Lapses:          b.Lapses,
			AllDueCompleted: b.AllDueCompleted,
		})
	}
	return stats, nil
}

// Ping implements Gateway with a cheap stats read.
func (g *HTTPGateway) Ping(ctx context.Context) error {
	today := domain.LocalDay(time.Now())
	_, err := g.FetchDayStats(ctx, today, today)
	return err
}

func (g *HTTPGateway) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal %s %s body: %w", method, path, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}
