// Package google writes the notification agenda to a Google Sheet.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	goauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	mlog "medrent/internal/log"
	ports "medrent/internal/sheets"
)

// Options selects the sheet and the credentials used to reach it.
// A service account file wins over an OAuth client/token pair.
type Options struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountFile string
	OAuthClientFile    string
	OAuthTokenFile     string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string

	mu    sync.Mutex
	known map[string]bool // nil until the id column has been read
}

var _ ports.Agenda = (*Client)(nil)

// jsonUnmarshal is indirected for tests.
var jsonUnmarshal = json.Unmarshal

// New creates an agenda client from file credentials.
func New(ctx context.Context, o Options) (*Client, error) {
	opts, err := credentialOptions(ctx, o)
	if err != nil {
		return nil, err
	}
	return NewWithOptions(ctx, o.SpreadsheetID, o.SheetName, opts...)
}

// NewWithOptions creates an agenda client with explicit API client options.
func NewWithOptions(ctx context.Context, spreadsheetID, sheet string, opts ...goption.ClientOption) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	sheet = strings.TrimSpace(sheet)
	if sheet == "" {
		sheet = "Agenda"
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheet: sheet}, nil
}

func credentialOptions(ctx context.Context, o Options) ([]goption.ClientOption, error) {
	switch {
	case o.ServiceAccountFile != "":
		b, err := os.ReadFile(o.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		slog.InfoContext(ctx, "Using service account credentials", mlog.FieldComponent, mlog.ComponentSheets, "path", o.ServiceAccountFile)
		return []goption.ClientOption{
			goption.WithCredentialsJSON(b),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}, nil
	case o.OAuthClientFile != "":
		httpClient, err := oauthClient(ctx, o.OAuthClientFile, o.OAuthTokenFile)
		if err != nil {
			return nil, err
		}
		slog.InfoContext(ctx, "Using OAuth token credentials", mlog.FieldComponent, mlog.ComponentSheets, "token", o.OAuthTokenFile)
		return []goption.ClientOption{goption.WithHTTPClient(httpClient)}, nil
	default:
		return nil, errors.New("missing credentials (set GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_OAUTH_CLIENT_FILE)")
	}
}

func oauthClient(ctx context.Context, clientFile, tokenFile string) (*http.Client, error) {
	if tokenFile == "" {
		return nil, errors.New("missing oauth token (set GOOGLE_OAUTH_TOKEN_FILE, see cmd/oauth-init)")
	}
	b, err := os.ReadFile(clientFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth client file: %w", err)
	}
	cfg, err := goauth.ConfigFromJSON(b, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	tb, err := os.ReadFile(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth token file: %w", err)
	}
	var tok oauth2.Token
	if err := jsonUnmarshal(tb, &tok); err != nil {
		return nil, fmt.Errorf("parse oauth token: %w", err)
	}
	// the oauth2 transport wraps the pooled client
	ctx = context.WithValue(ctx, oauth2.HTTPClient, newHTTPClientWithPooling())
	return cfg.Client(ctx, &tok), nil
}

// newHTTPClientWithPooling creates an HTTP client tuned for the Sheets API
// with connection pooling and explicit timeouts.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}

// AppendEntry adds one row at the bottom of the agenda sheet and returns the
// updated range.
func (c *Client) AppendEntry(ctx context.Context, e ports.AgendaEntry) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if e.NotificationID == "" {
		return "", errors.New("agenda entry without notification id")
	}

	rng := fmt.Sprintf("%s!A:I", c.sheet)
	vr := &gsheet.ValueRange{Values: [][]any{entryRow(e)}}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to %s: %w", c.sheet, err)
	}

	c.mu.Lock()
	if c.known != nil {
		c.known[e.NotificationID] = true
	}
	c.mu.Unlock()

	ref := rng
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	return ref, nil
}

// EntryIDs reads the id column once and serves later calls from memory.
func (c *Client) EntryIDs(ctx context.Context) (map[string]bool, error) {
	c.mu.Lock()
	if c.known != nil {
		out := copyIDs(c.known)
		c.mu.Unlock()
		return out, nil
	}
	c.mu.Unlock()

	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:A", c.sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	ids := parseIDColumn(resp.Values)

	c.mu.Lock()
	c.known = ids
	c.mu.Unlock()
	return copyIDs(ids), nil
}

// InvalidateIDs forces the next EntryIDs call to re-read the sheet.
func (c *Client) InvalidateIDs() {
	c.mu.Lock()
	c.known = nil
	c.mu.Unlock()
}

func copyIDs(in map[string]bool) map[string]bool {
	out := make(map[string]bool, len(in))
	for k := range in {
		out[k] = true
	}
	return out
}
