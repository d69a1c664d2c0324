package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/sheets/v4"

	"medrent/internal/cli"
	mlog "medrent/internal/log"
)

// oauth-init runs the installed-app consent flow once and stores the token
// the agenda client reads from GOOGLE_OAUTH_TOKEN_FILE.
func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(mlog.ComponentSheets, os.Getenv("LOG_LEVEL"))

	clientFile := os.Getenv("GOOGLE_OAUTH_CLIENT_FILE")
	if clientFile == "" {
		logger.Error("GOOGLE_OAUTH_CLIENT_FILE is required")
		os.Exit(1)
	}
	b, err := os.ReadFile(clientFile)
	if err != nil {
		logger.Error("Failed to read OAuth client file", "error", err, "path", clientFile)
		os.Exit(1)
	}

	cfg, err := google.ConfigFromJSON(b, sheets.SpreadsheetsScope)
	if err != nil {
		logger.Error("Invalid OAuth client file", "error", err)
		os.Exit(1)
	}

	// The OAuth client must list http://localhost:<port>/callback as a redirect URI.
	redirectPort := os.Getenv("OAUTH_REDIRECT_PORT")
	if redirectPort == "" {
		redirectPort = "8085"
	}
	cfg.RedirectURL = "http://localhost:" + redirectPort + "/callback"

	codeCh := make(chan string, 1)
	mux := http.NewServeMux()
	srv := &http.Server{Addr: ":" + redirectPort, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		if errStr := r.URL.Query().Get("error"); errStr != "" {
			http.Error(w, "OAuth error: "+errStr, http.StatusBadRequest)
			return
		}
		fmt.Fprintln(w, "You may close this window and return to the terminal.")
		codeCh <- r.URL.Query().Get("code")
		go func() { time.Sleep(500 * time.Millisecond); _ = srv.Close() }()
	})
	go func() { _ = srv.ListenAndServe() }()

	fmt.Printf("Open this URL to authorize:\n%s\n", cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)

	select {
	case code := <-codeCh:
		tok, err := cfg.Exchange(context.Background(), code)
		if err != nil {
			logger.Error("Token exchange failed", "error", err)
			os.Exit(1)
		}
		outFile := os.Getenv("GOOGLE_OAUTH_TOKEN_FILE")
		if outFile == "" {
			outFile = "token.json"
		}
		if err := saveToken(outFile, tok); err != nil {
			logger.Error("Failed to save token", "error", err, "path", outFile)
			os.Exit(1)
		}
		logger.Info("Saved OAuth token", "path", outFile)
	case <-time.After(5 * time.Minute):
		logger.Error("Authorization timed out")
		os.Exit(1)
	case <-sigCh:
		logger.Error("Interrupted")
		os.Exit(1)
	}
}

func saveToken(path string, tok *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(tok)
}
