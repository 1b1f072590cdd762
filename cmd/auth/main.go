// Package main provides the Spotify authentication tool.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"

	"github.com/osa030/guessbox/internal/infra/config"
	"github.com/osa030/guessbox/internal/infra/logger"
	"github.com/osa030/guessbox/internal/infra/spotify"
)

const state = "guessbox-auth-state"

var (
	app          = kingpin.New("guessbox-auth", "Obtain a Spotify refresh token for guessbox")
	clientID     = app.Flag("client-id", "Spotify Client ID").Envar("SPOTIFY_CLIENT_ID").Required().String()
	clientSecret = app.Flag("client-secret", "Spotify Client Secret").Envar("SPOTIFY_CLIENT_SECRET").Required().String()
	port         = app.Flag("port", "Callback server port").Default("8888").Int()
	timeout      = app.Flag("timeout", "How long to wait for the browser").Default("5m").Duration()
	envFile      = app.Flag("write-env", "Store the refresh token in this .env file").String()
)

func main() {
	_ = godotenv.Load()
	kingpin.MustParse(app.Parse(os.Args[1:]))

	if _, err := logger.Init(logger.Config{Output: "stderr", Level: "info"}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	token, err := authorize(context.Background())
	if err != nil {
		zlog.Fatal().Msgf("auth: %v", err)
	}

	if *envFile != "" {
		if err := writeEnv(*envFile, token.RefreshToken); err != nil {
			zlog.Fatal().Msgf("auth: %v", err)
		}
		fmt.Printf("Refresh token written to %s\n", *envFile)
		return
	}

	fmt.Println("")
	fmt.Println("=== Authorization Successful ===")
	fmt.Println("")
	fmt.Printf("Add this to %s:\n", config.DefaultPath())
	fmt.Println("")
	fmt.Println("spotify:")
	fmt.Printf("  refresh_token: \"%s\"\n", token.RefreshToken)
	fmt.Println("")
	fmt.Println("Or set as environment variable:")
	fmt.Printf("export SPOTIFY_REFRESH_TOKEN=\"%s\"\n", token.RefreshToken)
}

// authorize runs the authorization code flow with a local callback server.
func authorize(ctx context.Context) (*oauth2.Token, error) {
	auth := spotifyauth.New(
		spotifyauth.WithRedirectURL(fmt.Sprintf("http://127.0.0.1:%d/callback", *port)),
		spotifyauth.WithClientID(*clientID),
		spotifyauth.WithClientSecret(*clientSecret),
		spotifyauth.WithScopes(spotify.Scopes...),
	)

	tokenCh := make(chan *oauth2.Token, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("/callback", callbackHandler(auth, tokenCh))
	server := &http.Server{Addr: fmt.Sprintf(":%d", *port), Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zlog.Warn().Msgf("auth: failed to shutdown callback server: %v", err)
		}
	}()

	fmt.Println("Please visit the following URL to authorize guessbox:")
	fmt.Println("")
	fmt.Println(auth.AuthURL(state))
	fmt.Println("")
	fmt.Println("Waiting for authorization...")

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	select {
	case token := <-tokenCh:
		return token, nil
	case err := <-errCh:
		return nil, errors.Wrap(err, "callback server failed")
	case <-ctx.Done():
		return nil, errors.New("timed out waiting for authorization")
	}
}

func callbackHandler(auth *spotifyauth.Authenticator, tokenCh chan<- *oauth2.Token) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if st := r.FormValue("state"); st != state {
			http.Error(w, "State mismatch", http.StatusForbidden)
			zlog.Warn().Msgf("auth: state mismatch: %s != %s", st, state)
			return
		}

		token, err := auth.Token(r.Context(), state, r)
		if err != nil {
			http.Error(w, "Failed to get token", http.StatusForbidden)
			zlog.Warn().Msgf("auth: failed to get token: %v", err)
			return
		}

		fmt.Fprint(w, completePage)

		select {
		case tokenCh <- token:
		default:
		}
	}
}

// writeEnv sets SPOTIFY_REFRESH_TOKEN in the .env file, keeping other keys.
func writeEnv(path, refreshToken string) error {
	env := map[string]string{}
	if _, err := os.Stat(path); err == nil {
		existing, err := godotenv.Read(path)
		if err != nil {
			return errors.Wrapf(err, "failed to read %s", path)
		}
		env = existing
	}

	env["SPOTIFY_REFRESH_TOKEN"] = refreshToken
	if err := godotenv.Write(env, path); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return nil
}

const completePage = `<!DOCTYPE html>
<html>
<head>
    <title>guessbox - Authorization Complete</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            display: flex;
            justify-content: center;
            align-items: center;
            height: 100vh;
            margin: 0;
            background: #191414;
            color: white;
        }
    </style>
</head>
<body>
    <div>
        <h1>Authorization Complete</h1>
        <p>You can close this window and return to the terminal.</p>
    </div>
</body>
</html>
`
