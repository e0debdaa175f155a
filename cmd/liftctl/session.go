package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/2beens/liftlog/internal/auth"

	"github.com/fatih/color"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const userAgent = "liftctl/1.0"

var (
	serverURL  string
	tokenFlag  string
	logoutFlag bool
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Issue a session token for a user",
	Long: `Creates a session in Redis and prints its token. Use it as the
X-Session-Token header against the API, or as LIFTLOG_SESSION_TOKEN for the
gymstats MCP server.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		user := userID()
		if user == "" {
			return errNoUser
		}

		rdb := newRedisClient()
		defer func() {
			if err := rdb.Close(); err != nil {
				log.Debugf("close redis: %s", err)
			}
		}()

		token, err := auth.NewService(auth.DefaultTTL, rdb).Login(cmd.Context(), user, time.Now())
		if err != nil {
			return err
		}
		color.Green("✓ session for %s, valid %s", user, auth.DefaultTTL)
		fmt.Println(token)
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Ask the API which user a session token belongs to",
	RunE: func(cmd *cobra.Command, _ []string) error {
		token := tokenFlag
		if token == "" {
			token = secrets.SessionToken
		}
		if token == "" {
			return fmt.Errorf("no token: pass --token or set LIFTLOG_SESSION_TOKEN")
		}

		client := &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
		base := strings.TrimRight(serverURL, "/")

		if logoutFlag {
			var resp auth.LogoutResponse
			if err := callAPI(cmd, client, http.MethodPost, base+"/auth/logout", token, &resp); err != nil {
				return err
			}
			color.Green("✓ logged out (session existed: %t)", resp.LoggedOut)
			return nil
		}

		var resp auth.WhoAmIResponse
		if err := callAPI(cmd, client, http.MethodGet, base+"/auth/whoami", token, &resp); err != nil {
			return err
		}
		fmt.Println(resp.UserID)
		return nil
	},
}

func callAPI(cmd *cobra.Command, client *http.Client, method, url, token string, out any) error {
	req, err := http.NewRequestWithContext(cmd.Context(), method, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set(auth.SessionTokenHeader, token)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Debugf("close response body: %s", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%s %s: %s: %s", method, url, resp.Status, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func init() {
	whoamiCmd.Flags().StringVar(&serverURL, "server", "http://localhost:9000", "liftlog API base URL")
	whoamiCmd.Flags().StringVar(&tokenFlag, "token", "", "session token (default LIFTLOG_SESSION_TOKEN)")
	whoamiCmd.Flags().BoolVar(&logoutFlag, "logout", false, "end the session instead")

	rootCmd.AddCommand(loginCmd, whoamiCmd)
}
