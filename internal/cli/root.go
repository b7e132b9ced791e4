package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

const (
	defaultAPIURL = "http://localhost:8000"
	tokenFileName = ".anime_token"
)

type options struct {
	apiURL    string
	tokenFile string
}

// NewRootCmd builds the animectl command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "animectl",
		Short:         "Anime API client",
		Long:          "Command line client for registering, logging in and managing anime posts.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.apiURL, "api-url", envOr("ANIME_API_URL", defaultAPIURL), "base URL of the API (env ANIME_API_URL)")
	root.PersistentFlags().StringVar(&opts.tokenFile, "token-file", defaultTokenFile(), "where the access token is stored")

	root.AddCommand(registerCmd(opts), loginCmd(opts), logoutCmd(opts), postsCmd(opts))
	return root
}

func (o *options) client() *Client {
	return NewClient(o.apiURL)
}

func (o *options) saveToken(token string) error {
	if dir := filepath.Dir(o.tokenFile); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	return os.WriteFile(o.tokenFile, []byte(token), 0o600)
}

func (o *options) loadToken() (string, error) {
	raw, err := os.ReadFile(o.tokenFile)
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("not logged in: run animectl login first")
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}

func defaultTokenFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return tokenFileName
	}
	return filepath.Join(home, tokenFileName)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
