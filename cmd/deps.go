/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/lifelink-community/pushtray/internal/backend"
	"github.com/lifelink-community/pushtray/internal/config"
	"github.com/lifelink-community/pushtray/internal/feed"
	"github.com/lifelink-community/pushtray/internal/logging"
	"github.com/lifelink-community/pushtray/internal/permission"
	"github.com/lifelink-community/pushtray/internal/provider"
	"github.com/lifelink-community/pushtray/internal/state"
	"github.com/lifelink-community/pushtray/internal/token"
)

// openStateStore opens the durable key-value store under the configured
// state directory.
func openStateStore() (*state.Store, error) {
	dir := config.Get("state_dir", "")
	if dir == "" {
		return nil, fmt.Errorf("cmd: state_dir is not configured")
	}
	return state.Open(filepath.Join(dir, "pushtray.db"))
}

func newBackendClient() backend.Client {
	return backend.NewHTTPClient(
		config.Get("backend_url", ""),
		config.Get("backend_auth_token", ""),
	)
}

func newProvider() *provider.HTTPProvider {
	return provider.NewHTTPProvider(config.Get("provider_url", ""), provider.Credentials{
		APIKey:   config.Get("provider_api_key", ""),
		SenderID: config.Get("provider_sender_id", ""),
	})
}

func newFeedStore(client backend.Client) *feed.Store {
	return feed.NewStore(client, config.GetInt("feed_page_limit", 10))
}

func currentUserID() string {
	return config.Get("user_id", "")
}

// nativeKey persists the console platform's permission decision across runs.
// Desktop platforms with a real permission store would not need this.
const nativeKey = "native_permission"

func loadNative(st *state.Store) permission.Native {
	v, ok, err := st.Get(nativeKey)
	if err != nil || !ok {
		return permission.NativeDefault
	}
	n := permission.Native(v)
	if !n.IsValid() {
		return permission.NativeDefault
	}
	return n
}

func saveNative(st *state.Store, n permission.Native) {
	if n == permission.NativeUnknown || n == permission.NativeUnsupported {
		return
	}
	if err := st.Set(nativeKey, n.String()); err != nil {
		logging.Warn("persisting native permission failed", "error", err)
	}
}

func newTokenManager(st *state.Store, prov provider.Provider, client backend.Client, ready <-chan struct{}) *token.Manager {
	return token.NewManager(prov, client, st, token.Options{
		Attempts:   config.GetInt("token_retry_attempts", 3),
		RetryDelay: time.Duration(config.GetInt("token_retry_delay_ms", 1000)) * time.Millisecond,
		Ready:      ready,
	})
}

// openURL opens a notification target in the default browser.
// Can be changed for testing.
var openURL = func(url string) error {
	return exec.Command("xdg-open", url).Start()
}
