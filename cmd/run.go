/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/lifelink-community/pushtray/internal/config"
	"github.com/lifelink-community/pushtray/internal/logging"
	"github.com/lifelink-community/pushtray/internal/permission"
	"github.com/lifelink-community/pushtray/internal/router"
	"github.com/lifelink-community/pushtray/internal/toast"
	"github.com/lifelink-community/pushtray/internal/worker"
)

var runPollInterval float64

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the notification agent",
	Long: `Run the notification agent in the foreground.

Registers the delivery worker, reconciles permission state, acquires and
registers a device token, and routes incoming messages into the feed and
toasts until interrupted.`,
	RunE: runAgent,
}

func runAgent(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st, err := openStateStore()
	if err != nil {
		return err
	}
	defer st.Close()

	client := newBackendClient()
	prov := newProvider()

	var notifier toast.Notifier = toast.NewConsole()
	if !config.GetBool("toast_enabled", true) {
		notifier = toast.Discard{}
	}

	origin := config.Get("offline_origin", "")
	registry := worker.NewRegistry()
	reg, err := registry.Register(ctx, origin, worker.Options{
		CacheVersion:  config.Get("cache_version", "v1"),
		OfflineAssets: config.GetList("offline_assets"),
		Fetcher:       worker.NewHTTPFetcher(nil),
		Notifier:      notifier,
		Opener:        func(url string) { _ = openURL(url) },
		Missed:        client,
		Origin:        origin,
	})
	if err != nil {
		return err
	}
	defer registry.Unregister(origin)

	// Attach as a client and hand the worker its provider credentials.
	wc := worker.NewClient(uuid.NewString(), origin)
	reg.Attach(wc)
	creds := prov.Credentials()
	reg.HandleMessage(wc.ID(), worker.Message{Type: worker.MsgConfig, Config: &creds})

	machine := permission.NewMachine(permission.NewConsolePlatform(loadNative(st)), st)
	if err := machine.Load(ctx); err != nil {
		return err
	}
	delay := time.Duration(config.GetInt("prompt_delay_seconds", 3)) * time.Second
	before := machine.Native()
	if _, err := machine.PromptAfter(ctx, delay); err != nil && ctx.Err() == nil {
		logging.Warn("permission prompt failed", "error", err)
	}
	saveNative(st, machine.Native())

	hint, err := reconcilePreference(machine, before)
	if err != nil {
		logging.Warn("enabling notifications failed", "error", err)
	}
	if hint {
		cmd.Println("Notifications are allowed but turned off on this device; run 'pushtray enable' to opt back in.")
	}

	active, err := machine.Active()
	if err != nil {
		return err
	}
	if !active {
		logging.Info("notifications inactive", "native", machine.Native().String())
		cmd.Println("Notifications are not active on this device; watching the feed only.")
	}

	mgr := newTokenManager(st, prov, client, reg.Ready())

	var tok string
	if active {
		tok, err = mgr.Acquire(ctx, currentUserID())
		if err != nil && tok == "" {
			notifier.NotifyError("could not obtain a push token: " + err.Error())
		}
	}

	// Reconcile notifications missed while the agent was not running.
	go reg.HandleSync(ctx)

	interval := time.Duration(runPollInterval * float64(time.Second))
	if tok != "" {
		go prov.Poll(ctx, tok, interval)
	}

	rt := router.New(prov, newFeedStore(client), notifier, mgr, currentUserID())
	if err := rt.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// reconcilePreference applies the outcome of the startup prompt. A grant given
// through this session's dialog is the user's opt-in and turns the preference
// on. A preexisting grant with the preference off is left untouched; the
// returned hint asks the caller to surface the re-opt-in path instead.
func reconcilePreference(machine *permission.Machine, before permission.Native) (bool, error) {
	if before == permission.NativeDefault && machine.Native() == permission.NativeGranted {
		return false, machine.Enable()
	}
	return machine.NeedsReprompt()
}

func init() {
	runCmd.Flags().Float64Var(&runPollInterval, "poll-interval", 5, "Provider poll interval in seconds")
	rootCmd.AddCommand(runCmd)
}
