package cli

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/factsearch/factsearch/internal/server"
	"github.com/factsearch/factsearch/internal/session"
	"github.com/factsearch/factsearch/internal/verifier"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the claim verification websocket server",
	Long: `Starts the HTTP server exposing cookie-session login endpoints and the
/ws/claims/:claim_id websocket. Each websocket connection either submits a
new claim or reattaches to a running/finished verification and replays
events after last_seq.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "listen address (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}

	comps, err := buildComponents(cfg)
	if err != nil {
		return err
	}

	factory := session.WorkflowFactory(func(emit verifier.EmitFunc) *verifier.Workflow {
		return comps.newWorkflow(emit)
	})
	manager := session.NewManager(factory, cfg.Session.DoneTTL)

	checker, err := server.NewUsersFileChecker(cfg.Server.UsersFile)
	if err != nil {
		return fmt.Errorf("load users file %s: %w", cfg.Server.UsersFile, err)
	}
	auth := server.NewTokenAuth(checker, cfg.Session.AuthTTL)

	srv := server.New(manager, auth, cfg.Server, cfg.Session.SubmitTimeout)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("server starting",
		"addr", cfg.Server.Addr,
		"llm", comps.llm.Name(),
		"search", comps.backend.Name(),
		"full_text", cfg.Search.FetchFullText)

	return srv.Run(ctx)
}
