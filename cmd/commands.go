package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gptbrowse/api"
	"gptbrowse/browse"
	"gptbrowse/chat"
)

// --- repl ---

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Run searches and clicks interactively without a model",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		ctx, _ := browse.NewSessionContext(cmd.Context())
		return browse.NewREPL(a.browser, cmd.InOrStdin(), cmd.OutOrStdout(), a.logger).Run(ctx)
	},
}

// --- chat ---

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Let a chat model browse the web to answer your query",
	Long: `Start a conversation in which the model can issue /search, /click,
/open_link and /search_done commands. Type "exit" to leave.

Requires OPENAI_API_KEY. Set API_BASE to use another OpenAI-compatible endpoint.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.cfg.RequireAPIKey(); err != nil {
			return err
		}

		model, err := chat.NewOpenAIModel(chat.ModelConfig{
			APIKey:  a.cfg.Chat.APIKey,
			BaseURL: a.cfg.Chat.BaseURL,
			Model:   a.cfg.Chat.Model,
		}, a.logger)
		if err != nil {
			return err
		}

		ctx, sessionID := browse.NewSessionContext(cmd.Context())
		a.logger.Info("chat session started",
			zap.String("session_id", sessionID),
			zap.String("model", a.cfg.Chat.Model))

		session := chat.NewSession(model, a.browser, cmd.InOrStdin(), cmd.OutOrStdout(), chat.SessionConfig{
			MaxPayloadChars: a.cfg.Chat.MaxPayloadChars,
			MaxSteps:        a.cfg.Chat.MaxSteps,
		}, a.logger)
		return session.Run(ctx)
	},
}

// --- search ---

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search once and print the results as JSON",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		ctx, _ := browse.NewSessionContext(cmd.Context())
		results := a.browser.Search(ctx, strings.Join(args, " "))
		return printJSON(cmd.OutOrStdout(), results)
	},
}

// --- extract ---

var extractCmd = &cobra.Command{
	Use:   "extract <url>",
	Short: "Extract one page and print its record as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		ctx, _ := browse.NewSessionContext(cmd.Context())
		page, err := a.browser.Open(ctx, args[0])
		if printErr := printJSON(cmd.OutOrStdout(), browse.PageRecord(page, err)); printErr != nil {
			return printErr
		}
		return err
	},
}

// --- read ---

var readCmd = &cobra.Command{
	Use:   "read <url>",
	Short: "Print the main content of a page as Markdown",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		body, err := a.fetcher.Fetch(cmd.Context(), args[0], nil)
		if err != nil {
			return err
		}
		md, err := a.extractor.Markdown(body, args[0])
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), md)
		return err
	},
}

// --- serve ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve search, click and extract over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		return api.NewServer(a.browser, a.cfg.Server.Port, a.logger).Start(cmd.Context())
	},
}
