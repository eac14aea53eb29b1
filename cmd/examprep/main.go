package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pavelanni/examprep/internal/app"
	"github.com/pavelanni/examprep/internal/bank"
	"github.com/pavelanni/examprep/internal/exam"
	"github.com/pavelanni/examprep/internal/handler"
	appI18n "github.com/pavelanni/examprep/internal/i18n"
	"github.com/pavelanni/examprep/internal/model"
	"github.com/pavelanni/examprep/internal/report"
	"github.com/pavelanni/examprep/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "examprep",
		Short: "Timed multiple-choice practice exams",
	}

	serve := serveCmd()
	root.AddCommand(serve, sourcesCmd(), planCmd(), exportCmd(), userCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `examprep --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func addLogFlags(f *pflag.FlagSet) {
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP exam server",
		RunE:  runServe,
	}
	defaults := model.DefaultExamConfig()
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "examprep.db", "SQLite database path")
	f.StringP("questions", "q", "questions.json", "Question feed: file path or http(s) URL")
	f.String("topics", "", "YAML topic weight table (default: built-in table)")
	f.StringP("lang", "l", "en", "Fallback language for API messages (en, ru)")
	f.IntP("num-questions", "n", defaults.NumQuestions, "Number of questions in a Random exam")
	f.Int("drill-limit", defaults.DrillLimit, "Nominal size passed for single-source drills")
	f.Duration("time-limit", defaults.TimeLimit, "Countdown per exam")
	f.Int("pass-threshold", defaults.PassThreshold, "Score percent needed to pass")
	f.Bool("secure-cookies", defaults.SecureCookies, "Set Secure flag on session cookies")
	addLogFlags(f)
	return cmd
}

func sourcesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "List the question sources of a feed",
		RunE:  runSources,
	}
	f := cmd.Flags()
	f.StringP("questions", "q", "questions.json", "Question feed: file path or http(s) URL")
	addLogFlags(f)
	return cmd
}

func planCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show per-topic question quotas for a Random exam",
		RunE:  runPlan,
	}
	f := cmd.Flags()
	f.String("topics", "", "YAML topic weight table (default: built-in table)")
	f.IntP("num-questions", "n", model.DefaultExamConfig().NumQuestions, "Number of questions in a Random exam")
	addLogFlags(f)
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a user's exam history as JSON or XLSX",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "examprep.db", "SQLite database path")
	f.String("email", "", "Email of the user to export (required)")
	f.String("format", string(report.FormatJSON), "Output format (json, xlsx)")
	f.String("topics", "", "YAML topic weight table (default: built-in table)")
	f.Int("pass-threshold", model.DefaultExamConfig().PassThreshold, "Score percent needed to pass")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	addLogFlags(f)

	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}
	for _, active := range []bool{true, false} {
		use, short := "enable", "Allow a user to sign in"
		if !active {
			use, short = "disable", "Block a user from signing in and end their sessions"
		}
		sub := &cobra.Command{
			Use:   use,
			Short: short,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runSetActive(cmd, active)
			},
		}
		f := sub.Flags()
		f.String("db", "examprep.db", "SQLite database path")
		f.String("email", "", "Email of the user (required)")
		addLogFlags(f)
		_ = sub.MarkFlagRequired("email")
		cmd.AddCommand(sub)
	}
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("EXAMPREP")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("examprep")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/examprep")
	v.AddConfigPath("/etc/examprep")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func loadTopics(v *viper.Viper) (model.TopicTable, error) {
	table, err := model.LoadTopicTable(v.GetString("topics"))
	if err != nil {
		return nil, fmt.Errorf("load topic table: %w", err)
	}
	return table, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	table, err := loadTopics(v)
	if err != nil {
		return err
	}

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.CleanupExpiredSessions(); err != nil {
		slog.Warn("failed to remove expired auth sessions", "error", err)
	}
	if users, err := db.UserCount(); err == nil {
		slog.Debug("database opened", "path", v.GetString("db"), "users", users)
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	questions := bank.New()
	src := bank.SourceFor(v.GetString("questions"))
	var fingerprint sync.Once
	load := func(ctx context.Context) error {
		if err := questions.Load(ctx, src); err != nil {
			return err
		}
		fingerprint.Do(func() { recordFingerprint(db, questions) })
		return nil
	}
	// A failed first load is not fatal; the bank is retried on the next
	// exam start.
	if err := load(cmd.Context()); err != nil {
		slog.Warn("question bank not loaded, will retry on demand", "error", err)
	}

	examCfg := model.ExamConfig{
		NumQuestions:  v.GetInt("num-questions"),
		DrillLimit:    v.GetInt("drill-limit"),
		TimeLimit:     v.GetDuration("time-limit"),
		TickInterval:  time.Second,
		PassThreshold: v.GetInt("pass-threshold"),
		SecureCookies: v.GetBool("secure-cookies"),
	}

	registry := app.NewRegistry(app.Options{
		Bank:  questions,
		Load:  load,
		Table: table,
		Store: db,
		Exam:  examCfg,
	})
	defer registry.Close()

	h := handler.New(handler.Deps{
		Store:    db,
		Bank:     questions,
		Load:     load,
		Registry: registry,
		Table:    table,
		Config:   examCfg,
	})

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	h.Routes(r)

	addr := v.GetString("addr")
	srv := &http.Server{Addr: addr, Handler: r}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown", "error", err)
		}
	}()

	slog.Info("starting server",
		"addr", addr,
		"questions", src.String(),
		"lang", lang,
		"num_questions", examCfg.NumQuestions,
		"time_limit", examCfg.TimeLimit,
		"pass_threshold", examCfg.PassThreshold,
		"topics", len(table),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func recordFingerprint(db *store.Store, b *bank.Bank) {
	changed, err := db.RecordBankFingerprint(b.Checksum(), b.Len())
	if err != nil {
		slog.Warn("failed to record question bank fingerprint", "error", err)
		return
	}
	if changed {
		slog.Warn("question bank changed since last run; stored results refer to the previous questions",
			"count", b.Len())
	}
}

func runSources(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	b := bank.New()
	if err := b.Load(cmd.Context(), bank.SourceFor(v.GetString("questions"))); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "SOURCE\tQUESTIONS\n")
	fmt.Fprintf(tw, "%s\t%d\n", model.RandomSource, b.Len())
	for _, s := range b.DistinctSources() {
		fmt.Fprintf(tw, "%s\t%d\n", s, len(b.QuestionsBySource(s)))
	}
	return tw.Flush()
}

func runPlan(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	table, err := loadTopics(v)
	if err != nil {
		return err
	}
	quotas := exam.Plan(v.GetInt("num-questions"), table)
	return writePlan(cmd.OutOrStdout(), table, quotas)
}

func writePlan(w io.Writer, table model.TopicTable, quotas exam.Quotas) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "TOPIC\tNAME\tWEIGHT\tQUESTIONS\n")
	for i, q := range quotas {
		fmt.Fprintf(tw, "%s\t%s\t%g\t%d\n", q.Topic, table[i].Name, table[i].Weight, q.Count)
	}
	fmt.Fprintf(tw, "\t\t\t%d\n", quotas.Sum())
	return tw.Flush()
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	format, err := report.ParseFormat(v.GetString("format"))
	if err != nil {
		return err
	}
	table, err := loadTopics(v)
	if err != nil {
		return err
	}

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	user, err := lookupUser(db, v.GetString("email"))
	if err != nil {
		return err
	}

	export, err := db.ExportHistory(cmd.Context(), user.ID, table, v.GetInt("pass-threshold"))
	if err != nil {
		return fmt.Errorf("export history: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = cmd.OutOrStdout()
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if err := report.Write(w, export, format); err != nil {
		return err
	}
	slog.Info("exported history", "email", user.Email, "results", len(export.Results), "format", format)
	return nil
}

func lookupUser(db *store.Store, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := db.GetUserByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("look up user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("no user with email %q", email)
	}
	return user, nil
}

func runSetActive(cmd *cobra.Command, active bool) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	user, err := lookupUser(db, v.GetString("email"))
	if err != nil {
		return err
	}
	if err := db.SetUserActive(user.ID, active); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	state := "enabled"
	if !active {
		state = "disabled"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", user.Email, state)
	return nil
}
