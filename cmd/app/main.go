package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"CryptoRNN/internal/di"
	"CryptoRNN/pkg/config"
	"CryptoRNN/pkg/server"

	"github.com/spf13/cobra"
)

var (
	configPath  string
	epochs      int
	previewRows int
)

var rootCmd = &cobra.Command{
	Use:   "cryptornn",
	Short: "Train an LSTM classifier on crypto price and volume history",
	Long: `cryptornn joins per-ratio candle files on time, labels whether the predicted
ratio closes higher a few minutes ahead, and trains a recurrent classifier
on balanced windows of percent-change features.`,
	SilenceUsage: true,
}

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Print the first labelled rows of the predicted ratio",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, app *server.App) error {
			return app.Preview(ctx, previewRows)
		})
	},
}

var prepareCmd = &cobra.Command{
	Use:   "prepare",
	Short: "Build the training and validation sequences and report class balance",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, app *server.App) error {
			return app.Prepare(ctx)
		})
	},
}

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Prepare data, train the model and checkpoint the best epoch",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, app *server.App) error {
			return app.Train(ctx)
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config/config.yaml", "config file path")
	previewCmd.Flags().IntVarP(&previewRows, "rows", "n", 5, "number of rows to print")
	trainCmd.Flags().IntVar(&epochs, "epochs", 0, "override training.epochs")

	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(prepareCmd)
	rootCmd.AddCommand(trainCmd)
}

// withApp loads config, wires the app and runs fn until it returns or the
// process is interrupted.
func withApp(parent context.Context, fn func(context.Context, *server.App) error) error {
	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}
	if epochs > 0 {
		cfg.Training.Epochs = epochs
	}

	app, err := di.InitializeApp(cfg)
	if err != nil {
		return fmt.Errorf("app initialization failed: %w", err)
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return fn(ctx, app)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
