package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"drawclass/internal/bootstrap"
	classifierdomain "drawclass/internal/modules/classifier/domain"
	classifierdto "drawclass/internal/modules/classifier/dto"
	datasetinadapter "drawclass/internal/modules/dataset/adapter/in"
	"drawclass/internal/platform/config"
	"drawclass/internal/platform/logging"
	"drawclass/internal/platform/payload"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type globalFlags struct {
	dataDir  string
	logLevel string
	logJSON  bool
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "drawclass",
		Short:         "Capture drawings, train a small CNN on them and classify new ones",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.dataDir, "data", ".", "data directory holding the dataset and drawclass.yaml")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level: trace|debug|info|warn|error (overrides config)")
	root.PersistentFlags().BoolVar(&flags.logJSON, "log-json", false, "emit logs as JSON")

	root.AddCommand(newTUICmd(flags))
	root.AddCommand(newDatasetCmd(flags))
	root.AddCommand(newTrainCmd(flags))
	root.AddCommand(newCaptureCmd(flags))
	root.AddCommand(newPluginsCmd(flags))
	return root
}

func loadApp(flags *globalFlags, logOutput io.Writer) (*bootstrap.App, error) {
	cfg, err := config.Load(flags.dataDir)
	if err != nil {
		return nil, err
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}
	logger := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		JSON:   cfg.Log.JSON || flags.logJSON,
		Output: logOutput,
	})
	return bootstrap.New(cfg, logger)
}

func newTUICmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Run the drawclass terminal UI",
		RunE: func(_ *cobra.Command, _ []string) error {
			// The alt screen owns stderr, so logs go to a file next to the dataset.
			logPath := filepath.Join(flags.dataDir, ".drawclass", "drawclass.log")
			if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
				return fmt.Errorf("create log dir: %w", err)
			}
			logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
			if err != nil {
				return fmt.Errorf("open log file: %w", err)
			}
			defer logFile.Close()

			app, err := loadApp(flags, logFile)
			if err != nil {
				return err
			}
			defer app.Close()
			return bootstrap.RunTUI(app)
		},
	}
}

func newDatasetCmd(flags *globalFlags) *cobra.Command {
	dataset := &cobra.Command{Use: "dataset", Short: "Manage the labeled image dataset"}

	dataset.AddCommand(&cobra.Command{
		Use:   "add <label> <image>",
		Short: "Add an image file as a sample of label",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(flags, nil)
			if err != nil {
				return err
			}
			defer app.Close()
			out, err := app.DatasetCLI.AddFile(context.Background(), args[0], args[1])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "added sample to %s (%d total)\n", out.Label, out.Count)
			return nil
		},
	})

	var source, device string
	captureCmd := &cobra.Command{
		Use:   "capture <label>",
		Short: "Capture a frame and add it as a sample of label",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(flags, nil)
			if err != nil {
				return err
			}
			defer app.Close()
			ctx := context.Background()
			frame, err := app.CaptureCLI.Capture(ctx, source, device)
			if err != nil {
				return err
			}
			out, err := app.DatasetCLI.AddSample(ctx, args[0], frame.Payload)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "captured %dx%d %s from %s into %s (%d total)\n",
				frame.Width, frame.Height, frame.MediaType, frame.Source, out.Label, out.Count)
			return nil
		},
	}
	captureCmd.Flags().StringVar(&source, "source", "", "capture source: file|webcam|plugin:<name> (default from config)")
	captureCmd.Flags().StringVar(&device, "device", "", "file, directory or camera index (default from config)")

	dataset.AddCommand(captureCmd)

	dataset.AddCommand(&cobra.Command{
		Use:   "declare <label>",
		Short: "Declare a category without samples",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(flags, nil)
			if err != nil {
				return err
			}
			defer app.Close()
			if err := app.DatasetCLI.DeclareCategory(context.Background(), args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "declared %s\n", args[0])
			return nil
		},
	})

	var all bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List categories and sample counts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(flags, nil)
			if err != nil {
				return err
			}
			defer app.Close()
			ctx := context.Background()
			list := app.DatasetCLI.ListCategories
			if all {
				list = app.DatasetCLI.AllCategories
			}
			categories, err := list(ctx)
			if err != nil {
				return err
			}
			if len(categories) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no categories")
				return nil
			}
			for _, c := range categories {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", c.Label, c.Count)
			}
			return nil
		},
	}
	listCmd.Flags().BoolVar(&all, "all", false, "include declared categories without samples")
	dataset.AddCommand(listCmd)

	var limit int
	previewCmd := &cobra.Command{
		Use:   "preview <label>",
		Short: "Show the most recent samples of a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(flags, nil)
			if err != nil {
				return err
			}
			defer app.Close()
			if limit <= 0 {
				limit = app.Config.Capture.PreviewSize
			}
			out, err := app.DatasetCLI.Preview(context.Background(), args[0], limit)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %d samples, showing %d\n", out.Label, out.Total, len(out.Payloads))
			for i, raw := range out.Payloads {
				info, err := payload.Inspect(raw)
				if err != nil {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  %d\tunreadable: %v\n", i+1, err)
					continue
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  %d\t%s\t%d bytes\n", i+1, info.MediaType, info.Bytes)
			}
			return nil
		},
	}
	previewCmd.Flags().IntVar(&limit, "limit", 0, "number of samples to show (default from config)")
	dataset.AddCommand(previewCmd)

	var yes bool
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every category and sample",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return fmt.Errorf("refusing to clear the dataset without --yes")
			}
			app, err := loadApp(flags, nil)
			if err != nil {
				return err
			}
			defer app.Close()
			if err := app.DatasetCLI.Clear(context.Background()); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "dataset cleared")
			return nil
		},
	}
	clearCmd.Flags().BoolVar(&yes, "yes", false, "confirm clearing the dataset")
	dataset.AddCommand(clearCmd)

	dataset.AddCommand(&cobra.Command{
		Use:   "import <file>",
		Short: "Replace the dataset with a JSON export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(flags, nil)
			if err != nil {
				return err
			}
			defer app.Close()
			out, err := app.DatasetCLI.ImportFile(context.Background(), args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "imported %d categories, %d samples\n", out.Categories, out.Samples)
			return nil
		},
	})

	dataset.AddCommand(&cobra.Command{
		Use:   "export [file]",
		Short: "Write the dataset as JSON (default " + datasetinadapter.DefaultExportName + ")",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(flags, nil)
			if err != nil {
				return err
			}
			defer app.Close()
			path := datasetinadapter.DefaultExportName
			if len(args) == 1 {
				path = args[0]
			}
			n, err := app.DatasetCLI.ExportFile(context.Background(), path)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "exported %d bytes to %s\n", n, path)
			return nil
		},
	})

	return dataset
}

func newTrainCmd(flags *globalFlags) *cobra.Command {
	var classify []string
	var capture bool

	train := &cobra.Command{
		Use:   "train",
		Short: "Train a model on the dataset, then optionally classify images with it",
		Long: "Train a model on the current dataset. The model lives only for this process, " +
			"so images to classify are passed with --classify or --capture.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(flags, nil)
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			out := cmd.OutOrStdout()
			done := make(chan struct{})
			drained := make(chan struct{})
			go func() {
				defer close(drained)
				drainEvents(out, app.Events.Events(), done)
			}()

			summary, err := app.ClassifierCLI.Train(ctx)
			close(done)
			<-drained
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(out, "trained run %s on %d samples: %s\n",
				summary.RunID, summary.Samples, strings.Join(summary.Categories, ", "))
			if n := len(summary.Progress); n > 0 {
				final := summary.Progress[n-1]
				_, _ = fmt.Fprintf(out, "final loss %.4f accuracy %.2f%%\n", final.Loss, final.Accuracy*100)
			}

			for _, path := range classify {
				result, err := app.ClassifierCLI.ClassifyFile(ctx, path)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				printPrediction(out, path, result)
			}
			if capture {
				result, err := app.ClassifierCLI.ClassifyCapture(ctx)
				if err != nil {
					return err
				}
				printPrediction(out, "capture", result)
			}
			return nil
		},
	}
	train.Flags().StringSliceVar(&classify, "classify", nil, "image files to classify after training")
	train.Flags().BoolVar(&capture, "capture", false, "capture one frame from the configured source and classify it")
	return train
}

// drainEvents prints events until done is closed, then flushes what is
// already buffered.
func drainEvents(w io.Writer, events <-chan classifierdomain.Event, done <-chan struct{}) {
	for {
		select {
		case event := <-events:
			printEvent(w, event)
		case <-done:
			for {
				select {
				case event := <-events:
					printEvent(w, event)
				default:
					return
				}
			}
		}
	}
}

func printEvent(w io.Writer, event classifierdomain.Event) {
	switch event.Kind {
	case classifierdomain.EventPhase:
		if event.Err != nil {
			_, _ = fmt.Fprintf(w, "[%s] %v\n", event.Phase, event.Err)
			return
		}
		_, _ = fmt.Fprintf(w, "[%s]\n", event.Phase)
	case classifierdomain.EventEpoch:
		_, _ = fmt.Fprintf(w, "epoch %d/%d  loss %.4f  accuracy %.2f%%\n",
			event.Progress.Epoch, event.Epochs, event.Progress.Loss, event.Progress.Accuracy*100)
	}
}

func printPrediction(w io.Writer, name string, result classifierdto.PredictOutput) {
	_, _ = fmt.Fprintf(w, "%s:\n", name)
	for _, score := range result.Scores {
		_, _ = fmt.Fprintf(w, "  %-16s %6.2f%%\n", score.Label, score.Probability*100)
	}
}

func newCaptureCmd(flags *globalFlags) *cobra.Command {
	var source, device, outPath string
	capture := &cobra.Command{
		Use:   "capture",
		Short: "Grab one frame from a capture source",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(flags, nil)
			if err != nil {
				return err
			}
			defer app.Close()
			frame, err := app.CaptureCLI.Capture(context.Background(), source, device)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%dx%d\t%s\n",
				frame.Source, frame.MediaType, frame.Width, frame.Height, frame.CapturedAt.Format("2006-01-02T15:04:05Z07:00"))
			if outPath == "" {
				return nil
			}
			data, err := payload.Decode(frame.Payload)
			if err != nil {
				return err
			}
			if err := os.WriteFile(outPath, data, 0o644); err != nil {
				return fmt.Errorf("write frame: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", outPath)
			return nil
		},
	}
	capture.Flags().StringVar(&source, "source", "", "capture source: file|webcam|plugin:<name> (default from config)")
	capture.Flags().StringVar(&device, "device", "", "file, directory or camera index (default from config)")
	capture.Flags().StringVar(&outPath, "out", "", "write the captured image to this file")
	return capture
}

func newPluginsCmd(flags *globalFlags) *cobra.Command {
	plugins := &cobra.Command{Use: "plugins", Short: "Inspect capture plugins"}

	plugins.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List configured capture plugins",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(flags, nil)
			if err != nil {
				return err
			}
			defer app.Close()
			items, err := app.CaptureCLI.ListPlugins(context.Background())
			if err != nil {
				return err
			}
			if len(items) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no plugins")
				return nil
			}
			for _, p := range items {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\tenabled=%t\t%s\tdevices=%s\n",
					p.Name, p.Version, p.Enabled, p.Binary, strings.Join(p.Devices, ","))
			}
			return nil
		},
	})

	plugins.AddCommand(&cobra.Command{
		Use:   "doctor",
		Short: "Check plugin binaries, checksums and handshakes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(flags, nil)
			if err != nil {
				return err
			}
			defer app.Close()
			results, err := app.CaptureCLI.Doctor(context.Background())
			if err != nil {
				return err
			}
			if len(results) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no plugins")
				return nil
			}
			for _, r := range results {
				line := fmt.Sprintf("%s\tbinary=%t\tchecksum=%t\tlifecycle=%t", r.Name, r.BinaryReachable, r.ChecksumValid, r.LifecycleOK)
				if r.Error != "" {
					line += "\terror=" + r.Error
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	})
	return plugins
}
