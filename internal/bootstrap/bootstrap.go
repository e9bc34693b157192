package bootstrap

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/hashicorp/go-hclog"

	"drawclass/internal/engine"
	captureinadapter "drawclass/internal/modules/capture/adapter/in"
	captureoutadapter "drawclass/internal/modules/capture/adapter/out"
	capturedomain "drawclass/internal/modules/capture/domain"
	captureout "drawclass/internal/modules/capture/port/out"
	captureservice "drawclass/internal/modules/capture/service"
	captureusecase "drawclass/internal/modules/capture/usecase"
	classifierinadapter "drawclass/internal/modules/classifier/adapter/in"
	classifieroutadapter "drawclass/internal/modules/classifier/adapter/out"
	classifierservice "drawclass/internal/modules/classifier/service"
	classifierusecase "drawclass/internal/modules/classifier/usecase"
	datasetinadapter "drawclass/internal/modules/dataset/adapter/in"
	datasetoutadapter "drawclass/internal/modules/dataset/adapter/out"
	datasetservice "drawclass/internal/modules/dataset/service"
	datasetusecase "drawclass/internal/modules/dataset/usecase"
	visualizationoutadapter "drawclass/internal/modules/visualization/adapter/out"
	visualizationdomain "drawclass/internal/modules/visualization/domain"
	"drawclass/internal/platform/clock"
	"drawclass/internal/platform/config"
	"drawclass/internal/platform/id"
	uiapp "drawclass/internal/ui/app"
)

// DefaultCategories are offered when the dataset has no categories yet.
var DefaultCategories = []string{"Gato", "Casa", "Sol"}

const (
	eventBuffer     = 256
	animationBuffer = 64
)

type App struct {
	Config config.Config
	Logger hclog.Logger

	DatasetCLI    datasetinadapter.CLIHandler
	ClassifierCLI classifierinadapter.CLIHandler
	CaptureCLI    captureinadapter.CLIHandler

	// Events carries training and prediction events for a live UI.
	Events              *classifieroutadapter.ChannelSink
	TrainingAnimation   *visualizationoutadapter.ChannelObserver
	PredictionAnimation *visualizationoutadapter.ChannelObserver

	registry *classifierservice.ModelRegistry
}

func New(cfg config.Config, logger hclog.Logger) (*App, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	clk := clock.SystemClock{}

	sampleStore, err := datasetoutadapter.NewSQLiteSampleStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("new sample store: %w", err)
	}
	datasetUC := datasetusecase.NewInteractor(datasetservice.NewDatasetService(clk, sampleStore))

	devices := map[capturedomain.SourceKind]captureout.Device{
		capturedomain.SourceFile:   captureoutadapter.NewFileDevice(),
		capturedomain.SourceWebcam: captureoutadapter.NewWebcamDevice(),
	}
	captureUC := captureusecase.NewInteractor(captureservice.NewCaptureService(
		logger.Named("capture"),
		clk,
		captureoutadapter.NewFileManifestStore(cfg.PluginsPath),
		captureoutadapter.NewGRPCHost(logger.Named("plugin")),
		devices,
		captureservice.Options{DefaultSource: cfg.Capture.Source, DefaultDevice: cfg.Capture.Device},
	))

	cnn := classifieroutadapter.NewCNNEngine(engine.NewPool(), cfg.Training.Workers)
	preprocessor := classifieroutadapter.NewImagePreprocessor(cnn, cfg.Training.ImageSize)
	sampler := classifierservice.NewActivationSampler()
	registry := classifierservice.NewModelRegistry()

	trainingAnimation := visualizationoutadapter.NewChannelObserver(animationBuffer)
	predictionAnimation := visualizationoutadapter.NewChannelObserver(animationBuffer)
	animationLog := visualizationoutadapter.NewLogObserver(logger)

	events := classifieroutadapter.NewChannelSink(eventBuffer)
	sink := classifieroutadapter.MultiSink{
		classifieroutadapter.NewLogSink(logger.Named("classifier")),
		events,
	}

	trainer := classifierservice.NewTrainer(classifierservice.TrainerDeps{
		Logger:       logger.Named("trainer"),
		Clock:        clk,
		IDs:          id.UUID{},
		Dataset:      classifieroutadapter.NewDatasetSource(datasetUC),
		Preprocessor: preprocessor,
		Engine:       cnn,
		Builder:      classifierservice.NewModelBuilder(cnn, cfg.Training.ImageSize, cfg.Training.LearningRate, cfg.Training.Seed),
		Sampler:      sampler,
		Registry:     registry,
		Animator: visualizationdomain.NewAnimator("training", clk,
			visualizationoutadapter.Fanout{animationLog, trainingAnimation}),
		Sink: sink,
	}, classifierservice.TrainingConfig{
		Epochs:         cfg.Training.Epochs,
		BatchSize:      cfg.Training.BatchSize,
		Shuffle:        cfg.Training.Shuffle,
		AnimationDelay: cfg.Animation.TrainingDelay,
	})

	predictor := classifierservice.NewPredictor(classifierservice.PredictorDeps{
		Logger:       logger.Named("predictor"),
		Clock:        clk,
		Preprocessor: preprocessor,
		Engine:       cnn,
		Sampler:      sampler,
		Registry:     registry,
		Animator: visualizationdomain.NewAnimator("prediction", clk,
			visualizationoutadapter.Fanout{animationLog, predictionAnimation}),
		Sink: sink,
	}, cfg.Animation.PredictionDelay)

	classifierUC := classifierusecase.NewInteractor(
		trainer,
		predictor,
		registry,
		classifieroutadapter.NewCaptureSource(captureUC, cfg.Capture.Source, cfg.Capture.Device),
	)

	return &App{
		Config:              cfg,
		Logger:              logger,
		DatasetCLI:          datasetinadapter.NewCLIHandler(datasetUC),
		ClassifierCLI:       classifierinadapter.NewCLIHandler(classifierUC),
		CaptureCLI:          captureinadapter.NewCLIHandler(captureUC),
		Events:              events,
		TrainingAnimation:   trainingAnimation,
		PredictionAnimation: predictionAnimation,
		registry:            registry,
	}, nil
}

// Close releases the installed model.
func (a *App) Close() {
	a.registry.Close()
}

// SeedCategories declares the default categories on an empty dataset.
func (a *App) SeedCategories(ctx context.Context) error {
	existing, err := a.DatasetCLI.AllCategories(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	for _, label := range DefaultCategories {
		if err := a.DatasetCLI.DeclareCategory(ctx, label); err != nil {
			return fmt.Errorf("declare %s: %w", label, err)
		}
	}
	return nil
}

func RunTUI(app *App) error {
	if err := app.SeedCategories(context.Background()); err != nil {
		return err
	}
	model := uiapp.NewModel(uiapp.Deps{
		Dataset:             app.DatasetCLI,
		Classifier:          app.ClassifierCLI,
		Capture:             app.CaptureCLI,
		Events:              app.Events.Events(),
		TrainingAnimation:   app.TrainingAnimation.States(),
		PredictionAnimation: app.PredictionAnimation.States(),
		PreviewSize:         app.Config.Capture.PreviewSize,
		Epochs:              app.Config.Training.Epochs,
		CaptureSource:       app.Config.Capture.Source,
	})
	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err := program.Run()
	return err
}
