package usecase_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"path/filepath"
	"slices"
	"testing"

	"drawclass/internal/engine"
	classifierout "drawclass/internal/modules/classifier/adapter/out"
	"drawclass/internal/modules/classifier/dto"
	classifierin "drawclass/internal/modules/classifier/port/in"
	"drawclass/internal/modules/classifier/service"
	"drawclass/internal/modules/classifier/usecase"
	datasetout "drawclass/internal/modules/dataset/adapter/out"
	datasetdto "drawclass/internal/modules/dataset/dto"
	datasetin "drawclass/internal/modules/dataset/port/in"
	datasetservice "drawclass/internal/modules/dataset/service"
	datasetusecase "drawclass/internal/modules/dataset/usecase"
	visualdomain "drawclass/internal/modules/visualization/domain"
	"drawclass/internal/platform/clock"
	apperrors "drawclass/internal/platform/errors"
	"drawclass/internal/platform/payload"
)

type frameSource struct {
	frame string
	calls int
}

func (s *frameSource) Capture(context.Context) (string, error) {
	s.calls++
	return s.frame, nil
}

func drawing(t *testing.T, stripe color.Color, vertical bool) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.White)
			if (vertical && x%8 < 3) || (!vertical && y%8 < 3) {
				img.Set(x, y, stripe)
			}
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return payload.FromBytes(buf.Bytes())
}

func TestTrainAndPredictThroughDataset(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, err := datasetout.NewSQLiteSampleStore(filepath.Join(t.TempDir(), "dataset.db"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	dataset := datasetusecase.NewInteractor(datasetservice.NewDatasetService(clock.SystemClock{}, store))
	for i := 0; i < 4; i++ {
		if _, err := dataset.AddSample(ctx, datasetdto.AddSampleInput{Label: "Cat", Payload: drawing(t, color.Black, true)}); err != nil {
			t.Fatalf("add cat: %v", err)
		}
		if _, err := dataset.AddSample(ctx, datasetdto.AddSampleInput{Label: "House", Payload: drawing(t, color.Black, false)}); err != nil {
			t.Fatalf("add house: %v", err)
		}
	}

	pool := engine.NewPool()
	cnn := classifierout.NewCNNEngine(pool, 2)
	pre := classifierout.NewImagePreprocessor(cnn, 16)
	registry := service.NewModelRegistry()
	t.Cleanup(registry.Close)
	sampler := service.NewActivationSampler()
	clk := clock.Instant{}
	trainer := service.NewTrainer(service.TrainerDeps{
		Clock:        clk,
		Dataset:      classifierout.NewDatasetSource(dataset),
		Preprocessor: pre,
		Engine:       cnn,
		Builder:      service.NewModelBuilder(cnn, 16, 0.001, 3),
		Sampler:      sampler,
		Registry:     registry,
		Animator:     visualdomain.NewAnimator("training", clk, nil),
	}, service.TrainingConfig{Epochs: 3, BatchSize: 16, Shuffle: true})
	predictor := service.NewPredictor(service.PredictorDeps{
		Clock:        clk,
		Preprocessor: pre,
		Engine:       cnn,
		Sampler:      sampler,
		Registry:     registry,
		Animator:     visualdomain.NewAnimator("inference", clk, nil),
	}, 0)
	source := &frameSource{frame: drawing(t, color.Black, true)}
	uc := usecase.NewInteractor(trainer, predictor, registry, source)

	if _, err := uc.PredictCapture(ctx); !errors.Is(err, apperrors.ErrModelNotTrained) {
		t.Fatalf("expected model not trained, got %v", err)
	}
	if source.calls != 0 {
		t.Fatalf("capture should not run without a model")
	}

	trained, err := uc.Train(ctx)
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	if len(trained.Progress) != 3 || trained.Samples != 8 {
		t.Fatalf("unexpected training output: %+v", trained)
	}
	model, err := uc.Model(ctx)
	if err != nil || !model.Trained || model.RunID != trained.RunID {
		t.Fatalf("unexpected model info: %+v %v", model, err)
	}

	predicted, err := uc.PredictCapture(ctx)
	if err != nil {
		t.Fatalf("predict capture: %v", err)
	}
	if len(predicted.Scores) != 2 || predicted.Scores[0].Probability < predicted.Scores[1].Probability {
		t.Fatalf("unexpected scores: %+v", predicted.Scores)
	}
	status, err := uc.Status(ctx)
	if err != nil || status.State != "completed" || status.Error != "" {
		t.Fatalf("unexpected status: %+v %v", status, err)
	}
	if uc.SkipPredictionAnimation(ctx) {
		t.Fatalf("skip outside a pass should be ignored")
	}
	if live := pool.Live(); live != 0 {
		t.Fatalf("expected no live tensors, got %d", live)
	}

	if err := dataset.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := uc.Predict(ctx, dto.PredictInput{Payload: drawing(t, color.Black, false)}); err != nil {
		t.Fatalf("clearing the dataset must not drop the model: %v", err)
	}
}

func newDataset(t *testing.T) datasetin.Usecase {
	t.Helper()
	store, err := datasetout.NewSQLiteSampleStore(filepath.Join(t.TempDir(), "dataset.db"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return datasetusecase.NewInteractor(datasetservice.NewDatasetService(clock.SystemClock{}, store))
}

func newClassifier(t *testing.T, dataset datasetin.Usecase, epochs, batch int) (classifierin.Usecase, *engine.Pool) {
	t.Helper()
	pool := engine.NewPool()
	cnn := classifierout.NewCNNEngine(pool, 2)
	pre := classifierout.NewImagePreprocessor(cnn, 16)
	registry := service.NewModelRegistry()
	t.Cleanup(registry.Close)
	sampler := service.NewActivationSampler()
	clk := clock.Instant{}
	trainer := service.NewTrainer(service.TrainerDeps{
		Clock:        clk,
		Dataset:      classifierout.NewDatasetSource(dataset),
		Preprocessor: pre,
		Engine:       cnn,
		Builder:      service.NewModelBuilder(cnn, 16, 0.001, 5),
		Sampler:      sampler,
		Registry:     registry,
	}, service.TrainingConfig{Epochs: epochs, BatchSize: batch, Shuffle: true})
	predictor := service.NewPredictor(service.PredictorDeps{
		Clock:        clk,
		Preprocessor: pre,
		Engine:       cnn,
		Sampler:      sampler,
		Registry:     registry,
	}, 0)
	return usecase.NewInteractor(trainer, predictor, registry, &frameSource{}), pool
}

func scoreLabels(scores []dto.Score) []string {
	labels := make([]string, 0, len(scores))
	for _, s := range scores {
		labels = append(labels, s.Label)
	}
	slices.Sort(labels)
	return labels
}

func TestUnevenCategoriesSmallerThanABatch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dataset := newDataset(t)
	cat1, cat2 := drawing(t, color.Black, true), drawing(t, color.RGBA{R: 40, A: 255}, true)
	house := drawing(t, color.Black, false)
	for _, s := range []datasetdto.AddSampleInput{
		{Label: "Cat", Payload: cat1},
		{Label: "Cat", Payload: cat2},
		{Label: "House", Payload: house},
	} {
		if _, err := dataset.AddSample(ctx, s); err != nil {
			t.Fatalf("add %s: %v", s.Label, err)
		}
	}
	uc, pool := newClassifier(t, dataset, 2, 16)

	trained, err := uc.Train(ctx)
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	if trained.Samples != 3 || !slices.Equal(trained.Categories, []string{"Cat", "House"}) {
		t.Fatalf("unexpected training output: %+v", trained)
	}
	categories, err := dataset.ListCategories(ctx)
	if err != nil {
		t.Fatalf("list categories: %v", err)
	}
	if len(categories) != 2 || categories[0].Label != "Cat" || categories[1].Label != "House" {
		t.Fatalf("training must leave the dataset alone, got %+v", categories)
	}

	predicted, err := uc.Predict(ctx, dto.PredictInput{Payload: cat1})
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if len(predicted.Scores) != 2 {
		t.Fatalf("expected two scores, got %+v", predicted.Scores)
	}
	sum := predicted.Scores[0].Probability + predicted.Scores[1].Probability
	if math.Abs(sum-1) > 1e-6 {
		t.Fatalf("probabilities sum to %v", sum)
	}
	if live := pool.Live(); live != 0 {
		t.Fatalf("expected no live tensors, got %d", live)
	}
}

func TestCategoriesAddedAfterTrainingAreNotPredicted(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dataset := newDataset(t)
	cat, house := drawing(t, color.Black, true), drawing(t, color.Black, false)
	for i := 0; i < 2; i++ {
		if _, err := dataset.AddSample(ctx, datasetdto.AddSampleInput{Label: "Cat", Payload: cat}); err != nil {
			t.Fatalf("add cat: %v", err)
		}
		if _, err := dataset.AddSample(ctx, datasetdto.AddSampleInput{Label: "House", Payload: house}); err != nil {
			t.Fatalf("add house: %v", err)
		}
	}
	uc, _ := newClassifier(t, dataset, 1, 4)
	if _, err := uc.Train(ctx); err != nil {
		t.Fatalf("train: %v", err)
	}

	sun := drawing(t, color.RGBA{R: 250, G: 200, A: 255}, false)
	if _, err := dataset.AddSample(ctx, datasetdto.AddSampleInput{Label: "Sun", Payload: sun}); err != nil {
		t.Fatalf("add sun: %v", err)
	}
	predicted, err := uc.Predict(ctx, dto.PredictInput{Payload: sun})
	if err != nil {
		t.Fatalf("predict after adding a category: %v", err)
	}
	if got := scoreLabels(predicted.Scores); !slices.Equal(got, []string{"Cat", "House"}) {
		t.Fatalf("expected only trained categories, got %v", got)
	}

	reordered := fmt.Sprintf(`{"Sun":%s,"House":%s,"Cat":%s}`,
		mustJSON(t, []string{sun}), mustJSON(t, []string{house}), mustJSON(t, []string{cat}))
	if _, err := dataset.Import(ctx, datasetdto.ImportInput{Data: []byte(reordered)}); err != nil {
		t.Fatalf("import reordered dataset: %v", err)
	}
	predicted, err = uc.Predict(ctx, dto.PredictInput{Payload: cat})
	if err != nil {
		t.Fatalf("predict after reordering: %v", err)
	}
	if got := scoreLabels(predicted.Scores); !slices.Equal(got, []string{"Cat", "House"}) {
		t.Fatalf("expected only trained categories, got %v", got)
	}
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(data)
}
