// Command demo wires an Orchestrator, submits one job against a
// synthesized product image, and prints progress events to stdout until
// the job reaches a terminal state. With OPENAI_API_KEY set it talks to
// the real providers; otherwise it runs entirely on deterministic fakes.
package main

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"log"
	"os"
	"strings"
	"time"

	"github.com/fogleman/gg"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/campaignforge/orchestrator/internal/genjob"
	"github.com/campaignforge/orchestrator/internal/genjob/fakecap"
	"github.com/campaignforge/orchestrator/internal/genjob/openaicap"
	"github.com/campaignforge/orchestrator/internal/platform/logger"
)

func main() {
	log.SetFlags(0)

	lg, err := logger.New(os.Getenv("LOG_MODE"))
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer lg.Sync()

	shutdownTracing := setupTracing(strings.EqualFold(os.Getenv("GENJOB_TRACE_STDOUT"), "true"))
	defer shutdownTracing()

	cfg := genjob.ConfigFromEnv()
	cfg.Logger = lg
	cfg.Tracer = otel.Tracer("genjob/demo")

	analyzer, synth, texts := buildCapabilities(lg)
	orch := genjob.New(analyzer, synth, texts, cfg)
	defer orch.Shutdown()

	image, err := sampleProductImage()
	if err != nil {
		log.Fatalf("build sample image: %v", err)
	}

	ctx := context.Background()
	sub, err := orch.Submit(ctx, image, genjob.Options{
		BrandName:   "Northfield Supply Co.",
		ProductName: "Cedarwood Beard Oil",
	})
	if err != nil {
		log.Fatalf("submit job: %v", err)
	}
	lg.Info("job submitted", "job_id", sub.Job.ID.String(), "estimated_seconds", sub.EstimatedSeconds)

	unsub, err := orch.SubscribeProgress(sub.Job.ID, func(ev genjob.ProgressEvent) {
		fmt.Printf("[%s] kind=%s progress=%v\n", ev.JobID, ev.Kind, ev.Progress)
	})
	if err != nil {
		log.Fatalf("subscribe: %v", err)
	}
	defer unsub()

	final, err := orch.WaitForCompletion(ctx, sub.Job.ID, 2*time.Minute)
	if err != nil {
		log.Fatalf("wait for completion: %v", err)
	}
	lg.Info("job finished", "job_id", final.ID.String(), "status", string(final.Status))
}

// buildCapabilities picks production OpenAI-backed adapters when
// OPENAI_API_KEY is set, otherwise falls back to deterministic fakes so the
// demo runs with no external dependency out of the box.
func buildCapabilities(lg *logger.Logger) (genjob.Analyzer, genjob.ImageSynthesizer, genjob.TextSynthesizer) {
	if strings.TrimSpace(os.Getenv("OPENAI_API_KEY")) == "" {
		lg.Info("OPENAI_API_KEY not set, using deterministic fake capabilities")
		return &fakecap.Analyzer{}, &fakecap.ImageSynth{}, &fakecap.TextSynth{}
	}
	client := openaicap.NewClientFromEnv(lg)
	return openaicap.NewAnalyzer(client), openaicap.NewImageSynthesizer(client), openaicap.NewTextSynthesizer(client)
}

func setupTracing(stdoutEnabled bool) func() {
	if !stdoutEnabled {
		return func() {}
	}
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		log.Fatalf("build stdout trace exporter: %v", err)
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	return func() {
		_ = tp.Shutdown(context.Background())
	}
}

// sampleProductImage rasterizes a small placeholder product photo so the
// demo has no dependency on a local file or network fetch.
func sampleProductImage() ([]byte, error) {
	dc := gg.NewContext(512, 512)
	dc.SetColor(color.RGBA{R: 0x2f, G: 0x6f, B: 0x4f, A: 0xff})
	dc.Clear()
	dc.SetColor(color.White)
	dc.DrawRoundedRectangle(156, 96, 200, 320, 24)
	dc.Fill()
	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
