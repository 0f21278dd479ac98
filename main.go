package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.opentelemetry.io/otel"

	"github.com/catalogue-assistant/server/internal/agent/classifier"
	"github.com/catalogue-assistant/server/internal/agent/completion"
	"github.com/catalogue-assistant/server/internal/agent/dispatch"
	"github.com/catalogue-assistant/server/internal/agent/graph"
	"github.com/catalogue-assistant/server/internal/agent/graph/conversations"
	"github.com/catalogue-assistant/server/internal/agent/graph/tools"
	"github.com/catalogue-assistant/server/internal/agent/guardrails"
	"github.com/catalogue-assistant/server/internal/agent/llm"
	"github.com/catalogue-assistant/server/internal/agent/model"
	agenttrace "github.com/catalogue-assistant/server/internal/agent/trace"
	"github.com/catalogue-assistant/server/internal/agent/workflow"
	"github.com/catalogue-assistant/server/internal/repo"
	"github.com/catalogue-assistant/server/internal/server"
	logx "github.com/catalogue-assistant/server/pkg/logger"
	pkgredis "github.com/catalogue-assistant/server/pkg/redis"
)

// AppConfig defines all configurable parameters of the service, sourced from
// environment variables (loaded from .env for local runs).
type AppConfig struct {
	Core model.CoreConfig

	// Infrastructure
	Redis pkgredis.Config
	Trace agenttrace.Config

	// LLM provider
	Model model.ModelConfig

	// Workflow configs
	Workflow     model.WorkflowConfig
	Conversation model.ConversationConfig
	Server       model.ServerConfig
}

func main() {
	// Load .env file
	if err := godotenv.Load(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not load .env file: %v\n", err)
	}

	var envCfg AppConfig
	if err := envconfig.Process("", &envCfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to process environment config: %v\n", err)
		os.Exit(1)
	}
	logx.Init(logx.LoggerOpts{Environment: envCfg.Core.Environment})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, envCfg); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logx.Fatal().Err(err).Msg("Catalogue agent stopped")
	}
	logx.Info().Msg("Catalogue agent shut down")
}

func run(ctx context.Context, envCfg AppConfig) error {
	tp, err := agenttrace.NewProvider(ctx, envCfg.Trace)
	if err != nil {
		return fmt.Errorf("tracer provider: %w", err)
	}
	otel.SetTracerProvider(tp)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logx.Warn().Err(err).Msg("Failed to flush spans")
		}
	}()

	def, err := workflow.Load(envCfg.Workflow.Name, envCfg.Workflow.File)
	if err != nil {
		return err
	}
	toolRegistry := tools.NewRegistry()
	if err := def.ValidateTools(toolRegistry.Has); err != nil {
		return err
	}

	provider, err := llm.NewGeminiProvider(ctx, llm.GeminiConfig{
		APIKey:         envCfg.Model.APIKey,
		BaseURL:        envCfg.Model.BaseURL,
		DefaultModel:   envCfg.Model.DefaultModel,
		ThinkingBudget: envCfg.Model.ThinkingBudget,
	})
	if err != nil {
		return err
	}

	completions, err := completion.NewService(provider, toolRegistry, completion.Config{
		DefaultModel: envCfg.Model.DefaultModel,
		MaxToolCalls: envCfg.Conversation.Tools.MaxCalls,
	})
	if err != nil {
		return err
	}

	evaluator := guardrails.NewService()
	if err := evaluator.Validate(def.GuardrailConfig()); err != nil {
		return err
	}
	gate, err := guardrails.NewGate(evaluator, def.GuardrailConfig(), guardrails.SharedContext{
		LLM:          provider,
		DefaultModel: envCfg.Model.GuardrailModel,
	}, envCfg.Workflow.GuardrailStrict)
	if err != nil {
		return err
	}

	registry, err := def.Registry()
	if err != nil {
		return err
	}
	dispatcher, err := dispatch.NewDispatcher(registry, completions)
	if err != nil {
		return err
	}
	cls, err := classifier.New(ctx, completions, def.Classifier, def.LabelSet())
	if err != nil {
		return err
	}

	transcripts, closeTranscripts, err := newTranscripts(ctx, envCfg)
	if err != nil {
		return err
	}
	defer closeTranscripts()

	runner, err := graph.BuildWorkflow(ctx, graph.Config{
		Gate:        gate,
		Classifier:  cls,
		Dispatcher:  dispatcher,
		Tracer:      agenttrace.NewTracer(tp, def.Name, def.WorkflowID, def.TraceSource),
		Transcripts: transcripts,
		Timeout:     envCfg.Workflow.Timeout,
	})
	if err != nil {
		return err
	}

	srv, err := server.NewServer(envCfg.Server, runner)
	if err != nil {
		return err
	}

	logx.Info().
		Str("workflow", def.Name).
		Str("workflow_id", def.WorkflowID).
		Int("labels", len(def.Labels)).
		Bool("transcripts", transcripts.Enabled()).
		Msg("Workflow ready")
	return srv.Start(ctx)
}

// newTranscripts connects to Redis when REDIS_URL is set. Without it runs
// are not persisted.
func newTranscripts(ctx context.Context, envCfg AppConfig) (*conversations.TranscriptManager, func(), error) {
	if !envCfg.Redis.Enabled() {
		return conversations.NewTranscriptManager(nil), func() {}, nil
	}

	ttl, err := time.ParseDuration(envCfg.Conversation.TTL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid CONVERSATION_TTL %q: %w", envCfg.Conversation.TTL, err)
	}

	rdb, err := envCfg.Redis.New(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialise Redis client: %w", err)
	}
	logx.Info().Msg("Connected to Redis successfully")

	closeFn := func() {
		if err := rdb.Close(); err != nil {
			logx.Warn().Err(err).Msg("Failed to close Redis client")
		}
	}
	return conversations.NewTranscriptManager(repo.NewRedisTranscriptRepository(rdb, ttl)), closeFn, nil
}
