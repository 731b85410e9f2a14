// Command conductor runs a staged LLM pipeline with retries, preflight
// connectivity checks, and an append-only run event log.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/term"

	"conductor/pkg/config"
	"conductor/pkg/eventlog"
	"conductor/pkg/llm"
	"conductor/pkg/llm/factory"
	"conductor/pkg/logx"
	"conductor/pkg/metrics"
	"conductor/pkg/persistence"
	"conductor/pkg/pipeline"
	"conductor/pkg/preflight"
	"conductor/pkg/resilience"
)

var version = "dev"

func main() {
	var (
		configPath    = flag.String("config", "", "path to YAML config file")
		stagesPath    = flag.String("stages", "stages.yaml", "path to stage manifest")
		skipPreflight = flag.Bool("skip-preflight", false, "skip the connectivity probe before the run")
		dryRun        = flag.Bool("dry-run", false, "validate config and manifest without issuing any calls")
		setKey        = flag.Bool("set-key", false, "store an API key in the encrypted secrets file and exit")
		showVersion   = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("conductor %s\n", version)
		return
	}

	logger := logx.NewLogger("conductor")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}

	provider := llm.DetectProvider(cfg.Model)
	if provider == "" {
		logger.Error("cannot determine provider for model %q", cfg.Model)
		os.Exit(1)
	}

	if *setKey {
		if err := storeKey(provider); err != nil {
			logger.Error("%v", err)
			os.Exit(1)
		}
		return
	}

	credential, err := resolveCredential(provider)
	if err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}

	stages, err := pipeline.LoadManifest(*stagesPath)
	if err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}

	if *dryRun {
		fmt.Printf("config OK: model=%s retries=%d timeout=%s\n", cfg.Model, cfg.MaxRetries, cfg.RequestTimeout())
		fmt.Printf("manifest OK: %d stages\n", len(stages))
		for _, s := range stages {
			fmt.Printf("  - %s (%s)\n", s.ID, s.Name)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	providerClient, err := factory.NewClient(cfg.Model, credential, cfg.OllamaHost)
	if err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}

	recorder := metrics.NewPrometheusRecorder()

	client, err := resilience.NewWithObservers(providerClient, resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		RequestTimeout: cfg.RequestTimeout(),
		InitialBackoff: cfg.InitialBackoff(),
		MaxBackoff:     cfg.MaxBackoff(),
		JitterFraction: cfg.JitterFraction,
	}, nil, recorder)
	if err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}

	writer, err := eventlog.NewWriter(cfg.EventLogDir)
	if err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
	db, err := persistence.Open(cfg.DatabasePath)
	if err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
	sink := eventlog.NewFanout(writer, persistence.NewStore(db))
	defer func() {
		if err := sink.Close(); err != nil {
			logger.Warn("failed to close event sinks: %v", err)
		}
	}()

	probeCredential := credential
	if provider == llm.ProviderOllama {
		probeCredential = llm.NoCredentialRequired
	}
	prober := preflight.NewProber(providerClient, probeCredential).WithTimeout(cfg.PreflightTimeout())

	orch := pipeline.NewOrchestrator(client, sink,
		pipeline.WithProber(prober),
		pipeline.WithRecorder(recorder),
		pipeline.WithMaxFixCycles(cfg.MaxFixCycles),
		pipeline.WithSkipPreflight(*skipPreflight || cfg.SkipPreflight),
	)

	runID, err := orch.Run(ctx, stages)
	if err != nil {
		logger.Error("run %s aborted: %v", runID, err)
		fmt.Fprint(os.Stderr, preflightHint(err, provider))
		os.Exit(1)
	}

	logger.Info("run %s finished; events in %s and %s", runID, writer.CurrentLogFile(), cfg.DatabasePath)
}

// resolveCredential finds the API key for the provider. The encrypted
// secrets file wins over the environment; local providers need no key.
func resolveCredential(provider llm.Provider) (string, error) {
	envVar := factory.APIKeyEnvVar(provider)
	if envVar == "" {
		return "", nil
	}

	if config.SecretsFileExists(".") {
		password, err := promptPassword("Secrets password: ")
		if err != nil {
			return "", err
		}
		secrets, err := config.LoadSecrets(".", password)
		if err != nil {
			return "", err
		}
		if key, err := config.GetSecret(secrets, envVar); err == nil {
			return key, nil
		}
	}

	// Absent everywhere is not an error here: preflight reports a missing
	// credential as unauthorized with remediation guidance.
	return os.Getenv(envVar), nil
}

// storeKey prompts for an API key and writes it to the encrypted secrets file.
func storeKey(provider llm.Provider) error {
	envVar := factory.APIKeyEnvVar(provider)
	if envVar == "" {
		return fmt.Errorf("provider %s does not use an API key", provider)
	}

	key, err := promptPassword(fmt.Sprintf("%s: ", envVar))
	if err != nil {
		return err
	}
	if key == "" {
		return fmt.Errorf("key cannot be empty")
	}

	password, err := promptPassword("Secrets password: ")
	if err != nil {
		return err
	}

	secrets := map[string]string{}
	if config.SecretsFileExists(".") {
		existing, err := config.LoadSecrets(".", password)
		if err != nil {
			return err
		}
		secrets = existing
	}
	secrets[envVar] = key

	if err := config.SaveSecrets(".", password, secrets); err != nil {
		return err
	}
	fmt.Printf("stored %s in encrypted secrets file\n", envVar)
	return nil
}

// promptPassword reads a line without echo when stdin is a terminal.
func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		data, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	var line string
	if _, err := fmt.Fscanln(os.Stdin, &line); err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// preflightHint adds remediation guidance when the abort came from preflight.
func preflightHint(err error, provider llm.Provider) string {
	msg := err.Error()
	if !strings.Contains(msg, "preflight failed") {
		return ""
	}
	for _, c := range []preflight.Classification{
		preflight.ClassificationUnauthorized,
		preflight.ClassificationRateLimited,
		preflight.ClassificationUnavailable,
		preflight.ClassificationNetworkError,
		preflight.ClassificationUnknown,
	} {
		if strings.Contains(msg, string(c)) {
			return "  " + preflight.Guidance(c, provider) + "\n"
		}
	}
	return ""
}
