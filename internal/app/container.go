package app

import (
	"context"
	"errors"
	"io"
	"path/filepath"

	"github.com/doeshing/cligent-go/internal/application/doctor"
	"github.com/doeshing/cligent-go/internal/application/interaction"
	"github.com/doeshing/cligent-go/internal/application/interpret"
	"github.com/doeshing/cligent-go/internal/infrastructure/ai"
	"github.com/doeshing/cligent-go/internal/infrastructure/config"
	contextcollector "github.com/doeshing/cligent-go/internal/infrastructure/context"
	"github.com/doeshing/cligent-go/internal/infrastructure/executor"
	"github.com/doeshing/cligent-go/internal/infrastructure/history"
	"github.com/doeshing/cligent-go/internal/infrastructure/security"
	"github.com/doeshing/cligent-go/internal/pkg/filesystem"
	"github.com/doeshing/cligent-go/internal/pkg/logger"
	"github.com/doeshing/cligent-go/internal/ports"
)

// LogFileName is the debug log written under the data dir.
const LogFileName = "cligent.log"

// Container wires up application services with infrastructure adapters.
// Loop.Display is left nil: the CLI layer owns the terminal and sets it.
type Container struct {
	Loop           *interaction.Loop
	ConfigProvider ports.ConfigStore
	ConfigLoader   *config.FileLoader
	DoctorService  *doctor.Service
	HistoryStore   history.Store
	Guardrail      *security.Guardrail
	Providers      *ai.Factory
	Executor       *executor.LocalExecutor
	Logger         ports.Logger

	closers []io.Closer
	log     *logger.ZapLogger
}

// BuildContainer constructs the dependency graph. A config without a usable
// provider is not an error here; the loop reports it on first use.
func BuildContainer(ctx context.Context, verbose bool) (*Container, error) {
	cfgLoader := config.NewFileLoader("")
	cfg, err := cfgLoader.Load(ctx)
	if err != nil {
		return nil, err
	}

	log := logger.NewNop()
	if verbose {
		fileLog, err := logger.NewFile(filepath.Join(filesystem.DataDir(), "logs", LogFileName), true)
		if err != nil {
			return nil, err
		}
		log = fileLog
	}

	guardrail, err := security.NewGuardrail(cfg.Security.RulesFile)
	if err != nil {
		log.Warn("guardrail rules unusable, falling back to embedded defaults", map[string]interface{}{"error": err.Error()})
		guardrail, err = security.NewGuardrail("")
		if err != nil {
			return nil, err
		}
	}

	historyStore, err := history.Open(cfg.History)
	if err != nil {
		return nil, err
	}

	collector := contextcollector.NewBasicCollector()
	providers := ai.NewFactory(cfg.Providers, log)
	exec := executor.NewLocalExecutor(cfg.GetExecutionShell(), log)

	loop := &interaction.Loop{
		Config:      cfgLoader,
		Provider:    providers,
		Interpreter: interpret.New(),
		Classifier:  guardrail,
		Executor:    exec,
		History:     historyStore,
		Context:     collector,
		Logger:      log,
	}

	doctorService := &doctor.Service{
		ConfigProvider:   cfgLoader,
		Classifier:       guardrail,
		ContextCollector: collector,
		History:          historyStore,
		Shell:            exec.Shell(),
	}

	container := &Container{
		Loop:           loop,
		ConfigProvider: cfgLoader,
		ConfigLoader:   cfgLoader,
		DoctorService:  doctorService,
		HistoryStore:   historyStore,
		Guardrail:      guardrail,
		Providers:      providers,
		Executor:       exec,
		Logger:         log,
		log:            log,
	}
	if closer, ok := historyStore.(io.Closer); ok {
		container.closers = append(container.closers, closer)
	}
	return container, nil
}

// Reload re-reads the config file and refreshes the provider clients. The
// loop picks the new config up on its next Init.
func (c *Container) Reload(ctx context.Context) error {
	cfg, err := c.ConfigLoader.Load(ctx)
	if err != nil {
		return err
	}
	c.Providers.SetProviders(cfg.Providers)
	return c.Loop.Init(ctx)
}

// Close releases the history database and flushes the log.
func (c *Container) Close() error {
	var errs []error
	for _, closer := range c.closers {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.log != nil {
		// Sync on a file-less logger reports EINVAL on some platforms; ignore it.
		_ = c.log.Sync()
	}
	return errors.Join(errs...)
}
