package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goliatone/go-errors"

	assistant "github.com/goliatone/go-assistant"
	"github.com/goliatone/go-assistant/compiler"
	"github.com/goliatone/go-assistant/cron"
	"github.com/goliatone/go-assistant/dispatcher"
	"github.com/goliatone/go-assistant/model"
	"github.com/goliatone/go-assistant/publish"
	"github.com/goliatone/go-assistant/runner"
	"github.com/goliatone/go-assistant/schema"
	"github.com/goliatone/go-assistant/store"
	"github.com/goliatone/go-assistant/watson"
	"github.com/goliatone/go-assistant/webhook"
)

const defaultProviderID = "default"

type CompileCmd struct {
	Schema         string `required:"" type:"existingfile" help:"Schema file (YAML or JSON)."`
	Name           string `required:"" help:"Workspace name."`
	Description    string `help:"Workspace description."`
	Language       string `default:"en" help:"Workspace language."`
	FulfillmentURL string `name:"fulfillment-url" help:"Webhook URL, overrides fulfillment.url."`
	Out            string `short:"o" type:"path" help:"Write to this file instead of stdout."`
}

func (c *CompileCmd) Run(app *App) error {
	project, err := app.projectFromSchema("", c.Name, c.Schema)
	if err != nil {
		return err
	}
	if c.FulfillmentURL != "" {
		project.FulfillmentURL = c.FulfillmentURL
	}

	ws, err := compiler.New(compiler.WithLogger(app.logger)).Workspace(project, compiler.Target{
		Name:        c.Name,
		Description: c.Description,
		Language:    c.Language,
	})
	if err != nil {
		return err
	}

	if c.Out == "" {
		return writeJSON(app.out, ws)
	}
	f, err := os.Create(c.Out)
	if err != nil {
		return fmt.Errorf("create %s: %w", c.Out, err)
	}
	if err := writeJSON(f, ws); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

type ImportCmd struct {
	Schema string `required:"" type:"existingfile" help:"Schema file (YAML or JSON)."`
	ID     string `help:"Project id, defaults to the file name."`
	Name   string `help:"Project name."`
}

func (c *ImportCmd) Run(app *App) error {
	project, err := app.projectFromSchema(c.ID, c.Name, c.Schema)
	if err != nil {
		return err
	}
	pg, err := app.openPostgres()
	if err != nil {
		return err
	}
	defer pg.Close()

	if err := pg.Save(app.ctx, project); err != nil {
		return err
	}
	app.logger.Info("stored project %s", project.ID)
	return nil
}

type PublishCmd struct {
	Project     string `xor:"source" required:"" help:"Stored project id."`
	Schema      string `xor:"source" required:"" type:"existingfile" help:"Publish a schema file instead of a stored project."`
	Name        string `required:"" help:"Workspace name."`
	Description string `help:"Workspace description."`
	Language    string `default:"en" help:"Workspace language."`
	WorkspaceID string `name:"workspace-id" help:"Update this workspace instead of creating one."`
	FailureMode string `name:"failure-mode" help:"report or return, overrides publish.failure_mode."`
}

func (c *PublishCmd) Run(app *App) error {
	project, err := app.loadProject(c.Project, c.Schema, c.Name)
	if err != nil {
		return err
	}

	modeName := app.cfg.Publish.FailureMode
	if c.FailureMode != "" {
		modeName = c.FailureMode
	}
	mode, err := publish.ParseFailureMode(modeName)
	if err != nil {
		return err
	}

	var result publish.Result
	publisher := publish.NewPublisher(
		publish.WithCompiler(compiler.New(compiler.WithLogger(app.logger))),
		publish.WithClientFactory(publish.WatsonClients(app.watsonOptions()...)),
		publish.WithLogger(app.logger),
		publish.WithFailureMode(mode),
		publish.WithTimeout(app.cfg.Publish.Timeout),
		publish.WithPoolSize(app.cfg.Publish.PoolSize),
		publish.WithResultHandler(func(r publish.Result) { result = r }),
	)

	d := dispatcher.New(dispatcher.WithExitOnError())
	dispatcher.SubscribeCommand[publish.Request](d, publisher,
		runner.WithName("publish command"),
		runner.WithLogger(app.logger),
		runner.WithNoTimeout(),
		runner.WithErrorHandler(nil),
	)

	job := publish.NewJob(project, publish.WorkspaceTarget{
		ID:          c.WorkspaceID,
		Name:        c.Name,
		Description: c.Description,
		Language:    c.Language,
	})
	err = dispatcher.Dispatch(app.ctx, d, publish.Request{Project: project, Job: job})
	if result.JobID == "" {
		return err
	}
	if werr := writeJSON(app.out, result); werr != nil {
		return werr
	}
	if result.Failed() {
		return result.Err
	}
	return err
}

type SyncCmd struct {
	Project  string `help:"Use the service instance of this stored project."`
	Schedule string `help:"Cron expression, overrides sync.schedule. Keeps running until interrupted."`
}

func (c *SyncCmd) Run(app *App) error {
	provider := app.defaultProvider()
	if c.Project != "" {
		project, err := app.loadProject(c.Project, "", "")
		if err != nil {
			return err
		}
		provider = project.ServiceProvider
	}

	syncer := publish.NewSyncer(
		publish.WithSyncClientFactory(publish.WatsonClients(app.watsonOptions()...)),
		publish.WithSyncLogger(app.logger),
	)
	d := dispatcher.New()
	dispatcher.SubscribeQuery[publish.SyncRequest, publish.Snapshot](d, syncer,
		runner.WithName("sync "+provider.ID),
		runner.WithLogger(app.logger),
		runner.WithTimeout(app.cfg.Sync.Timeout),
	)
	run := func(ctx context.Context) error {
		snapshot, err := dispatcher.Query[publish.SyncRequest, publish.Snapshot](ctx, d, publish.SyncRequest{Provider: provider})
		if err != nil {
			return err
		}
		app.logger.Info("synced %d workspaces", len(snapshot.Workspaces))
		return writeJSON(app.out, snapshot)
	}

	schedule := app.cfg.Sync.Schedule
	if c.Schedule != "" {
		schedule = c.Schedule
	}
	if schedule == "" {
		return run(app.ctx)
	}

	scheduler := cron.NewScheduler(cron.WithLogger(app.logger))
	if _, err := scheduler.ScheduleCron(assistant.HandlerConfig{Expression: schedule}, run); err != nil {
		return err
	}
	if err := scheduler.Start(app.ctx); err != nil {
		return err
	}
	app.logger.Info("sync scheduled on %q", schedule)
	<-app.ctx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.Sync.Timeout)
	defer cancel()
	return scheduler.Stop(ctx)
}

type ServeCmd struct {
	Addr    string            `help:"Listen address, overrides server.addr."`
	Schemas map[string]string `name:"schema" help:"Serve schema files without a database, as id=path."`
}

func (c *ServeCmd) Run(app *App) error {
	projects, closeStore, err := app.projectStore(c.Schemas)
	if err != nil {
		return err
	}
	defer closeStore()

	var fulfiller webhook.Fulfiller
	if u := app.cfg.Fulfillment.URL; u != "" {
		fulfiller = webhook.NewHTTPFulfiller(u,
			webhook.WithHTTPClient(&http.Client{Timeout: app.cfg.Fulfillment.Timeout}),
			webhook.WithFulfillerLogger(app.logger),
		)
	}
	router := webhook.NewRouter(webhook.NewHandler(projects, fulfiller, webhook.WithLogger(app.logger)))

	addr := app.cfg.Server.Addr
	if c.Addr != "" {
		addr = c.Addr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info("webhook server listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-app.ctx.Done():
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

func (app *App) defaultProvider() model.ServiceProvider {
	return model.ServiceProvider{
		ID:   defaultProviderID,
		Name: defaultProviderID,
		Credentials: model.Credentials{
			APIKey: app.cfg.Watson.APIKey,
			URL:    app.cfg.Watson.URL,
		},
	}
}

func (app *App) watsonOptions() []watson.Option {
	return []watson.Option{
		watson.WithVersion(app.cfg.Watson.Version),
		watson.WithIAMURL(app.cfg.Watson.IAMURL),
		watson.WithTimeout(app.cfg.Watson.Timeout),
		watson.WithLogger(app.logger),
	}
}

// projectFromSchema builds a project from a schema file. The id defaults to
// the file name without extension.
func (app *App) projectFromSchema(id, name, path string) (*model.Project, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema %s: %w", path, err)
	}
	if id == "" {
		id = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if name == "" {
		name = id
	}
	project := &model.Project{
		ID:              id,
		Name:            name,
		OriginalSchema:  raw,
		ServiceProvider: app.defaultProvider(),
		FulfillmentURL:  app.cfg.Fulfillment.URL,
	}
	if err := schema.Hydrate(project); err != nil {
		return nil, fmt.Errorf("schema %s: %w", path, err)
	}
	return project, nil
}

// loadProject reads a schema file when path is set, otherwise the stored
// project id. Stored projects without credentials use the configured
// service instance.
func (app *App) loadProject(id, path, name string) (*model.Project, error) {
	if path != "" {
		return app.projectFromSchema(id, name, path)
	}
	pg, err := app.openPostgres()
	if err != nil {
		return nil, err
	}
	defer pg.Close()

	project, err := pg.FindByID(app.ctx, id)
	if err != nil {
		return nil, err
	}
	if project.ServiceProvider.Credentials.URL == "" {
		project.ServiceProvider = app.defaultProvider()
	}
	return project, nil
}

func (app *App) openPostgres() (*store.PostgresStore, error) {
	if app.cfg.Database.DSN == "" {
		return nil, assistant.CloneError(assistant.ErrValidation, "database.dsn is required", nil, nil)
	}
	pg, err := store.OpenPostgres(app.ctx, app.cfg.Database.DSN, store.WithLogger(app.logger))
	if err != nil {
		return nil, err
	}
	if app.cfg.Database.Migrate {
		if err := pg.Migrate(app.ctx); err != nil {
			pg.Close()
			return nil, err
		}
	}
	return pg, nil
}

// projectStore serves schemas from memory when given, otherwise the
// configured database.
func (app *App) projectStore(schemas map[string]string) (store.ProjectStore, func(), error) {
	if len(schemas) > 0 || app.cfg.Database.DSN == "" {
		mem := store.NewMemoryStore()
		for id, path := range schemas {
			project, err := app.projectFromSchema(id, "", path)
			if err != nil {
				return nil, nil, err
			}
			if err := mem.Put(project); err != nil {
				return nil, nil, err
			}
		}
		app.logger.Info("serving %d projects from memory", len(schemas))
		return mem, func() {}, nil
	}

	pg, err := app.openPostgres()
	if err != nil {
		return nil, nil, err
	}
	return pg, func() { _ = pg.Close() }, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
