package publish

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/panjf2000/ants/v2"

	assistant "github.com/goliatone/go-assistant"
	"github.com/goliatone/go-assistant/compiler"
	"github.com/goliatone/go-assistant/model"
	"github.com/goliatone/go-assistant/runner"
	"github.com/goliatone/go-assistant/watson"
)

const CodePublishFailed = "PUBLISH_FAILED"

var ErrPublishFailed = errors.New("workspace publish failed", errors.CategoryExternal).
	WithTextCode(CodePublishFailed)

const (
	DefaultTimeout  = 2 * time.Minute
	DefaultPoolSize = 4
)

// Publisher compiles projects and sends them to a workspace client.
type Publisher struct {
	assistant.MessageHandler[Request]

	compiler    *compiler.Compiler
	clients     ClientFactory
	logger      assistant.Logger
	failureMode FailureMode
	timeout     time.Duration
	poolSize    int
	onResult    func(Result)
	now         func() time.Time
}

type Option func(*Publisher)

func WithCompiler(c *compiler.Compiler) Option {
	return func(p *Publisher) {
		p.compiler = c
	}
}

func WithClientFactory(f ClientFactory) Option {
	return func(p *Publisher) {
		p.clients = f
	}
}

func WithLogger(l assistant.Logger) Option {
	return func(p *Publisher) {
		p.logger = l
	}
}

func WithFailureMode(m FailureMode) Option {
	return func(p *Publisher) {
		p.failureMode = m
	}
}

// WithTimeout bounds the external call. Zero leaves it to the caller's context.
func WithTimeout(t time.Duration) Option {
	return func(p *Publisher) {
		p.timeout = t
	}
}

// WithPoolSize bounds PublishAll concurrency.
func WithPoolSize(n int) Option {
	return func(p *Publisher) {
		p.poolSize = n
	}
}

// WithResultHandler is called with the result of every job that reached
// the workspace client, failed or not.
func WithResultHandler(fn func(Result)) Option {
	return func(p *Publisher) {
		p.onResult = fn
	}
}

func NewPublisher(opts ...Option) *Publisher {
	p := &Publisher{
		clients:     WatsonClients(),
		failureMode: FailureModeReport,
		timeout:     DefaultTimeout,
		poolSize:    DefaultPoolSize,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	p.logger = assistant.NormalizeLogger(p.logger)
	if p.compiler == nil {
		p.compiler = compiler.New(compiler.WithLogger(p.logger))
	}
	if p.poolSize <= 0 {
		p.poolSize = 1
	}
	return p
}

// Publish compiles project and creates or updates the workspace named by
// job. Compilation and validation errors are always returned. A failed
// external call yields a StatusFailed result, and is returned as an error
// only under FailureModeReturn.
func (p *Publisher) Publish(ctx context.Context, project *model.Project, job Job) (Result, error) {
	if err := p.ValidateMessage(Request{Project: project, Job: job}); err != nil {
		return Result{}, err
	}

	result := Result{
		JobID:     job.ID,
		ProjectID: project.ID,
		Operation: OperationCreate,
		StartedOn: p.now(),
	}
	if job.Workspace.ID != "" {
		result.Operation = OperationUpdate
		result.WorkspaceID = job.Workspace.ID
	}

	logger := assistant.WithLoggerFields(p.logger, map[string]any{
		"job_id":     job.ID,
		"project_id": project.ID,
		"operation":  string(result.Operation),
	})

	ws, err := p.compiler.Workspace(project, compiler.Target{
		Name:        job.Workspace.Name,
		Description: job.Workspace.Description,
		Language:    job.Workspace.Language,
	})
	if err != nil {
		return result, err
	}

	var published *watson.Workspace
	client, err := p.clients(project.ServiceProvider)
	if err == nil {
		err = p.handler(job, logger).Run(ctx, func(ctx context.Context) error {
			var callErr error
			if result.Operation == OperationUpdate {
				published, callErr = client.UpdateWorkspace(ctx, job.Workspace.ID, compiler.Update(ws))
			} else {
				published, callErr = client.CreateWorkspace(ctx, ws)
			}
			return callErr
		})
	}
	result.CompletedOn = p.now()

	if err != nil {
		result.Status = StatusFailed
		result.Err = assistant.CloneError(ErrPublishFailed,
			fmt.Sprintf("%s workspace for project %s failed", result.Operation, project.ID),
			err,
			map[string]any{
				"job_id":       job.ID,
				"project_id":   project.ID,
				"operation":    string(result.Operation),
				"workspace_id": job.Workspace.ID,
			})
		logger.Error("publish failed: %v", err)
		p.report(result)
		if p.failureMode == FailureModeReturn {
			return result, result.Err
		}
		return result, nil
	}

	if published != nil && published.WorkspaceID != "" {
		result.WorkspaceID = published.WorkspaceID
	}
	result.Status = StatusSucceeded
	logger.Info("published workspace %s", result.WorkspaceID)
	p.report(result)
	return result, nil
}

func (p *Publisher) report(r Result) {
	if p.onResult != nil {
		p.onResult(r)
	}
}

// Execute implements assistant.Commander.
func (p *Publisher) Execute(ctx context.Context, req Request) error {
	_, err := p.Publish(ctx, req.Project, req.Job)
	return err
}

// PublishAll publishes every request on a bounded worker pool. Results keep
// request order; returned errors are joined.
func (p *Publisher) PublishAll(ctx context.Context, reqs []Request) ([]Result, error) {
	results := make([]Result, len(reqs))
	if len(reqs) == 0 {
		return results, nil
	}

	pool, err := ants.NewPool(p.poolSize)
	if err != nil {
		return nil, fmt.Errorf("publish pool: %w", err)
	}
	defer pool.Release()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for i, req := range reqs {
		i, req := i, req
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			res, err := p.Publish(ctx, req.Project, req.Job)
			results[i] = res
			if err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("job %s: %w", req.Job.ID, err))
				mu.Unlock()
			}
		})
		if submitErr != nil {
			wg.Done()
			mu.Lock()
			errs = append(errs, fmt.Errorf("job %s: submit: %w", req.Job.ID, submitErr))
			mu.Unlock()
		}
	}
	wg.Wait()

	return results, errors.Join(errs...)
}

func (p *Publisher) handler(job Job, logger assistant.Logger) *runner.Handler {
	opts := []runner.Option{
		runner.WithName("publish " + job.ID),
		runner.WithLogger(logger),
		// failures are logged by Publish with job context
		runner.WithErrorHandler(nil),
	}
	if p.timeout > 0 {
		opts = append(opts, runner.WithTimeout(p.timeout))
	}
	return runner.NewHandler(opts...)
}
