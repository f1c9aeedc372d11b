package publish

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	assistant "github.com/goliatone/go-assistant"
	"github.com/goliatone/go-assistant/entitytype"
	"github.com/goliatone/go-assistant/model"
	"github.com/goliatone/go-assistant/watson"
)

type fakeClient struct {
	mu        sync.Mutex
	created   []*watson.Workspace
	updated   map[string]*watson.WorkspaceUpdate
	listed    []watson.Workspace
	fetched   []string
	failWith  error
	block     bool
	createdID string
}

func newFakeClient() *fakeClient {
	return &fakeClient{updated: map[string]*watson.WorkspaceUpdate{}, createdID: "ws-new"}
}

func (f *fakeClient) CreateWorkspace(ctx context.Context, ws *watson.Workspace) (*watson.Workspace, error) {
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.failWith != nil {
		return nil, f.failWith
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, ws)
	out := *ws
	out.WorkspaceID = f.createdID
	return &out, nil
}

func (f *fakeClient) UpdateWorkspace(_ context.Context, id string, update *watson.WorkspaceUpdate) (*watson.Workspace, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated[id] = update
	return &watson.Workspace{WorkspaceID: id}, nil
}

func (f *fakeClient) ListWorkspaces(_ context.Context, includeAudit bool) ([]watson.Workspace, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	if !includeAudit {
		return nil, fmt.Errorf("expected audit listing")
	}
	return f.listed, nil
}

func (f *fakeClient) GetWorkspace(_ context.Context, id string, export bool) (*watson.Workspace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, id)
	return &watson.Workspace{WorkspaceID: id, Name: "full " + id, Status: fmt.Sprint(export)}, nil
}

func factory(c WorkspaceClient) ClientFactory {
	return func(model.ServiceProvider) (WorkspaceClient, error) {
		return c, nil
	}
}

func project(id string) *model.Project {
	return &model.Project{
		ID:             id,
		FulfillmentURL: "https://fulfil.example.com",
		ServiceProvider: model.ServiceProvider{
			ID:          "sp1",
			Credentials: model.Credentials{APIKey: "key", URL: "https://watson.example.com"},
		},
		Intents: []model.Intent{{
			ID:                "greet",
			ResponseTemplates: []string{"Hi!"},
			Utterances: []model.Utterance{{Parts: []model.UtterancePart{
				{Text: "Hello "},
				{Text: "Bob", EntityType: model.StringPtr("@sys.person")},
			}}},
		}},
	}
}

func TestPublishCreatesWorkspace(t *testing.T) {
	client := newFakeClient()
	p := NewPublisher(WithClientFactory(factory(client)))

	job := NewJob(project("p1"), WorkspaceTarget{Name: "demo"})
	res, err := p.Publish(context.Background(), project("p1"), job)
	require.NoError(t, err)

	assert.Equal(t, StatusSucceeded, res.Status)
	assert.Equal(t, OperationCreate, res.Operation)
	assert.Equal(t, "ws-new", res.WorkspaceID)
	assert.Equal(t, job.ID, res.JobID)
	assert.False(t, res.CompletedOn.Before(res.StartedOn))

	require.Len(t, client.created, 1)
	ws := client.created[0]
	assert.Equal(t, "demo", ws.Name)
	assert.Equal(t, "en", ws.Language)
	assert.Equal(t, "https://fulfil.example.com", ws.Webhooks[0].URL)
	assert.Len(t, ws.Entities, 4)
}

func TestPublishUpdatesExistingWorkspace(t *testing.T) {
	client := newFakeClient()
	p := NewPublisher(WithClientFactory(factory(client)))

	job := NewJob(project("p1"), WorkspaceTarget{ID: "ws-1"})
	res, err := p.Publish(context.Background(), project("p1"), job)
	require.NoError(t, err)

	assert.Equal(t, OperationUpdate, res.Operation)
	assert.Equal(t, "ws-1", res.WorkspaceID)
	assert.Empty(t, client.created)

	update := client.updated["ws-1"]
	require.NotNil(t, update)
	assert.True(t, update.SystemSettings.SystemEntities.Enabled)
	assert.Len(t, update.Intents, 1)
	assert.Len(t, update.Webhooks, 1)
	assert.NotEmpty(t, update.DialogNodes)
}

func TestPublishFailureReportMode(t *testing.T) {
	client := newFakeClient()
	client.failWith = fmt.Errorf("503 service unavailable")
	p := NewPublisher(WithClientFactory(factory(client)))

	res, err := p.Publish(context.Background(), project("p1"), NewJob(project("p1"), WorkspaceTarget{Name: "demo"}))
	require.NoError(t, err)
	assert.True(t, res.Failed())
	require.Error(t, res.Err)
	assert.True(t, assistant.HasCode(res.Err, CodePublishFailed))
	assert.Contains(t, res.Err.Error(), "503")
}

func TestPublishFailureReturnMode(t *testing.T) {
	client := newFakeClient()
	client.failWith = fmt.Errorf("boom")
	p := NewPublisher(WithClientFactory(factory(client)), WithFailureMode(FailureModeReturn))

	res, err := p.Publish(context.Background(), project("p1"), NewJob(project("p1"), WorkspaceTarget{Name: "demo"}))
	require.Error(t, err)
	assert.True(t, assistant.HasCode(err, CodePublishFailed))
	assert.Equal(t, StatusFailed, res.Status)
}

func TestPublishResultHandlerSeesEveryOutcome(t *testing.T) {
	client := newFakeClient()
	var seen []Result
	p := NewPublisher(WithClientFactory(factory(client)), WithResultHandler(func(r Result) {
		seen = append(seen, r)
	}))

	_, err := p.Publish(context.Background(), project("p1"), NewJob(project("p1"), WorkspaceTarget{Name: "demo"}))
	require.NoError(t, err)
	client.failWith = fmt.Errorf("boom")
	_, err = p.Publish(context.Background(), project("p1"), NewJob(project("p1"), WorkspaceTarget{Name: "demo"}))
	require.NoError(t, err)

	require.Len(t, seen, 2)
	assert.Equal(t, StatusSucceeded, seen[0].Status)
	assert.Equal(t, StatusFailed, seen[1].Status)
}

func TestPublishClientFactoryFailureIsPublishFailure(t *testing.T) {
	p := NewPublisher(WithClientFactory(func(model.ServiceProvider) (WorkspaceClient, error) {
		return nil, fmt.Errorf("no credentials")
	}))

	res, err := p.Publish(context.Background(), project("p1"), NewJob(project("p1"), WorkspaceTarget{Name: "demo"}))
	require.NoError(t, err)
	assert.True(t, res.Failed())
}

func TestPublishTimeout(t *testing.T) {
	client := newFakeClient()
	client.block = true
	p := NewPublisher(WithClientFactory(factory(client)), WithTimeout(20*time.Millisecond))

	res, err := p.Publish(context.Background(), project("p1"), NewJob(project("p1"), WorkspaceTarget{Name: "demo"}))
	require.NoError(t, err)
	assert.True(t, res.Failed())
	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
}

func TestPublishCompileErrorsPropagate(t *testing.T) {
	client := newFakeClient()
	p := NewPublisher(WithClientFactory(factory(client)))

	bad := project("p1")
	bad.Intents[0].Utterances[0].Parts[1].EntityType = model.StringPtr("@sys.unknown")

	_, err := p.Publish(context.Background(), bad, NewJob(bad, WorkspaceTarget{Name: "demo"}))
	require.Error(t, err)
	assert.True(t, assistant.HasCode(err, entitytype.CodeUnresolvedEntityType))
	assert.Empty(t, client.created)
}

func TestPublishValidatesJob(t *testing.T) {
	p := NewPublisher(WithClientFactory(factory(newFakeClient())))

	_, err := p.Publish(context.Background(), project("p1"), Job{})
	require.Error(t, err)
	assert.True(t, assistant.HasCode(err, assistant.CodeValidationFailed))

	_, err = p.Publish(context.Background(), nil, NewJob(nil, WorkspaceTarget{Name: "x"}))
	require.Error(t, err)
}

func TestExecuteImplementsCommander(t *testing.T) {
	client := newFakeClient()
	var cmd assistant.Commander[Request] = NewPublisher(WithClientFactory(factory(client)))

	req := Request{Project: project("p1"), Job: NewJob(project("p1"), WorkspaceTarget{Name: "demo"})}
	require.NoError(t, cmd.Execute(context.Background(), req))
	assert.Len(t, client.created, 1)
}

func TestPublishAll(t *testing.T) {
	client := newFakeClient()
	p := NewPublisher(WithClientFactory(factory(client)), WithPoolSize(2))

	var reqs []Request
	for i := 0; i < 5; i++ {
		proj := project(fmt.Sprintf("p%d", i))
		reqs = append(reqs, Request{Project: proj, Job: NewJob(proj, WorkspaceTarget{Name: proj.ID})})
	}
	reqs = append(reqs, Request{Project: project("bad"), Job: Job{}})

	results, err := p.PublishAll(context.Background(), reqs)
	require.Error(t, err)
	require.Len(t, results, 6)
	for i := 0; i < 5; i++ {
		assert.Equal(t, StatusSucceeded, results[i].Status)
		assert.Equal(t, fmt.Sprintf("p%d", i), results[i].ProjectID)
	}
	assert.Len(t, client.created, 5)
}

func TestJobValidate(t *testing.T) {
	job := NewJob(project("p1"), WorkspaceTarget{Name: "demo"})
	assert.NoError(t, job.Validate())
	assert.Len(t, job.ID, 26)
	assert.Equal(t, "sp1", job.ServiceProviderID)

	assert.NoError(t, NewJob(project("p1"), WorkspaceTarget{ID: "ws"}).Validate())
	assert.Error(t, NewJob(project("p1"), WorkspaceTarget{}).Validate())
}

func TestParseFailureMode(t *testing.T) {
	m, err := ParseFailureMode("return")
	require.NoError(t, err)
	assert.Equal(t, FailureModeReturn, m)

	m, err = ParseFailureMode("")
	require.NoError(t, err)
	assert.Equal(t, FailureModeReport, m)

	_, err = ParseFailureMode("explode")
	assert.Error(t, err)
}

func TestSync(t *testing.T) {
	client := newFakeClient()
	client.listed = []watson.Workspace{{WorkspaceID: "a"}, {WorkspaceID: "b"}}
	s := NewSyncer(WithSyncClientFactory(factory(client)))

	snap, err := s.Sync(context.Background(), project("p1").ServiceProvider)
	require.NoError(t, err)
	require.Len(t, snap.Workspaces, 2)
	assert.Equal(t, "full a", snap.Workspaces[0].Name)
	assert.Equal(t, "true", snap.Workspaces[1].Status)
	assert.Equal(t, []string{"a", "b"}, client.fetched)
	assert.False(t, snap.LastUpdated.IsZero())
}

func TestSyncErrorsPropagate(t *testing.T) {
	client := newFakeClient()
	client.failWith = fmt.Errorf("unauthorized")
	s := NewSyncer(WithSyncClientFactory(factory(client)))

	_, err := s.Sync(context.Background(), project("p1").ServiceProvider)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unauthorized")

	_, err = s.Sync(context.Background(), model.ServiceProvider{})
	require.Error(t, err)
	assert.True(t, assistant.HasCode(err, assistant.CodeValidationFailed))
}
