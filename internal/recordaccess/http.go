package recordaccess

import (
	"context"

	"inkwell/internal/api"
	"inkwell/internal/apiclient"
)

// NewHTTPAccess returns an Access backed by the daemon HTTP API.
func NewHTTPAccess(client *apiclient.Client) Access {
	return &httpAccess{client: client}
}

type httpAccess struct {
	client *apiclient.Client
}

func (a *httpAccess) Daemon() bool { return true }

func (a *httpAccess) List(ctx context.Context, statuses []string, limit int) ([]api.Document, error) {
	return a.client.ListDocuments(ctx, statuses, limit)
}

func (a *httpAccess) Describe(ctx context.Context, documentID string) (*api.Document, error) {
	return a.client.GetDocument(ctx, documentID)
}

func (a *httpAccess) Intake(ctx context.Context, req api.IntakeRequest) (*api.Document, error) {
	return a.client.Intake(ctx, req)
}

func (a *httpAccess) Dispatch(ctx context.Context, documentID, tier string) (*api.DispatchOutcome, error) {
	return a.client.Dispatch(ctx, documentID, api.DispatchRequest{Tier: tier})
}

func (a *httpAccess) Retry(ctx context.Context, documentID string) (*api.DispatchOutcome, error) {
	return a.client.Retry(ctx, documentID)
}

func (a *httpAccess) Edit(ctx context.Context, documentID string, req api.EditRequest) (*api.Document, error) {
	return a.client.Edit(ctx, documentID, req)
}

func (a *httpAccess) Delete(ctx context.Context, documentID string) (*api.RecycleEntry, error) {
	return a.client.Delete(ctx, documentID)
}

func (a *httpAccess) Restore(ctx context.Context, documentID string) (*api.Document, error) {
	return a.client.Restore(ctx, documentID)
}

func (a *httpAccess) Recycled(ctx context.Context) ([]api.RecycleEntry, error) {
	return a.client.Recycled(ctx)
}

func (a *httpAccess) PurgeRecycled(ctx context.Context) (int64, error) {
	return a.client.PurgeRecycled(ctx)
}

func (a *httpAccess) DeadLetters(ctx context.Context) ([]api.WorkItem, error) {
	return a.client.DeadLetters(ctx)
}

func (a *httpAccess) ReplayDeadLetter(ctx context.Context, id int64) (*api.WorkItem, error) {
	return a.client.ReplayDeadLetter(ctx, id)
}

func (a *httpAccess) RecordStats(ctx context.Context) (api.RecordStats, error) {
	status, err := a.client.Status(ctx)
	if err != nil {
		return api.RecordStats{}, err
	}
	return status.Worker.Records, nil
}

func (a *httpAccess) QueueStats(ctx context.Context) (api.QueueStats, error) {
	status, err := a.client.Status(ctx)
	if err != nil {
		return api.QueueStats{}, err
	}
	return status.Worker.Queue, nil
}

func (a *httpAccess) Close() error { return nil }
