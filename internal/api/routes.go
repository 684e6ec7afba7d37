// Package api defines the Huma API routes and handlers.
package api

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-overlay/internal/classify"
	"github.com/joeblew999/plat-overlay/internal/service"
)

// Services holds the service dependencies for API handlers.
type Services struct {
	Catalog  *service.Catalog
	Sessions *service.SessionManager
	Extracts *service.ExtractService
}

// Types

type IDInput struct {
	ID string `path:"id" doc:"Demo ID" example:"water-risk"`
}

type TableNameInput struct {
	Name string `path:"name" doc:"Classification table name" example:"water_stress"`
}

type ClassifyInput struct {
	TableNameInput
	Label string `query:"label" doc:"Category label; omit for a missing label" example:"High (40-80%)"`
}

type ClassifyBody struct {
	Table    string         `json:"table" doc:"Table that classified the label"`
	Label    *string        `json:"label" doc:"Label that was classified; null when missing"`
	Color    classify.Color `json:"color" doc:"Resulting fill color"`
	Fallback bool           `json:"fallback" doc:"Whether the fallback color was used"`
}

type DemoOutput struct {
	Body service.Demo
}

type DemosOutput struct {
	Body map[string]service.Demo
}

type MessageBody struct {
	Message string `json:"message" doc:"Result message"`
}

type CreatedDemoBody struct {
	ID      string       `json:"id" doc:"Generated demo ID"`
	Demo    service.Demo `json:"demo" doc:"Created demo"`
	Message string       `json:"message" doc:"Result message"`
}

type HealthBody struct {
	Status   string `json:"status" doc:"Health status" example:"ok"`
	Version  string `json:"version" doc:"API version" example:"1.0.0"`
	Sessions int    `json:"sessions" doc:"Open sessions"`
}

// APIHandler holds all REST API handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct {
	svc *Services
}

func NewAPIHandler(svc *Services) *APIHandler {
	return &APIHandler{svc: svc}
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

// RegisterTables registers classification table routes.
func (h *APIHandler) RegisterTables(api huma.API) {
	huma.Get(api, "/api/v1/tables", h.GetTables, huma.OperationTags("tables"))
	huma.Get(api, "/api/v1/tables/{name}", h.GetTable, huma.OperationTags("tables"))
	huma.Get(api, "/api/v1/tables/{name}/classify", h.ClassifyLabel, huma.OperationTags("tables"))
}

// RegisterDemos registers demo catalog routes.
func (h *APIHandler) RegisterDemos(api huma.API) {
	huma.Get(api, "/api/v1/demos", h.GetDemos, huma.OperationTags("demos"))
	huma.Post(api, "/api/v1/demos", h.CreateDemo, huma.OperationTags("demos"))
	huma.Get(api, "/api/v1/demos/{id}", h.GetDemo, huma.OperationTags("demos"))
	huma.Delete(api, "/api/v1/demos/{id}", h.DeleteDemo, huma.OperationTags("demos"))
}

// RegisterExtracts registers local extract listing routes.
func (h *APIHandler) RegisterExtracts(api huma.API) {
	huma.Get(api, "/api/v1/extracts", h.GetExtracts, huma.OperationTags("extracts"))
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	body := HealthBody{Status: "ok", Version: "1.0.0"}
	if h.svc != nil && h.svc.Sessions != nil {
		body.Sessions = len(h.svc.Sessions.List())
	}
	return &struct{ Body HealthBody }{Body: body}, nil
}

func (h *APIHandler) GetTables(ctx context.Context, input *struct{}) (*struct{ Body []classify.TableView }, error) {
	views := []classify.TableView{}
	if h.svc != nil && h.svc.Catalog != nil {
		for _, t := range h.svc.Catalog.Tables() {
			views = append(views, t.View())
		}
	}
	return &struct{ Body []classify.TableView }{Body: views}, nil
}

func (h *APIHandler) table(name string) (classify.Table, error) {
	if h.svc == nil || h.svc.Catalog == nil {
		return classify.Table{}, huma.Error404NotFound("service not available")
	}
	t, ok := h.svc.Catalog.Table(name)
	if !ok {
		return classify.Table{}, huma.Error404NotFound("table not found")
	}
	return t, nil
}

func (h *APIHandler) GetTable(ctx context.Context, input *TableNameInput) (*struct{ Body classify.TableView }, error) {
	t, err := h.table(input.Name)
	if err != nil {
		return nil, err
	}
	return &struct{ Body classify.TableView }{Body: t.View()}, nil
}

func (h *APIHandler) ClassifyLabel(ctx context.Context, input *ClassifyInput) (*struct{ Body ClassifyBody }, error) {
	t, err := h.table(input.Name)
	if err != nil {
		return nil, err
	}
	var label *string
	if input.Label != "" {
		label = &input.Label
	}
	matched := false
	for _, r := range t.Rules() {
		if label != nil && r.Label == *label {
			matched = true
			break
		}
	}
	return &struct{ Body ClassifyBody }{Body: ClassifyBody{
		Table:    t.Name(),
		Label:    label,
		Color:    classify.Classify(t, label),
		Fallback: !matched,
	}}, nil
}

func (h *APIHandler) GetDemos(ctx context.Context, input *struct{}) (*DemosOutput, error) {
	if h.svc == nil || h.svc.Catalog == nil {
		return &DemosOutput{Body: map[string]service.Demo{}}, nil
	}
	return &DemosOutput{Body: h.svc.Catalog.List()}, nil
}

func (h *APIHandler) CreateDemo(ctx context.Context, input *struct{ Body service.Demo }) (*struct{ Body CreatedDemoBody }, error) {
	if h.svc == nil || h.svc.Catalog == nil {
		return nil, huma.Error400BadRequest("service not available")
	}
	created, err := h.svc.Catalog.Create(input.Body)
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}
	return &struct{ Body CreatedDemoBody }{Body: CreatedDemoBody{
		ID: created.ID, Demo: created, Message: "Demo created",
	}}, nil
}

func (h *APIHandler) GetDemo(ctx context.Context, input *IDInput) (*DemoOutput, error) {
	if h.svc == nil || h.svc.Catalog == nil {
		return nil, huma.Error404NotFound("service not available")
	}
	d, ok := h.svc.Catalog.Get(input.ID)
	if !ok {
		return nil, huma.Error404NotFound("demo not found")
	}
	return &DemoOutput{Body: d}, nil
}

func (h *APIHandler) DeleteDemo(ctx context.Context, input *IDInput) (*struct{ Body MessageBody }, error) {
	if h.svc == nil || h.svc.Catalog == nil {
		return nil, huma.Error400BadRequest("service not available")
	}
	if err := h.svc.Catalog.Delete(input.ID); err != nil {
		return nil, huma.Error404NotFound(err.Error())
	}
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "Demo deleted"}}, nil
}

func (h *APIHandler) GetExtracts(ctx context.Context, input *struct{}) (*struct{ Body []service.ExtractFile }, error) {
	if h.svc == nil || h.svc.Extracts == nil {
		return &struct{ Body []service.ExtractFile }{Body: []service.ExtractFile{}}, nil
	}
	files, err := h.svc.Extracts.List()
	if err != nil {
		return &struct{ Body []service.ExtractFile }{Body: []service.ExtractFile{}}, nil
	}
	return &struct{ Body []service.ExtractFile }{Body: files}, nil
}

// sessionError maps service errors onto HTTP status codes.
func sessionError(err error) error {
	switch {
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, service.ErrDemoNotFound),
		errors.Is(err, service.ErrUnknownSelector):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, service.ErrUnknownSurface), errors.Is(err, service.ErrInvalidBasemap):
		return huma.Error422UnprocessableEntity(err.Error())
	default:
		return huma.Error400BadRequest(err.Error())
	}
}
