package api

import (
	"context"
	"sort"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-overlay/internal/humastar"
	"github.com/joeblew999/plat-overlay/internal/render"
	"github.com/joeblew999/plat-overlay/internal/selector"
	"github.com/joeblew999/plat-overlay/internal/service"
	"github.com/joeblew999/plat-overlay/internal/viewstate"
)

type SessionInput struct {
	ID string `path:"id" doc:"Session ID" example:"9f2c4e1a7b3d5f60"`
}

type CreateSessionInput struct {
	Body struct {
		Demo string `json:"demo" required:"true" doc:"Demo to open" example:"water-risk"`
	}
}

// SessionBody is the session state plus its state-dependent actions.
type SessionBody struct {
	service.SessionState
}

var (
	sessionActions = []humastar.ActionDef{
		{Rel: "layers", Path: "/api/v1/sessions/{id}/layers", Method: "GET", Title: "Published layers"},
		{Rel: "events", Path: "/api/v1/sessions/{id}/events", Method: "GET", Title: "Live updates"},
		{Rel: "basemap", Path: "/api/v1/sessions/{id}/basemap", Method: "PUT", Title: "Swap basemap"},
		{Rel: "delete", Path: "/api/v1/sessions/{id}", Method: "DELETE", Title: "Close session"},
	}
	showAction    = humastar.ActionDef{Rel: "toggle", Path: "/api/v1/sessions/{id}/toggles/{name}", Method: "PUT", Title: "Show {name}"}
	hideAction    = humastar.ActionDef{Rel: "toggle", Path: "/api/v1/sessions/{id}/toggles/{name}", Method: "PUT", Title: "Hide {name}"}
	refreshAction = humastar.ActionDef{Rel: "refresh", Path: "/api/v1/sessions/{id}/selectors/{name}/refresh", Method: "POST", Title: "Refresh {name} options"}
)

// Actions lists the toggles that can be flipped and the selectors that can
// be refreshed, in name order.
func (b SessionBody) Actions() []humastar.Action {
	actions := humastar.ActionsFor(b.ID, sessionActions)
	for _, name := range sortedKeys(b.Toggles) {
		def := showAction
		if b.Toggles[name] {
			def = hideAction
		}
		actions = append(actions, def.Expand(map[string]string{"id": b.ID, "name": name}))
	}
	for _, name := range sortedKeys(b.Selectors) {
		actions = append(actions, refreshAction.Expand(map[string]string{"id": b.ID, "name": name}))
	}
	return actions
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type SessionOutput struct {
	Body SessionBody
}

type SessionListOutput struct {
	Body struct {
		Sessions []string `json:"sessions" doc:"Open session IDs"`
	}
}

type ParamInput struct {
	SessionInput
	Name string `path:"name" doc:"Query parameter name" example:"selectedYear"`
	Body struct {
		Value any `json:"value" required:"true" doc:"New parameter value" example:"2030"`
	}
}

type ToggleInput struct {
	SessionInput
	Name string `path:"name" doc:"Toggle name" example:"waterSupply"`
	Body struct {
		On bool `json:"on" doc:"Whether the layer is shown"`
	}
}

type ViewInput struct {
	SessionInput
	Surface string              `path:"surface" enum:"basemap,overlay" doc:"Surface the user moved"`
	Body    viewstate.ViewState `doc:"New camera"`
}

type BasemapInput struct {
	SessionInput
	Body struct {
		ID string `json:"id" required:"true" doc:"positron, voyager, dark-matter or mapTypeId.mapId" example:"voyager"`
	}
}

type LayersBody struct {
	Seq         uint64             `json:"seq" doc:"Publish sequence number"`
	Fingerprint string             `json:"fingerprint" doc:"Hash of the parameters the layers were bound from"`
	Layers      []render.LayerView `json:"layers" doc:"Published layers in draw order"`
}

type RefreshInput struct {
	SessionInput
	Param string `path:"param" doc:"Selector parameter" example:"selectedYear"`
}

type RefreshBody struct {
	Param string `json:"param" doc:"Selector parameter"`
	selector.Result
	Error string `json:"error,omitempty" doc:"Fetch failure, if any"`
}

// RegisterSessions registers session routes.
func (h *APIHandler) RegisterSessions(api huma.API) {
	huma.Get(api, "/api/v1/sessions", h.ListSessions, huma.OperationTags("sessions"))
	huma.Post(api, "/api/v1/sessions", h.CreateSession, huma.OperationTags("sessions"))
	huma.Get(api, "/api/v1/sessions/{id}", h.GetSession, huma.OperationTags("sessions"))
	huma.Delete(api, "/api/v1/sessions/{id}", h.DeleteSession, huma.OperationTags("sessions"))
	huma.Put(api, "/api/v1/sessions/{id}/params/{name}", h.PutParam, huma.OperationTags("sessions"))
	huma.Put(api, "/api/v1/sessions/{id}/toggles/{name}", h.PutToggle, huma.OperationTags("sessions"))
	huma.Put(api, "/api/v1/sessions/{id}/view/{surface}", h.PutView, huma.OperationTags("sessions"))
	huma.Put(api, "/api/v1/sessions/{id}/basemap", h.PutBasemap, huma.OperationTags("sessions"))
	huma.Get(api, "/api/v1/sessions/{id}/layers", h.GetLayers, huma.OperationTags("sessions"))
	huma.Post(api, "/api/v1/sessions/{id}/selectors/{param}/refresh", h.RefreshSelector, huma.OperationTags("sessions"))
}

func (h *APIHandler) session(id string) (*service.Session, error) {
	if h.svc == nil || h.svc.Sessions == nil {
		return nil, huma.Error404NotFound("service not available")
	}
	s, err := h.svc.Sessions.Get(id)
	if err != nil {
		return nil, sessionError(err)
	}
	return s, nil
}

func stateOutput(s *service.Session) *SessionOutput {
	return &SessionOutput{Body: SessionBody{SessionState: s.State()}}
}

func (h *APIHandler) ListSessions(ctx context.Context, input *struct{}) (*SessionListOutput, error) {
	out := &SessionListOutput{}
	out.Body.Sessions = []string{}
	if h.svc != nil && h.svc.Sessions != nil {
		out.Body.Sessions = h.svc.Sessions.List()
	}
	return out, nil
}

func (h *APIHandler) CreateSession(ctx context.Context, input *CreateSessionInput) (*SessionOutput, error) {
	if h.svc == nil || h.svc.Sessions == nil {
		return nil, huma.Error400BadRequest("service not available")
	}
	s, err := h.svc.Sessions.Create(ctx, input.Body.Demo)
	if err != nil {
		return nil, sessionError(err)
	}
	return stateOutput(s), nil
}

func (h *APIHandler) GetSession(ctx context.Context, input *SessionInput) (*SessionOutput, error) {
	s, err := h.session(input.ID)
	if err != nil {
		return nil, err
	}
	return stateOutput(s), nil
}

func (h *APIHandler) DeleteSession(ctx context.Context, input *SessionInput) (*struct{ Body MessageBody }, error) {
	if h.svc == nil || h.svc.Sessions == nil {
		return nil, huma.Error400BadRequest("service not available")
	}
	if err := h.svc.Sessions.Delete(input.ID); err != nil {
		return nil, sessionError(err)
	}
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "Session closed"}}, nil
}

func (h *APIHandler) PutParam(ctx context.Context, input *ParamInput) (*SessionOutput, error) {
	s, err := h.session(input.ID)
	if err != nil {
		return nil, err
	}
	if err := s.SetParam(input.Name, input.Body.Value); err != nil {
		return nil, huma.Error422UnprocessableEntity(err.Error())
	}
	return stateOutput(s), nil
}

func (h *APIHandler) PutToggle(ctx context.Context, input *ToggleInput) (*SessionOutput, error) {
	s, err := h.session(input.ID)
	if err != nil {
		return nil, err
	}
	s.SetToggle(input.Name, input.Body.On)
	return stateOutput(s), nil
}

func (h *APIHandler) PutView(ctx context.Context, input *ViewInput) (*SessionOutput, error) {
	s, err := h.session(input.ID)
	if err != nil {
		return nil, err
	}
	if err := s.Interact(input.Surface, input.Body); err != nil {
		return nil, sessionError(err)
	}
	return stateOutput(s), nil
}

func (h *APIHandler) PutBasemap(ctx context.Context, input *BasemapInput) (*SessionOutput, error) {
	s, err := h.session(input.ID)
	if err != nil {
		return nil, err
	}
	if _, err := s.SetBasemap(input.Body.ID); err != nil {
		return nil, sessionError(err)
	}
	return stateOutput(s), nil
}

func (h *APIHandler) GetLayers(ctx context.Context, input *SessionInput) (*struct{ Body LayersBody }, error) {
	s, err := h.session(input.ID)
	if err != nil {
		return nil, err
	}
	pub := s.Layers()
	return &struct{ Body LayersBody }{Body: LayersBody{
		Seq:         pub.Seq,
		Fingerprint: render.FormatFingerprint(pub.Fingerprint),
		Layers:      render.Views(pub.Layers),
	}}, nil
}

func (h *APIHandler) RefreshSelector(ctx context.Context, input *RefreshInput) (*struct{ Body RefreshBody }, error) {
	s, err := h.session(input.ID)
	if err != nil {
		return nil, err
	}
	res, err := s.Refresh(ctx, input.Param)
	if err != nil {
		return nil, sessionError(err)
	}
	body := RefreshBody{Param: input.Param, Result: res}
	if body.Options == nil {
		body.Options = []string{}
	}
	if res.Err != nil {
		body.Error = res.Err.Error()
	}
	return &struct{ Body RefreshBody }{Body: body}, nil
}
