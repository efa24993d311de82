package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/jun/drivelookup/internal/auth"
	"github.com/jun/drivelookup/internal/config"
	"github.com/jun/drivelookup/internal/logging"
	"github.com/jun/drivelookup/internal/lookup"
	"github.com/jun/drivelookup/internal/model"
	"github.com/jun/drivelookup/internal/navigator"
	"github.com/jun/drivelookup/internal/session"
	"go.uber.org/zap"
)

// Searcher runs entity lookups.
type Searcher interface {
	Search(ctx context.Context, entities []model.Entity, opts lookup.Options) ([]model.SearchResult, error)
}

// LookupHandler serves lookups and match navigation.
type LookupHandler struct {
	searcher  Searcher
	sessions  session.Registry
	defaults  config.SearchConfig
	oauth     *auth.ClientOptions
	jwtSecret string
	log       *zap.Logger
}

// NewLookupHandler creates a LookupHandler. A nil oauth runs lookups with the
// service account.
func NewLookupHandler(searcher Searcher, sessions session.Registry, defaults config.SearchConfig, oauth *auth.ClientOptions, jwtSecret string) *LookupHandler {
	return &LookupHandler{
		searcher:  searcher,
		sessions:  sessions,
		defaults:  defaults,
		oauth:     oauth,
		jwtSecret: jwtSecret,
		log:       logging.ForComponent(logging.CompHTTP),
	}
}

type optionsRequest struct {
	SearchScope       *string `json:"searchScope"`
	DriveID           *string `json:"driveId"`
	ShowThumbnails    *bool   `json:"showThumbnails"`
	EagerContentFiles *int    `json:"eagerContentFiles"`
}

func (o *optionsRequest) apply(base config.SearchConfig) config.SearchConfig {
	if o == nil {
		return base
	}
	if o.SearchScope != nil {
		base.Scope = *o.SearchScope
	}
	if o.DriveID != nil {
		base.DriveID = *o.DriveID
	}
	if o.ShowThumbnails != nil {
		base.ShowThumbnails = *o.ShowThumbnails
	}
	if o.EagerContentFiles != nil {
		base.EagerContentFiles = *o.EagerContentFiles
	}
	return base
}

type lookupRequest struct {
	Entities []model.Entity  `json:"entities"`
	Options  *optionsRequest `json:"options"`
}

type validationBody struct {
	Valid  bool                    `json:"valid"`
	Errors config.ValidationErrors `json:"errors"`
}

type stepBody struct {
	State   navigator.State `json:"state"`
	Applied bool            `json:"applied"`
}

// Lookup handles POST /lookup
func (h *LookupHandler) Lookup(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	id, err := GetIdentity(req, h.jwtSecret)
	if err != nil {
		return unauthorized(), nil
	}

	if resp, ok := checkBody(lookupSchema, req.Body); !ok {
		return resp, nil
	}
	var body lookupRequest
	if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusBadRequest, Body: "Invalid request body"}, nil
	}

	search := body.Options.apply(h.defaults)
	if errs := search.Validate(); len(errs) > 0 {
		return jsonResponse(http.StatusBadRequest, validationBody{Errors: errs}), nil
	}

	opts := lookup.Options{
		UserID:            id.UserID,
		Username:          id.Username,
		Scope:             search.ScopeValue(),
		ShowThumbnails:    search.ShowThumbnails,
		EagerContentFiles: search.EagerContentFiles,
	}
	if h.oauth != nil {
		o := *h.oauth
		opts.OAuth = &o
	}

	results, err := h.searcher.Search(ctx, body.Entities, opts)
	if err != nil {
		h.log.Error("lookup failed", zap.String("user_id", id.UserID), zap.Error(err))
		return errorResponse(err), nil
	}
	return jsonResponse(http.StatusOK, results), nil
}

// ValidateOptions handles POST /options/validate
func (h *LookupHandler) ValidateOptions(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if _, err := GetIdentity(req, h.jwtSecret); err != nil {
		return unauthorized(), nil
	}

	raw := req.Body
	if strings.TrimSpace(raw) == "" {
		raw = "{}"
	}
	if resp, ok := checkBody(optionsSchema, raw); !ok {
		return resp, nil
	}
	var opts optionsRequest
	if err := json.Unmarshal([]byte(raw), &opts); err != nil {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusBadRequest, Body: "Invalid request body"}, nil
	}

	errs := opts.apply(h.defaults).Validate()
	if errs == nil {
		errs = config.ValidationErrors{}
	}
	return jsonResponse(http.StatusOK, validationBody{Valid: len(errs) == 0, Errors: errs}), nil
}

// GetState handles GET /lookup/{searchId}
func (h *LookupHandler) GetState(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	nav, resp, ok := h.navigator(req)
	if !ok {
		return resp, nil
	}
	return jsonResponse(http.StatusOK, nav.State()), nil
}

// Next handles POST /lookup/{searchId}/next
func (h *LookupHandler) Next(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return h.step(ctx, req, 1)
}

// Previous handles POST /lookup/{searchId}/previous
func (h *LookupHandler) Previous(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return h.step(ctx, req, -1)
}

func (h *LookupHandler) step(ctx context.Context, req events.APIGatewayProxyRequest, dir int) (events.APIGatewayProxyResponse, error) {
	nav, resp, ok := h.navigator(req)
	if !ok {
		return resp, nil
	}
	st, applied := nav.Step(ctx, dir)
	return jsonResponse(http.StatusOK, stepBody{State: st, Applied: applied}), nil
}

// FetchFileContent handles POST /lookup/{searchId}/files/{index}/content
func (h *LookupHandler) FetchFileContent(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	nav, resp, ok := h.navigator(req)
	if !ok {
		return resp, nil
	}
	index, err := strconv.Atoi(req.PathParameters["index"])
	if err != nil || index < 0 {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusBadRequest, Body: "Invalid file index"}, nil
	}
	st, applied := nav.FetchFileContent(ctx, index)
	return jsonResponse(http.StatusOK, stepBody{State: st, Applied: applied}), nil
}

// Release handles DELETE /lookup/{searchId}
func (h *LookupHandler) Release(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	userID, err := GetUserID(req, h.jwtSecret)
	if err != nil {
		return unauthorized(), nil
	}
	if err := h.sessions.Release(req.PathParameters["searchId"], userID); err != nil {
		return sessionError(err), nil
	}
	return events.APIGatewayProxyResponse{StatusCode: http.StatusNoContent}, nil
}

func (h *LookupHandler) navigator(req events.APIGatewayProxyRequest) (*navigator.Navigator, events.APIGatewayProxyResponse, bool) {
	userID, err := GetUserID(req, h.jwtSecret)
	if err != nil {
		return nil, unauthorized(), false
	}
	nav, err := h.sessions.Get(req.PathParameters["searchId"], userID)
	if err != nil {
		return nil, sessionError(err), false
	}
	return nav, events.APIGatewayProxyResponse{}, true
}

func sessionError(err error) events.APIGatewayProxyResponse {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return events.APIGatewayProxyResponse{StatusCode: http.StatusNotFound, Body: "Search not found"}
	case errors.Is(err, session.ErrNotOwner):
		return events.APIGatewayProxyResponse{StatusCode: http.StatusForbidden, Body: "Forbidden"}
	}
	return events.APIGatewayProxyResponse{StatusCode: http.StatusInternalServerError, Body: "Internal Server Error"}
}
