package handler

import (
	"context"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/jun/drivelookup/internal/auth"
	"github.com/jun/drivelookup/internal/authserver"
	"github.com/jun/drivelookup/internal/logging"
	"go.uber.org/zap"
)

// AuthFlow is the part of the OAuth controller the API exposes.
type AuthFlow interface {
	VerifyAuthentication(state, userID string) auth.Verification
	CompleteAuthRequest(ctx context.Context, code, state string) (auth.Outcome, error)
}

// AuthHandler serves the auth polling and callback endpoints.
type AuthHandler struct {
	flow      AuthFlow
	jwtSecret string
	log       *zap.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(flow AuthFlow, jwtSecret string) *AuthHandler {
	return &AuthHandler{
		flow:      flow,
		jwtSecret: jwtSecret,
		log:       logging.ForComponent(logging.CompHTTP),
	}
}

// Verify handles GET /auth/verify?state=
func (h *AuthHandler) Verify(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	userID, err := GetUserID(req, h.jwtSecret)
	if err != nil {
		return unauthorized(), nil
	}
	state := req.QueryStringParameters["state"]
	if state == "" {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusBadRequest, Body: "Query parameter 'state' is required"}, nil
	}
	return jsonResponse(http.StatusOK, h.flow.VerifyAuthentication(state, userID)), nil
}

// Callback handles GET /auth/callback, the OAuth redirect target.
func (h *AuthHandler) Callback(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	q := req.QueryStringParameters
	outcome, err := h.flow.CompleteAuthRequest(ctx, q["code"], q["state"])
	if err != nil {
		h.log.Error("auth callback failed", zap.Error(err))
	}

	status, body, pageErr := authserver.Page(outcome, err)
	if pageErr != nil {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusInternalServerError, Body: "Internal Server Error"}, nil
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Body:       string(body),
		Headers:    map[string]string{"Content-Type": "text/html; charset=utf-8"},
	}, nil
}
