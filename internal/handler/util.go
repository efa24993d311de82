package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jun/drivelookup/internal/model"
)

// Identity is the caller named by a request's session token.
type Identity struct {
	UserID   string
	Username string
}

// GetIdentity extracts the caller from the Authorization header or session cookie.
func GetIdentity(req events.APIGatewayProxyRequest, jwtSecret string) (Identity, error) {
	// Helper for case-insensitive header lookup
	getHeader := func(name string) string {
		for k, v := range req.Headers {
			if strings.EqualFold(k, name) {
				return v
			}
		}
		return ""
	}

	// 1. Check Authorization Header (Bearer <token>)
	tokenString := ""
	authHeader := getHeader("Authorization")
	if authHeader != "" && strings.HasPrefix(authHeader, "Bearer ") {
		tokenString = strings.TrimPrefix(authHeader, "Bearer ")
	}

	// 2. Check Cookie
	if tokenString == "" {
		for _, part := range strings.Split(getHeader("Cookie"), ";") {
			part = strings.TrimSpace(part)
			if v, ok := strings.CutPrefix(part, "session_token="); ok {
				tokenString = v
				break
			}
		}
	}

	if tokenString == "" {
		return Identity{}, fmt.Errorf("no authorization token found")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Identity{}, fmt.Errorf("invalid token claims")
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return Identity{}, fmt.Errorf("invalid token claims")
	}
	name, _ := claims["name"].(string)
	if name == "" {
		name = sub
	}
	return Identity{UserID: sub, Username: name}, nil
}

// GetUserID extracts the user ID from the Authorization header or session cookie.
func GetUserID(req events.APIGatewayProxyRequest, jwtSecret string) (string, error) {
	id, err := GetIdentity(req, jwtSecret)
	return id.UserID, err
}

func jsonResponse(status int, v any) events.APIGatewayProxyResponse {
	body, err := json.Marshal(v)
	if err != nil {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusInternalServerError, Body: "Failed to encode response"}
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Body:       string(body),
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

func unauthorized() events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{StatusCode: http.StatusUnauthorized, Body: "Unauthorized"}
}

// errorBody is the JSON shape of a failed API call.
type errorBody struct {
	Errors []any `json:"errors"`
}

// errorResponse maps err to a status code by its kind.
func errorResponse(err error) events.APIGatewayProxyResponse {
	var mErr *model.Error
	if !errors.As(err, &mErr) {
		return jsonResponse(http.StatusInternalServerError, errorBody{Errors: []any{model.NewError(model.KindProvider, "Internal Server Error", err.Error(), 0, nil)}})
	}

	status := http.StatusBadGateway
	switch mErr.Kind {
	case model.KindValidation:
		status = http.StatusBadRequest
	case model.KindAuth:
		status = http.StatusUnauthorized
	case model.KindProvider:
		if mErr.Code >= 400 && mErr.Code < 600 {
			status = mErr.Code
		}
	}
	return jsonResponse(status, errorBody{Errors: []any{mErr}})
}
