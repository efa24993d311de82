package handler_test

import (
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jun/drivelookup/internal/handler"
)

func TestGetUserID_BearerToken(t *testing.T) {
	token := makeToken(testUserID)
	req := events.APIGatewayProxyRequest{
		Headers: map[string]string{
			"Authorization": "Bearer " + token,
		},
	}

	userID, err := handler.GetUserID(req, testJWTSecret)
	if err != nil {
		t.Fatalf("GetUserID failed: %v", err)
	}
	if userID != testUserID {
		t.Errorf("Expected userID '%s', got '%s'", testUserID, userID)
	}
}

func TestGetUserID_Cookie(t *testing.T) {
	token := makeToken(testUserID)
	req := events.APIGatewayProxyRequest{
		Headers: map[string]string{
			"Cookie": "session_token=" + token + "; Path=/",
		},
	}

	userID, err := handler.GetUserID(req, testJWTSecret)
	if err != nil {
		t.Fatalf("GetUserID from cookie failed: %v", err)
	}
	if userID != testUserID {
		t.Errorf("Expected userID '%s', got '%s'", testUserID, userID)
	}
}

func TestGetUserID_NoToken(t *testing.T) {
	req := events.APIGatewayProxyRequest{
		Headers: map[string]string{},
	}

	_, err := handler.GetUserID(req, testJWTSecret)
	if err == nil {
		t.Error("Expected error for missing token, got nil")
	}
}

func TestGetUserID_InvalidToken(t *testing.T) {
	req := events.APIGatewayProxyRequest{
		Headers: map[string]string{
			"Authorization": "Bearer invalid-jwt-token",
		},
	}

	_, err := handler.GetUserID(req, testJWTSecret)
	if err == nil {
		t.Error("Expected error for invalid token, got nil")
	}
}

func TestGetUserID_ExpiredToken(t *testing.T) {
	// Create an expired token
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": testUserID,
		"exp": time.Now().Add(-1 * time.Hour).Unix(),
	})
	signed, _ := token.SignedString([]byte(testJWTSecret))

	req := events.APIGatewayProxyRequest{
		Headers: map[string]string{
			"Authorization": "Bearer " + signed,
		},
	}

	_, err := handler.GetUserID(req, testJWTSecret)
	if err == nil {
		t.Error("Expected error for expired token, got nil")
	}
}

func TestGetUserID_CaseInsensitiveHeaders(t *testing.T) {
	token := makeToken(testUserID)
	req := events.APIGatewayProxyRequest{
		Headers: map[string]string{
			"authorization": "Bearer " + token, // lowercase
		},
	}

	userID, err := handler.GetUserID(req, testJWTSecret)
	if err != nil {
		t.Fatalf("GetUserID with lowercase header failed: %v", err)
	}
	if userID != testUserID {
		t.Errorf("Expected userID '%s', got '%s'", testUserID, userID)
	}
}

func TestGetIdentity_Username(t *testing.T) {
	req := makeRequest("GET", "/lookup/x", "")

	id, err := handler.GetIdentity(req, testJWTSecret)
	if err != nil {
		t.Fatalf("GetIdentity failed: %v", err)
	}
	if id.UserID != testUserID {
		t.Errorf("Expected userID '%s', got '%s'", testUserID, id.UserID)
	}
	if id.Username != "Analyst "+testUserID {
		t.Errorf("Expected username from name claim, got '%s'", id.Username)
	}
}

func TestGetIdentity_UsernameFallsBackToSubject(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": testUserID,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, _ := token.SignedString([]byte(testJWTSecret))
	req := events.APIGatewayProxyRequest{Headers: map[string]string{"Authorization": "Bearer " + signed}}

	id, err := handler.GetIdentity(req, testJWTSecret)
	if err != nil {
		t.Fatalf("GetIdentity failed: %v", err)
	}
	if id.Username != testUserID {
		t.Errorf("Expected username '%s', got '%s'", testUserID, id.Username)
	}
}

func TestGetUserID_WrongSecret(t *testing.T) {
	req := makeRequest("GET", "/lookup/x", "")

	if _, err := handler.GetUserID(req, "other-secret"); err == nil {
		t.Error("Expected error for token signed with another secret, got nil")
	}
}
